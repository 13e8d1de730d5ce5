package conversation_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minimax-worker/pkg/conversation"
)

var _ = Describe("Decode", func() {
	var tpl conversation.Template

	BeforeEach(func() {
		tpl = conversation.MiniMax("minimax-api")
	})

	sep := "\n### "

	Context("with a well formed prompt", func() {
		It("drops the preamble and the trailing slot", func() {
			prompt := "system text" + sep + "USER:  what is Go?  " + sep + "BOT: a language\n" + sep + "BOT:"

			turns, err := conversation.Decode(prompt, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(Equal([]conversation.Turn{
				{Sender: conversation.User, Text: "what is Go?"},
				{Sender: conversation.Bot, Text: "a language"},
			}))
		})

		It("strips the whole BOT prefix", func() {
			prompt := sep + "BOT: hello there" + sep + "BOT:"

			turns, err := conversation.Decode(prompt, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].Text).To(Equal("hello there"))
		})

		It("keeps consecutive turns from the same sender", func() {
			prompt := sep + "USER: one" + sep + "USER: two" + sep + "BOT:"

			turns, err := conversation.Decode(prompt, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(Equal([]conversation.Turn{
				{Sender: conversation.User, Text: "one"},
				{Sender: conversation.User, Text: "two"},
			}))
		})

		It("keeps text containing role labels after the prefix", func() {
			prompt := sep + "USER: say BOT: hi" + sep + "BOT:"

			turns, err := conversation.Decode(prompt, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns[0]).To(Equal(conversation.Turn{Sender: conversation.User, Text: "say BOT: hi"}))
		})
	})

	Context("with no turns", func() {
		It("returns an empty list for a prompt without separators", func() {
			turns, err := conversation.Decode("just text", tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("returns an empty list for a single separator", func() {
			turns, err := conversation.Decode(sep+"BOT:", tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("returns an empty list for an empty prompt", func() {
			turns, err := conversation.Decode("", tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})
	})

	Context("with an unknown role", func() {
		It("fails with MalformedPrompt carrying the segment", func() {
			prompt := sep + "USER: hi" + sep + "SYSTEM: nope" + sep + "BOT:"

			turns, err := conversation.Decode(prompt, tpl)
			Expect(turns).To(BeNil())
			Expect(errors.Is(err, conversation.ErrMalformedPrompt)).To(BeTrue())

			var malformed *conversation.MalformedPromptError
			Expect(errors.As(err, &malformed)).To(BeTrue())
			Expect(malformed.Segment).To(Equal("SYSTEM: nope"))
		})

		It("requires the colon after the role label", func() {
			_, err := conversation.Decode(sep+"USER hi"+sep+"BOT:", tpl)
			Expect(err).To(MatchError(conversation.ErrMalformedPrompt))
		})

		It("is case sensitive", func() {
			_, err := conversation.Decode(sep+"user: hi"+sep+"BOT:", tpl)
			Expect(err).To(MatchError(conversation.ErrMalformedPrompt))
		})
	})

	DescribeTable("the preamble/USER/BOT/trailer layout",
		func(preamble, text1, text2, trailer string) {
			prompt := preamble + sep + "USER:" + text1 + sep + "BOT:" + text2 + sep + trailer

			turns, err := conversation.Decode(prompt, tpl)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(Equal([]conversation.Turn{
				{Sender: conversation.User, Text: trimmed(text1)},
				{Sender: conversation.Bot, Text: trimmed(text2)},
			}))
		},
		Entry("plain", "", "hi", "hello", "BOT:"),
		Entry("padded", "sys", "  hi  ", "\thello\n", "BOT:"),
		Entry("empty texts", "", "", "", ""),
		Entry("unicode", "前言", " 你好 ", " 您好！", "anything"),
	)
})

var _ = Describe("Flatten", func() {
	tpl := conversation.MiniMax("minimax-api")

	It("renders the template layout", func() {
		out := conversation.Flatten([]conversation.Turn{
			{Sender: conversation.User, Text: "hi"},
			{Sender: conversation.Bot, Text: "hello"},
		}, tpl)

		Expect(out).To(Equal("\n### USER: hi\n### BOT: hello\n### BOT:"))
	})

	It("round-trips through Decode", func() {
		turns := []conversation.Turn{
			{Sender: conversation.User, Text: "first question"},
			{Sender: conversation.Bot, Text: "first answer"},
			{Sender: conversation.User, Text: "second question"},
			{Sender: conversation.User, Text: "follow up"},
		}

		decoded, err := conversation.Decode(conversation.Flatten(turns, tpl), tpl)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(turns))

		again, err := conversation.Decode(conversation.Flatten(decoded, tpl), tpl)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(decoded))
	})

	It("renders an empty conversation as the answer slot only", func() {
		out := conversation.Flatten(nil, tpl)

		Expect(out).To(Equal("\n### BOT:"))
		turns, err := conversation.Decode(out, tpl)
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(BeEmpty())
	})
})

var _ = Describe("Messages", func() {
	It("maps turns to wire messages in order", func() {
		msgs := conversation.Messages([]conversation.Turn{
			{Sender: conversation.User, Text: "a"},
			{Sender: conversation.Bot, Text: "b"},
		})

		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].SenderType).To(Equal("USER"))
		Expect(msgs[1].SenderType).To(Equal("BOT"))
		Expect(msgs[1].Text).To(Equal("b"))
	})
})
