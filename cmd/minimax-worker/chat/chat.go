package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/minimax-worker/pkg/config"
	"github.com/papercomputeco/minimax-worker/pkg/conversation"
	"github.com/papercomputeco/minimax-worker/pkg/llm"
	"github.com/papercomputeco/minimax-worker/pkg/logger"
	"github.com/papercomputeco/minimax-worker/pkg/minimax"
)

const chatLongDesc string = `Chat with MiniMax from the terminal.

Each line read from stdin is sent together with the conversation so
far; the reply is printed as it streams. Type /reset to start a new
conversation and /exit (or end of input) to quit.

Examples:
  minimax-worker chat
  minimax-worker chat --config worker.toml --temperature 0.2`

const chatShortDesc string = "Interactive chat against MiniMax"

type chatCommander struct {
	configPath  string
	debug       bool
	temperature float64
	topP        float64
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := llm.SamplingParams{}
			if cmd.Flags().Changed("temperature") {
				params.Temperature = &cmder.temperature
			}
			if cmd.Flags().Changed("top-p") {
				params.TopP = &cmder.topP
			}
			return cmder.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), params)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().Float64Var(&cmder.temperature, "temperature", 0, "Sampling temperature (vendor default when unset)")
	cmd.Flags().Float64Var(&cmder.topP, "top-p", 0, "Nucleus sampling mass (vendor default when unset)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, in io.Reader, out, errOut io.Writer, params llm.SamplingParams) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log := logger.NewLogger(c.debug, logger.WithOutput(errOut))
	defer log.Sync()

	client := minimax.NewClientFromConfig(cfg, config.Static(cfg.Credentials()), log)
	defer client.Close()

	s := newStyles(isTerminal(out))
	tpl := client.Template()

	var history []conversation.Turn
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, s.user.Render(tpl.UserRole)+": ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit":
			return nil
		case "/reset":
			history = nil
			fmt.Fprintln(out, s.info.Render("conversation reset"))
			continue
		}

		history = append(history, conversation.Turn{Sender: conversation.User, Text: line})

		reply, err := c.reply(ctx, client, conversation.Flatten(history, tpl), params, out, s)
		if err != nil {
			// Unanswered questions are not kept in history.
			history = history[:len(history)-1]
			fmt.Fprintln(out, s.err.Render("error: "+err.Error()))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		history = append(history, conversation.Turn{Sender: conversation.Bot, Text: reply})
	}

	return scanner.Err()
}

// reply streams one answer to out, printing only the new part of each frame.
func (c *chatCommander) reply(ctx context.Context, client *minimax.Client, prompt string, params llm.SamplingParams, out io.Writer, s styles) (string, error) {
	stream, err := client.Stream(ctx, prompt, params)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	fmt.Fprint(out, s.bot.Render(client.Template().BotRole)+": ")

	printed := 0
	for stream.Next() {
		text := stream.Frame().Text
		fmt.Fprint(out, text[printed:])
		printed = len(text)
	}
	fmt.Fprintln(out)

	if err := stream.Err(); err != nil {
		return "", err
	}
	return stream.Text(), nil
}

type styles struct {
	user lipgloss.Style
	bot  lipgloss.Style
	info lipgloss.Style
	err  lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{user: plain, bot: plain, info: plain, err: plain}
	}
	return styles{
		user: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bot:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		info: lipgloss.NewStyle().Faint(true),
		err:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
