package servecmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/minimax-worker/pkg/config"
	"github.com/papercomputeco/minimax-worker/pkg/llm"
)

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer l.Close()
	return l.Addr().String()
}

var _ = Describe("Serve Command", func() {
	var (
		vendor     *httptest.Server
		configPath string
		addr       string
	)

	BeforeEach(func() {
		vendor = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":\"pong\"}]}\n\n")
		}))
		DeferCleanup(vendor.Close)

		addr = freeAddr()
		configPath = filepath.Join(GinkgoT().TempDir(), "worker.toml")
		cfg := fmt.Sprintf(`
[worker]
listen = %q
model_names = ["minimax-test"]

[minimax]
base_url = %q
group_id = "g-1"
api_key = "k-1"

[transcripts]
enabled = true
`, addr, vendor.URL)
		Expect(os.WriteFile(configPath, []byte(cfg), 0o600)).To(Succeed())
	})

	It("serves the worker protocol until the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cmd := NewServeCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--config", configPath})

		done := make(chan error, 1)
		go func() { done <- cmd.ExecuteContext(ctx) }()

		base := "http://" + addr
		Eventually(func() int {
			resp, err := http.Get(base + "/health")
			if err != nil {
				return 0
			}
			resp.Body.Close()
			return resp.StatusCode
		}, 5*time.Second, 20*time.Millisecond).Should(Equal(http.StatusOK))

		resp, err := http.Post(base+"/worker_get_status", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		var status llm.StatusResponse
		Expect(json.NewDecoder(resp.Body).Decode(&status)).To(Succeed())
		resp.Body.Close()
		Expect(status.ModelNames).To(Equal([]string{"minimax-test"}))

		body := `{"prompt":"\n### USER: ping\n### BOT:"}`
		resp, err = http.Post(base+"/worker_generate_stream", "application/json", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(Equal(append([]byte(`{"error_code":0,"text":"pong"}`), 0)))

		resp, err = http.Get(base + "/dag/stats")
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		cancel()
		Eventually(done, 10*time.Second).Should(Receive(BeNil()))
	})

	It("fails on an invalid config file", func() {
		Expect(os.WriteFile(configPath, []byte("[worker]\nconcurrency_limit = 0\n"), 0o600)).To(Succeed())

		cmd := NewServeCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--config", configPath})

		err := cmd.ExecuteContext(context.Background())
		Expect(err).To(MatchError(ContainSubstring("concurrency_limit")))
	})
})

var _ = Describe("newLogger", func() {
	It("enables debug from either flag or config", func() {
		cfg := config.Defaults()
		Expect(newLogger(&cfg, true).Core().Enabled(zap.DebugLevel)).To(BeTrue())

		cfg.Log.Debug = true
		Expect(newLogger(&cfg, false).Core().Enabled(zap.DebugLevel)).To(BeTrue())

		cfg.Log.Debug = false
		Expect(newLogger(&cfg, false).Core().Enabled(zap.DebugLevel)).To(BeFalse())
	})
})

