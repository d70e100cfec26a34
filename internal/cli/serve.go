package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/server"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fact-check HTTP API",
	Long: `Serve exposes the pipeline over HTTP:
  POST /fact-check   {"answer": "..."} or {"text": "..."} -> report
  GET  /health       liveness and version
  GET  /metrics      Prometheus metrics

Example:
  claimcheck serve --addr :8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config server.addr)")
	serveCmd.Flags().DurationVar(&serveTimeout, "request-timeout", 5*time.Minute, "timeout for a single fact-check request")
	addOverrideFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyOverrides(cfg)
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	graph, err := pipeline.New(cfg, pipeline.Options{Metrics: metrics.New(reg)})
	if err != nil {
		return err
	}

	srv := server.New(graph,
		server.WithGatherer(reg),
		server.WithTimeout(serveTimeout),
		server.WithVersion(Version),
	)

	zap.L().Info("serve: starting",
		zap.String("addr", addr),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Strings("stages", graph.Nodes()),
	)
	return srv.ListenAndServe(ctx, addr)
}
