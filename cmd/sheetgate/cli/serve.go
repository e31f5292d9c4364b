package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frotaops/sheetgate/internal/auth"
	"github.com/frotaops/sheetgate/internal/credentials"
	"github.com/frotaops/sheetgate/internal/server"
	"github.com/frotaops/sheetgate/internal/service"
	"github.com/frotaops/sheetgate/internal/transport"
)

func newServeCmd() *cobra.Command {
	var (
		port      int
		host      string
		rateLimit int
		dev       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sheetgate API server",
		Long:  "Start the HTTP server that exposes the sync protocol for the configured workbook.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, rateLimit, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 300, "Per-IP requests per minute on the protocol endpoint (0 disables)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port, rateLimit int, dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := server.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.RequestsPerMinute = rateLimit

	srv := server.New(cfg, newSyncProvider(), logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Protocol:  http://%s:%d/api/v1/sync\n", host, port)
	fmt.Printf("→ Health:    http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}

// newSyncProvider wires credentials, token manager, transport, and service
// on first use. Credentials are read lazily so a misconfigured deployment
// starts up and reports the configuration error per request, matching the
// serverless origins of the protocol. The first failure sticks: a bad key
// needs an operator fix, not a retry.
func newSyncProvider() func(ctx context.Context) (*service.Sync, error) {
	build := sync.OnceValues(func() (*service.Sync, error) {
		creds, err := credentials.Load()
		if err != nil {
			return nil, err
		}
		tokens := auth.NewManager(creds)
		tp := transport.NewClient(creds.WorkbookID, tokens)
		return service.New(creds.WorkbookID, tp), nil
	})
	return func(ctx context.Context) (*service.Sync, error) {
		return build()
	}
}
