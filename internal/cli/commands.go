package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jonwraymond/serverops/config"
	"github.com/jonwraymond/serverops/health"
	"github.com/jonwraymond/serverops/internal/app"
	"github.com/jonwraymond/serverops/internal/probe"
)

// ErrUnhealthy is returned by check when the server reports unhealthy.
var ErrUnhealthy = errors.New("server is unhealthy")

// checkClient carries trace context to the server when a tracer provider is
// installed.
var checkClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

func newRunCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the server and serve until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := opts.load(ctx)
			if err != nil {
				return err
			}
			a, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
}

func newCheckCommand(opts *Options) *cobra.Command {
	var (
		url      string
		timeout  time.Duration
		attempts int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check [name]",
		Short: "Query a running server's health checks",
		Long: "check fetches /health (or /health/<name>) from a running server, prints the JSON " +
			"report and exits non-zero unless the status is healthy or degraded. With --attempts " +
			"it keeps polling until the server passes.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if url == "" {
				cfg, err := opts.load(ctx)
				if err != nil {
					return err
				}
				url = baseURL(cfg)
			}
			target := url + "/health"
			if len(args) == 1 {
				target += "/" + args[0]
			}

			p := probe.New(probe.Config{
				Attempts: attempts,
				Interval: interval,
				Strategy: probe.Constant,
				OnRetry: func(attempt int, err error, wait time.Duration) {
					fmt.Fprintf(cmd.ErrOrStderr(), "attempt %d: %v (retrying in %s)\n", attempt, err, wait)
				},
			})

			var body []byte
			err := p.Do(ctx, func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				var err error
				body, err = fetchReport(ctx, target)
				return err
			})
			if len(body) > 0 {
				if _, werr := cmd.OutOrStdout().Write(body); werr != nil {
					return errors.Join(err, werr)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "server base URL (default: first configured connector)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().IntVar(&attempts, "attempts", 1, "number of polls before giving up")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "wait between polls")
	return cmd
}

func baseURL(cfg *config.Config) string {
	conn := cfg.Server.Connectors[0]
	host := conn.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, fmt.Sprint(conn.Port))
}

// fetchReport returns the raw report body along with an error unless the
// reported status is healthy or degraded.
func fetchReport(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := checkClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("check: read response: %w", err)
	}
	var report struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("check: decode response: %w", err)
	}

	if report.Status == "" {
		return body, fmt.Errorf("check: %s", report.Error)
	}
	status, err := health.ParseStatus(report.Status)
	if err != nil {
		return body, fmt.Errorf("check: %w", err)
	}
	if !status.Passing() {
		return body, fmt.Errorf("%w: %s", ErrUnhealthy, status)
	}
	return body, nil
}

func newConfigCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "serverops version %s\n", Version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			return nil
		},
	}
}
