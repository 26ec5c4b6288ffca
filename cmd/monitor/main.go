// Command monitor periodically checks one website over HTTP, TLS and DNS and
// posts each cycle's findings to signed webhooks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/sitemonitor/internal/config"
	"github.com/hamed0406/sitemonitor/internal/httpapi"
	"github.com/hamed0406/sitemonitor/internal/logging"
	"github.com/hamed0406/sitemonitor/internal/metrics"
	"github.com/hamed0406/sitemonitor/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		flags       config.Options
		configPath  string
		sslChecking bool
	)

	cmd := &cobra.Command{
		Use:   "monitor <url>",
		Short: "Check a website periodically and post results to webhooks",
		Long: `monitor runs HTTP, TLS certificate and DNS checks against a URL every
--interval seconds and delivers the combined result as JSON to each webhook,
signed with HMAC-SHA256 in the Signature header.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.URL = args[0]
			}
			if cmd.Flags().Changed("ssl-checking") {
				flags.SSLChecking = &sslChecking
			}

			opts := flags
			if configPath != "" {
				file, err := config.LoadFile(configPath)
				if err != nil {
					return err
				}
				opts = config.Merge(file, flags, cmd.Flags().Changed)
			}
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML file with monitor options; explicit flags override it")
	f.StringVar(&flags.Method, "method", config.DefaultMethod, "HTTP method")
	f.StringVar((*string)(&flags.Body), "body", "", "request body as a JSON object")
	f.BoolVar(&flags.PostAsForm, "post-as-form", false, "send the body form-encoded instead of as JSON")
	f.StringArrayVar((*[]string)(&flags.Headers), "header", nil, "request header as key=value (repeatable)")
	f.StringVar(&flags.Accept, "accept-header", config.DefaultAccept, "Accept header")
	f.IntVar(&flags.Timeout, "timeout", config.DefaultTimeout, "request timeout in seconds")
	f.IntVar(&flags.Interval, "interval", config.DefaultInterval, "seconds between cycles")
	f.StringVar(&flags.Username, "username", "", "username for basic or digest auth")
	f.StringVar(&flags.Password, "password", "", "password for basic or digest auth")
	f.BoolVar(&flags.DigestAuth, "digest-auth", false, "use digest instead of basic auth")
	f.StringVar(&flags.BearerToken, "bearer-token", "", "bearer token, ignored when --username is set")
	f.StringArrayVar((*[]string)(&flags.Metadata), "metadata", nil, "metadata as key=value (repeatable)")
	f.StringArrayVar(&flags.WebhookURLs, "webhook-url", nil, "webhook URL (repeatable, paired with --webhook-secret)")
	f.StringArrayVar(&flags.WebhookSecrets, "webhook-secret", nil, "webhook secret (repeatable, paired with --webhook-url)")
	f.BoolVar(&flags.DNSChecking, "dns-checking", false, "resolve the target's hostname each cycle")
	f.StringArrayVar(&flags.DNSServers, "dns-checking-server", nil, "resolver: google, cloudflare, local or a nameserver address (repeatable)")
	f.BoolVar(&sslChecking, "ssl-checking", false, "force the certificate check on or off (default: on for https URLs)")
	f.BoolVar(&flags.Once, "once", false, "run a single cycle and exit")

	return cmd
}

func run(parent context.Context, opts config.Options) error {
	env := config.FromEnv()
	logger, err := logging.NewLogger(env.LogDir, env.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := opts.Build()
	if err != nil {
		logger.Error("invalid_config", zap.Error(err))
		return err
	}
	if opts.WebhookMismatch() {
		logger.Warn("webhook_config_mismatch",
			zap.Int("urls", len(opts.WebhookURLs)),
			zap.Int("secrets", len(opts.WebhookSecrets)),
		)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(cfg.URL, cfg.Metadata)
	mon := scheduler.NewFromConfig(logger, cfg, m)

	if env.StatusAddr != "" {
		api := httpapi.NewServer(logger, mon, m.Registry)
		srv := &http.Server{
			Addr:              env.StatusAddr,
			Handler:           api.Router(env.StatusAPIKeys, env.StatusRPM, env.StatusBurst),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("status_listen", zap.String("addr", env.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status_server_error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return mon.Run(ctx)
}
