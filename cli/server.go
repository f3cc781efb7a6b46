package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mini-ack/config"
	"mini-ack/middleware"
	"mini-ack/registry"
	"mini-ack/server"
	"mini-ack/transport"
)

const serverUsage = "Usage: ackserver -t <udp or tcp> -p <port number>"

// RunServer serves until ctx is cancelled or SIGINT/SIGTERM arrives and
// returns the process exit code.
func RunServer(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newServerCommand(stdout), args, stderr, serverUsage)
}

func newServerCommand(stdout io.Writer) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "ackserver",
		Short: "Receive numbers, print them and acknowledge each one",
		Args:  noArgs,
	}

	flags := cmd.Flags()
	flags.StringP("transport", "t", "", "udp or tcp")
	flags.StringP("port", "p", "", "port to listen on, 1024 to 65535")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9100")
	flags.Bool("registry", false, "announce this server in etcd")
	addCommonFlags(cmd, v)
	v.BindPFlag("server.metrics_addr", flags.Lookup("metrics-addr"))
	v.BindPFlag("server.registry.enable", flags.Lookup("registry"))

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := required(cmd, "transport", "port"); err != nil {
			return err
		}
		network, _ := flags.GetString("transport")
		portStr, _ := flags.GetString("port")

		kind, err := transport.ParseKind(network)
		if err != nil {
			return err
		}
		port, err := config.ParsePort(portStr)
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig(cmd, v)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, kind, port, cfg, logger, stdout)
	}
	return cmd
}

func serve(ctx context.Context, kind transport.Kind, port int, cfg *config.Config, logger *zap.Logger, stdout io.Writer) error {
	sc := cfg.Server
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithOutput(stdout),
		server.WithReadTimeout(sc.ReadTimeout),
		server.WithWriteTimeout(sc.WriteTimeout),
	}

	if sc.Registry.Enable {
		reg, err := registry.NewEtcdRegistry(sc.Registry.Endpoints, sc.Registry.DialTimeout)
		if err != nil {
			logger.Warn("registry unavailable, serving without it", zap.Error(err))
		} else {
			defer reg.Close()
			opts = append(opts,
				server.WithRegistry(reg, sc.Registry.AdvertiseAddr, sc.Registry.TTL),
				server.WithRegistryWeight(sc.Registry.Weight),
			)
		}
	}

	svr := server.NewServer(kind, opts...)
	svr.Use(middleware.MetricsMiddleware())
	svr.Use(middleware.LoggingMiddleware(logger))
	if sc.RateLimit.Enable {
		svr.Use(middleware.RateLimitMiddleware(sc.RateLimit.Rate, sc.RateLimit.Burst))
	}
	if sc.HandlerTimeout > 0 {
		svr.Use(middleware.TimeoutMiddleware(sc.HandlerTimeout))
	}
	// Innermost, so it runs on the same goroutine as the handler even when
	// TimeoutMiddleware moved it off the connection goroutine.
	svr.Use(middleware.RecoveryMiddleware(logger))

	if err := svr.Listen(net.JoinHostPort("", strconv.Itoa(port))); err != nil {
		return err
	}

	if sc.MetricsAddr != "" {
		ms := metricsServer(sc.MetricsAddr, logger)
		defer shutdownHTTP(ms, sc.ShutdownTimeout)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- svr.Serve() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("timeout", sc.ShutdownTimeout))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	if err := svr.Shutdown(sc.ShutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	return <-errCh
}

func metricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	ms := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics endpoint stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("metrics endpoint", zap.String("addr", addr))
	return ms
}

func shutdownHTTP(s *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.Shutdown(ctx)
}
