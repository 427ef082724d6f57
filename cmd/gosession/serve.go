package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/httpapi"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr string
		poll time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over a local HTTP API",
		Long: `Runs an HTTP server exposing the session to local consumers:

  GET  /session            flag and snapshot
  POST /session/login      {"token": "..."}
  POST /session/logout
  POST /session/check
  POST /session/refresh
  GET  /metrics            Prometheus counters

With file storage the token file is watched and external changes trigger a
status check. Other backends can be polled with --poll.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.release()

			if addr == "" {
				addr = s.settings.ServeAddr
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), ln, s, poll)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+defaultServeAddr+")")
	cmd.Flags().DurationVar(&poll, "poll", 0, "re-check the stored token at this interval (0 disables)")
	return cmd
}

// serve runs until ctx is cancelled, then shuts the server down.
func (a *app) serve(ctx context.Context, ln net.Listener, s *session, poll time.Duration) error {
	logger := a.logger.Named("serve")
	store := s.store

	if err := store.CheckLoginStatus(goSession.WithCaller(ctx, "serve")); err != nil {
		logger.Warn("initial status check failed", zap.Error(err))
	}

	r := chi.NewRouter()
	httpapi.New(store, httpapi.WithLogger(a.logger)).Register(r)
	r.Handle("/metrics", promexport.NewPrometheusExporter(store).Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recheck := func(reason string) {
		if err := store.CheckLoginStatus(goSession.WithCaller(ctx, reason)); err != nil && ctx.Err() == nil {
			logger.Warn("status check failed", zap.String("trigger", reason), zap.Error(err))
		}
	}
	if s.backend.file != nil {
		go func() {
			if err := s.backend.file.Watch(ctx, func() { recheck("watch") }); err != nil {
				logger.Warn("token watch stopped", zap.Error(err))
			}
		}()
	}
	if poll > 0 {
		go func() {
			t := time.NewTicker(poll)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					recheck("poll")
				}
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.String("api", store.Endpoint()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
