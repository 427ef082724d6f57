// Command gosession drives a session store from the shell: log in with a
// token, inspect the cached votes and ratings, or serve the session over a
// local HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds global flags and the per-invocation logger.
type app struct {
	configPath string
	verbose    bool
	jsonOutput bool
	flags      overrides

	getenv func(string) string
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{getenv: getenv}

	root := &cobra.Command{
		Use:   "gosession",
		Short: "Manage a votes-and-ratings session",
		Long: `gosession keeps one login session for the votes API.

The bearer token is persisted under the key "jwt" in the selected storage
backend. Every command rebuilds the in-memory session from that token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initLogger(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.flags.APIBase, "api-base", "", "votes API base URL (env GOSESSION_API_BASE)")
	pf.StringVar(&a.flags.Storage, "storage", "", "token storage: file, redis, sqlite or postgres (env GOSESSION_STORAGE)")
	pf.StringVar(&a.flags.RedisAddr, "redis-addr", "", "redis address (env REDIS_ADDR)")
	pf.StringVar(&a.flags.DSN, "dsn", "", "sqlite path or postgres DSN (env GOSESSION_DSN)")
	pf.StringVar(&a.flags.Dir, "dir", "", "token directory for file storage (default ~/.gosession)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.statusCmd(),
		a.fetchCmd(),
		a.tokenCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) initLogger(stderr io.Writer) error {
	level := zapcore.WarnLevel
	if a.verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(stderr), level)
	a.logger = zap.New(core)
	return nil
}

// session is an opened store plus its backend; release closes both.
type session struct {
	store    *goSession.Store
	backend  *backend
	settings settings
}

func (s *session) release() {
	s.store.Close()
	_ = s.backend.close()
}

func (a *app) openSession(ctx context.Context) (*session, error) {
	st, err := loadSettings(a.configPath, a.getenv, a.flags)
	if err != nil {
		return nil, err
	}
	be, err := openBackend(ctx, st.Storage)
	if err != nil {
		return nil, err
	}

	for _, w := range st.Session.Lint() {
		a.logger.Warn("config warning", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	store, err := goSession.New().
		WithConfig(st.Session).
		WithTokenStore(be.store).
		WithLogger(a.logger).
		Build()
	if err != nil {
		_ = be.close()
		return nil, err
	}
	return &session{store: store, backend: be, settings: st}, nil
}
