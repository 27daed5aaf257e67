package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/executor"
	"github.com/xdg/cmdgate/internal/gateway"
	"github.com/xdg/cmdgate/internal/governor"
	"github.com/xdg/cmdgate/internal/metrics"
	"github.com/xdg/cmdgate/internal/policy"
	"github.com/xdg/cmdgate/internal/server"
	"github.com/xdg/cmdgate/internal/term"
	"github.com/xdg/cmdgate/internal/tools"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 30 * time.Second

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	Long: `Run the gateway HTTP server in the foreground.

Routes:
  POST /execute         run a command (API key or bearer token)
  POST /tools/{name}    run a registered tool
  GET  /health          liveness and load
  GET  /capabilities    tool catalog and limits (authenticated)
  GET  /metrics         Prometheus metrics
  POST /auth/login      exchange a password for a bearer token
  GET  /auth/me         describe the calling principal

The server blocks until interrupted (SIGINT/SIGTERM), then drains in-flight
requests for up to 30s.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides server.listen)")
	rootCmd.AddCommand(serveCmd)
}

// app is a fully wired gateway.
type app struct {
	cfg      *config.Config
	registry *tools.Registry
	gateway  *gateway.Gateway
	server   *server.Server
	pool     *executor.Pool
	closers  []func()
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildPolicies returns the validator for direct commands and the one for
// tool dispatch. Only the tool validator admits the catalog's executables,
// so /execute never reaches a tool binary outside its argument schema
// unless policy.allow names it.
func buildPolicies(cfg *config.Config, reg *tools.Registry) (command, tool policy.Validator, err error) {
	pc := policy.Config{
		Mode:  policy.Mode(cfg.Policy.Mode),
		Allow: cfg.Policy.Allow,
		Deny:  cfg.Policy.Deny,
	}
	command, err = policy.New(pc)
	if err != nil {
		return nil, nil, fmt.Errorf("build policy: %w", err)
	}
	if !cfg.Policy.RegisteredToolsAllowed() {
		return command, command, nil
	}
	pc.ImplicitAllow = reg.Executables()
	tool, err = policy.New(pc)
	if err != nil {
		return nil, nil, fmt.Errorf("build tool policy: %w", err)
	}
	return command, tool, nil
}

// openUserStore selects PostgreSQL when a database URL is configured and
// the YAML users file otherwise. The returned func closes the store.
func openUserStore(ctx context.Context, cfg *config.Config) (auth.UserStore, func(), error) {
	if cfg.Auth.DatabaseURL != "" {
		s, err := auth.OpenPGStore(ctx, cfg.Auth.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		clog.Debug("user store: postgres")
		return s, s.Close, nil
	}
	clog.Debug("user store: %s", cfg.Auth.UsersFile)
	return auth.NewFileStore(cfg.Auth.UsersFile), func() {}, nil
}

// tokenIssuer returns nil when no signing secret is configured.
func tokenIssuer(cfg *config.Config) (*auth.TokenIssuer, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TTL())
}

func apiKeys(cfg *config.Config) []auth.APIKey {
	keys := make([]auth.APIKey, 0, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		keys = append(keys, auth.APIKey{Name: k.Name, Key: k.Key})
	}
	return keys
}

// newApp wires every component from cfg. Audit events go to auditW. reg
// receives the metric collectors; a nil reg uses a fresh registry.
func newApp(ctx context.Context, cfg *config.Config, auditW io.Writer, reg *prometheus.Registry) (*app, error) {
	a := &app{cfg: cfg, registry: tools.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	cmdPolicy, toolPolicy, err := buildPolicies(cfg, a.registry)
	if err != nil {
		return nil, err
	}

	gov := governor.New(governor.Config{
		MaxConcurrent: cfg.Governor.MaxConcurrent,
		MaxMemoryMB:   cfg.Governor.MaxMemoryMB,
	})

	a.pool = executor.NewPool(executor.NewRealExecutor(
		executor.WithInheritEnv(cfg.Executor.InheritEnv),
		executor.WithMaxOutputBytes(cfg.Executor.MaxOutputBytes),
	), cfg.Executor.Workers)
	a.closers = append(a.closers, a.pool.Close)

	users, closeUsers, err := openUserStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeUsers)

	issuer, err := tokenIssuer(cfg)
	if err != nil {
		return nil, err
	}
	keys := auth.NewKeySet(apiKeys(cfg))
	authn := auth.NewAuthenticator(keys, issuer, users)
	if keys.Len() == 0 && issuer == nil {
		clog.Warn("no API keys or token secret configured; every request will be refused")
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.NewWith(reg)
	metrics.RegisterGauges(reg, metrics.GaugeSource{
		Active:      func() float64 { return float64(gov.Active()) },
		MemoryMB:    func() float64 { return float64(gov.LastMemoryMB()) },
		PoolBusy:    func() float64 { return float64(a.pool.Busy()) },
		PoolWorkers: float64(a.pool.Size()),
	})

	auditLogger := audit.NewLogger(auditW)

	a.gateway, err = gateway.New(gateway.Options{
		Auth:       authn,
		Governor:   gov,
		Policy:     cmdPolicy,
		ToolPolicy: toolPolicy,
		Pool:       a.pool,
		Tools:      a.registry,
		Audit:      auditLogger,
		Metrics:    m,
	})
	if err != nil {
		return nil, err
	}

	// A nil *Authenticator in the interface would not read as "disabled".
	var login server.LoginService
	if issuer != nil {
		login = authn
	}
	a.server = server.New(a.gateway, login, auditLogger, m)
	if cfg.Server.Listen != "" {
		a.server.Addr = cfg.Server.Listen
	}
	if cfg.Server.MaxBodyBytes > 0 {
		a.server.MaxBodyBytes = cfg.Server.MaxBodyBytes
	}

	ok = true
	return a, nil
}

// configureLogging points clog at the configured log file and level.
// --debug wins over log.level; --silent keeps logs out of stderr.
func configureLogging(cfg *config.Config) error {
	if err := clog.Configure(cfg.Log.File, debugFlag, silentFlag); err != nil {
		return err
	}
	if !debugFlag && cfg.Log.Level != "" {
		clog.SetLevel(clog.ParseLevel(cfg.Log.Level))
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if err := configureLogging(cfg); err != nil {
		return err
	}
	defer func() { _ = clog.Close() }()

	auditFile, err := clog.OpenLogFile(cfg.Log.AuditFile)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = auditFile.Close() }()
	clog.Info("audit logging enabled: %s", cfg.Log.AuditFile)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, auditFile, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	clog.Info("cmdgate ready on %s (policy=%s, workers=%d)",
		a.server.ListenAddr(), cfg.Policy.Mode, a.pool.Size())
	term.Printf("cmdgate listening on http://%s\n", a.server.ListenAddr())

	<-ctx.Done()
	clog.Debug("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	clog.Info("cmdgate stopped")
	return nil
}
