package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	aigrpc "github.com/charbel-alt28/aura-retail-ai/internal/aigateway/grpc"
	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/httpapi"
	"github.com/charbel-alt28/aura-retail-ai/internal/market"
	"github.com/charbel-alt28/aura-retail-ai/internal/notify"
	"github.com/charbel-alt28/aura-retail-ai/internal/otel"
	"github.com/charbel-alt28/aura-retail-ai/internal/store"
)

var errNotRunning = errors.New("aura is not running")

// Version is reported on /config; set by the CLI at build time.
var Version = "dev"

// StartForeground serves the API until ctx is cancelled.
func StartForeground(ctx context.Context, opts StartOptions) error {
	if opts.Home == "" {
		return errors.New("home is required")
	}
	cfg, err := config.Load(opts.Home)
	if err != nil {
		return err
	}
	if opts.Port == 0 {
		opts.Port = cfg.Server.Port
	}
	if opts.Port == 0 {
		opts.Port = config.DefaultPort
	}
	if opts.PprofAddr == "" {
		opts.PprofAddr = cfg.Server.Pprof
	}
	opts.Dev = opts.Dev || cfg.Server.Dev
	opts.EnableOtel = opts.EnableOtel || cfg.Server.Otel
	if opts.Fast {
		cfg.Scenario.Fast = true
	}

	if err := os.MkdirAll(config.ProtectedDir(opts.Home), 0o755); err != nil {
		return err
	}

	// Released on exit.
	lock, err := acquireLock(lockPath(opts.Home))
	if err != nil {
		return err
	}
	defer lock.release()

	startPprof(ctx, opts.PprofAddr)

	// Postgres migrates on connect.
	if cfg.Database.Driver != "postgres" {
		if err := store.EnsureSchema(opts.Home); err != nil {
			return err
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidPath(opts.Home), []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return err
	}
	addr := fmt.Sprintf("0.0.0.0:%d", opts.Port)
	_ = os.WriteFile(addrPath(opts.Home), []byte(addr+"\n"), 0o644)
	defer func() {
		_ = os.Remove(pidPath(opts.Home))
		_ = os.Remove(addrPath(opts.Home))
	}()

	if err := checkPortAvailable(opts.Port); err != nil {
		return err
	}

	srvOpts, err := ServerOptionsFromConfig(opts.Home, cfg)
	if err != nil {
		return err
	}
	srvOpts.Addr = addr
	srvOpts.Dev = opts.Dev
	if opts.EnableOtel {
		exp, err := otel.Setup(ctx, "aura", Version)
		if err != nil {
			slog.Warn("otel init failed, using plain metrics", "err", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = exp.Shutdown(shutdownCtx)
			}()
			srvOpts.MetricsHandler = exp.Handler
			srvOpts.UseOtelHTTP = true
		}
	}
	if cfg.Server.OTLPEndpoint != "" {
		shutdown, err := otel.SetupTracing(ctx, "aura", Version, cfg.Server.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "err", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
			srvOpts.UseOtelHTTP = true
		}
	}
	app, err := httpapi.NewApp(srvOpts)
	if err != nil {
		return err
	}
	if srvOpts.MetricsHandler != nil {
		if err := otel.InitMetricsWithCatalog(ctx, catalogStats(app)); err != nil {
			slog.Warn("otel instruments failed", "err", err)
		}
	}

	sched, err := NewScheduler(cfg.Schedule, app)
	if err != nil {
		app.Close()
		return err
	}

	slog.Info("daemon starting", "addr", addr, "home", opts.Home, "db", cfg.Database.Driver, "ai", app.Gateway.Name())
	sched.Start(ctx)
	if err := watchConfig(ctx, opts.Home, func(c config.Config) error { return sched.Reload(c.Schedule) }); err != nil {
		slog.Warn("config watch disabled", "err", err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sched.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = app.Server.Shutdown(shutdownCtx)
		app.Close()
		return ctx.Err()
	case err := <-errCh:
		sched.Stop()
		app.Close()
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ServerOptionsFromConfig builds the app options for home: catalog seed,
// AI gateway, notification targets, rate limits and scenario pacing.
func ServerOptionsFromConfig(home string, cfg config.Config) (httpapi.ServerOptions, error) {
	gw, err := NewGateway(cfg.AI)
	if err != nil {
		return httpapi.ServerOptions{}, err
	}
	delays := cfg.ScenarioDelays()
	notifier := notify.FromURLs(cfg.Notify.SlackWebhookURL, cfg.Notify.WebhookURL)
	if cfg.Notify.TelegramBotToken != "" {
		notifier.Register(notify.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID))
	}
	opts := httpapi.ServerOptions{
		Home:           home,
		APIKey:         cfg.Server.APIKey,
		Version:        Version,
		DBDriver:       cfg.Database.Driver,
		DBURL:          cfg.Database.URL,
		Gateway:        gw,
		AIRatePerMin:   cfg.AI.RateLimitPerMinute,
		AIBurst:        cfg.AI.Burst,
		ScenarioDelays: &delays,
		Notifier:       notifier,
	}
	if cfg.Catalog.Path != "" {
		catalog, err := market.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return httpapi.ServerOptions{}, err
		}
		opts.Catalog = catalog
	}
	return opts, nil
}

// NewGateway picks the AI backend named by cfg.Provider.
func NewGateway(cfg config.AIConfig) (aigateway.Gateway, error) {
	switch cfg.Provider {
	case "", "stub":
		return aigateway.Stub{}, nil
	case "openai":
		return aigateway.NewOpenAI(aigateway.OpenAIConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model})
	case "anthropic":
		return aigateway.NewAnthropic(aigateway.AnthropicConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model})
	case "grpc":
		if cfg.GRPCAddr == "" {
			return nil, errors.New("ai.grpc_addr is required for provider grpc")
		}
		return &aigrpc.Client{Addr: cfg.GRPCAddr}, nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}

func catalogStats(app *httpapi.App) otel.CatalogStatsFunc {
	return func() otel.CatalogStats {
		m := app.Ops.Metrics()
		return otel.CatalogStats{
			Products:       int64(m.Products),
			LowStock:       int64(m.CriticalItems),
			PendingQueries: int64(m.PendingQueries),
			StockHealth:    int64(m.StockHealth),
		}
	}
}

// StartBackground re-executes the binary as a detached daemon and returns its pid.
func StartBackground(ctx context.Context, opts StartOptions) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(config.ProtectedDir(opts.Home), 0o755); err != nil {
		return 0, err
	}
	if st, _ := Status(ctx, opts.Home); st.Running {
		return 0, fmt.Errorf("%w (pid %d)", ErrDaemonRunning, st.PID)
	}

	stderr, err := os.OpenFile(LogPath(opts.Home), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	// Kept open for the child's lifetime.

	args := []string{"daemon", "--home", opts.Home}
	if opts.Port != 0 {
		args = append(args, "--port", strconv.Itoa(opts.Port))
	}
	if opts.Dev {
		args = append(args, "--dev")
	}
	if opts.EnableOtel {
		args = append(args, "--otel")
	}
	if opts.Fast {
		args = append(args, "--fast")
	}
	if opts.PprofAddr != "" {
		args = append(args, "--pprof", opts.PprofAddr)
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	setDaemonSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := Status(ctx, opts.Home); st.Running {
			return st.PID, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cmd.Process.Pid, nil
}

// Stop sends SIGTERM and waits up to 15s before killing. It reports whether a daemon was running.
func Stop(ctx context.Context, home string) (bool, error) {
	st, err := Status(ctx, home)
	if err != nil {
		return false, err
	}
	if !st.Running {
		return false, nil
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return false, errNotRunning
	}
	if err := signalTerm(proc); err != nil {
		return false, err
	}
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if st2, _ := Status(ctx, home); !st2.Running {
			return true, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = proc.Kill()
	return true, nil
}

// Status reads the pid file and checks the process is alive. A stale pid file is removed.
func Status(ctx context.Context, home string) (StatusInfo, error) {
	pb, err := os.ReadFile(pidPath(home))
	if err != nil {
		return StatusInfo{Running: false}, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pb)))
	if err != nil || pid <= 0 {
		return StatusInfo{Running: false}, nil
	}
	if !processExists(pid) {
		_ = os.Remove(pidPath(home))
		return StatusInfo{Running: false}, nil
	}
	addr := ""
	if ab, err := os.ReadFile(addrPath(home)); err == nil {
		addr = strings.TrimSpace(string(ab))
	}
	if addr == "" {
		addr = "unknown"
	}
	return StatusInfo{Running: true, PID: pid, Addr: addr}, nil
}

func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("port %d is already in use", port)
	}
	_ = ln.Close()
	return nil
}
