package daemon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/config"
	"github.com/charbel-alt28/aura-retail-ai/internal/httpapi"
	"github.com/charbel-alt28/aura-retail-ai/internal/ops"
	"github.com/charbel-alt28/aura-retail-ai/internal/scenario"
)

func TestStartForeground_emptyHome(t *testing.T) {
	err := StartForeground(context.Background(), StartOptions{Home: ""})
	if err == nil {
		t.Fatal("StartForeground empty home: expected error")
	}
}

func testApp(t *testing.T) *httpapi.App {
	t.Helper()
	app, err := httpapi.NewApp(httpapi.ServerOptions{
		Home:           filepath.Join(t.TempDir(), "home"),
		InMemory:       true,
		ScenarioDelays: &scenario.Delays{},
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func writeProtected(t *testing.T, home, path, content string) {
	t.Helper()
	if err := os.MkdirAll(config.ProtectedDir(home), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStatus(t *testing.T) {
	home := t.TempDir()
	st, err := Status(context.Background(), home)
	if err != nil || st.Running {
		t.Fatalf("no pid file: got %+v, %v", st, err)
	}

	writeProtected(t, home, pidPath(home), "not-a-pid\n")
	if st, _ := Status(context.Background(), home); st.Running {
		t.Fatal("garbage pid file should not report running")
	}

	writeProtected(t, home, pidPath(home), strconv.Itoa(os.Getpid())+"\n")
	writeProtected(t, home, addrPath(home), "0.0.0.0:4870\n")
	st, _ = Status(context.Background(), home)
	if !st.Running || st.PID != os.Getpid() || st.Addr != "0.0.0.0:4870" {
		t.Fatalf("running: got %+v", st)
	}
}

func TestStatus_removesStalePidFile(t *testing.T) {
	home := t.TempDir()
	writeProtected(t, home, pidPath(home), "999999999\n")
	st, _ := Status(context.Background(), home)
	if st.Running {
		t.Fatal("dead pid reported running")
	}
	if _, err := os.Stat(pidPath(home)); !os.IsNotExist(err) {
		t.Fatalf("stale pid file kept: %v", err)
	}
}

func TestStop_notRunning(t *testing.T) {
	stopped, err := Stop(context.Background(), t.TempDir())
	if err != nil || stopped {
		t.Fatalf("Stop: got %v, %v", stopped, err)
	}
}

func TestAcquireLock_exclusive(t *testing.T) {
	path := lockPath(t.TempDir())
	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	_, err = acquireLock(path)
	if !errors.Is(err, ErrDaemonRunning) {
		t.Fatalf("second lock: got %v, want ErrDaemonRunning", err)
	}
	if want := "(pid " + strconv.Itoa(os.Getpid()) + ")"; !strings.Contains(err.Error(), want) {
		t.Fatalf("second lock error %q should name %s", err, want)
	}
	first.release()
	again, err := acquireLock(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again.release()
}

func TestPprofHandler(t *testing.T) {
	ts := httptest.NewServer(pprofHandler())
	defer ts.Close()
	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}
	resp, err := http.Get(ts.URL + "/products")
	if err != nil {
		t.Fatalf("GET /products: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("pprof mux should not serve the API: status %d", resp.StatusCode)
	}
}

func TestNewGateway(t *testing.T) {
	cases := []struct {
		cfg     config.AIConfig
		name    string
		wantErr bool
	}{
		{cfg: config.AIConfig{}, name: "stub"},
		{cfg: config.AIConfig{Provider: "stub"}, name: "stub"},
		{cfg: config.AIConfig{Provider: "openai", APIKey: "k"}, name: "openai"},
		{cfg: config.AIConfig{Provider: "openai"}, wantErr: true},
		{cfg: config.AIConfig{Provider: "anthropic", APIKey: "k"}, name: "anthropic"},
		{cfg: config.AIConfig{Provider: "anthropic"}, wantErr: true},
		{cfg: config.AIConfig{Provider: "grpc", GRPCAddr: "localhost:50061"}, name: "grpc"},
		{cfg: config.AIConfig{Provider: "grpc"}, wantErr: true},
		{cfg: config.AIConfig{Provider: "oracle"}, wantErr: true},
	}
	for _, tc := range cases {
		gw, err := NewGateway(tc.cfg)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%+v: expected error", tc.cfg)
			}
			continue
		}
		if err != nil {
			t.Errorf("%+v: %v", tc.cfg, err)
			continue
		}
		if gw.Name() != tc.name {
			t.Errorf("%+v: gateway %q, want %q", tc.cfg, gw.Name(), tc.name)
		}
	}
}

func TestServerOptionsFromConfig(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalog, []byte(`products:
  - id: "101"
    name: Salmon
    category: Seafood
    stock: 40
    reorder_level: 20
    demand_forecast: 18
    base_price: 12.99
    demand_level: medium
`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Catalog.Path = catalog
	cfg.Notify.SlackWebhookURL = "http://127.0.0.1:1/slack"
	cfg.Notify.WebhookURL = "http://127.0.0.1:1/hook"
	cfg.Notify.TelegramBotToken = "123:abc"
	cfg.Notify.TelegramChatID = 42
	cfg.Scenario.Fast = true
	cfg.Server.APIKey = "secret"

	opts, err := ServerOptionsFromConfig(dir, cfg)
	if err != nil {
		t.Fatalf("ServerOptionsFromConfig: %v", err)
	}
	if len(opts.Catalog) != 1 || opts.Catalog[0].CurrentPrice != 12.99 {
		t.Fatalf("catalog: got %+v", opts.Catalog)
	}
	if names := opts.Notifier.Names(); len(names) != 3 || names[0] != "slack" || names[1] != "telegram" || names[2] != "webhook" {
		t.Fatalf("notifiers: got %v", names)
	}
	if *opts.ScenarioDelays != (scenario.Delays{}) {
		t.Fatalf("fast delays: got %+v", *opts.ScenarioDelays)
	}
	if opts.APIKey != "secret" || opts.Gateway.Name() != "stub" || opts.AIRatePerMin != 10 {
		t.Fatalf("options: got %+v", opts)
	}

	cfg.Catalog.Path = filepath.Join(dir, "missing.yaml")
	if _, err := ServerOptionsFromConfig(dir, cfg); err == nil {
		t.Fatal("missing catalog: expected error")
	}
}

func TestNewScheduler(t *testing.T) {
	app := testApp(t)
	s, err := NewScheduler(config.ScheduleConfig{Scan: "@every 1h", Backup: "0 0 3 * * *"}, app)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Entries() != 2 {
		t.Fatalf("entries: got %d", s.Entries())
	}
	s.Start(context.Background())
	s.Stop()

	if _, err := NewScheduler(config.ScheduleConfig{Scan: "every day"}, app); err == nil {
		t.Fatal("invalid spec: expected error")
	}
}

func TestScheduler_RunJob(t *testing.T) {
	app := testApp(t)
	s, err := NewScheduler(config.ScheduleConfig{}, app)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	ctx := context.Background()

	if err := s.RunJob(ctx, "auto_reorder"); err != nil {
		t.Fatalf("auto_reorder: %v", err)
	}
	if low := app.Ops.LowStock(); len(low) != 0 {
		t.Fatalf("low stock after auto_reorder: %d", len(low))
	}
	if err := s.RunJob(ctx, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if !app.Market.BeginSimulation() {
		t.Fatal("BeginSimulation")
	}
	if err := s.RunJob(ctx, "scenario"); err != nil {
		t.Fatalf("scenario while running should be skipped: %v", err)
	}
	app.Market.EndSimulation()
	if err := s.RunJob(ctx, "scenario"); err != nil {
		t.Fatalf("scenario: %v", err)
	}
	if qs := app.Market.Queries(); len(qs) != 2 {
		t.Fatalf("scenario queries: got %d", len(qs))
	}

	if err := s.RunJob(ctx, "backup"); !errors.Is(err, ops.ErrNoRepository) {
		t.Fatalf("backup in memory: got %v", err)
	}
	if err := s.RunJob(ctx, "teleport"); err == nil {
		t.Fatal("unknown job: expected error")
	}
}

func TestScheduler_Reload(t *testing.T) {
	app := testApp(t)
	s, err := NewScheduler(config.ScheduleConfig{Scan: "@every 1h", Backup: "0 0 3 * * *"}, app)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if err := s.Reload(config.ScheduleConfig{Scan: "@every 1h", AutoReorder: "@every 10m"}); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	specs := s.Specs()
	if len(specs) != 2 || specs["auto_reorder"] != "@every 10m" || specs["backup"] != "" {
		t.Fatalf("specs after reload: %v", specs)
	}
	if s.Entries() != 2 {
		t.Fatalf("entries: got %d", s.Entries())
	}

	if err := s.Reload(config.ScheduleConfig{Scan: "every day"}); err == nil {
		t.Fatal("invalid spec: expected error")
	}
	if got := s.Specs(); len(got) != 2 {
		t.Fatalf("bad reload changed the schedule: %v", got)
	}
}

func TestWatchConfig_reloadsOnWrite(t *testing.T) {
	home := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan config.Config, 4)
	if err := watchConfig(ctx, home, func(c config.Config) error {
		got <- c
		return nil
	}); err != nil {
		t.Fatalf("watchConfig: %v", err)
	}

	// An invalid file is skipped; the valid rewrite that follows is applied.
	if err := os.WriteFile(config.Path(home), []byte("schedule:\n  scan: \"every day\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * configSettle)
	if err := os.WriteFile(config.Path(home), []byte("schedule:\n  scan: \"@every 2h\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-got:
		if c.Schedule.Scan != "@every 2h" {
			t.Fatalf("reloaded scan spec: %q", c.Schedule.Scan)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}
