package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/internal/scenario"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the HTTP port when neither the file nor AURA_PORT sets one.
const DefaultPort = 4870

// Config mirrors <home>/config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Notify   NotifyConfig   `yaml:"notify"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	Dev    bool   `yaml:"dev"`
	APIKey string `yaml:"api_key"`
	Otel   bool   `yaml:"otel"`
	Pprof  string `yaml:"pprof"`

	// OTLPEndpoint receives traces over OTLP/HTTP, e.g. http://localhost:4318.
	// Empty disables tracing.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type AIConfig struct {
	// Provider is "stub" (default), "openai", "anthropic" or "grpc".
	Provider           string `yaml:"provider"`
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	Model              string `yaml:"model"`
	GRPCAddr           string `yaml:"grpc_addr"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	Burst              int    `yaml:"burst"`
}

type ScenarioConfig struct {
	Fast   bool     `yaml:"fast"`
	Delays DelaysMS `yaml:"delays"`
}

// DelaysMS are scenario pauses in milliseconds.
type DelaysMS struct {
	Scan           int `yaml:"scan"`
	Alert          int `yaml:"alert"`
	Reorder        int `yaml:"reorder"`
	BeforePricing  int `yaml:"before_pricing"`
	Analyze        int `yaml:"analyze"`
	Adjust         int `yaml:"adjust"`
	BeforeCustomer int `yaml:"before_customer"`
	FirstQuery     int `yaml:"first_query"`
	SecondQuery    int `yaml:"second_query"`
	Summary        int `yaml:"summary"`
}

// ScheduleConfig holds cron specs (seconds field first). Empty disables a job.
type ScheduleConfig struct {
	Scan        string `yaml:"scan"`
	AutoReorder string `yaml:"auto_reorder"`
	Backup      string `yaml:"backup"`
	Scenario    string `yaml:"scenario"`
}

type NotifyConfig struct {
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
	WebhookURL       string `yaml:"webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := scenario.DefaultDelays()
	ms := func(v time.Duration) int { return int(v / time.Millisecond) }
	return Config{
		Server:   ServerConfig{Port: DefaultPort},
		Database: DatabaseConfig{Driver: "sqlite"},
		AI: AIConfig{
			Provider:           "stub",
			BaseURL:            aigateway.DefaultBaseURL,
			Model:              aigateway.DefaultModel,
			RateLimitPerMinute: 10,
			Burst:              5,
		},
		Scenario: ScenarioConfig{Delays: DelaysMS{
			Scan: ms(d.Scan), Alert: ms(d.Alert), Reorder: ms(d.Reorder),
			BeforePricing: ms(d.BeforePricing), Analyze: ms(d.Analyze), Adjust: ms(d.Adjust),
			BeforeCustomer: ms(d.BeforeCustomer), FirstQuery: ms(d.FirstQuery),
			SecondQuery: ms(d.SecondQuery), Summary: ms(d.Summary),
		}},
	}
}

// Path returns <home>/config.yaml.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Load reads <home>/config.yaml over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(home string) (Config, error) {
	cfg, err := LoadFile(home)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile reads config.yaml over the defaults without environment overrides
// or validation, for commands that edit and re-save the file.
func LoadFile(home string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(Path(home))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", Path(home), err)
		}
	case !os.IsNotExist(err):
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to <home>/config.yaml.
func Save(home string, cfg Config) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(Path(home), data, 0o600)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AURA_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AURA_PORT: %w", err)
		}
		c.Server.Port = p
	}
	setString(&c.Server.APIKey, "AURA_API_KEY")
	setString(&c.Server.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Driver, "AURA_DB_DRIVER")
	setString(&c.AI.Provider, "AURA_AI_PROVIDER")
	setString(&c.AI.BaseURL, "AURA_AI_BASE_URL")
	if k := AIKeyFromEnv(); k != "" {
		c.AI.APIKey = k
	}
	if c.AI.APIKey == "" && c.AI.Provider == "anthropic" {
		setString(&c.AI.APIKey, "ANTHROPIC_API_KEY")
	}
	setString(&c.AI.Model, "AURA_AI_MODEL")
	setString(&c.AI.GRPCAddr, "AURA_AI_GRPC_ADDR")
	setString(&c.Notify.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	setString(&c.Notify.WebhookURL, "AURA_WEBHOOK_URL")
	setString(&c.Notify.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Notify.TelegramChatID = id
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// AIKeyFromEnv returns AURA_AI_API_KEY, falling back to OPENAI_API_KEY.
func AIKeyFromEnv() string {
	if v := os.Getenv("AURA_AI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Validate checks enumerations and cron specs.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}
	switch c.AI.Provider {
	case "", "stub", "openai", "anthropic", "grpc":
	default:
		return fmt.Errorf("ai.provider: unknown provider %q", c.AI.Provider)
	}
	if c.AI.Provider == "grpc" && c.AI.GRPCAddr == "" {
		return fmt.Errorf("ai.grpc_addr is required for provider grpc")
	}
	if c.Notify.TelegramBotToken != "" && c.Notify.TelegramChatID == 0 {
		return fmt.Errorf("notify.telegram_chat_id is required with a telegram bot token")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range c.Schedule.Jobs() {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s: %w", name, err)
		}
	}
	return nil
}

// Jobs maps job names to their cron specs.
func (s ScheduleConfig) Jobs() map[string]string {
	return map[string]string{
		"scan":         s.Scan,
		"auto_reorder": s.AutoReorder,
		"backup":       s.Backup,
		"scenario":     s.Scenario,
	}
}

// ScenarioDelays converts the configured pauses. Fast zeroes every pause.
func (c Config) ScenarioDelays() scenario.Delays {
	if c.Scenario.Fast {
		return scenario.Delays{}
	}
	d := c.Scenario.Delays
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return scenario.Delays{
		Scan: ms(d.Scan), Alert: ms(d.Alert), Reorder: ms(d.Reorder),
		BeforePricing: ms(d.BeforePricing), Analyze: ms(d.Analyze), Adjust: ms(d.Adjust),
		BeforeCustomer: ms(d.BeforeCustomer), FirstQuery: ms(d.FirstQuery),
		SecondQuery: ms(d.SecondQuery), Summary: ms(d.Summary),
	}
}

// LoadEnvFile sets KEY=VALUE lines from path into the process environment.
// Blank lines and # comments are skipped; existing variables are overwritten.
func LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: expected KEY=VALUE", path, n)
		}
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if err := os.Setenv(strings.TrimSpace(k), v); err != nil {
			return err
		}
	}
	return sc.Err()
}
