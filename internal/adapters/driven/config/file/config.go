package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment names.
const (
	EnvDev        = "dev"
	EnvProduction = "production"
)

// Environment variables.
const (
	EnvConfigPath = "SLACKPANEL_CONFIG"

	// EnvCloudRun is set by Cloud Run and implies production.
	EnvCloudRun = "K_SERVICE"
)

// Config is the full application configuration.
type Config struct {
	// Environment is "dev" or "production".
	Environment string `toml:"environment"`

	Slack     SlackConfig     `toml:"slack"`
	Mixpanel  MixpanelConfig  `toml:"mixpanel"`
	Storage   StorageConfig   `toml:"storage"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Server    ServerConfig    `toml:"server"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
}

// SlackConfig configures the source client.
type SlackConfig struct {
	BotToken           string   `toml:"bot_token"`
	UserToken          string   `toml:"user_token"`
	BaseURL            string   `toml:"base_url,omitempty"`
	Timeout            Duration `toml:"timeout"`
	DetailRate         float64  `toml:"detail_rate"`
	AnalyticsJitterMin Duration `toml:"analytics_jitter_min"`
	AnalyticsJitterMax Duration `toml:"analytics_jitter_max"`
	RateLimitBackoff   Duration `toml:"rate_limit_backoff"`
	RateLimitRetries   int      `toml:"rate_limit_retries"`
}

// MixpanelConfig configures the destination uploader.
type MixpanelConfig struct {
	ProjectID     string   `toml:"project_id"`
	Token         string   `toml:"token"`
	ServiceUser   string   `toml:"service_user"`
	ServiceSecret string   `toml:"service_secret"`
	Region        string   `toml:"region"`
	BaseURL       string   `toml:"base_url,omitempty"`
	BatchSize     int      `toml:"batch_size"`
	MaxBatchBytes int      `toml:"max_batch_bytes"`
	Workers       int      `toml:"workers"`
	Timeout       Duration `toml:"timeout"`
}

// StorageConfig selects the day-file backend and the database location.
type StorageConfig struct {
	// Root is the local day-file directory.
	Root string `toml:"root"`

	// GCSBasePath selects Cloud Storage when set (gs://bucket/prefix).
	GCSBasePath string `toml:"gcs_base_path"`

	// DataDir holds the run history database. Empty means ~/.slackpanel/data.
	DataDir string `toml:"data_dir"`
}

// PipelineConfig tunes the Extract and Load stages.
type PipelineConfig struct {
	EmailDomain     string   `toml:"email_domain"`
	MaxEnrichment   int      `toml:"max_enrichment"`
	DayConcurrency  int      `toml:"day_concurrency"`
	DetailJitterMin Duration `toml:"detail_jitter_min"`
	DetailJitterMax Duration `toml:"detail_jitter_max"`

	// DefaultDays overrides the environment default window when positive.
	DefaultDays  int `toml:"default_days"`
	BackfillDays int `toml:"backfill_days"`
	BackfillLead int `toml:"backfill_lead"`

	UploadAttempts  int      `toml:"upload_attempts"`
	UploadRetryStep Duration `toml:"upload_retry_step"`

	GroupKey      string `toml:"group_key"`
	MemberPrefix  string `toml:"member_prefix"`
	ChannelPrefix string `toml:"channel_prefix"`
	ManagerField  string `toml:"manager_field"`
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SchedulerConfig configures periodic runs.
type SchedulerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`

	// Pipeline is the scheduled pipeline, "all" by default.
	Pipeline string `toml:"pipeline"`

	// Days overrides the default window of scheduled runs when positive.
	Days int `toml:"days"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment: EnvDev,
		Slack: SlackConfig{
			Timeout:            dur(2 * time.Minute),
			DetailRate:         1.5,
			AnalyticsJitterMin: dur(1500 * time.Millisecond),
			AnalyticsJitterMax: dur(3 * time.Second),
			RateLimitBackoff:   dur(60 * time.Second),
			RateLimitRetries:   3,
		},
		Mixpanel: MixpanelConfig{
			Region:        "us",
			BatchSize:     2000,
			MaxBatchBytes: 10 << 20,
			Workers:       50,
			Timeout:       dur(60 * time.Second),
		},
		Storage: StorageConfig{
			Root: "data",
		},
		Pipeline: PipelineConfig{
			MaxEnrichment:   500,
			DayConcurrency:  1,
			DetailJitterMin: dur(500 * time.Millisecond),
			DetailJitterMax: dur(1500 * time.Millisecond),
			BackfillDays:    396,
			BackfillLead:    2,
			UploadAttempts:  3,
			UploadRetryStep: dur(2 * time.Second),
			GroupKey:        "channel_id",
			MemberPrefix:    "member",
			ChannelPrefix:   "channel",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Scheduler: SchedulerConfig{
			Interval: dur(24 * time.Hour),
			Pipeline: "all",
		},
		Log: LogConfig{
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.slackpanel/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".slackpanel", "config.toml"), nil
}

// ResolvePath picks the config path: explicit, then SLACKPANEL_CONFIG, then the default.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	return DefaultPath()
}

// Load reads the file at path over the defaults and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	if _, ok := lookup(EnvCloudRun); ok {
		cfg.Environment = EnvProduction
	}
	if cfg.Environment != EnvProduction {
		cfg.Environment = EnvDev
	}
	return &cfg, nil
}

// Save writes cfg to path with owner-only permissions, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SLACK_BOT_TOKEN":         &cfg.Slack.BotToken,
		"SLACK_USER_TOKEN":        &cfg.Slack.UserToken,
		"MIXPANEL_PROJECT_ID":     &cfg.Mixpanel.ProjectID,
		"MIXPANEL_TOKEN":          &cfg.Mixpanel.Token,
		"MIXPANEL_SERVICE_USER":   &cfg.Mixpanel.ServiceUser,
		"MIXPANEL_SERVICE_SECRET": &cfg.Mixpanel.ServiceSecret,
		"MIXPANEL_REGION":         &cfg.Mixpanel.Region,
		"STORAGE_ROOT":            &cfg.Storage.Root,
		"GCS_BASE_PATH":           &cfg.Storage.GCSBasePath,
		"EMAIL_DOMAIN":            &cfg.Pipeline.EmailDomain,
		"ENVIRONMENT":             &cfg.Environment,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_ENRICHMENT": &cfg.Pipeline.MaxEnrichment,
		"PORT":           &cfg.Server.Port,
	}
	for name, dst := range ints {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", name, v)
		}
		*dst = n
	}
	return nil
}
