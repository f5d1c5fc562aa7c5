// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Crawl      CrawlConfig      `mapstructure:"crawl" yaml:"crawl"`
	Supervisor SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// EngineConfig describes the engine process surface.
type EngineConfig struct {
	// Port the engine RPC server listens on. The supervisor passes this to the
	// child process at spawn time.
	Port int `mapstructure:"port" yaml:"port"`
	// ProfileDir is where persisted profile identity metadata lives, one
	// subdirectory per profile id.
	ProfileDir string `mapstructure:"profile_dir" yaml:"profile_dir"`
	// DefaultTimeout bounds any operation whose caller did not supply one.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// ShutdownGrace is how long the RPC server gets to drain on shutdown.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// BrowserConfig tunes the controlled Chrome instance.
type BrowserConfig struct {
	Headless        bool              `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool              `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableCache    bool              `mapstructure:"disable_cache" yaml:"disable_cache"`
	ExecPath        string            `mapstructure:"exec_path" yaml:"exec_path"`
	ExtraFlags      map[string]string `mapstructure:"extra_flags" yaml:"extra_flags"`
	// NavigationTimeout bounds a single page load.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// StabilizeWait is the post-load quiet period before extraction.
	StabilizeWait time.Duration `mapstructure:"stabilize_wait" yaml:"stabilize_wait"`
}

// CrawlConfig bounds crawl traversals.
type CrawlConfig struct {
	MaxPages int `mapstructure:"max_pages" yaml:"max_pages"`
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// RequestsPerSecond paces the sequential frontier; zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// SupervisorConfig tunes the process supervisor and RPC bridge.
type SupervisorConfig struct {
	// HealthInterval is the minimum gap between health probes of a known
	// engine process; calls inside the window trust the last probe.
	HealthInterval time.Duration `mapstructure:"health_interval" yaml:"health_interval"`
	// MaxAttempts bounds the per-call retry loop.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// RetryBackoff is the linear backoff unit between attempts.
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	// SpawnTimeout bounds waiting for a freshly spawned engine to come up.
	SpawnTimeout time.Duration `mapstructure:"spawn_timeout" yaml:"spawn_timeout"`
	// KillGrace is how long a terminated child gets before a forced kill.
	KillGrace time.Duration `mapstructure:"kill_grace" yaml:"kill_grace"`
}

// SetDefaults registers every default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "harrier")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("engine.port", 8377)
	v.SetDefault("engine.profile_dir", defaultProfileDir())
	v.SetDefault("engine.default_timeout", 60*time.Second)
	v.SetDefault("engine.shutdown_grace", 10*time.Second)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.stabilize_wait", 500*time.Millisecond)

	v.SetDefault("crawl.max_pages", 10)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.requests_per_second", 2.0)

	v.SetDefault("supervisor.health_interval", 30*time.Second)
	v.SetDefault("supervisor.max_attempts", 3)
	v.SetDefault("supervisor.retry_backoff", time.Second)
	v.SetDefault("supervisor.spawn_timeout", 20*time.Second)
	v.SetDefault("supervisor.kill_grace", 5*time.Second)
}

// Load reads configuration from the optional file path, environment variables
// (HARRIER_ prefixed) and defaults, in ascending precedence of defaults < file
// < env.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("harrier")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("HARRIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied and no file or
// environment input. Used by tests and as a safe fallback.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.Port <= 0 || c.Engine.Port > 65535 {
		return fmt.Errorf("engine.port %d out of range", c.Engine.Port)
	}
	if c.Supervisor.MaxAttempts < 1 {
		return fmt.Errorf("supervisor.max_attempts must be at least 1")
	}
	if c.Crawl.MaxPages < 1 {
		return fmt.Errorf("crawl.max_pages must be at least 1")
	}
	return nil
}

func defaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".harrier/profiles"
	}
	return filepath.Join(home, ".harrier", "profiles")
}
