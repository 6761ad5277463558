package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/odelab/internal/dynamo"
	"github.com/san-kum/odelab/internal/explain"
)

const (
	DefaultMethod      = "numeric-rk4"
	DefaultStep        = 0.1
	DefaultSteps       = 50
	DefaultMaxWorkload = 1_000_000
	DefaultAddr        = ":8080"
	DefaultModel       = "gemini-2.0-flash"
	DefaultDataDir     = ".odelab/runs"

	// EnvPrefix prefixes every environment override, e.g. ODELAB_EXPLAIN_API_KEY.
	EnvPrefix = "ODELAB"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Numeric NumericConfig `yaml:"numeric" mapstructure:"numeric"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Explain ExplainConfig `yaml:"explain" mapstructure:"explain"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
}

type NumericConfig struct {
	Method      string  `yaml:"method" mapstructure:"method" validate:"oneof=symbolic numeric-euler numeric-rk4"`
	Step        float64 `yaml:"step" mapstructure:"step" validate:"gt=0"`
	Steps       int     `yaml:"steps" mapstructure:"steps" validate:"gt=0"`
	MaxWorkload int     `yaml:"max_workload" mapstructure:"max_workload" validate:"gtefield=Steps"`
	Workers     int     `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	SolveTimeout time.Duration `yaml:"solve_timeout" mapstructure:"solve_timeout" validate:"gte=0"`
}

// LogConfig is read by logging.Setup, which falls back to info on an
// unknown level.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

type ExplainConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider" validate:"oneof=none gemini"`
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key" validate:"required_if=Provider gemini"`
	Model      string        `yaml:"model" mapstructure:"model"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay" validate:"gte=0"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
}

func DefaultConfig() *Config {
	return &Config{
		Numeric: NumericConfig{
			Method:      DefaultMethod,
			Step:        DefaultStep,
			Steps:       DefaultSteps,
			MaxWorkload: DefaultMaxWorkload,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			SolveTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Explain: ExplainConfig{
			Provider:   "none",
			Model:      DefaultModel,
			Timeout:    20 * time.Second,
			MaxRetries: 2,
			RetryDelay: time.Second,
		},
		Storage: StorageConfig{DataDir: DefaultDataDir},
	}
}

// Load reads the YAML file at path, when given, over the defaults and then
// applies ODELAB_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("numeric.method", d.Numeric.Method)
	v.SetDefault("numeric.step", d.Numeric.Step)
	v.SetDefault("numeric.steps", d.Numeric.Steps)
	v.SetDefault("numeric.max_workload", d.Numeric.MaxWorkload)
	v.SetDefault("numeric.workers", d.Numeric.Workers)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.solve_timeout", d.Server.SolveTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("explain.provider", d.Explain.Provider)
	v.SetDefault("explain.api_key", d.Explain.APIKey)
	v.SetDefault("explain.model", d.Explain.Model)
	v.SetDefault("explain.timeout", d.Explain.Timeout)
	v.SetDefault("explain.max_retries", d.Explain.MaxRetries)
	v.SetDefault("explain.retry_delay", d.Explain.RetryDelay)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NumericDefaults is the step and step count used when a request omits them.
func (c *Config) NumericDefaults() dynamo.Config {
	return dynamo.Config{Step: c.Numeric.Step, Steps: c.Numeric.Steps}
}

func (c *Config) ExplainOptions() explain.Options {
	return explain.Options{
		APIKey:     c.Explain.APIKey,
		Model:      c.Explain.Model,
		Timeout:    c.Explain.Timeout,
		MaxRetries: c.Explain.MaxRetries,
		BaseDelay:  c.Explain.RetryDelay,
	}
}
