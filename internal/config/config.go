package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type Config struct {
	Mode                string        `mapstructure:"mode"`
	Port                int           `mapstructure:"port"`
	Secret              string        `mapstructure:"secret"`
	AllowedOrigins      []string      `mapstructure:"-"`
	ReadLimit           int64         `mapstructure:"read_limit"`
	PingPeriod          time.Duration `mapstructure:"ping_period"`
	HeartbeatTimeout    time.Duration `mapstructure:"heartbeat_timeout"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	GraceWindow         time.Duration `mapstructure:"grace_window"`
	SendBuffer          int           `mapstructure:"send_buffer"`
	ControlRateLimit    int           `mapstructure:"control_rate_limit"`
	ControlRateInterval time.Duration `mapstructure:"control_rate_interval"`
	PresenceNotify      bool          `mapstructure:"presence_notify"`
	BackpressureStrikes int           `mapstructure:"backpressure_strikes"`
	HTTPRateLimit       int           `mapstructure:"http_rate_limit"`
	HTTPRateInterval    time.Duration `mapstructure:"http_rate_interval"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
}

var ErrMissingSecret = errors.New("config: secret (AUTH_KEY) is required")

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg(".env not loaded")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName if it exists, then overlays environment
// variables.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	setDefaults(v)

	for key, env := range map[string]string{
		"mode":            "MODE",
		"port":            "PORT",
		"secret":          "AUTH_KEY",
		"allowed_origins": "ALLOWED_ORIGINS",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Secret = strings.Trim(strings.TrimSpace(cfg.Secret), `"'`)
	cfg.AllowedOrigins = origins(v.Get("allowed_origins"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Strs("origins", cfg.AllowedOrigins).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "20s")
	v.SetDefault("heartbeat_timeout", "45s")
	v.SetDefault("sweep_interval", "5s")
	v.SetDefault("grace_window", "30s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("control_rate_limit", 30)
	v.SetDefault("control_rate_interval", "1s")
	v.SetDefault("presence_notify", false)
	v.SetDefault("backpressure_strikes", 1)
	v.SetDefault("http_rate_limit", 100)
	v.SetDefault("http_rate_interval", "15m")
	v.SetDefault("shutdown_timeout", "10s")
}

// origins accepts a YAML list or a comma separated env value.
func origins(raw any) []string {
	var list []string
	if s, ok := raw.(string); ok {
		list = strings.Split(s, ",")
	} else {
		list = cast.ToStringSlice(raw)
	}
	out := make([]string, 0, len(list))
	for _, o := range list {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrMissingSecret
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.PingPeriod <= 0 || c.HeartbeatTimeout <= c.PingPeriod {
		return fmt.Errorf("config: heartbeat_timeout %s must exceed ping_period %s", c.HeartbeatTimeout, c.PingPeriod)
	}
	return nil
}
