package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Session struct {
		CookieName string        `mapstructure:"COOKIE_NAME"`
		Secret     string        `mapstructure:"SECRET"`
		TTL        time.Duration `mapstructure:"TTL"`
	} `mapstructure:"SESSION"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBName         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConn     int           `mapstructure:"MAX_OPEN_CONN"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	FieldNation struct {
		BaseURL      string        `mapstructure:"BASE_URL"`
		ClientID     string        `mapstructure:"CLIENT_ID"`
		ClientSecret string        `mapstructure:"CLIENT_SECRET"`
		Timeout      time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"FIELD_NATION"`
	Scheduler struct {
		TickInterval time.Duration `mapstructure:"TICK_INTERVAL"`
		Concurrency  int           `mapstructure:"CONCURRENCY"`
		// Timezone is the reference location for the daily working window.
		// Working windows carry no date or zone of their own, so every cron
		// is evaluated against this one location.
		Timezone string        `mapstructure:"TIMEZONE"`
		LockTTL  time.Duration `mapstructure:"LOCK_TTL"`
	} `mapstructure:"SCHEDULER"`
	SecretAES            string `mapstructure:"SECRET_AES"`
	AdminRegistrationKey string `mapstructure:"ADMIN_REGISTRATION_KEY"`
}

// SchedulerLocation resolves the configured working-window timezone,
// falling back to UTC when unset or unknown.
func (c *Config) SchedulerLocation() *time.Location {
	if c.Scheduler.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		zap.L().Warn("invalid scheduler timezone, falling back to UTC",
			zap.String("timezone", c.Scheduler.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

func LoadConfig() *Config {
	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		zap.L().Error("failed to read config file", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	applyDefaults(&cfg)

	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Scheduler.TickInterval <= 0 {
		cfg.Scheduler.TickInterval = 5 * time.Minute
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 10
	}
	if cfg.Scheduler.LockTTL <= 0 {
		cfg.Scheduler.LockTTL = 2 * time.Minute
	}
	if cfg.FieldNation.Timeout <= 0 {
		cfg.FieldNation.Timeout = 30 * time.Second
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "autopilot_session"
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
}
