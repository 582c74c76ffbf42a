package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	Store      StoreConfig
	Mongo      MongoConfig
	Membership MembershipConfig
	Auth       AuthConfig
	WS         WSConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

type StoreConfig struct {
	Driver     string // mongo, memory
	MaxInQuery int    // largest id list per "id in list" query
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type MembershipConfig struct {
	ParticipationMode string // dual-write, transaction
}

type AuthConfig struct {
	JWTSecret         string
	Issuer            string
	TokenTTL          time.Duration
	RecentLoginWindow time.Duration
	MinPasswordLength int
}

type WSConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
}

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	ModeDualWrite   = "dual-write"
	ModeTransaction = "transaction"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", DriverMongo)
	v.SetDefault("store.max_in_query", 10)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("mongo.database", "eventbuddy")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("membership.participation_mode", ModeDualWrite)
	v.SetDefault("auth.issuer", "event-buddy")
	v.SetDefault("auth.token_ttl", 720*time.Hour)
	v.SetDefault("auth.recent_login_window", 5*time.Minute)
	v.SetDefault("auth.min_password_length", 6)
	v.SetDefault("ws.write_timeout", 10*time.Second)
	v.SetDefault("ws.ping_interval", 30*time.Second)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with EVENTBUDDY_ prefix (e.g., EVENTBUDDY_MONGO_URI)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("EVENTBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(v.GetString("store.driver")),
			MaxInQuery: v.GetInt("store.max_in_query"),
		},
		Mongo: MongoConfig{
			URI:            v.GetString("mongo.uri"),
			Database:       v.GetString("mongo.database"),
			ConnectTimeout: v.GetDuration("mongo.connect_timeout"),
		},
		Membership: MembershipConfig{
			ParticipationMode: strings.ToLower(v.GetString("membership.participation_mode")),
		},
		Auth: AuthConfig{
			JWTSecret:         v.GetString("auth.jwt_secret"),
			Issuer:            v.GetString("auth.issuer"),
			TokenTTL:          v.GetDuration("auth.token_ttl"),
			RecentLoginWindow: v.GetDuration("auth.recent_login_window"),
			MinPasswordLength: v.GetInt("auth.min_password_length"),
		},
		WS: WSConfig{
			WriteTimeout: v.GetDuration("ws.write_timeout"),
			PingInterval: v.GetDuration("ws.ping_interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Store.MaxInQuery <= 0 {
		errs = append(errs, errors.New("store.max_in_query must be positive"))
	}
	switch c.Membership.ParticipationMode {
	case ModeDualWrite, ModeTransaction:
	default:
		errs = append(errs, fmt.Errorf("unknown membership.participation_mode %q", c.Membership.ParticipationMode))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.MinPasswordLength <= 0 {
		errs = append(errs, errors.New("auth.min_password_length must be positive"))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.App.Port
}
