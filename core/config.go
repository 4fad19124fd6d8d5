package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Store engines
const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

type (
	ServerConfig struct {
		Address         string        `mapstructure:"address"`
		DisableReqLogs  bool          `mapstructure:"disableReqLogs"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	}

	StoreConfig struct {
		Engine      string `mapstructure:"engine"`
		DSN         string `mapstructure:"dsn"`
		AutoMigrate bool   `mapstructure:"autoMigrate"`
	}

	EmailConfig struct {
		DefaultFrom    string `mapstructure:"defaultFrom"`
		SendgridAPIKey string `mapstructure:"sendgridApiKey"`
		Disabled       bool   `mapstructure:"disabled"`
	}

	KafkaConfig struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	}

	RateLimitConfig struct {
		SignupsPerSecond float64 `mapstructure:"signupsPerSecond"`
		Burst            int     `mapstructure:"burst"`
	}

	Config struct {
		Env      string `mapstructure:"env"`
		Build    string `mapstructure:"build"`
		AppName  string `mapstructure:"appName"`
		Debug    bool   `mapstructure:"debug"`
		TestMode bool   `mapstructure:"testMode"`
		LogLevel string `mapstructure:"logLevel"`

		Server    ServerConfig    `mapstructure:"server"`
		Store     StoreConfig     `mapstructure:"store"`
		Email     EmailConfig     `mapstructure:"email"`
		Kafka     KafkaConfig     `mapstructure:"kafka"`
		RateLimit RateLimitConfig `mapstructure:"rateLimit"`

		CatalogFile    string `mapstructure:"catalogFile"`
		RollbarToken   string `mapstructure:"rollbarToken"`
		MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Mergington High School")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("logLevel", "info")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("store.engine", EngineMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.autoMigrate", true)

	v.SetDefault("email.defaultFrom", "Mergington High School <noreply@mergington.edu>")
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.disabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "activity.participant.joined")

	v.SetDefault("rateLimit.signupsPerSecond", 0.0)
	v.SetDefault("rateLimit.burst", 10)

	v.SetDefault("catalogFile", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("metricsEnabled", true)
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values are read, by increasing priority, from the defaults, config/config.yaml, config/.env.<env>
// and the environment itself (e.g. DEV_SERVER_ADDRESS).
func NewConfig() (*Config, error) {
	env := strings.ToUpper(CleanString(os.Getenv("ENV")))
	if env == "" {
		env = "DEV"
	}
	return LoadConfig(env, "config")
}

// LoadConfig loads the configuration of `env` looking for files in `dir`.
func LoadConfig(env, dir string) (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("email.disabled", true)
		v.SetDefault("metricsEnabled", false)
	}
	if env == "PROD" || env == "QA" {
		v.SetDefault("debug", false)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(dir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env
	conf.Kafka.Brokers = splitList(conf.Kafka.Brokers)
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) validate() error {
	switch c.Store.Engine {
	case EngineMemory:
	case EnginePostgres, EngineSQLite:
		if c.Store.DSN == "" {
			return errors.Errorf("store.dsn is required for the %q engine", c.Store.Engine)
		}
	default:
		return errors.Errorf("unknown store engine %q", c.Store.Engine)
	}
	if _, err := mail.ParseAddress(c.Email.DefaultFrom); err != nil {
		return errors.Wrap(err, "invalid email.defaultFrom")
	}
	return nil
}

// DefaultFromEmail returns the parsed sender address of outgoing emails.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.Email.DefaultFrom)
	if err != nil {
		return mail.Address{Address: c.Email.DefaultFrom}
	}
	return *addr
}

// splitList flattens comma separated entries, as set from the environment.
func splitList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, val := range vals {
		for _, s := range strings.Split(val, ",") {
			if s = CleanString(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
