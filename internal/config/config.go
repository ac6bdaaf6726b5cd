package config

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
	"time"
)

type Config struct {
	Env    string `yaml:"env" env:"PRISM_ENV" env-default:"local"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env:"PRISM_PORT" env-default:"9100"`
		ApiKey string `yaml:"key" env:"PRISM_API_KEY" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env:"PRISM_MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env:"PRISM_MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env-default:"prism"`
	} `yaml:"mongo"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Addr     string `yaml:"addr" env:"PRISM_REDIS_ADDR" env-default:"127.0.0.1:6379"`
		Password string `yaml:"password" env:"PRISM_REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env-default:"0"`
		Channel  string `yaml:"channel" env-default:"prism:events"`
	} `yaml:"redis"`
	OpenAI struct {
		ApiKey              string  `yaml:"api_key" env:"PRISM_OPENAI_KEY" env-default:""`
		BaseURL             string  `yaml:"base_url" env-default:""`
		Model               string  `yaml:"model" env-default:"gpt-4o-mini"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold" env-default:"0.7" validate:"gte=0,lte=1"`
		TimeoutSec          int     `yaml:"timeout_sec" env-default:"20" validate:"gt=0"`
	} `yaml:"openai"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env:"PRISM_TELEGRAM_KEY" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"PrismAlertsBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	Auth struct {
		JwtSecret     string `yaml:"jwt_secret" env:"PRISM_JWT_SECRET" env-default:""`
		TokenTTLHours int    `yaml:"token_ttl_hours" env-default:"24" validate:"gt=0"`
	} `yaml:"auth"`
	Chat struct {
		QuestionsPerMinute int `yaml:"questions_per_minute" env-default:"20" validate:"gt=0"`
		Burst              int `yaml:"burst" env-default:"5" validate:"gt=0"`
	} `yaml:"chat"`
	Notify struct {
		TimeoutSec int `yaml:"timeout_sec" env-default:"5" validate:"gt=0"`
	} `yaml:"notify"`
	Policy struct {
		SweepEnabled         bool `yaml:"sweep_enabled" env-default:"false"`
		SweepIntervalMin     int  `yaml:"sweep_interval_min" env-default:"60" validate:"gt=0"`
		NoResponseGraceHours int  `yaml:"no_response_grace_hours" env-default:"0" validate:"gte=0"`
	} `yaml:"policy"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = conf
	})
	return instance
}

// Load reads the YAML file at path, applies env overrides and defaults, and
// rejects non-positive timeouts and rates.
func Load(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("%s; %s", err, desc)
	}
	if err := validator.New().Struct(conf); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return conf, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.TimeoutSec) * time.Second
}

func (c *Config) ResponderTimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSec) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Policy.SweepIntervalMin) * time.Minute
}

func (c *Config) NoResponseGrace() time.Duration {
	return time.Duration(c.Policy.NoResponseGraceHours) * time.Hour
}
