package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type AppConfig struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"dev"`
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`

	// ClientID names the single persisted session; the device store file is
	// derived from it.
	ClientID string `yaml:"client_id" env:"CLIENT_ID" env-default:"kitty-client-v2"`
	StoreDir string `yaml:"store_dir" env:"STORE_DIR" env-default:"./sessions"`

	Redis RedisConfig `yaml:"redis"`

	// backoff and throttle policy
	ReconnectDelay time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY" env-default:"3s"`
	InitRetryDelay time.Duration `yaml:"init_retry_delay" env:"INIT_RETRY_DELAY" env-default:"5s"`
	MinSendDelay   time.Duration `yaml:"min_send_delay" env:"MIN_SEND_DELAY" env-default:"500ms"`
	MaxSendDelay   time.Duration `yaml:"max_send_delay" env:"MAX_SEND_DELAY" env-default:"1s"`
	SendTimeout    time.Duration `yaml:"send_timeout" env:"SEND_TIMEOUT" env-default:"60s"`
	TaskTTL        time.Duration `yaml:"task_ttl" env:"TASK_TTL" env-default:"720h"`
}

// Load reads the yaml config (if a path is given) with env overrides, or
// falls back to env/defaults only.
func Load() (*AppConfig, error) {
	var cfg AppConfig

	if path := fetchConfigPath(); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	return &cfg, nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
