package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"

	BusLocal = "local"
	BusRedis = "redis"
)

var ErrUnknownBackend = errors.New("unknown backend")

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"BINGO_LOG_LEVEL" env-default:"info"`
	HTTPPort  string    `yaml:"http-port" env:"BINGO_HTTP_PORT" env-default:"3000"`
	Storage   string    `yaml:"storage" env:"BINGO_STORAGE" env-default:"memory"`
	Bus       string    `yaml:"bus" env:"BINGO_BUS" env-default:"local"`
	Redis     Redis     `yaml:"redis"`
	WebSocket WebSocket `yaml:"websocket"`
}

type Redis struct {
	Host       string        `yaml:"host" env:"BINGO_REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"BINGO_REDIS_PORT" env-default:"6379"`
	Channel    string        `yaml:"channel" env:"BINGO_REDIS_CHANNEL" env-default:"bingo:events"`
	SessionTTL time.Duration `yaml:"session-ttl" env:"BINGO_REDIS_SESSION_TTL" env-default:"24h"`
}

type WebSocket struct {
	WriteWait      time.Duration `yaml:"write-wait" env-default:"10s"`
	PongWait       time.Duration `yaml:"pong-wait" env-default:"60s"`
	MaxMessageSize int64         `yaml:"max-message-size" env-default:"4096"`
	SendBuffer     int           `yaml:"send-buffer" env-default:"64"`
}

// Load reads an optional .env file, then the YAML file at path, then the environment.
// A missing config file falls back to defaults and environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env file: %w", err)
	}

	config := &Config{}

	err := cleanenv.ReadConfig(path, config)
	if errors.Is(err, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("%w: storage %q", ErrUnknownBackend, that.Storage)
	}

	switch that.Bus {
	case BusLocal, BusRedis:
	default:
		return fmt.Errorf("%w: bus %q", ErrUnknownBackend, that.Bus)
	}

	return nil
}

// UsesRedis reports whether any backend needs a Redis connection.
func (that *Config) UsesRedis() bool {
	return that.Storage == StorageRedis || that.Bus == BusRedis
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
