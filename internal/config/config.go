package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	Timezone   string           `yaml:"timezone" env:"TZ_NAME" env-default:"Local"`
	Scheduler  Scheduler        `yaml:"scheduler"`
	Encoding   Encoding         `yaml:"encoding"`
	HTTPServer HTTPServer       `yaml:"http_server"`
	DB         DB               `yaml:"db"`
	RawCameras []map[string]any `yaml:"cameras" env-required:"true"`

	Cameras []models.Camera `yaml:"-" validate:"required,min=1,unique=ID,dive"`
}

type Scheduler struct {
	Workers      int           `yaml:"workers" env-default:"5" validate:"gte=1"`
	MaxInstances int           `yaml:"max_instances" env-default:"3" validate:"gte=1"`
	MisfireGrace time.Duration `yaml:"misfire_grace" env-default:"1s"`
}

type Encoding struct {
	FFmpegPath string `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg"`
	// MaxConcurrent bounds running encoder processes, 0 means unbounded.
	MaxConcurrent int `yaml:"max_concurrent" env-default:"0" validate:"gte=0"`
	// DrainTimeout is how long shutdown waits for running encodes. The 0s
	// default skips the wait, so clips flushed during shutdown can be lost;
	// config/local.yaml sets 30s.
	DrainTimeout time.Duration `yaml:"drain_timeout" env-default:"0s"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS"`
	Timeout      time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
	Username     string        `yaml:"username" env:"ADMIN_USERNAME" env-default:"admin"`
	Secret       string        `yaml:"-" env:"ADMIN_SECRET"`
	PasswordHash string        `yaml:"-" env:"ADMIN_PASSWORD_HASH"`
}

type DB struct {
	Enabled  bool   `yaml:"enabled" env:"DB_ENABLED"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	Username string `yaml:"username" env-default:"postgres"`
	DBName   string `yaml:"dbname" env-default:"recorder"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
	Password string `yaml:"-" env:"POSTGRES_PASSWORD"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("CONFIG_PATH is required")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		panic("failed to read config: " + err.Error())
	}

	return cfg
}

// Load reads, decodes and validates the configuration file at path.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cameras, err := decodeCameras(cfg.RawCameras)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Cameras = cameras

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// Location returns the timezone schedules are evaluated in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}

	return loc
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
