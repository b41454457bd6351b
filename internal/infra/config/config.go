package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	HTTPClient HTTPClientConfig `yaml:"http_client"`
	CORS       CORSConfig       `yaml:"cors"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Image      ImageConfig      `yaml:"image"`
	Video      VideoConfig      `yaml:"video"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPClientConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type ImageConfig struct {
	Model string `yaml:"model"`
}

type VideoConfig struct {
	Model               string `yaml:"model"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int    `yaml:"max_poll_attempts"`
}

type SnapshotConfig struct {
	BasePath string `yaml:"base_path"`
}

func Load() (*Config, error) {
	// .env is optional; real env always wins over it.
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverrides(cfg), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return applyEnvOverrides(cfg), nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 300,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTPClient: HTTPClientConfig{
			TimeoutSeconds: 120,
			MaxRetries:     0,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		Image: ImageConfig{
			Model: "imagen-4.0-generate-001",
		},
		Video: VideoConfig{
			Model:               "veo-3.0-generate-001",
			PollIntervalSeconds: 10,
			MaxPollAttempts:     30,
		},
		Snapshot: SnapshotConfig{
			BasePath: "./projects",
		},
	}
}

func applyEnvOverrides(cfg *Config) *Config {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.Gemini.BaseURL = v
	}
	if v := os.Getenv("IMAGE_MODEL"); v != "" {
		cfg.Image.Model = v
	}
	if v := os.Getenv("VIDEO_MODEL"); v != "" {
		cfg.Video.Model = v
	}
	if v := os.Getenv("VIDEO_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Video.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("VIDEO_MAX_POLL_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Video.MaxPollAttempts = n
		}
	}
	if v := os.Getenv("SNAPSHOT_BASE_PATH"); v != "" {
		cfg.Snapshot.BasePath = v
	}
	return cfg
}
