package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath   = "config.yaml"
	defaultEnvPath      = ".env"
	defaultImageModel   = "imagen-4.0-generate-001"
	defaultVideoModel   = "veo-3.1-fast-generate-preview"
	defaultPollInterval = 10 * time.Second
	defaultMaxWait      = 10 * time.Minute
	defaultOutputDir    = "./output"
	defaultServerAddr   = "localhost:8080"
	defaultGCSPrefix    = "storyvis"
	defaultGroqModel    = "llama-3.3-70b-versatile"
	defaultPromptsPath  = "prompts.yaml"
)

type Config struct {
	GeminiAPIKey       string `yaml:"-"`
	GeminiAPIKeySecret string `yaml:"-"`
	GroqAPIKey         string `yaml:"-"`
	GCSBucket          string `yaml:"-"`
	GCPProject         string `yaml:"-"`

	Gemini  GeminiConfig  `yaml:"gemini"`
	Polling PollingConfig `yaml:"polling"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	GCS     GCSConfig     `yaml:"gcs"`
	Refine  RefineConfig  `yaml:"refine"`
}

type GeminiConfig struct {
	ImageModel string `yaml:"image_model"`
	VideoModel string `yaml:"video_model"`
	BaseURL    string `yaml:"base_url"`
}

type PollingConfig struct {
	Interval time.Duration `yaml:"interval"`
	MaxWait  time.Duration `yaml:"max_wait"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type RefineConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Model       string `yaml:"model"`
	PromptsPath string `yaml:"prompts_path"`
}

func Load() (*Config, error) {
	return LoadFrom(defaultConfigPath)
}

func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(defaultEnvPath); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GeminiAPIKey:       firstEnv("GEMINI_API_KEY", "API_KEY"),
		GeminiAPIKeySecret: os.Getenv("GEMINI_API_KEY_SECRET"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCPProject:         os.Getenv("GOOGLE_CLOUD_PROJECT"),
	}

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a config with every default applied and no credentials.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Save writes the non-secret part of the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// HasCredential reports whether a Gemini key can be resolved without asking
// the user for one.
func (c *Config) HasCredential() bool {
	return c.GeminiAPIKey != "" || c.GeminiAPIKeySecret != ""
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyGeminiDefaults(cfg)
	applyPollingDefaults(cfg)
	applyOutputDefaults(cfg)
	applyServerDefaults(cfg)
	applyGCSDefaults(cfg)
	applyRefineDefaults(cfg)
}

func applyGeminiDefaults(cfg *Config) {
	if cfg.Gemini.ImageModel == "" {
		cfg.Gemini.ImageModel = defaultImageModel
	}
	if cfg.Gemini.VideoModel == "" {
		cfg.Gemini.VideoModel = defaultVideoModel
	}
}

func applyPollingDefaults(cfg *Config) {
	if cfg.Polling.Interval <= 0 {
		cfg.Polling.Interval = defaultPollInterval
	}
	if cfg.Polling.MaxWait <= 0 {
		cfg.Polling.MaxWait = defaultMaxWait
	}
}

func applyOutputDefaults(cfg *Config) {
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutputDir
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
}

func applyGCSDefaults(cfg *Config) {
	if cfg.GCSBucket != "" {
		cfg.GCS.Enabled = true
	}
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = defaultGCSPrefix
	}
}

func applyRefineDefaults(cfg *Config) {
	if cfg.Refine.Model == "" {
		cfg.Refine.Model = defaultGroqModel
	}
	if cfg.Refine.PromptsPath == "" {
		cfg.Refine.PromptsPath = defaultPromptsPath
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
