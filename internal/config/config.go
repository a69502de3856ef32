package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	insecureJWTSecret = "supersecretkey"

	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	Storage        string        `yaml:"storage"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	TokenDuration  time.Duration `yaml:"token_duration"`
	CORSOrigin     string        `yaml:"cors_origin"`
	LLM            LLMConfig     `yaml:"llm"`
	Ollama         OllamaConfig  `yaml:"ollama"`
	Gemini         GeminiConfig  `yaml:"gemini"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

type GeminiConfig struct {
	APIKey      string   `yaml:"api_key"`
	// Temperature is nil when unset; an explicit 0 is kept.
	Temperature *float32 `yaml:"temperature"`
}

// DefaultGeminiTemperature applies when gemini.temperature is unset.
const DefaultGeminiTemperature float32 = 0.7

// LoadDotEnv loads a .env file into the process environment when present.
// Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 7 * 24 * time.Hour

	cfg := &Config{
		Addr:           getEnv("CAREERPREP_ADDR", ":8080"),
		JWTSecret:      getEnv("CAREERPREP_JWT_SECRET", insecureJWTSecret),
		APITimeout:     apiTimeout,
		DatabasePath:   getEnv("CAREERPREP_DATABASE_PATH", "careerprep.db"),
		Storage:        getEnv("CAREERPREP_STORAGE", StorageSQLite),
		MigrateOnStart: getEnvBool("CAREERPREP_MIGRATE_ON_START", true),
		TokenDuration:  tokenDuration,
		CORSOrigin:     getEnv("CAREERPREP_CORS_ORIGIN", "*"),
		LLM: LLMConfig{
			Provider: getEnv("CAREERPREP_LLM_PROVIDER", ProviderOllama),
			Model:    getEnv("CAREERPREP_LLM_MODEL", "llama3.1"),
			Timeout:  60 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL: getEnv("OLLAMA_HOST", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SetDefaults fills zero-valued durations, limits and endpoints. It never
// fails and is safe to call more than once.
func (c *Config) SetDefaults() {
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 7 * 24 * time.Hour
	}
	if c.Storage == "" {
		c.Storage = StorageSQLite
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOllama
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = c.LLM.Timeout
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = 5
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = 30 * time.Second
	}
	if c.Gemini.Temperature == nil {
		t := DefaultGeminiTemperature
		c.Gemini.Temperature = &t
	}
}

// Validate fills defaults and checks the loaded configuration. The insecure
// default JWT secret is only accepted when CAREERPREP_ENV=development.
func (c *Config) Validate() error {
	c.SetDefaults()

	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.JWTSecret == insecureJWTSecret && os.Getenv("CAREERPREP_ENV") != "development" {
		return errors.New("jwt_secret uses the insecure default; set CAREERPREP_JWT_SECRET or CAREERPREP_ENV=development")
	}

	switch c.Storage {
	case StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.Storage == StorageSQLite && c.DatabasePath == "" {
		return errors.New("database_path is required for sqlite storage")
	}

	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	switch c.LLM.Provider {
	case ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider == ProviderGemini && c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key (or GEMINI_API_KEY) is required for the gemini provider")
	}
	if *c.Gemini.Temperature < 0 {
		return fmt.Errorf("gemini.temperature must not be negative, got %v", *c.Gemini.Temperature)
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}

	return b
}
