package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		UploadDir string `yaml:"upload_dir"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"` // sqlite file for document/user metadata
	} `yaml:"database"`

	Vector struct {
		URL       string `yaml:"url"` // postgres connection string
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"vector"`

	Embedding struct {
		BaseURL string `yaml:"base_url"` // Ollama server URL
		Model   string `yaml:"model"`
	} `yaml:"embedding"`

	Chunker struct {
		ChunkSize    int `yaml:"chunk_size"`    // tokens
		ChunkOverlap int `yaml:"chunk_overlap"` // tokens
	} `yaml:"chunker"`

	Extract struct {
		TesseractBin string `yaml:"tesseract_bin"`
		PdftotextBin string `yaml:"pdftotext_bin"`
	} `yaml:"extract"`

	Caption struct {
		BaseURL     string  `yaml:"base_url"` // OpenAI-compatible endpoint
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		RateLimit   float64 `yaml:"rate_limit"` // requests per second
	} `yaml:"caption"`

	Chat struct {
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"chat"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docstack/config.yaml"),
			"/etc/docstack/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.UploadDir == "" {
		config.Server.UploadDir = "uploads"
	}

	if config.Database.Path == "" {
		config.Database.Path = "documents.db"
	}

	if config.Vector.TableName == "" {
		config.Vector.TableName = "documents"
	}
	if config.Vector.VectorDim == 0 {
		config.Vector.VectorDim = 384
	}

	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}
	if config.Embedding.Model == "" {
		config.Embedding.Model = "all-minilm"
	}

	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 500
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 50
	}

	if config.Extract.TesseractBin == "" {
		config.Extract.TesseractBin = "tesseract"
	}
	if config.Extract.PdftotextBin == "" {
		config.Extract.PdftotextBin = "pdftotext"
	}

	if config.Caption.BaseURL == "" {
		config.Caption.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.Caption.Model == "" {
		config.Caption.Model = "openai/gpt-oss-20b"
	}
	if config.Caption.MaxTokens == 0 {
		config.Caption.MaxTokens = 1000
	}
	if config.Caption.Temperature == 0 {
		config.Caption.Temperature = 0.3
	}
	if config.Caption.RateLimit == 0 {
		config.Caption.RateLimit = 2.0
	}

	if config.Chat.Model == "" {
		config.Chat.Model = "mistral"
	}
	if config.Chat.BaseURL == "" {
		config.Chat.BaseURL = "http://localhost:11434"
	}
	if config.Chat.MaxTokens == 0 {
		config.Chat.MaxTokens = 2000
	}
	if config.Chat.Temperature == 0 {
		config.Chat.Temperature = 0.7
	}
}

func mergeWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		config.Server.UploadDir = dir
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Vector.URL = dbURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
		config.Chat.BaseURL = baseURL
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.Caption.APIKey = key
	}
}
