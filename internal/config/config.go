package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 50
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.7
)

type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	RAG      RAGConfig     `yaml:"rag"`
	EmbedLLM LLMConfig     `yaml:"embed_llm"`
	ChatLLM  LLMConfig     `yaml:"chat_llm"`
	OCR      OCRConfig     `yaml:"ocr"`
}

type StorageConfig struct {
	// Backend selects the durable index implementation: "chromem" or "postgres"
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	UploadDir  string `yaml:"upload_dir"`
	// PostgresDSN is used when backend is "postgres"; when PostgresKey is set
	// the connection is made through pgdriver with a separate password
	PostgresDSN string `yaml:"postgres_dsn"`
	PostgresKey string `yaml:"postgres_key"`
	// VectorDim must match the embedding model's output dimensionality
	VectorDim int  `yaml:"vector_dim"`
	Debug     bool `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float32 `yaml:"score_threshold"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type OCRConfig struct {
	// Languages is the tesseract language pack spec, e.g. "chi_sim+eng"
	Languages string  `yaml:"languages"`
	Scale     float64 `yaml:"scale"`
}

func LoadConfig(path string) (*Config, error) {
	// .env overlay for keys that should not live in the yaml file
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "chromem"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./chromemdb"
	}
	if c.Storage.Collection == "" {
		c.Storage.Collection = "course_material"
	}
	if c.Storage.VectorDim <= 0 {
		c.Storage.VectorDim = 768
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = DefaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = DefaultChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = DefaultTopK
	}
	if c.RAG.ScoreThreshold <= 0 {
		c.RAG.ScoreThreshold = DefaultScoreThreshold
	}
	if c.OCR.Languages == "" {
		c.OCR.Languages = "chi_sim+eng"
	}
	if c.OCR.Scale <= 0 {
		c.OCR.Scale = 2
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EMBED_LLM_KEY"); v != "" {
		c.EmbedLLM.Key = v
	}
	if v := os.Getenv("CHAT_LLM_KEY"); v != "" {
		c.ChatLLM.Key = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
}
