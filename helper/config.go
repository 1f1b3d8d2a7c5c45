package helper

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider and store names accepted by the configuration.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHugot  = "hugot"
	ProviderHash   = "hash"

	KeywordExtractorLexical = "lexical"
	KeywordExtractorNER     = "ner"

	VectorStorePgvector = "pgvector"
	VectorStoreMilvus   = "milvus"
	VectorStoreMemory   = "memory"
)

// OpenAIConfiguration holds the OpenAI compatible API settings.
type OpenAIConfiguration struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
}

// OllamaConfiguration holds the Ollama server settings.
type OllamaConfiguration struct {
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
}

// MilvusConfiguration holds the Milvus connection and collection.
type MilvusConfiguration struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
}

// Configuration is the process configuration. Values are read from defaults,
// then an optional yaml file, then the environment (including a .env file).
type Configuration struct {
	Database           *DatabaseConfiguration `yaml:"database"`
	EmbeddingProvider  string                 `yaml:"embedding_provider"`
	GenerationProvider string                 `yaml:"generation_provider"`
	OpenAI             OpenAIConfiguration    `yaml:"openai"`
	Ollama             OllamaConfiguration    `yaml:"ollama"`
	VectorStore        string                 `yaml:"vector_store"`
	Milvus             MilvusConfiguration    `yaml:"milvus"`
	EmbeddingDim       int                    `yaml:"embedding_dim"`
	ModelDir           string                 `yaml:"model_dir"`
	KeywordExtractor   string                 `yaml:"keyword_extractor"`
	ProviderTimeout    time.Duration          `yaml:"provider_timeout"`
	ProviderMaxRetries int                    `yaml:"provider_max_retries"`
	HTTPAddr           string                 `yaml:"http_addr"`
	LogLevel           string                 `yaml:"log_level"`
}

// DefaultConfiguration returns the configuration used when nothing is set.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Database:           &DatabaseConfiguration{Schema: "public", SSLMode: "disable"},
		EmbeddingProvider:  ProviderOpenAI,
		GenerationProvider: ProviderOpenAI,
		OpenAI: OpenAIConfiguration{
			BaseURL:        "https://api.openai.com/v1",
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
		},
		Ollama: OllamaConfiguration{
			BaseURL:        "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			ChatModel:      "llama3.2",
		},
		VectorStore: VectorStorePgvector,
		Milvus: MilvusConfiguration{
			Address:    "localhost:19530",
			Collection: "paper_chunks",
		},
		EmbeddingDim:       1536,
		ModelDir:           DefaultModelDir,
		KeywordExtractor:   KeywordExtractorLexical,
		ProviderTimeout:    60 * time.Second,
		ProviderMaxRetries: 0,
		HTTPAddr:           ":8000",
		LogLevel:           "info",
	}
}

// NewConfiguration loads the configuration. An empty path skips the yaml file,
// a missing file at a given path is an error.
func NewConfiguration(path string) (*Configuration, error) {
	// .env is optional
	_ = godotenv.Load()

	config := DefaultConfiguration()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, NewError("read config file", fmt.Errorf("%s does not exist", path))
			}
			return nil, NewError("read config file", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, NewError("parse config file", err)
		}
		if config.Database == nil {
			config.Database = &DatabaseConfiguration{}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Configuration) applyEnv() error {
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.Database, "DB_DATABASE")
	setString(&c.Database.Username, "DB_USERNAME")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Schema, "DB_SCHEMA")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setString(&c.EmbeddingProvider, "EMBEDDING_PROVIDER")
	setString(&c.GenerationProvider, "GENERATION_PROVIDER")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OpenAI.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&c.OpenAI.ChatModel, "OPENAI_CHAT_MODEL")
	setString(&c.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.Ollama.EmbeddingModel, "OLLAMA_EMBEDDING_MODEL")
	setString(&c.Ollama.ChatModel, "OLLAMA_CHAT_MODEL")
	setString(&c.VectorStore, "VECTOR_STORE")
	setString(&c.Milvus.Address, "MILVUS_ADDRESS")
	setString(&c.Milvus.Collection, "MILVUS_COLLECTION")
	setString(&c.ModelDir, "MODEL_DIR")
	setString(&c.KeywordExtractor, "KEYWORD_EXTRACTOR")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")

	if err := setInt(&c.EmbeddingDim, "EMBEDDING_DIM"); err != nil {
		return err
	}
	if err := setInt(&c.ProviderMaxRetries, "PROVIDER_MAX_RETRIES"); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("PROVIDER_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewError("parse PROVIDER_TIMEOUT", err)
		}
		c.ProviderTimeout = d
	}
	return nil
}

// Validate checks provider and store names and the database settings.
func (c *Configuration) Validate() error {
	c.EmbeddingProvider = strings.ToLower(c.EmbeddingProvider)
	c.GenerationProvider = strings.ToLower(c.GenerationProvider)
	c.VectorStore = strings.ToLower(c.VectorStore)
	c.KeywordExtractor = strings.ToLower(c.KeywordExtractor)

	switch c.EmbeddingProvider {
	case ProviderOpenAI, ProviderOllama, ProviderHugot, ProviderHash:
	default:
		return NewError("validate configuration", fmt.Errorf("unknown embedding provider %q", c.EmbeddingProvider))
	}
	switch c.GenerationProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return NewError("validate configuration", fmt.Errorf("unknown generation provider %q", c.GenerationProvider))
	}
	switch c.VectorStore {
	case VectorStorePgvector, VectorStoreMilvus, VectorStoreMemory:
	default:
		return NewError("validate configuration", fmt.Errorf("unknown vector store %q", c.VectorStore))
	}

	switch c.KeywordExtractor {
	case "":
		c.KeywordExtractor = KeywordExtractorLexical
	case KeywordExtractorLexical, KeywordExtractorNER:
	default:
		return NewError("validate configuration", fmt.Errorf("unknown keyword extractor %q", c.KeywordExtractor))
	}

	if c.EmbeddingDim <= 0 {
		return NewError("validate configuration", fmt.Errorf("embedding dimension must be positive, got %d", c.EmbeddingDim))
	}
	if c.ProviderMaxRetries < 0 {
		return NewError("validate configuration", fmt.Errorf("provider max retries must not be negative"))
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = 60 * time.Second
	}

	return c.Database.Validate()
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func setInt(target *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return NewError("parse "+key, err)
	}
	*target = i
	return nil
}
