package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// CODECTX_EMBEDDER_MODEL overrides embedder.model.
const EnvPrefix = "CODECTX"

// DefaultSeparator is the literal separator placed between formatted results.
const DefaultSeparator = "--------------------------------------------------------------------------------"

// DefaultFormatTemplate renders one search result. Placeholders are replaced
// with chunk fields; {score} is formatted with four decimal places.
const DefaultFormatTemplate = "File: {file} | Type: {kind} | Name: {name}\n" +
	"Score: {score}\n" +
	"{separator}\n" +
	"{full_text}\n" +
	"{separator}\n"

// Config is the full nested configuration tree. Values are resolved in three
// layers: compiled defaults, then an optional YAML file, then CODECTX_* env.
type Config struct {
	Embedder   EmbedderConfig  `yaml:"embedder"`
	Index      IndexConfig     `yaml:"index"`
	Retriever  RetrieverConfig `yaml:"retriever"`
	Extractors ExtractorConfig `yaml:"extractors"`
	Indexing   IndexingConfig  `yaml:"indexing"`
	API        APIConfig       `yaml:"api"`
	Registry   RegistryConfig  `yaml:"registry"`
}

// EmbedderConfig configures the embedding service and its provider.
type EmbedderConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	APIKey          string `yaml:"api_key" split_words:"true"`
	CacheDir        string `yaml:"cache_dir" split_words:"true"`
	UseCache        bool   `yaml:"use_cache" split_words:"true"`
	BatchSize       int    `yaml:"batch_size" split_words:"true"`
	MaxWorkers      int    `yaml:"max_workers" split_words:"true"`
	MemoryCacheSize int    `yaml:"memory_cache_size" split_words:"true"`
}

// IndexConfig configures the vector index.
type IndexConfig struct {
	Dir     string `yaml:"dir"`
	Name    string `yaml:"name"`
	Metric  string `yaml:"metric"` // "cosine" or "l2"
	UseHNSW bool   `yaml:"use_hnsw" split_words:"true"`
}

// RetrieverConfig configures query behavior and result formatting.
type RetrieverConfig struct {
	TopK           int      `yaml:"top_k" split_words:"true"`
	Threshold      *float64 `yaml:"threshold"`
	FormatTemplate string   `yaml:"format_template" split_words:"true"`
	Separator      string   `yaml:"separator"`
}

// ExtractorConfig carries per-extractor settings.
type ExtractorConfig struct {
	MaxFileSize int64          `yaml:"max_file_size" split_words:"true"`
	Markdown    MarkdownConfig `yaml:"markdown"`
}

// MarkdownConfig configures the markdown extractor.
type MarkdownConfig struct {
	SplitByHeadings bool `yaml:"split_by_headings" split_words:"true"`
}

// IndexingConfig configures the corpus walk.
type IndexingConfig struct {
	ExcludeDirs  []string `yaml:"exclude_dirs" split_words:"true"`
	ExcludeFiles []string `yaml:"exclude_files" split_words:"true"`
	MaxWorkers   int      `yaml:"max_workers" split_words:"true"`
	UseGitignore bool     `yaml:"use_gitignore" split_words:"true"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key" split_words:"true"`
}

// RegistryConfig locates the project registry database.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".codectx")

	return &Config{
		Embedder: EmbedderConfig{
			Provider:        "local",
			Model:           "text-embedding-3-small",
			CacheDir:        filepath.Join(base, "cache", "embeddings"),
			UseCache:        true,
			BatchSize:       32,
			MaxWorkers:      4,
			MemoryCacheSize: 10000,
		},
		Index: IndexConfig{
			Dir:     filepath.Join(base, "indices"),
			Name:    "default",
			Metric:  "cosine",
			UseHNSW: false,
		},
		Retriever: RetrieverConfig{
			TopK:           5,
			FormatTemplate: DefaultFormatTemplate,
			Separator:      DefaultSeparator,
		},
		Extractors: ExtractorConfig{
			MaxFileSize: 1024 * 1024, // 1MB
			Markdown:    MarkdownConfig{SplitByHeadings: true},
		},
		Indexing: IndexingConfig{
			ExcludeDirs:  []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__", ".cache"},
			ExcludeFiles: []string{"*.min.js", "*_generated.go", "*.pb.go"},
			MaxWorkers:   runtime.NumCPU(),
			UseGitignore: true,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Registry: RegistryConfig{
			Path: filepath.Join(base, "projects.db"),
		},
	}
}

// Load resolves the configuration: defaults, then the YAML file at path if
// path is non-empty, then environment overrides. A missing .env file is not
// an error; a broken YAML file is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	return cfg, nil
}

// Validate checks the handful of values that would otherwise fail deep inside
// the pipeline.
func (c *Config) Validate() error {
	if c.Index.Metric != "cosine" && c.Index.Metric != "l2" {
		return fmt.Errorf("index.metric must be \"cosine\" or \"l2\", got %q", c.Index.Metric)
	}
	if c.Retriever.TopK <= 0 {
		return fmt.Errorf("retriever.top_k must be positive, got %d", c.Retriever.TopK)
	}
	if c.Embedder.BatchSize <= 0 {
		return fmt.Errorf("embedder.batch_size must be positive, got %d", c.Embedder.BatchSize)
	}
	return nil
}
