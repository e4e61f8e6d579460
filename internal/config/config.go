package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amanchunk/internal/logging"
	"github.com/Aman-CERP/amanchunk/internal/tokenizer"
	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

// Project config file names, in lookup order.
const (
	ProjectConfigYAML = ".amanchunk.yaml"
	ProjectConfigYML  = ".amanchunk.yml"
)

// Config represents the complete amanchunk configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Chunking    ChunkingConfig    `yaml:"chunking" json:"chunking"`
	Languages   LanguagesConfig   `yaml:"languages" json:"languages"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// ChunkingConfig holds the engine defaults used when no flag overrides them.
type ChunkingConfig struct {
	// Strategy is semantic, code or recursive.
	Strategy  string `yaml:"strategy" json:"strategy"`
	ChunkSize int    `yaml:"chunk_size" json:"chunk_size"`
	// Overlap can be explicitly zero, so it is a pointer while merging.
	Overlap  *int `yaml:"overlap,omitempty" json:"overlap,omitempty"`
	MaxDepth int  `yaml:"max_depth" json:"max_depth"`
	// Measure is chars or tokens.
	Measure string `yaml:"measure" json:"measure"`
	// Encoding is the tiktoken encoding used when Measure is tokens.
	Encoding string `yaml:"encoding" json:"encoding"`
}

// LanguagesConfig extends extension-based language detection.
type LanguagesConfig struct {
	// Extensions maps a file extension (".pyi" or "pyi") to a language name or alias.
	Extensions map[string]string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

// PerformanceConfig configures batch chunking.
type PerformanceConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// OutputConfig configures CLI rendering.
type OutputConfig struct {
	// Format is text, json or jsonl.
	Format string `yaml:"format" json:"format"`
	// Color is auto, always or never.
	Color string `yaml:"color" json:"color"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	overlap := chunk.DefaultOverlap
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			Strategy:  string(chunk.StrategySemantic),
			ChunkSize: chunk.DefaultChunkSize,
			Overlap:   &overlap,
			MaxDepth:  chunk.DefaultMaxDepth,
			Measure:   string(tokenizer.MeasureChars),
			Encoding:  tokenizer.DefaultEncoding,
		},
		Performance: PerformanceConfig{
			Workers: runtime.NumCPU(),
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/amanchunk/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amanchunk/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanchunk", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanchunk", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanchunk", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, preferring
// .amanchunk.yaml. The second result is false when neither exists.
func ProjectConfigPath(dir string) (string, bool) {
	for _, name := range []string{ProjectConfigYAML, ProjectConfigYML} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, true
		}
	}
	return filepath.Join(dir, ProjectConfigYAML), false
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parseYAML(configPath, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Load loads configuration for the project at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/amanchunk/config.yaml)
//  3. Project config (.amanchunk.yaml in dir)
//  4. Environment variables (AMANCHUNK_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if path, ok := ProjectConfigPath(dir); ok {
		var parsed Config
		if err := parseYAML(path, &parsed); err != nil {
			return nil, err
		}
		cfg.mergeWith(&parsed)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func parseYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Chunking.Strategy != "" {
		c.Chunking.Strategy = other.Chunking.Strategy
	}
	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.Overlap != nil {
		v := *other.Chunking.Overlap
		c.Chunking.Overlap = &v
	}
	if other.Chunking.MaxDepth != 0 {
		c.Chunking.MaxDepth = other.Chunking.MaxDepth
	}
	if other.Chunking.Measure != "" {
		c.Chunking.Measure = other.Chunking.Measure
	}
	if other.Chunking.Encoding != "" {
		c.Chunking.Encoding = other.Chunking.Encoding
	}

	// Extension mappings accumulate across layers.
	if len(other.Languages.Extensions) > 0 {
		if c.Languages.Extensions == nil {
			c.Languages.Extensions = make(map[string]string, len(other.Languages.Extensions))
		}
		for ext, lang := range other.Languages.Extensions {
			c.Languages.Extensions[normalizeExt(ext)] = lang
		}
	}

	if other.Performance.Workers != 0 {
		c.Performance.Workers = other.Performance.Workers
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Color != "" {
		c.Output.Color = other.Output.Color
	}
}

// applyEnvOverrides applies AMANCHUNK_* environment variable overrides.
// Malformed integers are reported rather than ignored.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("AMANCHUNK_STRATEGY"); v != "" {
		c.Chunking.Strategy = v
	}
	if v := os.Getenv("AMANCHUNK_MEASURE"); v != "" {
		c.Chunking.Measure = v
	}
	if v := os.Getenv("AMANCHUNK_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("AMANCHUNK_FORMAT"); v != "" {
		c.Output.Format = v
	}

	ints := []struct {
		env string
		set func(int)
	}{
		{"AMANCHUNK_CHUNK_SIZE", func(n int) { c.Chunking.ChunkSize = n }},
		{"AMANCHUNK_OVERLAP", func(n int) { c.Chunking.Overlap = &n }},
		{"AMANCHUNK_MAX_DEPTH", func(n int) { c.Chunking.MaxDepth = n }},
		{"AMANCHUNK_WORKERS", func(n int) { c.Performance.Workers = n }},
	}
	for _, e := range ints {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", e.env, v)
		}
		e.set(n)
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if _, err := chunk.ParseStrategy(c.Chunking.Strategy); err != nil {
		return fmt.Errorf("chunking.strategy: %w", err)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.MaxDepth < 1 {
		return fmt.Errorf("chunking.max_depth must be at least 1, got %d", c.Chunking.MaxDepth)
	}
	if c.OverlapValue() < 0 {
		return fmt.Errorf("chunking.overlap must be non-negative, got %d", c.OverlapValue())
	}
	if _, err := tokenizer.ParseMeasure(c.Chunking.Measure); err != nil {
		return fmt.Errorf("chunking.measure: %w", err)
	}

	for ext, lang := range c.Languages.Extensions {
		if _, ok := chunk.LookupLanguage(lang); !ok {
			return fmt.Errorf("languages.extensions[%s]: unknown language %q", ext, lang)
		}
	}

	if c.Performance.Workers < 0 {
		return fmt.Errorf("performance.workers must be non-negative, got %d", c.Performance.Workers)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	if _, ok := logging.ParseLevel(c.Server.LogLevel); !ok {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	switch strings.ToLower(c.Output.Format) {
	case "text", "json", "jsonl":
	default:
		return fmt.Errorf("output.format must be 'text', 'json', or 'jsonl', got %s", c.Output.Format)
	}
	switch strings.ToLower(c.Output.Color) {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be 'auto', 'always', or 'never', got %s", c.Output.Color)
	}

	return nil
}

// OverlapValue returns the configured overlap, zero when unset.
func (c *Config) OverlapValue() int {
	if c.Chunking.Overlap == nil {
		return 0
	}
	return *c.Chunking.Overlap
}

// Strategy returns the parsed default strategy.
func (c *Config) Strategy() (chunk.Strategy, error) {
	return chunk.ParseStrategy(c.Chunking.Strategy)
}

// ChunkOptions converts the chunking section into engine options. Token
// measurement loads the configured encoding.
func (c *Config) ChunkOptions() ([]chunk.Option, error) {
	measure, err := tokenizer.ParseMeasure(c.Chunking.Measure)
	if err != nil {
		return nil, err
	}
	length, err := tokenizer.LengthFuncFor(measure, c.Chunking.Encoding)
	if err != nil {
		return nil, err
	}

	return []chunk.Option{
		chunk.WithChunkSize(c.Chunking.ChunkSize),
		chunk.WithOverlap(c.OverlapValue()),
		chunk.WithMaxDepth(c.Chunking.MaxDepth),
		chunk.WithLengthFunc(length),
	}, nil
}

// DetectLanguage resolves the language for a file path, consulting the
// configured extension overrides before the built-in registry.
func (c *Config) DetectLanguage(path string) string {
	ext := normalizeExt(filepath.Ext(path))
	if lang, ok := c.Languages.Extensions[ext]; ok && ext != "" {
		if cfg, ok := chunk.LookupLanguage(lang); ok {
			return cfg.Name
		}
	}
	return chunk.DetectLanguage(path)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// FindProjectRoot finds the project root directory.
// It looks for a .git directory or .amanchunk.yaml/.yml file by walking up the directory tree.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if _, ok := ProjectConfigPath(currentDir); ok {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
