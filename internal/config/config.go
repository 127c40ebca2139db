// Package config resolves trae-mem's runtime configuration once at startup:
// store and session-map paths, the summarizer provider and its credentials,
// and HTTP listen defaults.
//
// Sources, highest priority first:
//  1. Command-line flags (Options)
//  2. Environment variables (TRAE_MEM_*, ANTHROPIC_API_KEY, OPENAI_API_KEY)
//  3. .env / .env.local in the working directory (never override the environment)
//  4. config.yaml (--config, TRAE_MEM_CONFIG, $TRAE_MEM_HOME/config.yaml, ~/.trae-mem/config.yaml)
//  5. OS keyring, for provider API keys only
//  6. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/trae-mem/internal/summarize"
)

// Environment variable names.
const (
	EnvHome             = "TRAE_MEM_HOME"
	EnvDB               = "TRAE_MEM_DB"
	EnvSessionMap       = "TRAE_MEM_SESSION_MAP"
	EnvConfig           = "TRAE_MEM_CONFIG"
	EnvSummarizer       = "TRAE_MEM_SUMMARIZER"
	EnvAnthropicModel   = "TRAE_MEM_ANTHROPIC_MODEL"
	EnvAnthropicBaseURL = "TRAE_MEM_ANTHROPIC_BASE_URL"
	EnvOpenAIModel      = "TRAE_MEM_OPENAI_MODEL"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvAnthropicKey     = "ANTHROPIC_API_KEY"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvHTTPHost         = "TRAE_MEM_HTTP_HOST"
	EnvHTTPPort         = "TRAE_MEM_HTTP_PORT"
)

// Defaults.
const (
	DirName        = ".trae-mem"
	DBFile         = "trae_mem.sqlite3"
	SessionMapFile = "session_map.json"
	ConfigFile     = "config.yaml"
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 37777

	// KeyringService is the OS keyring service holding provider API keys.
	KeyringService = "trae-mem"
)

// Options carries values from command-line flags.
type Options struct {
	DBPath     string
	ConfigPath string
	// WorkDir replaces the process working directory for relative defaults
	// and .env lookup. Empty means os.Getwd.
	WorkDir string
}

// FileConfig is the YAML configuration file layout.
type FileConfig struct {
	DBPath     string `yaml:"db_path"`
	SessionMap string `yaml:"session_map"`
	Summarizer struct {
		Provider         string `yaml:"provider"`
		AnthropicModel   string `yaml:"anthropic_model"`
		AnthropicAPIKey  string `yaml:"anthropic_api_key"`
		AnthropicBaseURL string `yaml:"anthropic_base_url"`
		OpenAIModel      string `yaml:"openai_model"`
		OpenAIAPIKey     string `yaml:"openai_api_key"`
		OpenAIBaseURL    string `yaml:"openai_base_url"`
	} `yaml:"summarizer"`
	HTTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"http"`
}

// Config is the resolved configuration.
type Config struct {
	DBPath         string
	SessionMapPath string
	// ConfigFile is the YAML file that was read, or "" when none was.
	ConfigFile string
	Summarizer summarize.Config
	HTTPHost   string
	HTTPPort   int
}

// Load resolves the configuration. An explicitly named config file that
// cannot be read is an error; implicit locations are skipped when missing.
func Load(opts Options, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config")

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: working directory: %w", err)
		}
		workDir = wd
	}
	loadEnvFiles(workDir)

	fc, cfgPath, err := readFileConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{ConfigFile: cfgPath}
	cfg.DBPath = expandHome(firstNonEmpty(opts.DBPath, os.Getenv(EnvDB), fc.DBPath))
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath(workDir)
	}
	cfg.SessionMapPath = expandHome(firstNonEmpty(os.Getenv(EnvSessionMap), fc.SessionMap))
	if cfg.SessionMapPath == "" {
		cfg.SessionMapPath = defaultSessionMapPath(workDir)
	}

	cfg.HTTPHost = firstNonEmpty(os.Getenv(EnvHTTPHost), fc.HTTP.Host, DefaultHost)
	cfg.HTTPPort = DefaultPort
	if fc.HTTP.Port > 0 {
		cfg.HTTPPort = fc.HTTP.Port
	}
	if v := os.Getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("config: %s=%q is not a valid port", EnvHTTPPort, v)
		}
		cfg.HTTPPort = port
	}

	s := &cfg.Summarizer
	s.Provider = strings.ToLower(firstNonEmpty(os.Getenv(EnvSummarizer), fc.Summarizer.Provider, summarize.ProviderNone))
	s.AnthropicModel = firstNonEmpty(os.Getenv(EnvAnthropicModel), fc.Summarizer.AnthropicModel)
	s.AnthropicBaseURL = firstNonEmpty(os.Getenv(EnvAnthropicBaseURL), fc.Summarizer.AnthropicBaseURL)
	s.AnthropicAPIKey = firstNonEmpty(os.Getenv(EnvAnthropicKey), fc.Summarizer.AnthropicAPIKey)
	s.OpenAIModel = firstNonEmpty(os.Getenv(EnvOpenAIModel), fc.Summarizer.OpenAIModel)
	s.OpenAIBaseURL = firstNonEmpty(os.Getenv(EnvOpenAIBaseURL), fc.Summarizer.OpenAIBaseURL)
	s.OpenAIAPIKey = firstNonEmpty(os.Getenv(EnvOpenAIKey), fc.Summarizer.OpenAIAPIKey)

	// The keyring is only consulted for the provider actually selected.
	switch s.Provider {
	case summarize.ProviderAnthropic:
		if s.AnthropicAPIKey == "" {
			s.AnthropicAPIKey = GetKey(summarize.ProviderAnthropic)
		}
	case summarize.ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			s.OpenAIAPIKey = GetKey(summarize.ProviderOpenAI)
		}
	}

	logger.Debug("configuration resolved",
		"db", cfg.DBPath, "session_map", cfg.SessionMapPath,
		"config_file", cfg.ConfigFile, "summarizer", s.Provider)
	return cfg, nil
}

// ─── Keyring ────────────────────────────────────────────────────────────────

func keyringUser(provider string) string {
	return provider + "_api_key"
}

// GetKey returns the API key stored for provider, or "" when absent or the
// keyring is unavailable.
func GetKey(provider string) string {
	v, err := keyring.Get(KeyringService, keyringUser(provider))
	if err != nil {
		return ""
	}
	return v
}

// StoreKey saves provider's API key in the OS keyring.
func StoreKey(provider, value string) error {
	if provider != summarize.ProviderAnthropic && provider != summarize.ProviderOpenAI {
		return fmt.Errorf("config: unknown provider %q", provider)
	}
	if err := keyring.Set(KeyringService, keyringUser(provider), value); err != nil {
		return fmt.Errorf("config: store %s key in keyring: %w", provider, err)
	}
	return nil
}

// DeleteKey removes provider's API key from the OS keyring. A missing
// entry is not an error.
func DeleteKey(provider string) error {
	err := keyring.Delete(KeyringService, keyringUser(provider))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("config: delete %s key from keyring: %w", provider, err)
	}
	return nil
}

// ─── Internal ───────────────────────────────────────────────────────────────

// loadEnvFiles loads .env files from the working directory. godotenv.Load
// does not overwrite variables already present in the environment.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Load(filepath.Join(dir, name))
	}
}

func readFileConfig(explicit string) (*FileConfig, string, error) {
	fc := &FileConfig{}

	path := firstNonEmpty(explicit, os.Getenv(EnvConfig))
	mustExist := path != ""
	if path == "" {
		for _, candidate := range implicitConfigPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return fc, "", nil
	}
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !mustExist && errors.Is(err, os.ErrNotExist) {
			return fc, "", nil
		}
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), fc); err != nil {
		return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc, path, nil
}

func implicitConfigPaths() []string {
	var out []string
	if home := os.Getenv(EnvHome); home != "" {
		out = append(out, filepath.Join(expandHome(home), ConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, DirName, ConfigFile))
	}
	return out
}

func defaultDBPath(workDir string) string {
	if home := os.Getenv(EnvHome); home != "" {
		return filepath.Join(expandHome(home), DBFile)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		dir := filepath.Join(home, DirName)
		if os.MkdirAll(dir, 0o700) == nil {
			return filepath.Join(dir, DBFile)
		}
	}
	return filepath.Join(workDir, DirName, DBFile)
}

func defaultSessionMapPath(workDir string) string {
	if home := os.Getenv(EnvHome); home != "" {
		return filepath.Join(expandHome(home), SessionMapFile)
	}
	return filepath.Join(workDir, DirName, SessionMapFile)
}

// expandEnvVars replaces ${VAR} and $VAR references with their values,
// leaving references to unset variables untouched.
func expandEnvVars(input string) string {
	return os.Expand(input, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
