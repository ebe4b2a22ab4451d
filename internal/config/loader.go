package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/visawire/visawire/internal/questionbank"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames holds the recognised provider names for each provider
// kind. [Validate] warns about names outside these lists.
var ValidProviderNames = map[string][]string{
	"llm": {"ollama", "openai", "vllm", "anyllm", "canned", "mock"},
	"asr": {"whisper-native", "whisper-server", "mock"},
	"tts": {"httpserver", "tone", "mock"},
}

// Load reads the YAML configuration file at path, expands ${VAR} references
// from the environment, and returns a validated [Config].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg, err := LoadFromReader(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result,
// rejecting unknown keys. Tests use it to build configs from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields with startup defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Audit.Dir == "" {
		cfg.Audit.Dir = "audit"
	}
	if cfg.Interview.DefaultDestination == "" {
		cfg.Interview.DefaultDestination = "US"
	}
	if cfg.Interview.DefaultOrigin == "" {
		cfg.Interview.DefaultOrigin = "IN"
	}
}

// Validate checks that cfg is a coherent set of values, returning a joined
// error naming every failure at once.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is not one of debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Provider name validation; warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLM.Fallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	for _, fb := range cfg.Providers.TTS.Fallbacks {
		validateProviderName("tts", fb.Name)
	}

	// Provider availability warnings
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the interviewer will only ask canned questions")
	}
	if cfg.Providers.ASR.Name == "" {
		slog.Warn("no ASR provider configured; voice input will be unavailable")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; responses will be text only")
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; using the in-memory question bank")
	}

	// Interview defaults
	if err := questionbank.ValidateCountry(cfg.Interview.DefaultDestination); err != nil {
		errs = append(errs, fmt.Errorf("interview.default_destination: %w", err))
	}
	if err := questionbank.ValidateCountry(cfg.Interview.DefaultOrigin); err != nil {
		errs = append(errs, fmt.Errorf("interview.default_origin: %w", err))
	}

	return errors.Join(errs...)
}

// validateProviderName warns when a non-empty name is absent from the
// [ValidProviderNames] list for kind. Unknown names are not an error so
// externally registered providers keep working.
func validateProviderName(kind, name string) {
	known := ValidProviderNames[kind]
	if name == "" || slices.Contains(known, name) {
		return
	}
	slog.Warn("unrecognised provider name, possibly a typo",
		"kind", kind, "name", name, "known", known)
}
