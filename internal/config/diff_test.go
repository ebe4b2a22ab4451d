package config_test

import (
	"testing"

	"github.com/visawire/visawire/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			LLM: config.ProviderChain{ProviderEntry: config.ProviderEntry{Name: "ollama", Model: "qwen2.5:7b"}},
			ASR: config.ProviderEntry{Name: "whisper-native"},
			TTS: config.ProviderChain{ProviderEntry: config.ProviderEntry{Name: "httpserver"}},
		},
		Interview: config.InterviewConfig{DefaultDestination: "US", DefaultOrigin: "IN"},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.InterviewChanged {
		t.Error("expected InterviewChanged=false for identical configs")
	}
	if d.RestartRequired {
		t.Error("expected RestartRequired=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change should not require a restart")
	}
}

func TestDiff_InterviewChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Interview: config.InterviewConfig{DefaultDestination: "US", DefaultOrigin: "IN"}}
	new := &config.Config{Interview: config.InterviewConfig{DefaultDestination: "UK", DefaultOrigin: "IN"}}

	d := config.Diff(old, new)
	if !d.InterviewChanged {
		t.Error("expected InterviewChanged=true")
	}
	if d.RestartRequired {
		t.Error("interview default change should not require a restart")
	}
}

func TestDiff_ProviderChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{
			LLM: config.ProviderChain{ProviderEntry: config.ProviderEntry{Name: "ollama", Model: "qwen2.5:7b"}},
		},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{
			LLM: config.ProviderChain{ProviderEntry: config.ProviderEntry{Name: "ollama", Model: "llama3:8b"}},
		},
	}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for LLM model change")
	}
}

func TestDiff_FallbackListChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{
			TTS: config.ProviderChain{ProviderEntry: config.ProviderEntry{Name: "httpserver"}},
		},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{
			TTS: config.ProviderChain{
				ProviderEntry: config.ProviderEntry{Name: "httpserver"},
				Fallbacks:     []config.ProviderEntry{{Name: "tone"}},
			},
		},
	}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for TTS fallback change")
	}
}

func TestDiff_StorageChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{}
	new := &config.Config{Storage: config.StorageConfig{PostgresDSN: "postgres://localhost/visawire"}}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for storage change")
	}
}

func TestDiff_AuditChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{Audit: config.AuditConfig{Dir: "audit"}}
	new := &config.Config{Audit: config.AuditConfig{Dir: "audit", RedisAddr: "localhost:6379"}}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for audit change")
	}
}

func TestDiff_ListenAddrChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{ListenAddr: ":8080"}}
	new := &config.Config{Server: config.ServerConfig{ListenAddr: ":9090"}}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for listen address change")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:    config.ServerConfig{LogLevel: config.LogInfo},
		Interview: config.InterviewConfig{DefaultDestination: "US"},
	}
	new := &config.Config{
		Server:    config.ServerConfig{LogLevel: config.LogWarn, ListenAddr: ":9999"},
		Interview: config.InterviewConfig{DefaultDestination: "CA"},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.InterviewChanged {
		t.Error("expected InterviewChanged=true")
	}
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true")
	}
}
