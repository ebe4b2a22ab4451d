// Command visawire is the main entry point for the VisaWire mock visa
// interview server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel"

	"github.com/visawire/visawire/internal/app"
	"github.com/visawire/visawire/internal/config"
	"github.com/visawire/visawire/internal/observe"
	"github.com/visawire/visawire/internal/resilience"
	"github.com/visawire/visawire/pkg/provider/asr"
	asrmock "github.com/visawire/visawire/pkg/provider/asr/mock"
	"github.com/visawire/visawire/pkg/provider/asr/whisper"
	"github.com/visawire/visawire/pkg/provider/llm"
	"github.com/visawire/visawire/pkg/provider/llm/anyllm"
	"github.com/visawire/visawire/pkg/provider/llm/canned"
	llmmock "github.com/visawire/visawire/pkg/provider/llm/mock"
	"github.com/visawire/visawire/pkg/provider/llm/ollama"
	"github.com/visawire/visawire/pkg/provider/llm/openai"
	"github.com/visawire/visawire/pkg/provider/tts"
	"github.com/visawire/visawire/pkg/provider/tts/httpserver"
	ttsmock "github.com/visawire/visawire/pkg/provider/tts/mock"
	"github.com/visawire/visawire/pkg/provider/tts/tone"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "visawire: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "visawire: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("visawire starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "visawire",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithMetrics(metrics),
		app.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if diff.InterviewChanged {
			slog.Info("interview defaults changed; applies to new sessions",
				"destination", new.Interview.DefaultDestination,
				"origin", new.Interview.DefaultOrigin,
			)
		}
		if diff.RestartRequired {
			slog.Warn("provider, storage, audit or listen address changed in config; restart required to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           application.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server error", "err", err)
		exitCode = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down…")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		exitCode = 1
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return exitCode
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	// ollama is a local server; BaseURL is its address, no API key needed.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		serverURL := entry.BaseURL
		if serverURL == "" {
			serverURL = "http://localhost:11434"
		}
		return ollama.New(serverURL, entry.Model)
	})

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// vLLM serves the OpenAI chat completions API, so it shares the openai
	// client with a mandatory base_url.
	reg.RegisterLLM("vllm", func(entry config.ProviderEntry) (llm.Provider, error) {
		if entry.BaseURL == "" {
			return nil, errors.New("vllm provider requires base_url")
		}
		return openai.New(entry.APIKey, entry.Model, openai.WithBaseURL(entry.BaseURL))
	})

	// anyllm routes to any backend supported by any-llm-go; the backend is
	// picked via options.backend (e.g. "mistral", "groq").
	reg.RegisterLLM("anyllm", func(entry config.ProviderEntry) (llm.Provider, error) {
		backend := optString(entry.Options, "backend")
		if backend == "" {
			return nil, errors.New("anyllm provider requires options.backend")
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(backend, entry.Model, opts...)
	})

	reg.RegisterLLM("canned", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []canned.Option
		if line := optString(entry.Options, "line"); line != "" {
			opts = append(opts, canned.WithLine(line))
		}
		return canned.New(opts...), nil
	})

	reg.RegisterLLM("mock", func(entry config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{Responses: []string{canned.DefaultLine}}, nil
	})

	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterASR("whisper-server", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		return whisper.NewServer(entry.BaseURL)
	})

	reg.RegisterASR("mock", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		return &asrmock.Recognizer{}, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("httpserver", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []httpserver.Option
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, httpserver.WithVoice(voice))
		}
		return httpserver.New(entry.BaseURL, opts...)
	})

	reg.RegisterTTS("tone", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		return tone.New(), nil
	})

	reg.RegisterTTS("mock", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		return &ttsmock.Synthesizer{}, nil
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg, wraps LLM and TTS
// in fallback chains with terminal offline backends, and returns them in an
// [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*app.Providers, error) {
	ps := &app.Providers{}

	fallbackCfg := func(kind string) resilience.FallbackConfig {
		return resilience.FallbackConfig{
			OnFallback: func(name string) {
				metrics.RecordFallback(context.Background(), kind, name)
			},
		}
	}

	// LLM chain: primary, configured fallbacks, then the canned backend so the
	// interviewer always has something to say.
	llmName := cfg.Providers.LLM.Name
	if llmName == "" {
		llmName = "canned"
	}
	primary, err := reg.CreateLLM(providerOrName(cfg.Providers.LLM.ProviderEntry, llmName))
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", llmName, err)
	}
	llmChain := resilience.NewLLMFallback(primary, llmName, fallbackCfg("llm"))
	for _, fb := range cfg.Providers.LLM.Fallbacks {
		p, err := reg.CreateLLM(fb)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", fb.Name, err)
		}
		llmChain.AddFallback(fb.Name, p)
	}
	if llmName != "canned" && !hasFallback(cfg.Providers.LLM.Fallbacks, "canned") {
		llmChain.AddFallback("canned", canned.New())
	}
	ps.LLM = llmChain
	slog.Info("provider created", "kind", "llm", "name", llmName, "fallbacks", len(cfg.Providers.LLM.Fallbacks))

	// TTS chain: terminal tone backend keeps audio output alive offline.
	ttsName := cfg.Providers.TTS.Name
	if ttsName == "" {
		ttsName = "tone"
	}
	ttsPrimary, err := reg.CreateTTS(providerOrName(cfg.Providers.TTS.ProviderEntry, ttsName))
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", ttsName, err)
	}
	ttsChain := resilience.NewTTSFallback(ttsPrimary, ttsName, fallbackCfg("tts"))
	for _, fb := range cfg.Providers.TTS.Fallbacks {
		s, err := reg.CreateTTS(fb)
		if err != nil {
			return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
		}
		ttsChain.AddFallback(fb.Name, s)
	}
	if ttsName != "tone" && !hasFallback(cfg.Providers.TTS.Fallbacks, "tone") {
		ttsChain.AddFallback("tone", tone.New())
	}
	ps.TTS = ttsChain
	slog.Info("provider created", "kind", "tts", "name", ttsName, "fallbacks", len(cfg.Providers.TTS.Fallbacks))

	// Recognizers hold per-utterance state, so each connection gets a fresh
	// instance from the factory.
	asrEntry := cfg.Providers.ASR
	ps.NewRecognizer = func() asr.Recognizer {
		if asrEntry.Name == "" {
			return asr.Unavailable(errors.New("no asr provider configured"))
		}
		r, err := reg.CreateASR(asrEntry)
		if err != nil {
			slog.Warn("create asr recognizer failed", "name", asrEntry.Name, "err", err)
			return asr.Unavailable(err)
		}
		return r
	}
	if asrEntry.Name != "" {
		slog.Info("provider created", "kind", "asr", "name", asrEntry.Name)
	}

	return ps, nil
}

// providerOrName returns entry with its Name forced to name. Used to fill in
// the terminal default when no provider was configured.
func providerOrName(entry config.ProviderEntry, name string) config.ProviderEntry {
	entry.Name = name
	return entry
}

// hasFallback reports whether name appears in the configured fallback list.
func hasFallback(fallbacks []config.ProviderEntry, name string) bool {
	for _, fb := range fallbacks {
		if fb.Name == name {
			return true
		}
	}
	return false
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        VisaWire — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("ASR", cfg.Providers.ASR.Name, cfg.Providers.ASR.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	storage := "in-memory"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	fmt.Printf("║  Question bank   : %-19s ║\n", storage)
	auditSink := "file"
	if cfg.Audit.RedisAddr != "" {
		auditSink = "redis+file"
	}
	fmt.Printf("║  Audit trail     : %-19s ║\n", auditSink)
	fmt.Printf("║  Destination     : %-19s ║\n", cfg.Interview.DefaultDestination)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
