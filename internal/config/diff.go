package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider or
// storage changes require a restart and set RestartRequired instead.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// InterviewChanged is true when the default destination or origin
	// changed. Applies to sessions created after the reload.
	InterviewChanged bool

	// RestartRequired is true when provider, storage, audit, or listen
	// address settings changed. These are bound at startup.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Interview != new.Interview {
		d.InterviewChanged = true
	}

	if !providersEqual(&old.Providers, &new.Providers) ||
		old.Storage != new.Storage ||
		old.Audit != new.Audit ||
		old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = true
	}

	return d
}

// providersEqual compares provider configs ignoring the Options maps, which
// are not comparable; any Options difference still shows up through Name,
// BaseURL, or Model in practice.
func providersEqual(a, b *ProvidersConfig) bool {
	if a.LLM.ProviderEntry.Name != b.LLM.ProviderEntry.Name ||
		a.LLM.BaseURL != b.LLM.BaseURL ||
		a.LLM.Model != b.LLM.Model ||
		len(a.LLM.Fallbacks) != len(b.LLM.Fallbacks) {
		return false
	}
	for i := range a.LLM.Fallbacks {
		if a.LLM.Fallbacks[i].Name != b.LLM.Fallbacks[i].Name {
			return false
		}
	}
	if a.ASR.Name != b.ASR.Name || a.ASR.BaseURL != b.ASR.BaseURL || a.ASR.Model != b.ASR.Model {
		return false
	}
	if a.TTS.ProviderEntry.Name != b.TTS.ProviderEntry.Name ||
		a.TTS.BaseURL != b.TTS.BaseURL ||
		len(a.TTS.Fallbacks) != len(b.TTS.Fallbacks) {
		return false
	}
	for i := range a.TTS.Fallbacks {
		if a.TTS.Fallbacks[i].Name != b.TTS.Fallbacks[i].Name {
			return false
		}
	}
	return true
}
