package config

// LLMProviderConfig carries the transport-level settings a provider in
// pkg/llms needs to reach its API: credentials, host, generation
// parameters, and retry tuning. It is distinct from LLMSettings (the
// resolved, per-job config selecting provider/model/temperature) —
// LLMProviderConfig is what the worker builds from LLMSettings plus
// environment-sourced secrets when constructing the concrete provider.
type LLMProviderConfig struct {
	Type        string  `yaml:"type" mapstructure:"type"`
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	Host        string  `yaml:"host" mapstructure:"host"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay  int     `yaml:"retry_delay" mapstructure:"retry_delay"`
}

// ProviderConfigFromSettings builds a provider-level config from the
// resolved per-job LLM settings plus an API key sourced from the
// environment (see GetProviderAPIKey).
func ProviderConfigFromSettings(s LLMSettings, apiKey, host string) *LLMProviderConfig {
	return &LLMProviderConfig{
		Type:        s.Provider,
		Model:       s.Model,
		APIKey:      apiKey,
		Host:        host,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		Timeout:     s.RequestTimeout,
		MaxRetries:  s.RetryMaxCap,
		RetryDelay:  2,
	}
}
