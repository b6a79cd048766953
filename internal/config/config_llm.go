package config

import "time"

// LLMConfig configures the providers available to the execution engine.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`

	// FallbackChain specifies provider IDs to try if the default provider
	// fails with a retryable error, tried in order until one succeeds.
	// Example: ["openai", "google"].
	FallbackChain []string `yaml:"fallback_chain"`

	// Bedrock configures AWS Bedrock foundation model discovery.
	Bedrock BedrockConfig `yaml:"bedrock"`
}

// LLMProviderConfig holds per-provider credentials and defaults.
type LLMProviderConfig struct {
	APIKey       string                              `yaml:"api_key"`
	DefaultModel string                              `yaml:"default_model"`
	BaseURL      string                              `yaml:"base_url"`
	APIVersion   string                              `yaml:"api_version"`
	MaxRetries   int                                 `yaml:"max_retries"`
	RetryBackoff time.Duration                       `yaml:"retry_backoff"`
	Timeout      time.Duration                       `yaml:"timeout"`
	Profiles     map[string]LLMProviderProfileConfig `yaml:"profiles"`

	// VertexProjectID switches the google provider to the Vertex AI backend
	// authenticated with a service account instead of APIKey.
	VertexProjectID string `yaml:"vertex_project_id"`

	// VertexLocation is the Vertex AI region for VertexProjectID. Default: us-central1.
	VertexLocation string `yaml:"vertex_location"`

	// VertexPrivateKeyPath points at a service-account JSON key file, read
	// and exchanged for an OAuth2 token when VertexProjectID is set.
	VertexPrivateKeyPath string `yaml:"vertex_private_key_path"`
}

// LLMProviderProfileConfig overrides provider settings for a named profile
// (e.g. a cheaper model for background work).
type LLMProviderProfileConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
	APIVersion   string `yaml:"api_version"`
}

// BedrockConfig configures AWS Bedrock model discovery.
type BedrockConfig struct {
	// Enabled enables automatic discovery of Bedrock foundation models.
	Enabled bool `yaml:"enabled"`

	// Region is the AWS region to query for models. Default: us-east-1.
	Region string `yaml:"region"`

	// RefreshInterval is how often to refresh the model list (e.g., "1h", "30m").
	// Default: 1h. Set to "0" to disable caching.
	RefreshInterval string `yaml:"refresh_interval"`

	// ProviderFilter limits discovery to specific model providers.
	// Example: ["anthropic", "amazon", "meta"]. Empty means all providers.
	ProviderFilter []string `yaml:"provider_filter"`

	// DefaultContextWindow is used when the model doesn't report context size.
	// Default: 32000.
	DefaultContextWindow int `yaml:"default_context_window"`

	// DefaultMaxTokens is used when the model doesn't report max output.
	// Default: 4096.
	DefaultMaxTokens int `yaml:"default_max_tokens"`

	// AccessKeyID, SecretAccessKey, and SessionToken supply explicit AWS
	// credentials for the Bedrock provider. Leave all three empty to fall
	// back to the default AWS credential chain (env vars, shared config,
	// instance role).
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`

	// BearerToken authenticates with Bedrock's bearer-token API-key mode
	// instead of SigV4 credentials. Takes precedence over AccessKeyID when
	// both are set.
	BearerToken string `yaml:"bearer_token"`
}

func applyLLMDefaults(cfg *LLMConfig) {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = "anthropic"
	}
	for name, provider := range cfg.Providers {
		if provider.MaxRetries == 0 {
			provider.MaxRetries = 3
		}
		if provider.RetryBackoff == 0 {
			provider.RetryBackoff = time.Second
		}
		if provider.Timeout == 0 {
			provider.Timeout = 2 * time.Minute
		}
		cfg.Providers[name] = provider
	}
	if cfg.Bedrock.Region == "" {
		cfg.Bedrock.Region = "us-east-1"
	}
	if cfg.Bedrock.DefaultContextWindow == 0 {
		cfg.Bedrock.DefaultContextWindow = 32000
	}
	if cfg.Bedrock.DefaultMaxTokens == 0 {
		cfg.Bedrock.DefaultMaxTokens = 4096
	}
}
