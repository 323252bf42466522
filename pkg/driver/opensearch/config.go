package opensearch

// Config holds OpenSearch client settings applied to every cluster.
type Config struct {
	Scheme             string `env:"OPENSEARCH_SCHEME" envDefault:"https"`
	MaxRetries         int    `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry       bool   `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
	InsecureSkipVerify bool   `env:"OPENSEARCH_INSECURE_SKIP_VERIFY" envDefault:"false"`
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{Scheme: "https", MaxRetries: 3}
}
