package model

import "time"

// Config holds the complete runtime configuration.
//
// Hierarchy (highest to lowest priority): CLI flags, SITEINTEL_* environment
// variables, config file (~/.siteintel/config.yaml), defaults.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// HTTPConfig configures outbound HTTP behavior shared by the fetchers.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CrawlConfig configures the crawl orchestrator.
type CrawlConfig struct {
	PageBudget        int           `yaml:"page_budget" mapstructure:"page_budget"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	WallClock         time.Duration `yaml:"wall_clock" mapstructure:"wall_clock"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	ProviderBaseURL   string        `yaml:"provider_base_url" mapstructure:"provider_base_url"`
	ProviderAPIKey    string        `yaml:"provider_api_key" mapstructure:"provider_api_key"`
}

// ExtractConfig configures the deep extraction coordinator.
type ExtractConfig struct {
	DeepExtractCount int           `yaml:"deep_extract_count" mapstructure:"deep_extract_count"`
	TaskTimeout      time.Duration `yaml:"task_timeout" mapstructure:"task_timeout"`
	MaxContentChars  int           `yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// LLMConfig configures the structured-extraction service.
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"`
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig configures artifact rendering.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "siteintel/0.1 (+https://github.com/okulov/siteintel)",
			MaxBodyBytes: 2_000_000,
		},
		Crawl: CrawlConfig{
			PageBudget:        200,
			RequestsPerSecond: 1.5,
			WallClock:         5 * time.Minute,
			MaxRetries:        3,
		},
		Extract: ExtractConfig{
			DeepExtractCount: 15,
			TaskTimeout:      90 * time.Second,
			MaxContentChars:  50_000,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   60 * time.Second,
			MaxTokens: 2000,
		},
		Output: OutputConfig{
			Dir: "./siteintel-runs",
		},
	}
}
