// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gleaner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/fetch"
	"github.com/poiesic/gleaner/filter"
	"github.com/poiesic/gleaner/storage/badger"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvSerpAPIKey = "SERPAPI_API_KEY"
	EnvCacheDir   = "GLEANER_CACHE_DIR"
)

// Config is the process-wide configuration, usually read from a YAML file.
// Durations use Go syntax ("15s", "24h").
type Config struct {
	Cache     CacheConfig     `yaml:"cache"`
	AI        ai.Config       `yaml:"ai"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Filter    FilterConfig    `yaml:"filter"`
	Summary   SummaryConfig   `yaml:"summary"`
}

// CacheConfig locates the result cache.
type CacheConfig struct {
	// Dir is the badger directory. Created if missing.
	Dir string `yaml:"dir"`
	// InMemory keeps the cache in memory for the life of the process.
	InMemory bool `yaml:"in_memory"`
	// MaxAge bounds how long any entry physically survives.
	MaxAge time.Duration `yaml:"max_age"`
}

// DiscoveryConfig configures source discovery.
type DiscoveryConfig struct {
	SerpAPIKey     string        `yaml:"serpapi_api_key"`
	SerpAPIURL     string        `yaml:"serpapi_url,omitempty"`
	ScrapeURL      string        `yaml:"scrape_url,omitempty"`
	ResultSelector string        `yaml:"result_selector,omitempty"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	DesiredCount   int           `yaml:"desired_count"`
}

// FetchConfig configures the fetch tiers and batch limits.
type FetchConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	PoolSize        int           `yaml:"pool_size"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	BatchTimeout    time.Duration `yaml:"batch_timeout"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	HTTPAttempts    int           `yaml:"http_attempts"`
	HTTPRetryDelay  time.Duration `yaml:"http_retry_delay"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	Browser         bool          `yaml:"browser"`
	BrowserSessions int64         `yaml:"browser_sessions"`
	BrowserTimeout  time.Duration `yaml:"browser_timeout"`
}

// FilterConfig configures chunking and ranking.
type FilterConfig struct {
	MinChunkLength int  `yaml:"min_chunk_length"`
	MaxChunkLength int  `yaml:"max_chunk_length"`
	TopK           int  `yaml:"top_k"`
	Normalize      bool `yaml:"normalize"`
}

// SummaryConfig bounds summary length in words.
type SummaryConfig struct {
	MinLength int `yaml:"min_length"`
	MaxLength int `yaml:"max_length"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	summary := ai.DefaultSummaryOptions()
	return &Config{
		Cache: CacheConfig{
			Dir:    defaultCacheDir(),
			MaxAge: badger.DefaultMaxAge,
		},
		AI: *ai.DefaultConfig(),
		Discovery: DiscoveryConfig{
			CacheTTL:     24 * time.Hour,
			DesiredCount: 5,
		},
		Fetch: FetchConfig{
			CacheTTL:        time.Hour,
			PoolSize:        8,
			CallTimeout:     fetch.DefaultCallTimeout,
			BatchTimeout:    2 * time.Minute,
			HTTPTimeout:     15 * time.Second,
			HTTPAttempts:    3,
			HTTPRetryDelay:  2 * time.Second,
			MaxBodyBytes:    5 << 20,
			Browser:         true,
			BrowserSessions: 2,
			BrowserTimeout:  30 * time.Second,
		},
		Filter: FilterConfig{
			MinChunkLength: filter.DefaultMinChunkLength,
			MaxChunkLength: filter.DefaultMaxChunkLength,
			TopK:           filter.DefaultTopK,
		},
		Summary: SummaryConfig{
			MinLength: summary.MinLength,
			MaxLength: summary.MaxLength,
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".gleaner-cache"
	}
	return filepath.Join(dir, "gleaner")
}

// LoadConfig reads path over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvSerpAPIKey); v != "" {
		c.Discovery.SerpAPIKey = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
}

// Validate checks the configuration. It normalizes the AI section.
func (c *Config) Validate() error {
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if !c.Cache.InMemory && c.Cache.Dir == "" {
		return errors.New("config: cache.dir is required unless cache.in_memory is set")
	}

	positive := map[string]time.Duration{
		"discovery.cache_ttl": c.Discovery.CacheTTL,
		"fetch.cache_ttl":     c.Fetch.CacheTTL,
		"fetch.call_timeout":  c.Fetch.CallTimeout,
		"fetch.batch_timeout": c.Fetch.BatchTimeout,
		"fetch.http_timeout":  c.Fetch.HTTPTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.Fetch.HTTPRetryDelay < 0 {
		return errors.New("config: fetch.http_retry_delay cannot be negative")
	}
	if c.Fetch.PoolSize < 1 || c.Fetch.HTTPAttempts < 1 {
		return errors.New("config: fetch.pool_size and fetch.http_attempts must be at least 1")
	}
	if c.Fetch.Browser && (c.Fetch.BrowserSessions < 1 || c.Fetch.BrowserTimeout <= 0) {
		return errors.New("config: browser tier needs positive sessions and timeout")
	}
	if budget := c.tierBudget(); c.Fetch.CallTimeout <= budget {
		return fmt.Errorf("config: fetch.call_timeout (%s) must exceed the worst case of the fetch tiers (%s)",
			c.Fetch.CallTimeout, budget)
	}
	if c.Discovery.DesiredCount < 1 {
		return errors.New("config: discovery.desired_count must be at least 1")
	}

	chunker := filter.Chunker{MinLength: c.Filter.MinChunkLength, MaxLength: c.Filter.MaxChunkLength}
	if err := chunker.Validate(); err != nil {
		return fmt.Errorf("config: filter: %w", err)
	}
	if c.Summary.MinLength < 0 || c.Summary.MaxLength < c.Summary.MinLength {
		return errors.New("config: summary bounds must satisfy 0 <= min <= max")
	}
	return nil
}

// tierBudget is how long one URL can spend failing through every enabled
// tier: all HTTP attempts with their delays, then one browser render.
func (c *Config) tierBudget() time.Duration {
	policy := fetch.RetryPolicy{MaxAttempts: c.Fetch.HTTPAttempts, Delay: c.Fetch.HTTPRetryDelay}
	budget := policy.Budget(c.Fetch.HTTPTimeout)
	if c.Fetch.Browser {
		budget += c.Fetch.BrowserTimeout
	}
	return budget
}

// SummaryOptions converts the summary section.
func (c *Config) SummaryOptions() ai.SummaryOptions {
	return ai.SummaryOptions{MinLength: c.Summary.MinLength, MaxLength: c.Summary.MaxLength}
}
