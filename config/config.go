// Package config loads the travelmesh workflow configuration.
//
// Precedence: defaults → YAML file → environment variables. The loaded
// Config is treated as read-only; accessors hand out copies.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/travelmesh/agent"
	"github.com/hupe1980/travelmesh/logging"
	"github.com/hupe1980/travelmesh/routing"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRAVELMESH_"

// Model providers.
const (
	ProviderRule      = "rule"
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the complete workflow configuration.
type Config struct {
	StartAgent string           `yaml:"start_agent"`
	MaxHops    int              `yaml:"max_hops"`
	MaxTurns   int              `yaml:"max_turns"`
	Agents     []AgentConfig    `yaml:"agents"`
	Sequential SequentialConfig `yaml:"sequential"`
	Concurrent ConcurrentConfig `yaml:"concurrent"`
	Model      ModelConfig      `yaml:"model"`
	Log        LogConfig        `yaml:"log"`
	Trace      TraceConfig      `yaml:"trace"`
	Redis      RedisConfig      `yaml:"redis"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AgentConfig describes one routable agent.
type AgentConfig struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Instructions  string   `yaml:"instructions,omitempty"`
	HandoffTo     []string `yaml:"handoff_to"`
	Tools         []string `yaml:"tools,omitempty"`
	MaxModelCalls int      `yaml:"max_model_calls,omitempty"`
}

// SequentialConfig lists the pipeline order.
type SequentialConfig struct {
	Agents []string `yaml:"agents"`
}

// ConcurrentConfig configures the fan-out mode.
type ConcurrentConfig struct {
	Agents       []string      `yaml:"agents"`
	Policy       string        `yaml:"policy"`
	MinSuccesses int           `yaml:"min_successes"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxParallel  int           `yaml:"max_parallel"`
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	Provider   string `yaml:"provider"`
	Name       string `yaml:"name"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	APIVersion string `yaml:"api_version,omitempty"`
	APIKey     string `yaml:"-"`
	Streaming  bool   `yaml:"streaming"`
}

// LogConfig configures the MeshLogger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file,omitempty"`
	AddSource bool   `yaml:"add_source"`
}

// TraceConfig configures workflow traces.
type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir is the artifact root; traces are written to <dir>/traces.
	Dir string `yaml:"dir"`
}

// RedisConfig enables the Redis session store when Addr is set.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the travel assistant topology.
func Default() *Config {
	return &Config{
		StartAgent: "triage",
		MaxHops:    10,
		MaxTurns:   10,
		Agents: []AgentConfig{
			{
				Name:        "triage",
				Description: "Routes travel requests to the right specialist",
				HandoffTo:   []string{"weather", "packing", "activities", "booking"},
			},
			{
				Name:        "weather",
				Description: "Weather conditions and forecasts for destinations",
				HandoffTo:   []string{"packing", "activities"},
				Tools:       []string{"get_weather", "get_forecast"},
			},
			{
				Name:        "packing",
				Description: "Packing lists and luggage restrictions",
				Tools:       []string{"get_packing_list", "check_luggage_restrictions"},
			},
			{
				Name:        "activities",
				Description: "Things to do, attractions and local tips",
				HandoffTo:   []string{"booking"},
				Tools:       []string{"get_activities", "get_local_tips"},
			},
			{
				Name:        "booking",
				Description: "Flight and hotel search and booking",
				HandoffTo:   []string{"weather"},
				Tools:       []string{"search_flights", "search_hotels", "book_flight", "book_hotel"},
			},
		},
		Sequential: SequentialConfig{Agents: []string{"weather", "packing"}},
		Concurrent: ConcurrentConfig{
			Agents:       []string{"weather", "activities", "booking"},
			Policy:       string(agent.BestEffort),
			MinSuccesses: 1,
		},
		Model:   ModelConfig{Provider: ProviderRule, Name: "gpt-4o-mini"},
		Log:     LogConfig{Level: "info", Format: "text"},
		Trace:   TraceConfig{Enabled: true, Dir: "data"},
		Metrics: MetricsConfig{Enabled: true, Namespace: "travelmesh"},
	}
}

// Load reads path (optional) on top of the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := cfg.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode merges YAML from r into c. Unknown fields are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// ApplyEnv applies environment overrides using lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "MAX_HOPS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_HOPS: %v", ErrInvalidConfig, EnvPrefix, err)
		}

		c.MaxHops = n
	}

	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := lookup("AZURE_OPENAI_DEPLOYMENT"); ok && v != "" {
		c.Model.Name = v
	}

	if v, ok := lookup("AZURE_OPENAI_ENDPOINT"); ok && v != "" {
		c.Model.Endpoint = v
	}

	if v, ok := lookup("AZURE_OPENAI_API_VERSION"); ok && v != "" {
		c.Model.APIVersion = v
	}

	if v, ok := lookup("AZURE_OPENAI_API_KEY"); ok {
		c.Model.APIKey = v
	}

	if v, ok := lookup(EnvPrefix + "MODEL"); ok {
		c.Model.Name = v
	}

	if v, ok := lookup(EnvPrefix + "PROVIDER"); ok {
		c.Model.Provider = strings.ToLower(v)
	}

	if v, ok := lookup(EnvPrefix + "REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}

	if v, ok := lookup(EnvPrefix + "TRACE_DIR"); ok {
		c.Trace.Dir = v
	}

	return nil
}

// Validate checks the routing graph, the mode agent lists and the enums.
func (c *Config) Validate() error {
	var errs []error

	if c.MaxHops <= 0 {
		errs = append(errs, fmt.Errorf("max_hops must be positive, got %d", c.MaxHops))
	}

	if c.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("max_turns must not be negative, got %d", c.MaxTurns))
	}

	if _, err := c.RoutingTable(); err != nil {
		errs = append(errs, err)
	}

	for _, name := range c.Sequential.Agents {
		if _, ok := c.Agent(name); !ok {
			errs = append(errs, fmt.Errorf("sequential: unknown agent %q", name))
		}
	}

	for _, name := range c.Concurrent.Agents {
		if _, ok := c.Agent(name); !ok {
			errs = append(errs, fmt.Errorf("concurrent: unknown agent %q", name))
		}
	}

	if _, err := agent.ParseFailurePolicy(c.Concurrent.Policy); err != nil {
		errs = append(errs, fmt.Errorf("concurrent: %w", err))
	}

	if c.Concurrent.MinSuccesses > len(c.Concurrent.Agents) {
		errs = append(errs, fmt.Errorf("concurrent: min_successes %d exceeds %d agents", c.Concurrent.MinSuccesses, len(c.Concurrent.Agents)))
	}

	switch c.Model.Provider {
	case ProviderRule, ProviderOpenAI, ProviderAzure, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("model: unknown provider %q", c.Model.Provider))
	}

	if c.Model.Provider == ProviderAzure && c.Model.Endpoint == "" {
		errs = append(errs, errors.New("model: azure provider requires an endpoint"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// RoutingTable builds and validates the handoff routing table.
func (c *Config) RoutingTable() (*routing.Table, error) {
	table := routing.NewTable()

	for _, a := range c.Agents {
		if err := table.Register(a.Name, a.HandoffTo); err != nil {
			return nil, err
		}
	}

	if c.StartAgent != "" {
		if err := table.SetStart(c.StartAgent); err != nil {
			return nil, err
		}
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	return table, nil
}

// Agent returns a copy of the named agent's configuration.
func (c *Config) Agent(name string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Name == name {
			return a.clone(), true
		}
	}

	return AgentConfig{}, false
}

// AgentNames returns the configured agents in declaration order.
func (c *Config) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		names = append(names, a.Name)
	}

	return names
}

// Descriptions maps agent names to their descriptions; used for handoff tools.
func (c *Config) Descriptions() map[string]string {
	out := make(map[string]string, len(c.Agents))
	for _, a := range c.Agents {
		out[a.Name] = a.Description
	}

	return out
}

// ConcurrentOptions translates the concurrent section into agent options.
// Call Validate first; an invalid policy falls back to FailFast.
func (c *Config) ConcurrentOptions() func(o *agent.ConcurrentOptions) {
	policy, _ := agent.ParseFailurePolicy(c.Concurrent.Policy)
	cc := c.Concurrent

	return func(o *agent.ConcurrentOptions) {
		o.Policy = policy
		o.MinSuccesses = cc.MinSuccesses
		o.Timeout = cc.Timeout
		o.MaxParallel = cc.MaxParallel
	}
}

// LoggerConfig translates the log section. out defaults to stderr.
func (c *Config) LoggerConfig(out io.Writer) *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Log.Level)

	if out == nil {
		out = os.Stderr
	}

	format := c.Log.Format
	if format == "" {
		format = "text"
	}

	return &logging.LoggerConfig{
		Level:     level,
		Format:    format,
		Output:    out,
		File:      c.Log.File,
		AddSource: c.Log.AddSource,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c

	out.Agents = make([]AgentConfig, len(c.Agents))
	for i, a := range c.Agents {
		out.Agents[i] = a.clone()
	}

	out.Sequential.Agents = append([]string(nil), c.Sequential.Agents...)
	out.Concurrent.Agents = append([]string(nil), c.Concurrent.Agents...)

	return &out
}

func (a AgentConfig) clone() AgentConfig {
	a.HandoffTo = append([]string(nil), a.HandoffTo...)
	a.Tools = append([]string(nil), a.Tools...)

	return a
}
