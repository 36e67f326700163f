package hotstate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/hotstate/dom"
	"github.com/hazyhaar/hotstate/internal/match"
	"github.com/hazyhaar/hotstate/internal/restore"
)

// Config is the engine configuration, usually read from YAML.
type Config struct {
	Slot       string           `yaml:"slot"`
	URL        string           `yaml:"url"`
	Attributes AttributesConfig `yaml:"attributes"`
	Policy     PolicyConfig     `yaml:"policy"`
	Match      MatchConfig      `yaml:"match"`
	Restore    RestoreConfig    `yaml:"restore"`
	Component  ComponentConfig  `yaml:"component"`
	Store      StoreConfig      `yaml:"store"`
	Browser    BrowserConfig    `yaml:"browser"`
	Reload     ReloadConfig     `yaml:"reload"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AttributesConfig names the marker attributes.
type AttributesConfig struct {
	Key    string `yaml:"key"`
	OptIn  string `yaml:"opt_in"`
	State  string `yaml:"state"`
	Scroll string `yaml:"scroll"`
}

// PolicyConfig narrows or widens the tracked set.
type PolicyConfig struct {
	// Filter is an expr-lang boolean expression over tag, id, class,
	// input_type and attr(name).
	Filter string `yaml:"filter"`
	// Extra clauses are tracked in addition to the defaults.
	Extra []ClauseConfig `yaml:"extra"`
}

// ClauseConfig is the YAML form of a dom.Clause.
type ClauseConfig struct {
	Tag     string            `yaml:"tag"`
	Attr    string            `yaml:"attr"`
	Equals  string            `yaml:"equals"`
	Exclude map[string]string `yaml:"exclude"`
}

func (c ClauseConfig) clause() dom.Clause {
	cl := dom.Clause{Tag: c.Tag, Attr: c.Attr, Equals: c.Equals}
	for name, v := range c.Exclude {
		cl.Exclude = append(cl.Exclude, dom.AttrValue{Name: name, Value: v})
	}
	return cl
}

// MatchConfig tunes the matcher. Unset fields take the defaults; an
// explicit 0 disables a signal.
type MatchConfig struct {
	Weights   WeightsConfig `yaml:"weights"`
	Threshold *int          `yaml:"threshold"`
}

// WeightsConfig is the YAML form of match.Weights.
type WeightsConfig struct {
	ID          *int `yaml:"id"`
	Tag         *int `yaml:"tag"`
	Class       *int `yaml:"class"`
	Component   *int `yaml:"component"`
	Rect        *int `yaml:"rect"`
	Value       *int `yaml:"value"`
	ValuePrefix *int `yaml:"value_prefix"`
}

func (m MatchConfig) weights() match.Weights {
	def := match.DefaultWeights()
	w := m.Weights
	return match.Weights{
		ID:          intOr(w.ID, def.ID),
		Tag:         intOr(w.Tag, def.Tag),
		Class:       intOr(w.Class, def.Class),
		Component:   intOr(w.Component, def.Component),
		Rect:        intOr(w.Rect, def.Rect),
		Value:       intOr(w.Value, def.Value),
		ValuePrefix: intOr(w.ValuePrefix, def.ValuePrefix),
	}
}

func (m MatchConfig) threshold() int {
	return intOr(m.Threshold, match.DefaultThreshold)
}

// RestoreConfig tunes restore timing.
type RestoreConfig struct {
	ReadyDelay   time.Duration `yaml:"ready_delay"`
	CaretDelay   time.Duration `yaml:"caret_delay"`
	SanitizeHTML bool          `yaml:"sanitize_html"`
}

// ComponentConfig selects how component instances are identified.
type ComponentConfig struct {
	// Attr reads the component type name from an attribute.
	Attr string `yaml:"attr"`
	// React probes React fiber internals (live browser only).
	React bool `yaml:"react"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite | badger | http
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

// BrowserConfig controls the Chrome instance of live mode.
type BrowserConfig struct {
	Remote    string        `yaml:"remote"`
	Bin       string        `yaml:"bin"`
	Headful   bool          `yaml:"headful"`
	Stealth   bool          `yaml:"stealth"`
	NoSandbox bool          `yaml:"no_sandbox"`
	Block     []string      `yaml:"block"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ReloadConfig controls the live-reload loop.
type ReloadConfig struct {
	Dirs     []string      `yaml:"dirs"`
	Ignore   []string      `yaml:"ignore"`
	Debounce time.Duration `yaml:"debounce"`
}

// MetricsConfig exposes Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hotstate: read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML and applies defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("hotstate: parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Slot == "" {
		c.Slot = "default"
	}
	if c.Attributes.Key == "" {
		c.Attributes.Key = "data-hotstate-key"
	}
	if c.Attributes.OptIn == "" {
		c.Attributes.OptIn = "data-hotstate"
	}
	if c.Attributes.State == "" {
		c.Attributes.State = "data-state"
	}
	if c.Attributes.Scroll == "" {
		c.Attributes.Scroll = "data-hotstate-scroll"
	}

	def := match.DefaultWeights()
	w := &c.Match.Weights
	defaultInt(&w.ID, def.ID)
	defaultInt(&w.Tag, def.Tag)
	defaultInt(&w.Class, def.Class)
	defaultInt(&w.Component, def.Component)
	defaultInt(&w.Rect, def.Rect)
	defaultInt(&w.Value, def.Value)
	defaultInt(&w.ValuePrefix, def.ValuePrefix)
	defaultInt(&c.Match.Threshold, match.DefaultThreshold)

	if c.Restore.ReadyDelay <= 0 {
		c.Restore.ReadyDelay = restore.DefaultReadyDelay
	}
	if c.Restore.CaretDelay <= 0 {
		c.Restore.CaretDelay = restore.DefaultCaretDelay
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Path == "" {
		switch c.Store.Driver {
		case "sqlite":
			c.Store.Path = "hotstate.db"
		case "badger":
			c.Store.Path = "hotstate.badger"
		}
	}

	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Reload.Debounce <= 0 {
		c.Reload.Debounce = 200 * time.Millisecond
	}
	if len(c.Reload.Ignore) == 0 {
		c.Reload.Ignore = []string{".git", "node_modules", "vendor", ".idea", ".vscode"}
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9464"
	}
}

// Validate reports configuration errors applyDefaults cannot fix.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "badger":
	case "http":
		if c.Store.URL == "" {
			return fmt.Errorf("hotstate: store driver http requires store.url")
		}
	default:
		return fmt.Errorf("hotstate: unknown store driver %q", c.Store.Driver)
	}
	if t := c.Match.threshold(); t < 0 || t > match.ExactKeyConfidence {
		return fmt.Errorf("hotstate: threshold %d outside 0..%d", t, match.ExactKeyConfidence)
	}
	w := c.Match.weights()
	for name, v := range map[string]int{
		"id": w.ID, "tag": w.Tag, "class": w.Class, "component": w.Component,
		"rect": w.Rect, "value": w.Value, "value_prefix": w.ValuePrefix,
	} {
		if v < 0 {
			return fmt.Errorf("hotstate: negative weight %s: %d", name, v)
		}
	}
	return nil
}

// defaultInt fills v only when it was never set; an explicit 0 stays.
func defaultInt(v **int, d int) {
	if *v == nil {
		*v = &d
	}
}

func intOr(v *int, d int) int {
	if v == nil {
		return d
	}
	return *v
}
