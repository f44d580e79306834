package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"portaria/internal/domain"
	"portaria/internal/lifecycle"
)

const FileName = "portaria.yml"

// Config models portaria.yml.
type Config struct {
	Institute struct {
		Name string `yaml:"name"`
		// Signatory is printed under the body of rendered documents.
		Signatory string `yaml:"signatory"`
	} `yaml:"institute"`
	Numbering struct {
		// Format receives (sequence, year), e.g. "%03d/%d" -> 014/2025.
		Format string `yaml:"format"`
	} `yaml:"numbering"`
	Instruments map[string]Instrument `yaml:"instruments"`
	Rules       struct {
		SubjectBound         []string `yaml:"subject_bound"`
		RetificationCategory string   `yaml:"retification_category"`
	} `yaml:"rules"`
	Log LogConfig `yaml:"log"`
	// Timezone decides what "today" means for default document dates.
	Timezone string          `yaml:"timezone"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig delivers act events to an external URL while serving.
type WebhookConfig struct {
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
	// Events filters by event type; empty means every event.
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type Instrument struct {
	Label string `yaml:"label"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with portaria init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Institute.Name) == "" {
		return fmt.Errorf("config.institute.name is required")
	}
	if c.Numbering.Format == "" {
		return fmt.Errorf("config.numbering.format is required")
	}
	if strings.Count(c.Numbering.Format, "%") != 2 {
		return fmt.Errorf("config.numbering.format must take a sequence and a year, got %q", c.Numbering.Format)
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("config.instruments must declare at least one instrument kind")
	}
	for kind, inst := range c.Instruments {
		if kind == "" {
			return fmt.Errorf("config.instruments contains an empty kind")
		}
		if strings.TrimSpace(inst.Label) == "" {
			return fmt.Errorf("instrument %s has empty label", kind)
		}
	}
	for _, cat := range c.Rules.SubjectBound {
		if !domain.Category(cat).Valid() {
			return fmt.Errorf("config.rules.subject_bound references unknown category %s", cat)
		}
	}
	if !domain.Category(c.Rules.RetificationCategory).Valid() {
		return fmt.Errorf("config.rules.retification_category %q is not a known category", c.Rules.RetificationCategory)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("config.log.format must be json or text")
	}
	for i, hook := range c.Webhooks {
		if !strings.HasPrefix(hook.URL, "http://") && !strings.HasPrefix(hook.URL, "https://") {
			return fmt.Errorf("config.webhooks[%d].url must be an http(s) URL", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// LifecycleRules turns the config into validation rules.
func (c *Config) LifecycleRules() lifecycle.Rules {
	r := lifecycle.Rules{
		InstrumentKinds:      map[domain.InstrumentKind]string{},
		SubjectBound:         map[domain.Category]bool{},
		RetificationCategory: domain.Category(c.Rules.RetificationCategory),
	}
	for kind, inst := range c.Instruments {
		r.InstrumentKinds[domain.InstrumentKind(kind)] = inst.Label
	}
	for _, cat := range c.Rules.SubjectBound {
		r.SubjectBound[domain.Category(cat)] = true
	}
	return r
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Sections left out
// keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `institute:
  name: Instituto
  signatory: Diretor-Geral

numbering:
  format: "%03d/%d"

instruments:
  portaria:
    label: Portaria
  decreto:
    label: Decreto
  resolucao:
    label: Resolução
  instrucao_normativa:
    label: Instrução Normativa

rules:
  subject_bound:
    - appointment
    - dismissal
    - designation
    - dismissal_of_designation
    - substitution
    - leave
  retification_category: normative

log:
  level: info
  format: text

timezone: America/Sao_Paulo

# webhooks:
#   - url: https://intranet.example/hooks/acts
#     events: [act.transitioned, act.revoked]
#     secret: change-me
`
