package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetplan/core/model"
	"github.com/kilianp07/fleetplan/core/schedule/logging"
	"github.com/kilianp07/fleetplan/infra/mqtt"
)

type Config struct {
	HTTP     HTTPConfig           `json:"http"`
	Logging  LoggingConfig        `json:"logging"`
	Airports AirportsConfig       `json:"airports"`
	Types    []model.AircraftType `json:"types"`
	PassLog  logging.Config       `json:"passlog"`
	Metrics  MetricsConfig        `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
}

// Load reads the file at path (YAML or JSON) and applies K_ prefixed
// environment overrides, e.g. K_HTTP__ADDRESS. An empty path yields the
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
	c.PassLog.SetDefaults()
	c.Metrics.SetDefaults()
	c.MQTT.SetDefaults()
	if len(c.Types) == 0 {
		c.Types = DefaultTypes()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.PassLog.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("types: %w", err)
	}
	return nil
}

// Catalog builds the aircraft type catalog from the types section.
func (c Config) Catalog() (model.TypeCatalog, error) {
	return model.NewTypeCatalog(c.Types)
}

// DefaultTypes is the catalog used when none is configured.
func DefaultTypes() []model.AircraftType {
	return []model.AircraftType{
		{Code: "PC12", Label: "Pilatus PC-12", CruiseKts: 270},
		{Code: "CJ3", Label: "Citation CJ3", CruiseKts: 404},
		{Code: "C56X", Label: "Citation Excel", CruiseKts: 430},
		{Code: "CL35", Label: "Challenger 350", CruiseKts: 460},
	}
}
