package config

import (
	"fmt"

	"github.com/kilianp07/fleetplan/infra/metrics"
)

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Address string `json:"address"`
	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `json:"shutdown_seconds"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ShutdownSeconds == 0 {
		c.ShutdownSeconds = 5
	}
}

func (c HTTPConfig) Validate() error {
	if c.ShutdownSeconds < 0 {
		return fmt.Errorf("http: shutdown_seconds must not be negative")
	}
	return nil
}

// AirportsConfig selects the airport database. An empty CSV path selects
// the built-in table.
type AirportsConfig struct {
	CSV string `json:"csv"`
}

// MetricsConfig configures the Prometheus endpoint and the optional
// InfluxDB sink.
type MetricsConfig struct {
	PrometheusEnabled bool                 `json:"prometheus_enabled"`
	Address           string               `json:"address"`
	Influx            metrics.InfluxConfig `json:"influx"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":2112"
	}
}

func (c MetricsConfig) Validate() error {
	if c.PrometheusEnabled && c.Address == "" {
		return fmt.Errorf("metrics: address is required")
	}
	return c.Influx.Validate()
}
