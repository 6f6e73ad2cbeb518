// Package simconfig loads the simulator's configuration: a YAML file
// read through github.com/spf13/viper, with environment-variable
// overrides and mapstructure tags, validated before use with
// github.com/go-playground/validator/v10 struct tags. The config shape
// is flat enough that declarative tags cover every rule;
// (*SimulationConfig).Validate formats validator's field errors into a
// readable "section.field: reason" message.
package simconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// SimulationConfig is the top-level configuration for one simulator
// run. It maps directly onto the YAML file structure, one sub-struct
// per concern.
type SimulationConfig struct {
	Seed     int64          `mapstructure:"seed" validate:"required"`
	Bus      BusConfig      `mapstructure:"bus" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Watchdog WatchdogConfig `mapstructure:"watchdog" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// BusConfig tunes the event bus's default latency model.
type BusConfig struct {
	DefaultLatencyMedianUS float64 `mapstructure:"default_latency_median_us" validate:"required,gt=0"`
	DefaultLatencySigma    float64 `mapstructure:"default_latency_sigma" validate:"required,gt=0"`
	DefaultLatencyCapUS    float64 `mapstructure:"default_latency_cap_us" validate:"required,gt=0"`
}

// EngineConfig tunes one symbol's matching engine.
type EngineConfig struct {
	Symbol     string `mapstructure:"symbol" validate:"required,symbol_pair"`
	PriceScale int64  `mapstructure:"price_scale" validate:"required,gt=0"`
}

// WatchdogConfig tunes the expiration watchdog.
type WatchdogConfig struct {
	// DefaultOrderLifetime is the timeout cmd/simulate gives the one
	// scripted order it leaves to expire; the other scripted orders carry
	// no timeout. It has no effect on the watchdog's own logic, which
	// always takes the lifetime from the order that acknowledged.
	DefaultOrderLifetime time.Duration `mapstructure:"default_order_lifetime" validate:"required,gt=0"`
}

// LoggingConfig holds the logging level and development flag. It is
// loaded and validated only; cmd/simulate does not read it and always
// builds a development zap logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig turns the bus's and adapter's Prometheus
// instrumentation on or off; both are nil-safe, so a run can skip
// registering a Registry entirely.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("symbol_pair", validateSymbolPair)
	return v
}

// validateSymbolPair rejects anything that isn't a well-formed
// "BASE/QUOTE" pair.
func validateSymbolPair(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return false
	}
	return parts[0] != "" && parts[1] != ""
}

// Load reads a SimulationConfig from a YAML file, applying XSIM_*
// environment-variable overrides, and validates the result before
// returning it.
func Load(path string) (*SimulationConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("XSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg SimulationConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a SimulationConfig suitable for cmd/simulate's
// built-in scripted run and for tests that need a valid config without
// a YAML fixture on disk.
func Default(symbol string) *SimulationConfig {
	return &SimulationConfig{
		Seed: 1,
		Bus: BusConfig{
			DefaultLatencyMedianUS: 750,
			DefaultLatencySigma:    0.6,
			DefaultLatencyCapUS:    15_000,
		},
		Engine: EngineConfig{
			Symbol:     symbol,
			PriceScale: 1e8,
		},
		Watchdog: WatchdogConfig{
			DefaultOrderLifetime: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: false},
	}
}

// Validate checks every required field and value range, formatting
// validator's field errors into one "section.field: reason" message per
// failed rule.
func (c *SimulationConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q check", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid simulation config: %s", strings.Join(msgs, "; "))
	}
	return nil
}
