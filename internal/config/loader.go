package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/seatbus-monitor/internal/layout"
)

// EnvConfigPath names the variable holding the YAML config file path.
const EnvConfigPath = "SEATBUS_CONFIG"

var ErrLayoutSize = errors.New("layout does not match seat count")

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	// the built-in labels only fit the built-in seat count
	if cfg.Seats.Count != len(cfg.Layout.Labels) && slices.Equal(cfg.Layout.Labels, Default().Layout.Labels) {
		cfg.Layout.Labels = nil
	}
	if len(cfg.Layout.Labels) == 0 {
		cfg.Layout.Labels = layout.DefaultLabels(cfg.Seats.Count)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by SEATBUS_CONFIG, or just the defaults.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(cfg.Layout.Rects) != cfg.Seats.Count {
		return fmt.Errorf("%w: %d rects for %d seats", ErrLayoutSize, len(cfg.Layout.Rects), cfg.Seats.Count)
	}
	if len(cfg.Layout.Labels) != cfg.Seats.Count {
		return fmt.Errorf("%w: %d labels for %d seats", ErrLayoutSize, len(cfg.Layout.Labels), cfg.Seats.Count)
	}
	if _, err := layout.NewLabelMap(cfg.Layout.Labels); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v, ok := lookup("SEATBUS_ADDR"); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := lookup("SEATBUS_EDIT_MODE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SEATBUS_EDIT_MODE: %w", err)
		}
		cfg.Server.EditMode = b
	}
	if v, ok := lookup("SEATBUS_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitCSV(v)
	}
	if v, ok := lookup("SEATBUS_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := lookup("SEATBUS_MQTT_BROKER"); ok {
		cfg.MQTT.Broker = v
	}
	if v, ok := lookup("SEATBUS_MQTT_TOPIC"); ok && v != "" {
		cfg.MQTT.Topic = v
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
