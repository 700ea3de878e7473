package config

import "github.com/DoyleJ11/seatbus-monitor/internal/layout"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// EditMode enables the seat layout edit endpoints.
	EditMode        bool     `yaml:"edit_mode"`
	AllowedOrigins  []string `yaml:"allowed_origins" validate:"dive,required"`
	TimestampPolicy string   `yaml:"timestamp_policy" validate:"oneof=accept log"`
}

type SeatsConfig struct {
	Count int `yaml:"count" validate:"gt=0"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity" validate:"gt=0"`
}

// LayoutConfig is the startup seat layout; Rects are normalized to the
// vehicle image and index-aligned with seat states.
type LayoutConfig struct {
	Rects  []layout.Rect `yaml:"rects" validate:"dive"`
	Labels []string      `yaml:"labels,omitempty"`
}

// MQTTConfig is optional; ingest over MQTT is off when Broker is empty.
type MQTTConfig struct {
	Broker   string `yaml:"broker" validate:"omitempty,url"`
	Topic    string `yaml:"topic" validate:"required_with=Broker"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos" validate:"lte=2"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Seats   SeatsConfig   `yaml:"seats"`
	History HistoryConfig `yaml:"history"`
	Layout  LayoutConfig  `yaml:"layout"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Log     LogConfig     `yaml:"log"`
}
