package agent

import "encoding/json"

// SinkConfig selects a sink implementation by type name; the raw config is
// handed to the sink registry creator.
type SinkConfig struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Config is loaded from /etc/hapticbridge/agent.yml. It points to the
// user-driven configuration files; live reload only applies to the mapping
// file. Device configuration is read once at startup because reopening
// evdev devices mid-flight is not supported.
type Config struct {
	DataDir       string     `json:"dataDir"`
	MappingConfig string     `json:"mappingConfig"`
	DeviceConfig  string     `json:"deviceConfig"`
	Vest          SinkConfig `json:"vest"`
	Pad           SinkConfig `json:"pad"`
}
