// Package config loads and validates the FactoryPulse server configuration
// from YAML, including the static machine directory, and watches the file
// for hot-reload.
package config
