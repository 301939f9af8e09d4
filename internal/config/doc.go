// Package config loads and validates botstream configuration from YAML.
//
// Loading is split into three steps so callers can opt out of defaulting or
// validation (tests do): Load, LoadWithDefaults, LoadAndValidate.
package config
