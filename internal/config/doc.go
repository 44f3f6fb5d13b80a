// Package config loads and validates the TOML configuration of tmpipe.
package config
