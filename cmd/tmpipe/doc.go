// Package main implements the tmpipe CLI, which runs the traffic manager
// pipeline from a TOML configuration and prints per-stage statistics.
package main
