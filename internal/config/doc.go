// Package config defines configuration for the drivefetch CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (DRIVEFETCH_ prefix)
//   - YAML configuration file
//
// Flags override the environment, which overrides the file.
//
// # File format
//
//	token: ya29.a0...
//	parts: 16
//	target_parts: 24
//	read_size: 512KiB
//	progress: true
//	log_level: debug
//	timeout: 30m
//
// A parts value of 0 disables partitioning: every file is fetched with a
// single request.
package config
