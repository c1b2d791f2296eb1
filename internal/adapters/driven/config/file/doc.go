// Package file loads the process configuration from a TOML or YAML file
// with MOVIESYNC_* environment overrides.
//
// Precedence, lowest first: Default(), the config file, the environment.
// Unknown keys in the file are rejected.
package file
