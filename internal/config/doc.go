// Package config loads, normalizes, and validates openbst configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the OPENBST_PROJECT_DIR
// environment fallback. Besides the project and log locations, the Config
// carries the default parameter set for every correction kind so the CLI
// can build a processing request from a handful of flags.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical method names, and clear validation errors.
package config
