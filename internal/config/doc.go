// Package config loads, normalizes, and validates comicadmin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours COMICADMIN_* environment overrides.
// The Config type centralizes every knob the API server and CLI need so
// the site root, catalog documents and asset directories are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
