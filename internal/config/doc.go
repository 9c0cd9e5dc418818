// Package config loads, normalizes, and validates viralvision configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIRALVISION_ANALYSIS_API_KEY. The Config type centralizes every knob the
// daemon and CLI need so data directories, the fetch tool, the analysis
// endpoint, and admission limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
