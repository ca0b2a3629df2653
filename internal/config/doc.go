// Package config loads, normalizes, and validates carinspect configuration.
//
// It supplies calibrated defaults for every pipeline threshold, expands user
// paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as OPENAI_API_KEY and CARINSPECT_DETECTOR_MODEL.
// Thresholds live here rather than in the stage packages so they can be
// recalibrated without code changes.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved narrative provider, and clear validation errors.
package config
