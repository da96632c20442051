// Package config loads, normalizes, and validates streamline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AWS_REGION and AWS_ACCESS_KEY_ID. The Config type centralizes every knob the
// daemon and CLI need; it is passed explicitly to each component constructor
// rather than stored in a package-level variable.
package config
