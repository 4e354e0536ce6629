// Package config loads, normalizes, and validates opacitydb configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves auxiliary input files relative
// to the config file. The Config type is passed as plain values into the
// build pipeline; nothing downstream reads the process environment.
package config
