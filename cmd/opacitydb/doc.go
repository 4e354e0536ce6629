// Command opacitydb builds and inspects opacity databases.
//
// Every command reads the TOML configuration (see `opacitydb config init`)
// and logs to stderr plus the configured log directory, leaving stdout for
// tables and JSON.
package main
