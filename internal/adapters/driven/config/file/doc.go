// Package file loads the TOML configuration file.
//
// Values are resolved in three layers: built-in defaults, the TOML file, then
// environment variables. A missing file is not an error.
package file
