// Package cli provides the slackpanel command-line interface.
//
// Commands share one wired App built lazily from the configuration file,
// so that version and config commands work without credentials.
package cli
