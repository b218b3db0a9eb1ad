// Package blob provides the durable day-file store.
//
// Day files are gzip-compressed JSON lines. Two backends share the codec:
// a local filesystem (afero) used in development and Google Cloud Storage
// used in production. New selects the backend once from configuration.
package blob
