// Package httpapi exposes pipeline runs over HTTP.
//
// POST /{pipeline} triggers a run with parameters taken from the JSON body
// and the query string. GET /healthz, /metrics and /runs serve operations.
package httpapi
