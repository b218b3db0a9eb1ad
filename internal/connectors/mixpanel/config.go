package mixpanel

import (
	"errors"
	"time"
)

// Ingestion hosts per data residency region.
const (
	HostUS = "https://api.mixpanel.com"
	HostEU = "https://api-eu.mixpanel.com"
	HostIN = "https://api-in.mixpanel.com"
)

const (
	// DefaultBatchSize is the maximum records per request.
	DefaultBatchSize = 2000

	// DefaultMaxBatchBytes is the maximum uncompressed request size.
	DefaultMaxBatchBytes = 10 << 20

	// DefaultWorkers is the number of concurrent requests.
	DefaultWorkers = 50

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 60 * time.Second
)

// ErrMissingCredentials indicates neither a project token nor a service account is configured.
var ErrMissingCredentials = errors.New("mixpanel: missing project credentials")

// Config holds Mixpanel project settings.
type Config struct {
	ProjectID     string
	Token         string
	ServiceUser   string
	ServiceSecret string

	// Region selects the ingestion host: "us" (default), "eu" or "in".
	Region string

	// BaseURL overrides the region host, mostly for tests.
	BaseURL string

	BatchSize     int
	MaxBatchBytes int
	Workers       int
	Timeout       time.Duration
}

// Host returns the ingestion host for the configured region.
func (c Config) Host() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	switch c.Region {
	case "eu", "EU":
		return HostEU
	case "in", "IN":
		return HostIN
	default:
		return HostUS
	}
}

// Validate checks that the project can be written to.
func (c Config) Validate() error {
	if c.Token == "" && (c.ServiceUser == "" || c.ServiceSecret == "") {
		return ErrMissingCredentials
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 || c.BatchSize > DefaultBatchSize {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxBatchBytes <= 0 {
		c.MaxBatchBytes = DefaultMaxBatchBytes
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
