package forge

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"os"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// DefaultHTTPTimeout bounds each individual API request.
const DefaultHTTPTimeout = 30 * time.Second

// LoadCertPool returns the system pool extended with the PEM bundle at caFile.
// An empty caFile returns nil so the transport uses the system roots.
func LoadCertPool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, errors.ConfigError("cannot read CA bundle").WithCause(err).WithContext("ca", caFile).Build()
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.ConfigError("CA bundle contains no certificates").WithContext("ca", caFile).Build()
	}
	return pool, nil
}

// NewHTTPClient returns an HTTP client that validates TLS against caFile when set.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	pool, err := LoadCertPool(caFile)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    pool,
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
