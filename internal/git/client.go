package git

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
	"git.home.luguber.info/inful/branchbuilder/internal/retry"
)

// Options configures a Client.
type Options struct {
	// User and Token authenticate HTTP(S) remotes. User defaults to "token".
	User  string
	Token string
	// CABundle is PEM data trusted in addition to the system roots.
	CABundle []byte
	// Depth limits clone and fetch history. Zero fetches everything.
	Depth int
	// Timeout bounds each clone or fetch attempt. Zero means unbounded.
	Timeout time.Duration
	Policy  retry.Policy
}

// Client handles Git operations
type Client struct {
	opts Options
}

// NewClient creates a Git client.
func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

// NewClientFromConfig builds a Client from the forge credentials, checkout
// settings and retry policy of cfg.
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	opts := Options{
		User:    cfg.User,
		Token:   cfg.Token,
		Depth:   cfg.Checkout.Depth,
		Timeout: cfg.Checkout.Timeout,
		Policy:  retry.FromConfig(cfg.Retry),
	}
	if cfg.CA != "" {
		data, err := os.ReadFile(cfg.CA)
		if err != nil {
			return nil, errors.ConfigError("failed to read CA bundle").
				WithCause(err).
				WithContext("path", cfg.CA).
				Build()
		}
		opts.CABundle = data
	}
	return NewClient(opts), nil
}

// authFor returns HTTP basic auth for http(s) remotes and nil otherwise.
func (c *Client) authFor(url string) (transport.AuthMethod, error) {
	if c.opts.Token == "" {
		return nil, nil
	}
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, &UnsupportedProtocolError{Op: "auth", URL: url, Err: err}
	}
	if ep.Protocol != "http" && ep.Protocol != "https" {
		return nil, nil
	}
	user := c.opts.User
	if user == "" {
		user = "token"
	}
	return &http.BasicAuth{Username: user, Password: c.opts.Token}, nil
}

// attempt runs op with the retry policy, bounding each try by the checkout timeout.
func (c *Client) attempt(ctx context.Context, name, url string, op func(ctx context.Context) error) error {
	return c.opts.Policy.Do(ctx, name, func(ctx context.Context) error {
		if c.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()
		}
		err := classify(name, url, typeError(name, url, op(ctx)))
		if err != nil {
			slog.Debug("git operation failed", slog.String("operation", name), logfields.Error(err))
		}
		return err
	})
}
