package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/version"
)

// BaseForge holds the JSON-over-HTTP plumbing shared by hand-written forge clients.
type BaseForge struct {
	httpClient *http.Client
	apiURL     string
	token      string

	authHeaderPrefix string // "Bearer " by default, "token " for Forgejo
	customHeaders    map[string]string
}

// NewBaseForge creates a BaseForge rooted at apiURL.
func NewBaseForge(httpClient *http.Client, apiURL, token string) *BaseForge {
	return &BaseForge{
		httpClient:       httpClient,
		apiURL:           apiURL,
		token:            token,
		authHeaderPrefix: "Bearer ",
		customHeaders:    make(map[string]string),
	}
}

func (b *BaseForge) SetAuthHeaderPrefix(prefix string) { b.authHeaderPrefix = prefix }

func (b *BaseForge) SetCustomHeader(key, value string) { b.customHeaders[key] = value }

// NewRequest builds a request for an endpoint relative to the API root.
// Query strings in endpoint are preserved.
func (b *BaseForge) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	cleanEndpoint, rawQuery, _ := strings.Cut(strings.TrimPrefix(endpoint, "/"), "?")

	u, err := url.Parse(b.apiURL)
	if err != nil {
		return nil, errors.ConfigError("failed to parse API URL").
			WithCause(err).
			WithContext("api_url", b.apiURL).
			Build()
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), cleanEndpoint)
	u.RawQuery = rawQuery

	reader := io.Reader(http.NoBody)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.ForgeError("failed to marshal request body").WithCause(err).Permanent().Build()
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.ForgeError("failed to create request").
			WithCause(err).
			Permanent().
			WithContext("method", method).
			WithContext("url", u.String()).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", b.authHeaderPrefix+b.token)
	req.Header.Set("User-Agent", "branchbuilder/"+version.Version)
	for key, value := range b.customHeaders {
		req.Header.Set(key, value)
	}
	return req, nil
}

// DoRequest executes req and decodes a JSON response into result when non-nil.
func (b *BaseForge) DoRequest(req *http.Request, result any) error {
	_, err := b.DoRequestWithHeaders(req, result)
	return err
}

// DoRequestWithHeaders is like DoRequest but also returns the response headers.
func (b *BaseForge) DoRequestWithHeaders(req *http.Request, result any) (http.Header, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errors.NetworkError("failed to execute forge request").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.Header, classifyStatus(resp.StatusCode, fmt.Sprintf("forge API error: %s", resp.Status)).
			WithContext("code", resp.StatusCode).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			WithContext("response", strings.ReplaceAll(string(limitedBody), "\n", " ")).
			Build()
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.Header, errors.ForgeError("failed to decode response").WithCause(err).Permanent().Build()
		}
	}
	return resp.Header, nil
}

// PaginatedFetchHelper walks page/limit style pagination until a short or empty page.
func PaginatedFetchHelper[T any](
	ctx context.Context,
	baseEndpoint string,
	pageParam string,
	limitParam string,
	pageSize int,
	fetchPage func(endpoint string) ([]T, error),
) ([]T, error) {
	var all []T
	sep := "?"
	if strings.Contains(baseEndpoint, "?") {
		sep = "&"
	}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := fetchPage(fmt.Sprintf("%s%s%s=%d&%s=%d", baseEndpoint, sep, pageParam, page, limitParam, pageSize))
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < pageSize {
			return all, nil
		}
	}
}
