package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ContentRepository answers which marker names are still referenced by
// published AR content. The garbage collector treats every name it returns
// as in use and never deletes it.
type ContentRepository interface {
	ListInUseMarkerIDs(ctx context.Context) (map[string]struct{}, error)
}

// StaticContentRepository serves a fixed set of in-use names. Useful for
// tests and for deployments without a content registry.
type StaticContentRepository struct {
	names map[string]struct{}
}

// NewStaticContentRepository builds a repository over the given names.
func NewStaticContentRepository(names ...string) *StaticContentRepository {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return &StaticContentRepository{names: m}
}

func (r *StaticContentRepository) ListInUseMarkerIDs(ctx context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(r.names))
	for n := range r.names {
		out[n] = struct{}{}
	}
	return out, nil
}

// HTTPContentRepository queries a content registry over HTTP. The endpoint
// is expected to return a JSON array of marker names.
type HTTPContentRepository struct {
	client  *http.Client
	baseURL string
}

// NewHTTPContentRepository creates a repository against the given registry
// base URL with a tuned transport.
func NewHTTPContentRepository(baseURL string) *HTTPContentRepository {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPContentRepository{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		baseURL: baseURL,
	}
}

func (r *HTTPContentRepository) ListInUseMarkerIDs(ctx context.Context) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/markers/in-use", nil)
	if err != nil {
		return nil, fmt.Errorf("creating registry request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying content registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content registry returned status %d", resp.StatusCode)
	}

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, fmt.Errorf("decoding registry response: %w", err)
	}

	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out, nil
}
