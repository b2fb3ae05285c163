// Package scraper fetches source pages and pulls paragraph text out of them.
package scraper

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	appErr "github.com/xxxsen/eacrag/internal/pkg/errors"
)

type IFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	Timeout   time.Duration // Default: 15s.
	MaxBytes  int64         // Default: 10MB.
	UserAgent string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "eacrag/1.0"
	}
}

// Fetcher performs plain GETs. Certificate verification is disabled on purpose:
// several source sites serve broken chains, and the pages are public content.
type Fetcher struct {
	client *http.Client
	config Config
}

func NewFetcher(cfg Config) *Fetcher {
	cfg.defaults()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config: cfg,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http get: %w", appErr.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: http %d", appErr.ErrUpstream, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", appErr.ErrUpstream, err)
	}
	return body, nil
}
