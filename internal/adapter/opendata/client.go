package opendata

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

// maxBodyBytes caps the download; the real export is well under 100 KiB.
const maxBodyBytes = 16 << 20

// Client downloads the incorporated cities CSV from the California Open Data portal.
type Client struct {
	url        string
	httpClient *http.Client
	maxBody    int64
	logger     *slog.Logger
}

// NewClient creates a client for url. When caBundle is non-empty, server
// certificates are verified against that PEM file instead of the system roots.
func NewClient(url string, timeout time.Duration, caBundle string, logger *slog.Logger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if caBundle != "" {
		pool, err := loadCABundle(caBundle)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxBody: maxBodyBytes,
		logger:  logger,
	}, nil
}

// URL returns the endpoint the client downloads from.
func (c *Client) URL() string {
	return c.url
}

// Fetch downloads and parses the CSV. A non-2xx status, an oversized body or
// an unparseable body is an error.
func (c *Client) Fetch(ctx context.Context) (domain.Table, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.Table{}, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Table{}, nil, fmt.Errorf("download cities csv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Table{}, nil, fmt.Errorf("open data API error: status %d: %s", resp.StatusCode, body)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return domain.Table{}, nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(raw)) > c.maxBody {
		return domain.Table{}, nil, fmt.Errorf("response body exceeds %d bytes", c.maxBody)
	}

	table, err := domain.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return domain.Table{}, nil, err
	}

	c.logger.Debug("downloaded cities csv", "bytes", len(raw), "rows", len(table.Rows))
	return table, raw, nil
}

func loadCABundle(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("CA bundle %s contains no certificates", path)
	}
	return pool, nil
}
