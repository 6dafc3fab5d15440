package censys

/*
censub — find subdomains through Censys certificate search
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/x-stp/censub/internal/client"
	"github.com/x-stp/censub/internal/logger"
	"github.com/x-stp/censub/internal/metrics"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Options configures a Client. APIID and APISecret are required.
type Options struct {
	BaseURL   string
	APIID     string
	APISecret string
	// MaxPages stops pagination early; 0 follows every page the API reports.
	MaxPages int
	// RateLimit paces page requests in requests per second; <= 0 disables pacing.
	RateLimit  float64
	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client searches the certificate index.
type Client struct {
	baseURL  string
	id       string
	secret   string
	maxPages int
	limiter  *rate.Limiter
	http     *http.Client
	log      logger.Logger
	metrics  *metrics.Metrics
}

// NewClient validates options and builds a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIID == "" || opts.APISecret == "" {
		return nil, errors.New("censys: API id and secret are required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("censys: base URL is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = client.GetHTTPClient()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard{}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		id:       opts.APIID,
		secret:   opts.APISecret,
		maxPages: opts.MaxPages,
		limiter:  limiter,
		http:     opts.HTTPClient,
		log:      opts.Logger,
		metrics:  metrics.GetMetrics(),
	}, nil
}

// Search runs query and returns every record across the result pages,
// restricted to fields. Pages are fetched one after another.
func (c *Client) Search(ctx context.Context, query string, fields []string) ([]Record, error) {
	var records []Record
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, query, fields, page)
		if err != nil {
			c.metrics.RecordSearchError(ErrorType(err))
			return nil, err
		}
		records = append(records, resp.Results...)
		c.log.Printf("page %d/%d: %d records (total %d)", page, resp.Metadata.Pages, len(resp.Results), len(records))

		if page >= resp.Metadata.Pages || len(resp.Results) == 0 {
			break
		}
		if c.maxPages > 0 && page >= c.maxPages {
			c.log.Printf("stopping after %d pages (%d reported)", page, resp.Metadata.Pages)
			break
		}
	}
	if metrics.IsMetricsEnabled() {
		c.metrics.SearchRecordsTotal.Add(float64(len(records)))
	}
	return records, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	done := metrics.MeasureDuration(c.metrics.SearchRateLimitDelay)
	defer done()
	return c.limiter.Wait(ctx)
}

func (c *Client) fetchPage(ctx context.Context, query string, fields []string, page int) (*searchResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := json.Marshal(searchRequest{
		Query:   query,
		Page:    page,
		Fields:  fields,
		Flatten: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	endpoint := c.baseURL + CertificatesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.SetBasicAuth(c.id, c.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Printf("POST %s page=%d query=%q", endpoint, page, query)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordSearchRequest("error", time.Since(start))
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordSearchRequest(strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &out, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var body errorResponse
	if json.Unmarshal(data, &body) == nil {
		apiErr.Type = body.ErrorType
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
