// Package ncbi provides a client for the NCBI Variation Services REST API.
package ncbi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/inodb/vibe-spdi/internal/ratelimit"
	"github.com/inodb/vibe-spdi/internal/refsnp"
	"github.com/inodb/vibe-spdi/internal/spdi"
)

// Client defaults
const (
	DefaultBaseURL       = "https://api.ncbi.nlm.nih.gov/variation/v0"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 500 * time.Millisecond
)

// Client resolves SPDI and rsID identifiers against Variation Services.
// It is safe for concurrent use; all calls share one rate limiter.
type Client struct {
	baseURL       string
	assembly      string
	httpClient    *http.Client
	limiter       *ratelimit.Limiter
	timeout       time.Duration
	maxRetries    uint64
	retryInterval time.Duration
	logger        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root (no trailing slash).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithLimiter sets the shared rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithAssembly sets the reference build rsID alleles are accepted for.
func WithAssembly(a string) Option { return func(c *Client) { c.assembly = a } }

// WithTimeout sets the timeout for a single HTTP attempt.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithMaxRetries sets how many times a retryable failure is repeated.
func WithMaxRetries(n uint64) Option { return func(c *Client) { c.maxRetries = n } }

// WithRetryInterval sets the initial backoff between retries.
func WithRetryInterval(d time.Duration) Option { return func(c *Client) { c.retryInterval = d } }

// WithLogger sets the logger for request and retry messages.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient creates a Variation Services client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		assembly:      refsnp.DefaultAssembly,
		httpClient:    &http.Client{},
		timeout:       DefaultTimeout,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.NewDefault()
	}
	return c
}

// vcfFieldsResponse is the JSON body of GET /spdi/{spdi}/vcf_fields.
type vcfFieldsResponse struct {
	Data *struct {
		Chrom *string `json:"chrom"`
		Pos   *uint64 `json:"pos"`
		Ref   *string `json:"ref"`
		Alt   *string `json:"alt"`
	} `json:"data"`
}

func (r *vcfFieldsResponse) toRecord() (spdi.VCFRecord, error) {
	d := r.Data
	switch {
	case d == nil:
		return spdi.VCFRecord{}, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	case d.Chrom == nil || d.Pos == nil || d.Ref == nil || d.Alt == nil:
		return spdi.VCFRecord{}, fmt.Errorf("%w: data must have chrom, pos, ref and alt", ErrMalformedResponse)
	}
	chrom, err := spdi.ChromosomeNumber(*d.Chrom)
	if err != nil {
		return spdi.VCFRecord{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return spdi.VCFRecord{Chrom: chrom, Pos: *d.Pos, Ref: *d.Ref, Alt: *d.Alt}, nil
}

// ResolveSPDI converts an SPDI string to VCF fields.
func (c *Client) ResolveSPDI(ctx context.Context, s string) (spdi.VCFRecord, error) {
	var resp vcfFieldsResponse
	if err := c.getJSON(ctx, "/spdi/"+url.PathEscape(s)+"/vcf_fields", &resp); err != nil {
		return spdi.VCFRecord{}, fmt.Errorf("resolve spdi %s: %w", s, err)
	}
	rec, err := resp.toRecord()
	if err != nil {
		return spdi.VCFRecord{}, fmt.Errorf("resolve spdi %s: %w", s, err)
	}
	return rec, nil
}

// LookupRSID fetches a RefSNP record and extracts its alleles on the
// configured assembly.
func (c *Client) LookupRSID(ctx context.Context, rsid uint64) (refsnp.Record, error) {
	var r refsnp.RefSNP
	if err := c.getJSON(ctx, "/refsnp/"+strconv.FormatUint(rsid, 10), &r); err != nil {
		return refsnp.Record{}, fmt.Errorf("lookup rs%d: %w", rsid, err)
	}
	rec, err := r.Extract(c.assembly)
	if err != nil {
		return refsnp.Record{}, fmt.Errorf("lookup rs%d: %w: %w", rsid, ErrMalformedResponse, err)
	}
	return rec, nil
}

// ResolveRSID returns the changed SPDI alleles of an rsID. The list is
// empty when the primary placement is not on the configured assembly.
func (c *Client) ResolveRSID(ctx context.Context, rsid uint64) ([]spdi.SPDI, error) {
	rec, err := c.LookupRSID(ctx, rsid)
	if err != nil {
		return nil, err
	}
	return rec.SPDIs, nil
}

// getJSON fetches path with retries and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	u := c.baseURL + path

	var body []byte
	op := func() error {
		b, err := c.fetch(ctx, u)
		if err != nil {
			var ue *UpstreamError
			if errors.As(err, &ue) && ue.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying lookup",
			zap.String("url", u),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}

// fetch performs a single rate-limited GET.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("GET", zap.String("url", u))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{URL: u, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{URL: u, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}
