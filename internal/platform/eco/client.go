package eco

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"heekkr/internal/resolver"

	"github.com/andybalholm/brotli"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 20

type Options struct {
	UserAgent   string
	RPS         int
	MaxRetries  int
	Timeout     time.Duration
	Backoff     time.Duration
	InsecureTLS bool
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    *url.URL
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
}

// NewClient returns a client for one eco catalog site. name identifies the
// site in breaker logs.
func NewClient(name, baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "heekkr/1.0"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureTLS {
		// Several municipal library sites serve incomplete certificate chains.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent: opts.UserAgent,
		baseURL:   u,
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RPS)), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, resolver.ErrMalformed)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("eco: breaker site=%s from=%s to=%s", name, from, to)
			},
		}),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Libraries lists every branch of the site, including the "ALL" pseudo entry.
func (c *Client) Libraries(ctx context.Context) ([]LibraryInfo, error) {
	var res librariesResponse
	if err := c.do(ctx, http.MethodGet, "api/common/libraryInfo", nil, &res); err != nil {
		return nil, err
	}
	return res.Contents.LibList, nil
}

// Search runs a keyword search restricted to the given manage codes.
func (c *Client) Search(ctx context.Context, keyword string, manageCodes []string) ([]BookItem, error) {
	payload := searchRequest{SearchKeyword: keyword, ManageCode: manageCodes}
	if payload.ManageCode == nil {
		payload.ManageCode = []string{}
	}

	var res searchResponse
	if err := c.do(ctx, http.MethodPost, "api/search", payload, &res); err != nil {
		return nil, err
	}
	return res.Contents.BookList, nil
}

// BookDetailURL is the public page of a search row.
func (c *Client) BookDetailURL(b BookItem) string {
	parts := []string{b.PubFormCode, b.BookKey, b.SpeciesKey, b.ISBN}
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.baseURL.String() + "bookDetail/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, path string, payload, target interface{}) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", path, err)
		}
		body = b
	}
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path}).String()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, method, endpoint, body, target)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w: %v", method, endpoint, resolver.ErrUnavailable, err)
	}
	return err
}

func (c *Client) doWithRetry(ctx context.Context, method, endpoint string, body []byte, target interface{}) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := c.backoff << uint(i-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		data, retry, err := c.roundTrip(ctx, method, endpoint, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if retry {
				lastErr = err
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, target); err != nil {
			return fmt.Errorf("decode %s: %w: %v", endpoint, resolver.ErrMalformed, err)
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

// roundTrip performs one attempt. retry reports whether a failure is worth
// another attempt.
func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body []byte) (data []byte, retry bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%s %s: %w: %v", method, endpoint, resolver.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%s %s: %w: unexpected status code: %d", method, endpoint, resolver.ErrUnavailable, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, true, statusErr
		}
		return nil, false, statusErr
	}

	decoded, err := decodeBody(resp)
	if err != nil {
		return nil, false, fmt.Errorf("%s %s: %w: %v", method, endpoint, resolver.ErrMalformed, err)
	}
	data, err = io.ReadAll(io.LimitReader(decoded, maxBodyBytes))
	if closeErr := decoded.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) {
			return nil, false, fmt.Errorf("%s %s: %w: %v", method, endpoint, resolver.ErrMalformed, err)
		}
		return nil, true, fmt.Errorf("%s %s: read body: %w: %v", method, endpoint, resolver.ErrUnavailable, err)
	}
	return data, false, nil
}

// decodeBody returns a reader of the decoded body. Closing it does not close
// resp.Body.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return zr, nil
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
