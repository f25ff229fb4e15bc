package webclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxBodyBytes caps how much of a response body we keep in memory.
const maxBodyBytes = 10 << 20

// ErrBodyTooLarge is returned instead of a truncated body.
var ErrBodyTooLarge = errors.New("response body too large")

// Config tunes the net/http backed client. A zero MaxBodyBytes means 10 MiB.
type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// NetHTTPClient implements Client on top of net/http. A single instance is
// meant to be shared by every source so they reuse one connection pool.
type NetHTTPClient struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// NewNetHTTPClient builds a client. If httpClient is nil a default one with a
// tuned transport and cfg.Timeout is created.
func NewNetHTTPClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *NetHTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sauce-service/1.0"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = maxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(),
		}
	}
	return &NetHTTPClient{
		client:    httpClient,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		logger:    logger.With(zap.String("component", "webclient")),
	}
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 20
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	return t
}

// Head issues a HEAD request. The status code is returned, not turned into an error.
func (c *NetHTTPClient) Head(ctx context.Context, rawURL string, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodHead, rawURL, headers, false)
}

// Get issues a GET request, applying req.Timeout on top of the client timeout.
func (c *NetHTTPClient) Get(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	target, err := BuildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	return c.do(ctx, http.MethodGet, target, req.Headers, true)
}

func (c *NetHTTPClient) do(ctx context.Context, method, target string, headers http.Header, strict bool) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	for k, vs := range headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	c.logger.Debug("sending request",
		zap.String("method", method),
		zap.String("url", target),
	)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if strict && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %s %s exceeds %d bytes", ErrBodyTooLarge, method, target, c.maxBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
