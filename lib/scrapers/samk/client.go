package samk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"
	"time"

	"poolwatch-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/samk")

// DefaultUrl is the aquapark page that carries the occupancy charts.
const DefaultUrl = "https://samk.cz/aquapark-kladno"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// ErrFetchCancelled is returned when a fetch is aborted because its context
// was cancelled, this only happens on shutdown and is not a failure.
var ErrFetchCancelled = errors.New("fetch cancelled")

var errClientClosed = errors.New("client closed")

type FetchErrorKind int

const (
	// FetchTransport covers connection errors and timeouts.
	FetchTransport FetchErrorKind = iota
	// FetchStatus is a response with a non 2xx status.
	FetchStatus
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTransport:
		return "transport"
	case FetchStatus:
		return "status"
	}
	return "unknown"
}

type FetchError struct {
	Kind   FetchErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchStatus {
		return fmt.Sprintf("fetch: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("fetch: %s", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	// Url defaults to DefaultUrl.
	Url string
	// Timeout bounds a single fetch, defaults to 30 seconds.
	Timeout   time.Duration
	UserAgent string
	// DisableCloudflareBypass leaves the transport's TLS fingerprint alone,
	// useful when pointing the client at a test server.
	DisableCloudflareBypass bool
	// InstrumentOutput receives a dump of every exchange when debug logging
	// is enabled, it may be nil.
	InstrumentOutput restyutil.InstrumentOutput
}

// Client holds one http session for the lifetime of the worker that uses it.
type Client struct {
	url       string
	http      *resty.Client
	transport *http.Transport
	closed    atomic.Bool
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Url == "" {
		opts.Url = DefaultUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	target, err := url.Parse(opts.Url)
	if err != nil {
		return nil, err
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", target.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	// keep a handle on the concrete transport, the cloudflare wrapper does
	// not forward CloseIdleConnections.
	transport := http.DefaultTransport.(*http.Transport).Clone()

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTransport(transport)
	if !opts.DisableCloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept-language", "cs,en;q=0.8")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(target.Hostname()))
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(0)

	restyutil.InstrumentClient(client, tracer, opts.InstrumentOutput)

	return &Client{
		url:       target.String(),
		http:      client,
		transport: transport,
	}, nil
}

func (c *Client) Url() string {
	return c.url
}

// Fetch performs a single GET of the page and returns its body.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	if c.closed.Load() {
		return "", &FetchError{Kind: FetchTransport, Err: errClientClosed}
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			span.SetStatus(codes.Unset, "cancelled")
			return "", fmt.Errorf("%w: %w", ErrFetchCancelled, ctx.Err())
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &FetchError{Kind: FetchTransport, Err: err}
	}

	span.SetAttributes(attribute.Int("status", res.StatusCode()))
	if !res.IsSuccess() {
		ferr := &FetchError{Kind: FetchStatus, Status: res.StatusCode()}
		span.SetStatus(codes.Error, ferr.Error())
		return "", ferr
	}

	return res.String(), nil
}

// Close releases the pooled connections of the session. It is safe to call
// more than once, fetching after Close fails.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.transport.CloseIdleConnections()
}
