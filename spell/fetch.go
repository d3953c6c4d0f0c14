package spell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultInterval is the spacing between two requests to the service.
	DefaultInterval = 5 * time.Second
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 5 * time.Second
	// DefaultField is the form field carrying the text.
	DefaultField = "text1"
)

// Clock is the time source of a Fetcher.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetcherOptions configures a Fetcher. Zero values select the defaults.
type FetcherOptions struct {
	// Endpoint is the correction service URL.
	Endpoint string
	// Field is the form field name (default "text1").
	Field string
	// Interval is the minimum spacing between request starts.
	Interval time.Duration
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Proxy is an optional HTTP/HTTPS proxy URL. Without it the
	// HTTP_PROXY/HTTPS_PROXY environment variables apply.
	Proxy string
	// Client overrides the HTTP client; Timeout and Proxy are then ignored.
	Client *http.Client
	// Clock overrides the wall clock.
	Clock Clock
}

// Fetcher posts texts to the correction service one at a time. Request
// starts are spaced by a fixed interval counted from the previous permitted
// start, not from the end of the previous request, so a burst of calls is
// throttled to one request per interval whatever the latency.
//
// A Fetcher is not safe for concurrent use.
type Fetcher struct {
	endpoint string
	field    string
	interval time.Duration
	client   *http.Client
	clock    Clock

	next time.Time
}

// NewFetcher creates a Fetcher whose first request may start immediately.
func NewFetcher(opts FetcherOptions) (*Fetcher, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("correction service endpoint is not configured")
	}
	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", opts.Endpoint, err)
	}

	f := &Fetcher{
		endpoint: opts.Endpoint,
		field:    opts.Field,
		interval: opts.Interval,
		client:   opts.Client,
		clock:    opts.Clock,
	}
	if f.field == "" {
		f.field = DefaultField
	}
	if f.interval <= 0 {
		f.interval = DefaultInterval
	}
	if f.clock == nil {
		f.clock = systemClock{}
	}
	if f.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		f.client = makeHTTPClient(opts.Proxy, timeout)
	}
	f.next = f.clock.Now()
	return f, nil
}

// Fetch submits text and returns the response page. Transport failures,
// timeouts and non-2xx answers are reported as KindNetwork errors.
func (f *Fetcher) Fetch(ctx context.Context, text string) (string, error) {
	if now := f.clock.Now(); now.Before(f.next) {
		if err := f.clock.Sleep(ctx, f.next.Sub(now)); err != nil {
			return "", err
		}
	}
	f.next = f.next.Add(f.interval)

	form := url.Values{f.field: {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", networkError("spell request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError("reading spell response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", networkError("spell request", fmt.Errorf("service returned status %d", resp.StatusCode))
	}
	if !utf8.Valid(body) {
		return "", &Error{Kind: KindOther, Op: "reading spell response", Err: errors.New("response is not valid UTF-8")}
	}
	return string(body), nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
