package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"signal-monitor/src/helpers"
	"signal-monitor/src/interfaces"
	"signal-monitor/src/logger"
	"signal-monitor/src/models"

	"golang.org/x/time/rate"
)

// StatusError is returned for a non-200 response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d from %s", e.StatusCode, e.URL)
}

// -----------------------------------------------------------------------------

type AsyncNetworkManager struct {
	Config  *models.MConfig
	Proxies interfaces.IProxyPool
	Logger  *logger.Logger
	Limiter *rate.Limiter
	// BaseDelay scales the quadratic backoff between attempts.
	BaseDelay time.Duration

	client *http.Client
}

type proxyKey struct{}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	if log == nil {
		log = logger.NewLogger(cfg, "Network")
	}
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	rps := cfg.Network.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	nm := &AsyncNetworkManager{
		Config:    cfg,
		Proxies:   helpers.NewProxyPool(proxies, cfg.Network.UserAgent, log.Named("proxies")),
		Logger:    log,
		Limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		BaseDelay: time.Second,
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

// createClient builds one client for the manager's lifetime. The proxy is
// chosen per request and travels in the request context.
func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey{}).(*url.URL); ok && u != nil {
			return u, nil
		}
		return nil, nil
	}

	timeout := nm.Config.Network.RequestTimeout
	if timeout <= 0 {
		timeout = 10
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(timeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a rate-limited GET with retries. Each attempt may go through
// a different proxy.
// 4xx responses other than 403 and 429 are not retried.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	maxRetries := nm.Config.Network.MaxRetries

	var body []byte
	err = helpers.RetryWithBackoff(ctx, maxRetries, nm.BaseDelay, func(attempt int) error {
		if err := nm.Limiter.Wait(ctx); err != nil {
			return helpers.Permanent(err)
		}

		b, err := nm.do(ctx, finalURL)
		if err != nil {
			nm.Logger.Info("Request failed (attempt %d/%d): %v", attempt+1, maxRetries+1, err)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, helpers.NewNetworkError("GET "+reqURL.Host+reqURL.Path, err)
	}
	return body, nil
}

func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string) ([]byte, error) {
	proxy := nm.Proxies.Pick()
	ctx = context.WithValue(ctx, proxyKey{}, proxy)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, helpers.Permanent(err)
	}
	req.Header.Set("User-Agent", nm.Proxies.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := nm.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			nm.Proxies.Report(proxy, false)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, URL: req.URL.Host + req.URL.Path}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
			nm.Logger.Info("Request blocked (%d), benching current route", resp.StatusCode)
			nm.Proxies.Report(proxy, false)
			return nil, statusErr
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			nm.Proxies.Report(proxy, true)
			return nil, helpers.Permanent(statusErr)
		default:
			return nil, statusErr
		}
	}

	nm.Proxies.Report(proxy, true)
	return io.ReadAll(resp.Body)
}
