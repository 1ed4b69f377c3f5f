package helpers

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"signal-monitor/src/logger"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxProxyBench    = 5 * time.Minute
)

type proxyEntry struct {
	url          *url.URL
	failures     int
	benchedUntil time.Time
}

// ProxyPool hands out outbound proxies for provider requests in round-robin
// order. A proxy that fails is benched with a doubling cooldown and comes
// back after its first success.
type ProxyPool struct {
	mu       sync.Mutex
	entries  []*proxyEntry
	next     int
	agent    string
	Cooldown time.Duration
	Now      func() time.Time
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

// NewProxyPool drops entries that do not parse as http, https or socks5 URLs.
// A bare host:port is treated as http.
func NewProxyPool(proxies []string, userAgent string, log *logger.Logger) *ProxyPool {
	if log == nil {
		log = logger.NewLogger(nil, "ProxyPool")
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	p := &ProxyPool{
		agent:    userAgent,
		Cooldown: 30 * time.Second,
		Now:      time.Now,
		Logger:   log,
	}
	for _, raw := range proxies {
		u, ok := ParseProxy(raw)
		if !ok {
			log.Warning("Ignoring invalid proxy %q", raw)
			continue
		}
		p.entries = append(p.entries, &proxyEntry{url: u})
	}
	return p
}

// -----------------------------------------------------------------------------

// Pick returns the next usable proxy, or nil for a direct connection. When
// every proxy is benched the one closest to recovery is returned.
func (p *ProxyPool) Pick() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.entries)
	if n == 0 {
		return nil
	}
	now := p.Now()

	var soonest *proxyEntry
	for i := 0; i < n; i++ {
		e := p.entries[(p.next+i)%n]
		if !now.Before(e.benchedUntil) {
			p.next = (p.next + i + 1) % n
			return e.url
		}
		if soonest == nil || e.benchedUntil.Before(soonest.benchedUntil) {
			soonest = e
		}
	}
	return soonest.url
}

// Report records the outcome of a request made through proxy. nil is ignored.
func (p *ProxyPool) Report(proxy *url.URL, ok bool) {
	if proxy == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.url != proxy {
			continue
		}
		if ok {
			e.failures = 0
			e.benchedUntil = time.Time{}
			return
		}
		e.failures++
		bench := p.Cooldown << (e.failures - 1)
		if bench <= 0 || bench > maxProxyBench {
			bench = maxProxyBench
		}
		e.benchedUntil = p.Now().Add(bench)
		p.Logger.Info("Benching proxy %s for %s after %d failures", e.url.Host, bench, e.failures)
		return
	}
}

func (p *ProxyPool) UserAgent() string {
	return p.agent
}

func (p *ProxyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// -----------------------------------------------------------------------------

// ParseProxy normalises a proxy entry from the config file.
func ParseProxy(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return u, true
	}
	return nil, false
}
