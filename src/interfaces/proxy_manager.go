package interfaces

import "net/url"

// IProxyPool selects the outbound proxy for each provider request.
type IProxyPool interface {
	// Pick returns the proxy for the next request, nil meaning direct.
	Pick() *url.URL
	// Report feeds back whether a request through proxy succeeded.
	Report(proxy *url.URL, ok bool)
	UserAgent() string
}
