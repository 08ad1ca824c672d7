package upstream

import (
	"net/http"
	"net/url"
	"time"
)

// Variant is one way of requesting a resource. Fetchers try variants in order
// and stop at the first usable response.
type Variant struct {
	Name    string
	Request Request
}

// BrowserHeaders are sent on direct requests so upstreams serve the regular page.
func BrowserHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Cache-Control", "max-age=0")
	return h
}

// Direct requests target itself.
func Direct(target string, timeout time.Duration) Variant {
	return Variant{
		Name:    "direct",
		Request: Request{URL: target, Headers: BrowserHeaders(), Timeout: timeout},
	}
}

// Proxy is a rendering scraping proxy addressed by an API key.
type Proxy struct {
	Endpoint string
	APIKey   string
}

// Enabled reports whether the proxy can be used at all.
func (p Proxy) Enabled() bool { return p.Endpoint != "" && p.APIKey != "" }

// URL builds the proxy URL for target. render asks the proxy to execute scripts.
func (p Proxy) URL(target string, render bool) string {
	q := url.Values{}
	q.Set("api_key", p.APIKey)
	q.Set("url", target)
	if render {
		q.Set("render", "true")
	}
	q.Set("keep_headers", "true")
	return p.Endpoint + "/?" + q.Encode()
}

// Variants returns the proxy attempts for target: rendered first, then plain.
// The plain attempt tells a rendering failure apart from an upstream failure.
func (p Proxy) Variants(target string, timeout time.Duration) []Variant {
	if !p.Enabled() {
		return nil
	}
	return []Variant{
		{Name: "proxy_render", Request: Request{URL: p.URL(target, true), Headers: BrowserHeaders(), Timeout: timeout}},
		{Name: "proxy_plain", Request: Request{URL: p.URL(target, false), Headers: BrowserHeaders(), Timeout: timeout}},
	}
}

// Chain is the full ordered list for target: proxy variants, then a direct request.
func (p Proxy) Chain(target string, timeout time.Duration) []Variant {
	return append(p.Variants(target, timeout), Direct(target, timeout))
}
