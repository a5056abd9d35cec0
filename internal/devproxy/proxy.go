package devproxy

import (
	"context"
	"net/http"
	"strings"
)

// hopHeaders are meaningful only for a single connection and are never
// forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type UpstreamProxy struct {
	target string
	client *http.Client
}

func NewUpstreamProxy(target string, client *http.Client) *UpstreamProxy {
	return &UpstreamProxy{
		target: strings.TrimRight(target, "/"),
		client: client,
	}
}

func (p *UpstreamProxy) Target() string {
	return p.target
}

// ForwardRequest replays r against the upstream at path. The outgoing Host is
// the upstream's own host, not the one the console was reached on.
func (p *UpstreamProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	url := p.target + path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, url, r.Body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = r.ContentLength

	copyHeaders(req.Header, r.Header)
	req.Header.Del("Host")
	if clientIP := remoteHost(r.RemoteAddr); clientIP != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor(r.Header, clientIP))
	}
	if r.Host != "" {
		req.Header.Set("X-Forwarded-Host", r.Host)
	}

	return p.client.Do(req)
}

// forwardedFor appends clientIP to any chain earlier proxies already set.
func forwardedFor(h http.Header, clientIP string) string {
	if prior := h.Values("X-Forwarded-For"); len(prior) > 0 {
		return strings.Join(prior, ", ") + ", " + clientIP
	}
	return clientIP
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		dst[key] = append([]string(nil), values...)
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
}

func remoteHost(addr string) string {
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return addr[:i]
	}
	return addr
}
