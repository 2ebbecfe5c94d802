package fetch

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), rawURL string) *url.URL {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("Bad request URL %q: %v", rawURL, err)
	}
	proxy, err := fn(req)
	if err != nil {
		t.Fatalf("Proxy lookup for %q failed: %v", rawURL, err)
	}
	return proxy
}

func TestNewProxyFunc_SchemeSelection(t *testing.T) {
	fn := NewProxyFunc("http://plain.proxy:3128", "http://tls.proxy:3128", "")

	if p := proxyFor(t, fn, "http://example.org/page"); p == nil || p.Host != "plain.proxy:3128" {
		t.Errorf("Expected http proxy for http URL, got %v", p)
	}
	if p := proxyFor(t, fn, "https://example.org/page"); p == nil || p.Host != "tls.proxy:3128" {
		t.Errorf("Expected https proxy for https URL, got %v", p)
	}
}

func TestNewProxyFunc_NoProxyBypasses(t *testing.T) {
	fn := NewProxyFunc("http://plain.proxy:3128", "", "internal.example")

	if p := proxyFor(t, fn, "http://internal.example/page"); p != nil {
		t.Errorf("Expected direct connection for no_proxy host, got %v", p)
	}
	if p := proxyFor(t, fn, "http://external.example/page"); p == nil || p.Host != "plain.proxy:3128" {
		t.Errorf("Expected proxy for host outside no_proxy, got %v", p)
	}
}
