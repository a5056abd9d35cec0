package devproxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUpstreamProxy_ForwardRequest(t *testing.T) {
	t.Run("forwards GET request with query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET, got %s", r.Method)
			}
			if r.URL.Path != "/orders" {
				t.Errorf("expected /orders, got %s", r.URL.Path)
			}
			if r.URL.RawQuery != "limit=5" {
				t.Errorf("expected limit=5, got %s", r.URL.RawQuery)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[]`))
		}))
		defer server.Close()

		proxy := NewUpstreamProxy(server.URL+"/", server.Client())
		req := httptest.NewRequest(http.MethodGet, "/api/orders?limit=5", nil)
		resp, err := proxy.ForwardRequest(context.Background(), req, "/orders")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("rewrites host to the upstream", func(t *testing.T) {
		var gotHost, forwardedHost string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHost = r.Host
			forwardedHost = r.Header.Get("X-Forwarded-Host")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		proxy := NewUpstreamProxy(server.URL, server.Client())
		req := httptest.NewRequest(http.MethodGet, "http://localhost:3000/api/orders", nil)
		resp, err := proxy.ForwardRequest(context.Background(), req, "/orders")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()

		if gotHost != strings.TrimPrefix(server.URL, "http://") {
			t.Errorf("expected upstream host %s, got %s", server.URL, gotHost)
		}
		if forwardedHost != "localhost:3000" {
			t.Errorf("expected X-Forwarded-Host localhost:3000, got %s", forwardedHost)
		}
	})

	t.Run("appends the client to X-Forwarded-For", func(t *testing.T) {
		tests := []struct {
			name  string
			prior []string
			want  string
		}{
			{name: "no prior chain", want: "192.0.2.1"},
			{name: "single prior hop", prior: []string{"203.0.113.7"}, want: "203.0.113.7, 192.0.2.1"},
			{name: "multiple prior headers", prior: []string{"203.0.113.7, 198.51.100.2", "10.0.0.9"}, want: "203.0.113.7, 198.51.100.2, 10.0.0.9, 192.0.2.1"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var got []string
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					got = r.Header.Values("X-Forwarded-For")
					w.WriteHeader(http.StatusOK)
				}))
				defer server.Close()

				proxy := NewUpstreamProxy(server.URL, server.Client())
				req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
				for _, v := range tt.prior {
					req.Header.Add("X-Forwarded-For", v)
				}
				resp, err := proxy.ForwardRequest(context.Background(), req, "/orders")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				_ = resp.Body.Close()

				if len(got) != 1 || got[0] != tt.want {
					t.Errorf("expected X-Forwarded-For %q, got %q", tt.want, got)
				}
			})
		}
	})

	t.Run("forwards POST request with body and headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("X-Request-ID") != "abc" {
				t.Errorf("expected X-Request-ID abc, got %s", r.Header.Get("X-Request-ID"))
			}
			if r.Header.Get("Connection") == "keep-alive-custom" {
				t.Error("hop-by-hop header must not be forwarded")
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"name":"Ada"}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		proxy := NewUpstreamProxy(server.URL, server.Client())
		req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"Ada"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", "abc")
		req.Header.Set("Connection", "keep-alive-custom")
		resp, err := proxy.ForwardRequest(context.Background(), req, "/users")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusCreated {
			t.Errorf("expected status 201, got %d", resp.StatusCode)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		proxy := NewUpstreamProxy(server.URL, server.Client())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		_, err := proxy.ForwardRequest(ctx, req, "/orders")
		if err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
