package requestmeta

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHasSameOriginProofWithPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    *http.Request
		policy SchemePolicy
		want   bool
	}{
		{
			name: "untrusted forwarded proto is ignored",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test/api/auth/login/begin", nil)
				req.Host = "daybook.example.test"
				req.Header.Set("Origin", "http://daybook.example.test")
				req.Header.Set("X-Forwarded-Proto", "http")
				return req
			}(),
			policy: SchemePolicy{},
			want:   false,
		},
		{
			name: "trusted forwarded proto is used",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test/api/auth/login/begin", nil)
				req.Host = "daybook.example.test"
				req.Header.Set("Origin", "http://daybook.example.test")
				req.Header.Set("X-Forwarded-Proto", "http")
				return req
			}(),
			policy: SchemePolicy{TrustForwardedProto: true},
			want:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasSameOriginProofWithPolicy(tc.req, tc.policy); got != tc.want {
				t.Fatalf("HasSameOriginProofWithPolicy() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasSameOriginProofDefaultPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  *http.Request
		want bool
	}{
		{
			name: "origin same host and scheme",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test/api/auth/register/begin", nil)
				req.Host = "daybook.example.test"
				req.Header.Set("Origin", "https://daybook.example.test")
				return req
			}(),
			want: true,
		},
		{
			name: "referer same host and scheme",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test/api/auth/logout", nil)
				req.Host = "daybook.example.test"
				req.Header.Set("Referer", "https://daybook.example.test/login")
				return req
			}(),
			want: true,
		},
		{
			name: "origin scheme mismatch",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test/api/auth/logout", nil)
				req.Host = "daybook.example.test"
				req.Header.Set("Origin", "http://daybook.example.test")
				return req
			}(),
			want: false,
		},
		{
			name: "origin missing non-default port",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test:8443/api/auth/logout", nil)
				req.Host = "daybook.example.test:8443"
				req.Header.Set("Origin", "https://daybook.example.test")
				return req
			}(),
			want: false,
		},
		{
			name: "missing origin and referer",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "https://daybook.example.test/api/auth/logout", nil)
				req.Host = "daybook.example.test"
				return req
			}(),
			want: false,
		},
		{
			name: "nil request",
			req:  nil,
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasSameOriginProofWithPolicy(tc.req, SchemePolicy{}); got != tc.want {
				t.Fatalf("HasSameOriginProofWithPolicy() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSameOriginGuard(t *testing.T) {
	t.Parallel()

	guard := SameOriginGuard(SchemePolicy{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		origin string
		want   int
	}{
		{name: "safe method without origin", method: http.MethodGet, want: http.StatusNoContent},
		{name: "post same origin", method: http.MethodPost, origin: "http://daybook.test", want: http.StatusNoContent},
		{name: "post cross origin", method: http.MethodPost, origin: "http://evil.test", want: http.StatusForbidden},
		{name: "post without proof", method: http.MethodPost, want: http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tc.method, "http://daybook.test/api/auth/logout", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rr := httptest.NewRecorder()
			guard.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}
