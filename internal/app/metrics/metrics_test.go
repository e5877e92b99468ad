package metrics

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/api/v1/machines", "/api/v1/machines"},
		{"/api/v1/machines/", "/api/v1/machines"},
		{"/api/v1/machines/7c1f", "/api/v1/machines/:id"},
		{"/api/v1/machines/7c1f/status", "/api/v1/machines/:id/status"},
		{"/api/v1/tasks/42/complete", "/api/v1/tasks/:id/complete"},
		{"/api/v1/payouts/42/pay", "/api/v1/payouts/:id/pay"},
		{"/api/v1", "/api"},
	}
	for _, tc := range cases {
		if got := canonicalPath(tc.raw); got != tc.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
