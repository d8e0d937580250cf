package bridge

import "testing"

func TestDomainPolicyDecide(t *testing.T) {
	t.Parallel()

	policy := &DomainPolicy{ProductHost: "viiraa.com"}

	tests := []struct {
		name string
		url  string
		want Decision
	}{
		{name: "product apex", url: "https://viiraa.com/dashboard", want: DecisionInPlace},
		{name: "product subdomain", url: "https://app.viiraa.com/settings", want: DecisionInPlace},
		{name: "other https", url: "https://example.com/article", want: DecisionExternal},
		{name: "other http", url: "http://example.com", want: DecisionExternal},
		{name: "lookalike host", url: "https://notviiraa.com", want: DecisionExternal},
		{name: "relative path", url: "/dashboard/trends", want: DecisionInPlace},
		{name: "mailto", url: "mailto:support@viiraa.com", want: DecisionInPlace},
		{name: "about blank", url: "about:blank", want: DecisionInPlace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := policy.Decide(tt.url); got != tt.want {
				t.Errorf("Decide(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
