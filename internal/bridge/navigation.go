package bridge

import (
	"net/url"
	"strings"
)

// Decision says where a navigation target should load.
type Decision string

const (
	// DecisionInPlace loads inside the embedded surface.
	DecisionInPlace Decision = "in_place"
	// DecisionExternal hands the URL to the system browser.
	DecisionExternal Decision = "external"
)

// NavigationPolicy decides where outbound links go.
type NavigationPolicy interface {
	Decide(rawURL string) Decision
}

// DomainPolicy keeps product-domain links in place and sends every
// other absolute http(s) link to the external browser. Relative and
// non-http targets load in place.
type DomainPolicy struct {
	// ProductHost is the product's apex host, e.g. "viiraa.com".
	// Subdomains match.
	ProductHost string
}

var _ NavigationPolicy = (*DomainPolicy)(nil)

func (p *DomainPolicy) Decide(rawURL string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DecisionInPlace
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return DecisionInPlace
	}

	host := strings.ToLower(u.Hostname())
	product := strings.ToLower(p.ProductHost)
	if host == product || strings.HasSuffix(host, "."+product) {
		return DecisionInPlace
	}
	return DecisionExternal
}
