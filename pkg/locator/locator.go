// Package locator rewrites content-addressed locators into gateway URLs.
package locator

import "strings"

const (
	IPFSScheme       = "ipfs://"
	TONStorageScheme = "tonstorage://"

	DefaultIPFSGateway = "https://ipfs.infura.io/ipfs/"
)

type Rule struct {
	Scheme  string
	Gateway string
}

type Resolver struct {
	rules []Rule
}

// Resolve substitutes the first matching scheme prefix with its gateway.
// Locators without a known scheme are returned unchanged.
func (r *Resolver) Resolve(uri string) string {
	for _, rule := range r.rules {
		if rule.Scheme != "" && strings.HasPrefix(uri, rule.Scheme) {
			return rule.Gateway + strings.TrimPrefix(uri, rule.Scheme)
		}
	}

	return uri
}

func NewResolver(rules ...Rule) *Resolver {
	kept := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.Scheme == "" || rule.Gateway == "" {
			continue
		}
		kept = append(kept, rule)
	}

	return &Resolver{rules: kept}
}
