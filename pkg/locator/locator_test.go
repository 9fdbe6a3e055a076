package locator

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func newTestResolver() *Resolver {
	return NewResolver(
		Rule{Scheme: IPFSScheme, Gateway: DefaultIPFSGateway},
		Rule{Scheme: TONStorageScheme, Gateway: "https://tonstorage.example/gateway/"},
	)
}

func TestResolver_Resolve(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		in   string
		want string
	}{
		{"ipfs://bafy/image.png", "https://ipfs.infura.io/ipfs/bafy/image.png"},
		{"tonstorage://abcd/metadata.json", "https://tonstorage.example/gateway/abcd/metadata.json"},
		{"https://ipfs.infura.io/ipfs/bafy", "https://ipfs.infura.io/ipfs/bafy"},
		{"", ""},
		{"IPFS://upper", "IPFS://upper"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(tt.in), tt.in)
	}
}

func TestNewResolver_SkipsIncompleteRules(t *testing.T) {
	r := NewResolver(Rule{Scheme: IPFSScheme}, Rule{Gateway: "https://x/"})
	assert.Equal(t, "ipfs://cid", r.Resolve("ipfs://cid"))
}

func TestResolver_Properties(t *testing.T) {
	r := newTestResolver()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve passes through locators without a scheme prefix", prop.ForAll(
		func(s string) bool {
			if strings.HasPrefix(s, IPFSScheme) || strings.HasPrefix(s, TONStorageScheme) {
				return true
			}
			return r.Resolve(s) == s && r.Resolve(r.Resolve(s)) == s
		},
		gen.AnyString(),
	))

	properties.Property("resolved ipfs locators are stable", prop.ForAll(
		func(cid string) bool {
			once := r.Resolve(IPFSScheme + cid)
			return once == DefaultIPFSGateway+cid && r.Resolve(once) == once
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
