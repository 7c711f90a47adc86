package cache

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_NormalizesParameterOrder(t *testing.T) {
	a := Key("/inventory/positions", url.Values{"warehouse": {"W1"}, "sku": {"B", "A"}})
	b := Key("inventory/positions/", url.Values{"sku": {"A", "B"}, "warehouse": {"W1"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "/inventory/positions?sku=A&sku=B&warehouse=W1", a)
}

func TestKey_WithoutParams(t *testing.T) {
	assert.Equal(t, "/orders", Key("/orders", nil))
	assert.Equal(t, "/", Key("", url.Values{}))
	assert.Equal(t, "/receipts?open=", Key("/receipts", url.Values{"open": nil}))
}

func TestKey_EscapesValues(t *testing.T) {
	k := Key("/items", url.Values{"q": {"a&b=c"}})
	assert.Equal(t, "/items?q=a%26b%3Dc", k)
	assert.Equal(t, "/items", Endpoint(k))
}

func TestHasEndpointPrefix(t *testing.T) {
	cases := []struct {
		key, prefix string
		want        bool
	}{
		{"/inventory", "/inventory", true},
		{"/inventory/positions?bin=A", "/inventory", true},
		{"/inventory-archive", "/inventory", false},
		{"/orders?inventory=1", "/inventory", false},
		{"/anything", "/", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasEndpointPrefix(tc.key, tc.prefix), "%s vs %s", tc.key, tc.prefix)
	}
}
