package cache

import (
	"net/url"
	"path"
	"sort"
	"strings"
)

// Key derives the cache key of a read. Parameters are ordered by name and then by value so that
// semantically identical requests always map to the same key.
func Key(endpoint string, params url.Values) string {
	endpoint = normalizeEndpoint(endpoint)
	names := make([]string, 0, len(params))
	for name := range params {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return endpoint
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	sep := byte('?')
	for _, name := range names {
		values := append([]string(nil), params[name]...)
		sort.Strings(values)
		if len(values) == 0 {
			values = []string{""}
		}
		for _, v := range values {
			b.WriteByte(sep)
			sep = '&'
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Endpoint returns the endpoint part of a key built by Key.
func Endpoint(key string) string {
	endpoint, _, _ := strings.Cut(key, "?")
	return endpoint
}

// HasEndpointPrefix reports whether the key's endpoint is prefix or lies below it.
func HasEndpointPrefix(key, prefix string) bool {
	endpoint := Endpoint(key)
	prefix = normalizeEndpoint(prefix)
	if prefix == "/" {
		return true
	}
	return endpoint == prefix || strings.HasPrefix(endpoint, prefix+"/")
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "/"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return path.Clean(endpoint)
}
