package main

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleURLs = []string{
	"https://www.google.com/",
	"http://192.168.1.10/confirm/credential.php",
	"http://secure-login-paypaI.com/",
	"http://winner-free-gift.ga/claim?id=999",
	"https://shop.example.co.uk/cart?item=1&qty=2",
	"http://user@evil.tk/login",
	"HTTPS://WWW.EXAMPLE.ORG",
	"not a url at all",
	"",
	"://",
	"http://[::1]:8080/admin",
	"ftp://files.example.com/pub/" + strings.Repeat("x", 80),
	"http://xn--pypal-4ve.com/verify",
	"https://例え.jp/ログイン",
}

func binaryFeatures() []string {
	return []string{"has_ip", "has_at", "has_dash_in_domain", "suspicious_tld", "uses_https", "long_path"}
}

func TestExtractFeatures_Properties(t *testing.T) {
	for _, u := range sampleURLs {
		t.Run(u, func(t *testing.T) {
			v := ExtractFeatures(u)
			m := v.Map()
			require.Len(t, m, 13)

			for _, name := range FeatureNames {
				val, ok := m[name]
				require.True(t, ok, "missing feature %s", name)
				assert.False(t, math.IsNaN(val) || math.IsInf(val, 0), "%s not finite", name)
				assert.GreaterOrEqual(t, val, 0.0, name)
			}
			for _, name := range binaryFeatures() {
				assert.Contains(t, []float64{0, 1}, m[name], name)
			}

			assert.Equal(t, v, ExtractFeatures(u), "extraction must be deterministic")
		})
	}
}

func TestExtractFeatures_Scenarios(t *testing.T) {
	t.Run("google", func(t *testing.T) {
		v := ExtractFeatures("https://www.google.com/").Map()
		assert.Equal(t, 1.0, v["uses_https"])
		assert.Equal(t, 0.0, v["has_ip"])
		assert.Equal(t, 0.0, v["suspicious_tld"])
		assert.Equal(t, 1.0, v["num_subdomains"])
		assert.Equal(t, 0.0, v["keyword_hits"])
		assert.Equal(t, 23.0, v["length"])
	})

	t.Run("ip literal", func(t *testing.T) {
		v := ExtractFeatures("http://192.168.1.10/confirm/credential.php").Map()
		assert.Equal(t, 1.0, v["has_ip"])
		assert.GreaterOrEqual(t, v["keyword_hits"], 1.0)
		assert.Equal(t, 0.0, v["num_subdomains"])
		assert.Equal(t, 9.0, v["num_digits"])
	})

	t.Run("dashed domain", func(t *testing.T) {
		v := ExtractFeatures("http://secure-login-paypaI.com/").Map()
		assert.Equal(t, 1.0, v["has_dash_in_domain"])
		assert.GreaterOrEqual(t, v["keyword_hits"], 2.0)
		assert.Equal(t, 0.0, v["uses_https"])
	})

	t.Run("suspicious tld", func(t *testing.T) {
		v := ExtractFeatures("http://winner-free-gift.ga/claim?id=999").Map()
		assert.Equal(t, 1.0, v["suspicious_tld"])
		assert.Equal(t, 1.0, v["num_params"])
		assert.Equal(t, 3.0, v["keyword_hits"])
	})
}

func TestExtractFeatures_Details(t *testing.T) {
	t.Run("multi-label suffix", func(t *testing.T) {
		v := ExtractFeatures("http://my-shop.example.co.uk/").Map()
		assert.Equal(t, 0.0, v["has_dash_in_domain"], "dash is in the subdomain, not the registrable label")
		assert.Equal(t, 1.0, v["num_subdomains"])
		assert.Equal(t, 0.0, v["suspicious_tld"])
	})

	t.Run("keywords count once each", func(t *testing.T) {
		v := ExtractFeatures("http://LOGIN.login-login.com/Login").Map()
		assert.Equal(t, 1.0, v["keyword_hits"])
	})

	t.Run("special characters", func(t *testing.T) {
		v := ExtractFeatures("a.b-c_d@e?f&g=h%").Map()
		assert.Equal(t, 8.0, v["num_specials"])
		assert.Equal(t, 1.0, v["has_at"])
		assert.Equal(t, 1.0, v["num_params"])
	})

	t.Run("case insensitive https", func(t *testing.T) {
		assert.Equal(t, 1.0, ExtractFeatures("HTTPS://example.com").Map()["uses_https"])
		assert.Equal(t, 0.0, ExtractFeatures("http://https.example.com").Map()["uses_https"])
	})

	t.Run("long path threshold", func(t *testing.T) {
		atLimit := "http://a.com/" + strings.Repeat("x", 60)
		overLimit := "http://a.com/" + strings.Repeat("x", 61)
		assert.Equal(t, 0.0, ExtractFeatures(atLimit).Map()["long_path"])
		assert.Equal(t, 1.0, ExtractFeatures(overLimit).Map()["long_path"])
	})

	t.Run("over-long labels still split", func(t *testing.T) {
		long := strings.Repeat("a", 64)

		v := ExtractFeatures("http://" + long + ".tk/").Map()
		assert.Equal(t, 1.0, v["suspicious_tld"])
		assert.Equal(t, 0.0, v["num_subdomains"])

		v = ExtractFeatures("http://secure." + long + ".tk/login").Map()
		assert.Equal(t, 1.0, v["suspicious_tld"])
		assert.Equal(t, 1.0, v["num_subdomains"])

		v = ExtractFeatures("http://secure-" + long + ".tk/").Map()
		assert.Equal(t, 1.0, v["has_dash_in_domain"])
	})

	t.Run("over-long names still split", func(t *testing.T) {
		host := "paypal.com." + strings.Repeat("b.", 125) + "ru"
		require.Greater(t, len(host), 255)

		v := ExtractFeatures("http://" + host + "/login").Map()
		assert.Equal(t, 1.0, v["suspicious_tld"])
		assert.Equal(t, 126.0, v["num_subdomains"])
	})

	t.Run("length counts characters", func(t *testing.T) {
		assert.Equal(t, 3.0, ExtractFeatures("äöü").Map()["length"])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, FeatureVector{}, ExtractFeatures(""))
		assert.Equal(t, FeatureVector{}, ExtractFeatures("   "))
	})
}

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, shannonEntropy(""))
	assert.Equal(t, 0.0, shannonEntropy("aaaa"))
	assert.InDelta(t, 1.0, shannonEntropy("abab"), 1e-12)
	assert.InDelta(t, 2.0, shannonEntropy("abcd"), 1e-12)
}

func TestHostnameOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://user:pw@Example.COM:8443/path?q=1", "example.com"},
		{"http://[::1]:8080/x", "::1"},
		{"www.example.org/path", "www.example.org"},
		{"//cdn.example.net/lib.js", "cdn.example.net"},
		{"http://example.com./", "example.com"},
		{"http://host#frag", "host"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, hostnameOf(tc.in))
		})
	}
}

func TestSplitHost(t *testing.T) {
	tests := []struct {
		host string
		want hostParts
	}{
		{"www.google.com", hostParts{Subdomain: "www", Domain: "google", Suffix: "com"}},
		{"a.b.example.co.uk", hostParts{Subdomain: "a.b", Domain: "example", Suffix: "co.uk"}},
		{"foo.github.io", hostParts{Subdomain: "foo", Domain: "github", Suffix: "io"}},
		{"foo.bar.notarealtld", hostParts{Subdomain: "foo.bar", Domain: "notarealtld"}},
		{"192.168.1.10", hostParts{Domain: "192.168.1.10"}},
		{"::1", hostParts{Domain: "::1"}},
		{"co.uk", hostParts{Suffix: "co.uk"}},
		{strings.Repeat("a", 64) + ".tk", hostParts{Domain: strings.Repeat("a", 64), Suffix: "tk"}},
		{"www..example.com", hostParts{Subdomain: "www", Domain: "example", Suffix: "com"}},
		{"", hostParts{}},
	}
	for _, tc := range tests {
		t.Run(tc.host, func(t *testing.T) {
			assert.Equal(t, tc.want, splitHost(tc.host))
		})
	}
}

func TestHostParts_Host(t *testing.T) {
	assert.Equal(t, "www.example.co.uk", hostParts{"www", "example", "co.uk"}.Host())
	assert.Equal(t, "example.com", hostParts{"", "example", "com"}.Host())
	assert.Equal(t, "a.localhost", hostParts{"a", "localhost", ""}.Host())
	assert.Equal(t, "", hostParts{}.Host())
}

func TestFeatureVector_JSON(t *testing.T) {
	v := ExtractFeatures("http://winner-free-gift.ga/claim?id=999")

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"length":`), "keys must be in canonical order")

	var back FeatureVector
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, v, back)
	assert.Equal(t, 1.0, back.Map()["suspicious_tld"])
}
