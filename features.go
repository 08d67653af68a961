/*
File: features.go
Version: 1.3.0
Description: Deterministic lexical feature extraction for URL strings.
             Host splitting is public-suffix aware (ICANN section only), so "example.co.uk"
             yields domain "example" and suffix "co.uk".
             UPDATED: Over-long labels and names no longer bypass the public-suffix split.
*/

package main

import (
	"bytes"
	"encoding/json"
	"math"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"
)

// Feature indices. The order is part of the persisted model format.
const (
	featLength = iota
	featNumDigits
	featNumSpecials
	featNumSubdomains
	featHasIP
	featHasAt
	featHasDashInDomain
	featSuspiciousTLD
	featKeywordHits
	featHostEntropy
	featUsesHTTPS
	featNumParams
	featLongPath

	numFeatures
)

// FeatureNames lists the features in canonical (model) order.
var FeatureNames = [numFeatures]string{
	featLength:          "length",
	featNumDigits:       "num_digits",
	featNumSpecials:     "num_specials",
	featNumSubdomains:   "num_subdomains",
	featHasIP:           "has_ip",
	featHasAt:           "has_at",
	featHasDashInDomain: "has_dash_in_domain",
	featSuspiciousTLD:   "suspicious_tld",
	featKeywordHits:     "keyword_hits",
	featHostEntropy:     "host_entropy",
	featUsesHTTPS:       "uses_https",
	featNumParams:       "num_params",
	featLongPath:        "long_path",
}

// longPathThreshold is the length above which the tail after the third '/' counts as long.
const longPathThreshold = 60

var (
	dottedQuadRE = regexp.MustCompile(`(\d{1,3}\.){3}\d{1,3}`)
	schemeRE     = regexp.MustCompile(`^[A-Za-z0-9+\-.]+://`)
)

// FeatureVector holds one value per feature, aligned with FeatureNames.
type FeatureVector [numFeatures]float64

// Map returns the vector as a name -> value map.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, numFeatures)
	for i, n := range FeatureNames {
		m[n] = v[i]
	}
	return m
}

// MarshalJSON writes the features as an object in canonical order.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range FeatureNames {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(n))
		buf.WriteByte(':')
		val, err := json.Marshal(v[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the object form produced by MarshalJSON. Unknown keys are ignored.
func (v *FeatureVector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for i, n := range FeatureNames {
		v[i] = m[n]
	}
	return nil
}

// hostParts is the public-suffix split of a hostname.
type hostParts struct {
	Subdomain string
	Domain    string
	Suffix    string
}

// Host joins the parts back into "subdomain.domain.suffix", skipping empty parts.
func (h hostParts) Host() string {
	domain := h.Domain
	if h.Suffix != "" {
		domain = h.Domain + "." + h.Suffix
	}
	if h.Subdomain == "" {
		return domain
	}
	if domain == "" {
		return h.Subdomain
	}
	return h.Subdomain + "." + domain
}

// ExtractFeatures turns an arbitrary string into its feature vector. It never fails:
// anything that does not parse as a URL simply yields zero-valued host features.
func ExtractFeatures(rawURL string) FeatureVector {
	u := strings.TrimSpace(rawURL)
	lower := strings.ToLower(u)
	parts := splitHost(hostnameOf(u))

	var v FeatureVector
	v[featLength] = float64(utf8.RuneCountInString(u))

	for _, r := range u {
		if unicode.IsDigit(r) {
			v[featNumDigits]++
		}
		if strings.ContainsRune(specialChars, r) {
			v[featNumSpecials]++
		}
	}

	if parts.Subdomain != "" {
		v[featNumSubdomains] = float64(dns.CountLabel(parts.Subdomain))
	}
	if dottedQuadRE.MatchString(u) {
		v[featHasIP] = 1
	}
	if strings.Contains(u, "@") {
		v[featHasAt] = 1
	}
	if strings.Contains(parts.Domain, "-") {
		v[featHasDashInDomain] = 1
	}
	if _, bad := suspiciousTLDs[parts.Suffix]; bad {
		v[featSuspiciousTLD] = 1
	}

	for _, kw := range lureKeywords {
		if strings.Contains(lower, kw) {
			v[featKeywordHits]++
		}
	}

	v[featHostEntropy] = shannonEntropy(parts.Host())

	if strings.HasPrefix(lower, "https://") {
		v[featUsesHTTPS] = 1
	}
	v[featNumParams] = float64(strings.Count(u, "="))

	segments := strings.SplitN(u, "/", 4)
	if utf8.RuneCountInString(segments[len(segments)-1]) > longPathThreshold {
		v[featLongPath] = 1
	}

	return v
}

// hostnameOf pulls the lower-cased hostname out of a URL-ish string.
// Scheme, userinfo, port, path, query and fragment are discarded.
func hostnameOf(u string) string {
	s := u
	if loc := schemeRE.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	s = strings.TrimPrefix(s, "//")

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}

	// [v6]:port
	if strings.HasPrefix(s, "[") {
		if i := strings.Index(s, "]"); i > 0 {
			return strings.ToLower(s[1:i])
		}
		return ""
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimRight(s, "."))
}

// splitHost splits a hostname into subdomain, registrable label and ICANN suffix.
func splitHost(host string) hostParts {
	if host == "" {
		return hostParts{}
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return hostParts{Domain: host}
	}
	suffix := icannSuffix(host)
	if suffix == host {
		return hostParts{Suffix: suffix}
	}

	rest := host
	if suffix != "" {
		rest = strings.TrimSuffix(host, "."+suffix)
	}

	// Hosts are split even when they break DNS length limits; empty labels are dropped.
	labels := strings.FieldsFunc(rest, func(r rune) bool { return r == '.' })
	if len(labels) == 0 {
		return hostParts{Suffix: suffix}
	}
	return hostParts{
		Subdomain: strings.Join(labels[:len(labels)-1], "."),
		Domain:    labels[len(labels)-1],
		Suffix:    suffix,
	}
}

// icannSuffix returns the ICANN public suffix of host, or "" when the TLD is unknown.
// Private registry entries (e.g. "github.io") are skipped so the registrable domain
// is taken relative to the ICANN suffix beneath them.
func icannSuffix(host string) string {
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann {
		i := strings.IndexByte(suffix, '.')
		if i < 0 {
			return ""
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[i+1:])
	}
	return suffix
}

// shannonEntropy is the base-2 entropy of the character distribution of s.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	var entropy float64
	n := float64(total)
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}
