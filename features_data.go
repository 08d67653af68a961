/*
File: features_data.go
Version: 1.0.0
Description: Static lists used by the URL feature extractor.
             Kept apart from features.go so the lists can be reviewed without the parsing code.
*/

package main

// --- 1. Suspicious TLDs ---
// Public suffixes that are cheap to register and heavily abused by phishing kits.
// Matched against the full ICANN suffix of the host (e.g. "ga", not "example.ga").
var suspiciousTLDs = map[string]struct{}{
	"ru": {}, "tk": {}, "cn": {}, "ga": {}, "cf": {}, "ml": {}, "gq": {},
	"work": {}, "top": {}, "xyz": {}, "link": {}, "click": {}, "country": {},
}

// --- 2. Lure Keywords ---
// Each keyword counts once per URL, matched case-insensitively anywhere in the string.
var lureKeywords = []string{
	// Credential / account lures
	"login", "verify", "update", "secure", "account", "bank", "support", "limited", "confirm",

	// Impersonated brands
	"apple", "paypal", "microsoft", "amazon",

	// Bait
	"prize", "winner", "free", "gift", "download",
}

// specialChars is the set counted by num_specials.
const specialChars = "._-@?&=%"
