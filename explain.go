/*
File: explain.go
Version: 1.0.0
Description: Per-feature attribution of a linear decision score, plus the combined
             predict-and-explain entry point used by the API.
*/

package main

import (
	"cmp"
	"math"
	"slices"
)

// topContributors is how many contributions a prediction carries.
const topContributors = 5

// Contribution is one feature's additive share of the log-odds score.
type Contribution struct {
	Feature           string  `json:"feature"`
	Value             float64 `json:"value"`
	LogitContribution float64 `json:"logit_contribution"`
}

// PredictionResult is the full answer for one URL.
type PredictionResult struct {
	URL             string         `json:"url"`
	PredLabel       string         `json:"pred_label"`
	PredProba       float64        `json:"pred_proba"`
	Features        FeatureVector  `json:"features"`
	TopContributors []Contribution `json:"top_contributors"`
	Intercept       float64        `json:"intercept"`
}

// Explain returns the k features with the largest |weight*value|, largest first.
// Equal magnitudes keep canonical feature order. The sign is relative to the
// phishing class whatever the predicted label is.
func Explain(v FeatureVector, m *Model, k int) []Contribution {
	n := min(len(m.Weights), len(m.FeatureNames))
	if k <= 0 || n == 0 {
		return []Contribution{}
	}

	all := make([]Contribution, n)
	for i := 0; i < n; i++ {
		all[i] = Contribution{
			Feature:           m.FeatureNames[i],
			Value:             v[i],
			LogitContribution: m.Weights[i] * v[i],
		}
	}

	slices.SortStableFunc(all, func(a, b Contribution) int {
		return cmp.Compare(math.Abs(b.LogitContribution), math.Abs(a.LogitContribution))
	})

	return all[:min(k, n)]
}

// PredictWithExplain classifies url and attaches the top contributors. Any string is
// accepted; malformed URLs just produce mostly-zero features.
func (m *Model) PredictWithExplain(url string) PredictionResult {
	v := ExtractFeatures(url)
	proba := m.PredictProba(v)

	return PredictionResult{
		URL:             url,
		PredLabel:       labelFor(proba),
		PredProba:       proba,
		Features:        v,
		TopContributors: Explain(v, m, topContributors),
		Intercept:       m.Bias,
	}
}
