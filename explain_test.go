package main

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain(t *testing.T) {
	weights := make([]float64, numFeatures)
	weights[featLength] = 0.01
	weights[featUsesHTTPS] = -2
	weights[featKeywordHits] = 1.5
	weights[featSuspiciousTLD] = 3
	weights[featHasIP] = 5
	m := &Model{FeatureNames: FeatureNames[:], Weights: weights, Bias: -1}

	v := ExtractFeatures("http://winner-free-gift.ga/claim?id=999")
	got := Explain(v, m, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "keyword_hits", got[0].Feature)
	assert.Equal(t, 3.0, got[0].Value)
	assert.InDelta(t, 4.5, got[0].LogitContribution, 1e-12)
	assert.Equal(t, "suspicious_tld", got[1].Feature)
	assert.Equal(t, "length", got[2].Feature)

	t.Run("negative contributions keep their sign", func(t *testing.T) {
		got := Explain(ExtractFeatures("https://www.google.com/"), m, 5)
		require.Len(t, got, 5)
		assert.Equal(t, "uses_https", got[0].Feature)
		assert.Equal(t, -2.0, got[0].LogitContribution)
	})

	t.Run("ties keep feature order", func(t *testing.T) {
		zero := &Model{FeatureNames: FeatureNames[:], Weights: make([]float64, numFeatures)}
		got := Explain(v, zero, 5)
		for i := range got {
			assert.Equal(t, FeatureNames[i], got[i].Feature)
		}
	})

	t.Run("k bounds", func(t *testing.T) {
		assert.Empty(t, Explain(v, m, 0))
		assert.NotNil(t, Explain(v, m, 0))
		assert.Len(t, Explain(v, m, 100), numFeatures)
	})
}

func TestPredictWithExplain(t *testing.T) {
	m := fitBuiltin(t)

	for _, u := range sampleURLs {
		t.Run(u, func(t *testing.T) {
			res := m.PredictWithExplain(u)

			assert.Equal(t, u, res.URL)
			assert.GreaterOrEqual(t, res.PredProba, 0.0)
			assert.LessOrEqual(t, res.PredProba, 1.0)
			assert.Equal(t, res.PredProba >= 0.5, res.PredLabel == PredPhishing)
			assert.Equal(t, m.Bias, res.Intercept)
			assert.Equal(t, ExtractFeatures(u), res.Features)

			require.LessOrEqual(t, len(res.TopContributors), topContributors)
			for i := 1; i < len(res.TopContributors); i++ {
				prev := math.Abs(res.TopContributors[i-1].LogitContribution)
				cur := math.Abs(res.TopContributors[i].LogitContribution)
				assert.GreaterOrEqual(t, prev, cur)
			}

			// Score decomposes into intercept plus every contribution.
			sum := res.Intercept
			for _, c := range Explain(res.Features, m, numFeatures) {
				sum += c.LogitContribution
			}
			assert.InDelta(t, m.Score(res.Features), sum, 1e-9)
		})
	}
}

func TestPredictionResult_JSON(t *testing.T) {
	m := fitBuiltin(t)
	data, err := json.Marshal(m.PredictWithExplain("http://secure-login-paypaI.com/"))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	for _, key := range []string{"url", "pred_label", "pred_proba", "features", "top_contributors", "intercept"} {
		assert.Contains(t, out, key)
	}
	assert.Len(t, out["features"], numFeatures)

	contribs := out["top_contributors"].([]interface{})
	require.NotEmpty(t, contribs)
	first := contribs[0].(map[string]interface{})
	assert.Contains(t, first, "feature")
	assert.Contains(t, first, "value")
	assert.Contains(t, first, "logit_contribution")
}
