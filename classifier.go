/*
File: classifier.go
Version: 2.0.0
Description: L2-regularised logistic regression over URL feature vectors.
             Fitting uses Newton's method (IRLS) with backtracking, so a given corpus always
             produces the same weights. The regularisation matches C=1 with an unpenalised
             intercept.
*/

package main

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Prediction labels.
const (
	PredPhishing = "phishing"
	PredLegit    = "legit"
)

// decisionThreshold is inclusive: a probability of exactly 0.5 is "phishing".
const decisionThreshold = 0.5

const (
	defaultRegularisation = 1.0
	newtonMaxIter         = 100
	newtonStepTol         = 1e-10
	newtonGradTol         = 1e-8
	lineSearchMaxHalvings = 40
)

var (
	ErrEmptyCorpus       = errors.New("training corpus is empty")
	ErrInvalidCorpus     = errors.New("training corpus is malformed")
	ErrSingleClass       = errors.New("training corpus needs both legit and phishing examples")
	ErrSingularHessian   = errors.New("hessian is not positive definite")
	ErrIncompatibleModel = errors.New("model does not match the feature extractor")
)

// Model is a fitted linear classifier. It is never mutated after Fit or LoadModel
// returns, so a single instance can be shared by all request handlers.
type Model struct {
	FeatureNames     []string
	Weights          []float64
	Bias             float64
	TrainedAt        time.Time
	TrainingExamples int
	Iterations       int
}

// TrainOptions tunes Fit. The zero value means C=1.
type TrainOptions struct {
	C float64
}

// Score is the pre-sigmoid decision value (log-odds of phishing).
func (m *Model) Score(v FeatureVector) float64 {
	s := m.Bias
	for i, w := range m.Weights {
		s += w * v[i]
	}
	return s
}

// PredictProba returns P(phishing | v).
func (m *Model) PredictProba(v FeatureVector) float64 {
	return sigmoid(m.Score(v))
}

// PredictLabel returns "phishing" when the probability is at least 0.5, otherwise "legit".
func (m *Model) PredictLabel(v FeatureVector) string {
	return labelFor(m.PredictProba(v))
}

func labelFor(proba float64) string {
	if proba >= decisionThreshold {
		return PredPhishing
	}
	return PredLegit
}

// Fit extracts features for every example and fits the model.
func Fit(examples []LabeledExample, opts TrainOptions) (*Model, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyCorpus
	}

	x := make([]FeatureVector, len(examples))
	y := make([]float64, len(examples))
	var pos, neg int
	for i, ex := range examples {
		switch ex.Label {
		case LabelPhishing:
			pos++
		case LabelLegit:
			neg++
		default:
			return nil, fmt.Errorf("%w: example %d has label %d", ErrInvalidCorpus, i, ex.Label)
		}
		x[i] = ExtractFeatures(ex.URL)
		y[i] = float64(ex.Label)
	}
	if pos == 0 || neg == 0 {
		return nil, ErrSingleClass
	}

	c := opts.C
	if c <= 0 {
		c = defaultRegularisation
	}

	theta, iters, err := fitLogistic(x, y, c)
	if err != nil {
		return nil, err
	}

	names := make([]string, numFeatures)
	copy(names, FeatureNames[:])
	weights := make([]float64, numFeatures)
	copy(weights, theta[:numFeatures])

	return &Model{
		FeatureNames:     names,
		Weights:          weights,
		Bias:             theta[numFeatures],
		TrainedAt:        time.Now().UTC(),
		TrainingExamples: len(examples),
		Iterations:       iters,
	}, nil
}

// fitLogistic minimises C*sum(logloss) + 0.5*||w||^2 over theta = (w, b).
// It returns theta with the bias in the last slot and the number of Newton steps taken.
func fitLogistic(x []FeatureVector, y []float64, c float64) ([]float64, int, error) {
	const dim = numFeatures + 1

	for i := range x {
		for j, val := range x[i] {
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return nil, 0, fmt.Errorf("%w: example %d feature %s is not finite", ErrInvalidCorpus, i, FeatureNames[j])
			}
		}
	}

	theta := make([]float64, dim)
	loss := objective(x, y, c, theta)

	for iter := 1; iter <= newtonMaxIter; iter++ {
		grad, hess := gradientHessian(x, y, c, theta)
		if maxAbs(grad) < newtonGradTol {
			return theta, iter - 1, nil
		}

		step, err := choleskySolve(hess, grad)
		if err != nil {
			return nil, iter, err
		}

		// Backtrack until the objective decreases. Newton steps on a strictly convex
		// objective are descent directions, so this terminates.
		t := 1.0
		next := make([]float64, dim)
		var nextLoss float64
		for h := 0; ; h++ {
			for k := range theta {
				next[k] = theta[k] - t*step[k]
			}
			nextLoss = objective(x, y, c, next)
			if nextLoss <= loss || h >= lineSearchMaxHalvings {
				break
			}
			t /= 2
		}

		moved := t * maxAbs(step)
		theta, loss = next, nextLoss
		if moved < newtonStepTol {
			return theta, iter, nil
		}
	}

	LogWarn("[MODEL] Newton solver hit %d iterations without converging (loss %.6f)", newtonMaxIter, loss)
	return theta, newtonMaxIter, nil
}

// objective evaluates the regularised negative log-likelihood.
func objective(x []FeatureVector, y []float64, c float64, theta []float64) float64 {
	var nll float64
	for i := range x {
		z := linear(x[i], theta)
		if y[i] == 1 {
			nll += softplus(-z)
		} else {
			nll += softplus(z)
		}
	}

	var reg float64
	for k := 0; k < numFeatures; k++ {
		reg += theta[k] * theta[k]
	}
	return c*nll + 0.5*reg
}

// gradientHessian returns the gradient and Hessian of objective at theta.
func gradientHessian(x []FeatureVector, y []float64, c float64, theta []float64) ([]float64, [][]float64) {
	const dim = numFeatures + 1

	grad := make([]float64, dim)
	hess := make([][]float64, dim)
	for k := range hess {
		hess[k] = make([]float64, dim)
	}

	var row [dim]float64
	for i := range x {
		copy(row[:numFeatures], x[i][:])
		row[numFeatures] = 1

		p := sigmoid(linear(x[i], theta))
		r := c * (p - y[i])
		w := c * p * (1 - p)
		for a := 0; a < dim; a++ {
			grad[a] += r * row[a]
			wa := w * row[a]
			for b := 0; b <= a; b++ {
				hess[a][b] += wa * row[b]
			}
		}
	}

	for a := 0; a < dim; a++ {
		for b := 0; b < a; b++ {
			hess[b][a] = hess[a][b]
		}
	}
	for k := 0; k < numFeatures; k++ {
		grad[k] += theta[k]
		hess[k][k]++
	}
	return grad, hess
}

// choleskySolve solves A x = b for symmetric positive definite A.
func choleskySolve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 || math.IsNaN(sum) {
					return nil, ErrSingularHessian
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}

	// L z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= l[i][k] * z[k]
		}
		z[i] = sum / l[i][i]
	}

	// L^T x = z
	out := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for k := i + 1; k < n; k++ {
			sum -= l[k][i] * out[k]
		}
		out[i] = sum / l[i][i]
	}
	return out, nil
}

func linear(v FeatureVector, theta []float64) float64 {
	s := theta[numFeatures]
	for k := 0; k < numFeatures; k++ {
		s += theta[k] * v[k]
	}
	return s
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}
