/*
File: evaluate.go
Version: 1.0.0
Description: Hold-out evaluation run after training. Purely diagnostic: it fits a separate
             model on a seeded stratified split and logs a classification report.
             The persisted model is never touched.
*/

package main

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	evalTestFraction = 0.3
	evalSeed         = 42
)

// ClassReport holds per-class hold-out statistics.
type ClassReport struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// EvalReport summarises a hold-out evaluation.
type EvalReport struct {
	Classes  []ClassReport `json:"classes"`
	Accuracy float64       `json:"accuracy"`
	Train    int           `json:"train"`
	Test     int           `json:"test"`
}

// String renders the report in a compact multi-line table.
func (r EvalReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %9s %9s %9s %9s\n", "", "precision", "recall", "f1", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%-10s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "%-10s %39.2f %9d", "accuracy", r.Accuracy, r.Test)
	return b.String()
}

// stratifiedSplit partitions examples into train/test keeping the class ratio.
// The same seed always yields the same split.
func stratifiedSplit(examples []LabeledExample, testFraction float64, seed uint64) (train, test []LabeledExample, err error) {
	byClass := map[int][]LabeledExample{}
	for _, ex := range examples {
		byClass[ex.Label] = append(byClass[ex.Label], ex)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	for _, label := range []int{LabelLegit, LabelPhishing} {
		group := append([]LabeledExample(nil), byClass[label]...)
		if len(group) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d examples, need at least 2 to split", label, len(group))
		}

		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(float64(len(group))*testFraction + 0.5)
		nTest = max(1, min(nTest, len(group)-1))

		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	return train, test, nil
}

// Evaluate fits a throwaway model on a stratified split of examples and scores it on
// the held-out part.
func Evaluate(examples []LabeledExample, opts TrainOptions) (EvalReport, error) {
	train, test, err := stratifiedSplit(examples, evalTestFraction, evalSeed)
	if err != nil {
		return EvalReport{}, err
	}

	m, err := Fit(train, opts)
	if err != nil {
		return EvalReport{}, err
	}

	// confusion[actual][predicted]
	var confusion [2][2]int
	for _, ex := range test {
		pred := LabelLegit
		if m.PredictLabel(ExtractFeatures(ex.URL)) == PredPhishing {
			pred = LabelPhishing
		}
		confusion[ex.Label][pred]++
	}

	report := EvalReport{Train: len(train), Test: len(test)}
	correct := 0
	for label, name := range []string{PredLegit, PredPhishing} {
		tp := confusion[label][label]
		fp := confusion[1-label][label]
		fn := confusion[label][1-label]
		correct += tp

		c := ClassReport{Label: name, Support: tp + fn}
		if tp+fp > 0 {
			c.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			c.Recall = float64(tp) / float64(tp+fn)
		}
		if c.Precision+c.Recall > 0 {
			c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
		}
		report.Classes = append(report.Classes, c)
	}
	report.Accuracy = float64(correct) / float64(len(test))

	return report, nil
}
