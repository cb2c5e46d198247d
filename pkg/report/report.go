// Package report summarises the accumulators of a weighted-average run.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"cryowavg/pkg/wavg"
)

// Summary holds descriptive statistics of one accumulator array.
type Summary struct {
	Sum    float64 `yaml:"sum"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// Report describes one invocation and its result.
type Report struct {
	Variant   string `yaml:"variant"`
	Precision string `yaml:"precision"`

	Groups       int `yaml:"groups"`
	Translations int `yaml:"translations"`
	Pixels       int `yaml:"pixels"`

	SignificanceWeight float64 `yaml:"significanceWeight"`
	WeightNorm         float64 `yaml:"weightNorm"`

	// Significant counts the (group, translation) pairs at or above the threshold
	Significant int `yaml:"significant"`

	Elapsed time.Duration `yaml:"elapsed"`

	Diff2   Summary `yaml:"diff2"`
	CrossXA Summary `yaml:"crossXA"`
	AutoAA  Summary `yaml:"autoAA"`

	// ScaleEstimate is sum(CrossXA)/sum(AutoAA), the least-squares scale of
	// the observation against the reference
	ScaleEstimate float64 `yaml:"scaleEstimate"`
}

// Summarize computes statistics of data. An empty slice yields a zero Summary.
func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(data, nil)
	if len(data) == 1 {
		std = 0
	}
	return Summary{
		Sum:    floats.Sum(data),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(data),
		Max:    floats.Max(data),
	}
}

// Fill computes the accumulator summaries and the scale estimate.
func Fill[T wavg.Float](r *Report, acc *wavg.Accumulators[T]) {
	r.Pixels = acc.Len()
	r.Diff2 = Summarize(Float64s(acc.Diff2))
	r.CrossXA = Summarize(Float64s(acc.CrossXA))
	r.AutoAA = Summarize(Float64s(acc.AutoAA))
	if r.AutoAA.Sum != 0 {
		r.ScaleEstimate = r.CrossXA.Sum / r.AutoAA.Sum
	}
}

// CountSignificant returns how many weights reach threshold.
func CountSignificant[T wavg.Float](weights []T, threshold T) int {
	n := 0
	for _, w := range weights {
		if w >= threshold {
			n++
		}
	}
	return n
}

// Float64s widens an accumulator array for gonum.
func Float64s[T wavg.Float](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// Print writes a human-readable summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Variant: %s (%s)\n", r.Variant, r.Precision)
	fmt.Fprintf(w, "Orientation groups: %d, translations: %d, pixels: %d\n", r.Groups, r.Translations, r.Pixels)
	fmt.Fprintf(w, "Significant hypotheses: %d of %d (threshold %.6g, norm %.6g)\n",
		r.Significant, r.Groups*r.Translations, r.SignificanceWeight, r.WeightNorm)
	fmt.Fprintf(w, "Elapsed: %s\n", r.Elapsed)
	for _, s := range []struct {
		name string
		sum  Summary
	}{{"Diff2", r.Diff2}, {"CrossXA", r.CrossXA}, {"AutoAA", r.AutoAA}} {
		fmt.Fprintf(w, "%-8s sum %.6g  mean %.6g  std %.6g  min %.6g  max %.6g\n",
			s.name, s.sum.Sum, s.sum.Mean, s.sum.StdDev, s.sum.Min, s.sum.Max)
	}
	fmt.Fprintf(w, "Scale estimate: %.6f\n", r.ScaleEstimate)
}

// Save writes the report as YAML.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating report directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}
