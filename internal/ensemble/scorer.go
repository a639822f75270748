package ensemble

import (
	"context"
	"image"

	"gonum.org/v1/gonum/stat"

	apperrors "go-imaging-report/internal/errors"
	"go-imaging-report/internal/logger"
)

// Score is the aggregated verdict for one image: the argmax class of
// the ensemble mean vector, its mean confidence and its predictive
// variance. Confidence is in [0,1]; variance is non-negative.
type Score struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
	Variance   float64 `json:"variance"`
}

// Scorer scores one image with the classifier ensemble.
type Scorer interface {
	Score(ctx context.Context, img image.Image) (Score, error)
}

// MonteCarloScorer queries every classifier several times with
// dropout active and aggregates per-class means and variances, first
// within each classifier and then across the ensemble.
type MonteCarloScorer struct {
	classifiers []Classifier
	samples     int
	pool        *Pool
}

// NewMonteCarloScorer builds a scorer over the given classifiers.
// samples is the stochastic pass count per classifier. pool may be nil
// for unbounded (direct) execution.
func NewMonteCarloScorer(classifiers []Classifier, samples int, pool *Pool) *MonteCarloScorer {
	if samples < 1 {
		samples = 1
	}
	return &MonteCarloScorer{
		classifiers: classifiers,
		samples:     samples,
		pool:        pool,
	}
}

func (s *MonteCarloScorer) Score(ctx context.Context, img image.Image) (Score, error) {
	if s.pool == nil {
		return s.score(ctx, img)
	}

	var (
		result Score
		err    error
	)
	poolErr := s.pool.Do(ctx, func() {
		result, err = s.score(ctx, img)
	})
	if poolErr != nil {
		return Score{}, apperrors.NewTimeoutError("scoring queue wait interrupted", poolErr)
	}
	return result, err
}

func (s *MonteCarloScorer) score(ctx context.Context, img image.Image) (Score, error) {
	input := preprocess(img)

	numClasses := s.classifiers[0].NumClasses()
	meanSum := make([]float64, numClasses)
	varSum := make([]float64, numClasses)

	for _, clf := range s.classifiers {
		passes := make([][]float64, numClasses)
		for c := range passes {
			passes[c] = make([]float64, 0, s.samples)
		}

		for i := 0; i < s.samples; i++ {
			if err := ctx.Err(); err != nil {
				return Score{}, apperrors.NewTimeoutError("scoring canceled", err)
			}
			probs, err := clf.Predict(input)
			if err != nil {
				return Score{}, apperrors.NewInferenceError("classifier "+clf.Name()+" forward pass failed", err)
			}
			if len(probs) != numClasses {
				return Score{}, apperrors.NewInferenceError("classifier "+clf.Name()+" returned malformed output", nil)
			}
			for c, p := range probs {
				passes[c] = append(passes[c], float64(p))
			}
		}

		for c := range passes {
			mean, variance := meanVariance(passes[c])
			meanSum[c] += mean
			varSum[c] += variance
		}
	}

	n := float64(len(s.classifiers))
	best := 0
	for c := 1; c < numClasses; c++ {
		if meanSum[c] > meanSum[best] {
			best = c
		}
	}

	result := Score{
		Class:      best,
		Confidence: meanSum[best] / n,
		Variance:   varSum[best] / n,
	}
	logger.WithStage("ensemble").WithFields(map[string]interface{}{
		"class":      result.Class,
		"confidence": result.Confidence,
		"variance":   result.Variance,
	}).Debug("scored candidate")
	return result, nil
}

// meanVariance is population mean/variance over the stochastic passes.
// A single pass has zero spread by definition.
func meanVariance(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		if len(xs) == 1 {
			return xs[0], 0
		}
		return 0, 0
	}
	mean, variance := stat.PopMeanVariance(xs, nil)
	return mean, variance
}
