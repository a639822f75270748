package search

import (
	"context"
	"image"

	"go-imaging-report/internal/ensemble"
	"go-imaging-report/internal/imaging"
	"go-imaging-report/internal/logger"
)

// Options holds the fixed search policy.
type Options struct {
	// Iterations is the round budget. Zero means the source image is
	// scored once and returned unchanged.
	Iterations int
	// VariancePenalty is the weight w in reward = confidence - w*variance.
	VariancePenalty float64
}

// DefaultOptions mirrors the production policy.
func DefaultOptions() Options {
	return Options{
		Iterations:      3,
		VariancePenalty: 0.5,
	}
}

// Result is the best candidate found across the round budget.
type Result struct {
	Score  ensemble.Score
	Reward float64
	Image  image.Image
	Rounds int
}

// VariantFunc derives the candidate set for one round.
type VariantFunc func(image.Image) []image.Image

// Searcher runs a bounded hill-climb: score the source, then for each
// round generate variants of the incumbent, score each, and keep a
// candidate only when its reward strictly beats the incumbent's.
// Termination is purely count-bounded.
type Searcher struct {
	scorer   ensemble.Scorer
	variants VariantFunc
	opts     Options
}

func New(scorer ensemble.Scorer, opts Options) *Searcher {
	return &Searcher{
		scorer:   scorer,
		variants: imaging.Variants,
		opts:     opts,
	}
}

// NewWithVariants overrides the variant generator.
func NewWithVariants(scorer ensemble.Scorer, variants VariantFunc, opts Options) *Searcher {
	s := New(scorer, opts)
	s.variants = variants
	return s
}

func (s *Searcher) reward(sc ensemble.Score) float64 {
	return sc.Confidence - s.opts.VariancePenalty*sc.Variance
}

// Search returns the best-scoring image/class/confidence triple found
// within the iteration budget. Inference errors abort the search.
func (s *Searcher) Search(ctx context.Context, img image.Image) (*Result, error) {
	score, err := s.scorer.Score(ctx, img)
	if err != nil {
		return nil, err
	}
	best := &Result{
		Score:  score,
		Reward: s.reward(score),
		Image:  img,
	}

	for round := 1; round <= s.opts.Iterations; round++ {
		for _, candidate := range s.variants(best.Image) {
			candScore, err := s.scorer.Score(ctx, candidate)
			if err != nil {
				return nil, err
			}
			candReward := s.reward(candScore)
			// Ties favor the incumbent.
			if candReward > best.Reward {
				logger.WithStage("search").WithFields(map[string]interface{}{
					"round":      round,
					"class":      candScore.Class,
					"reward":     candReward,
					"prev_class": best.Score.Class,
				}).Debug("candidate replaced incumbent")
				best = &Result{
					Score:  candScore,
					Reward: candReward,
					Image:  candidate,
				}
			}
		}
	}
	best.Rounds = s.opts.Iterations
	return best, nil
}
