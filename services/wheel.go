package services

import (
	"math/rand"
	"sync"

	"loyalty-service/models"
)

// RandSource supplies the randomness for prize selection and coupon code
// suffixes. *rand.Rand satisfies it; tests substitute deterministic
// sources.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// lockedRand guards a *rand.Rand so concurrent requests can share one
// source.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a RandSource safe for concurrent use.
func NewLockedRand(seed int64) RandSource {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// PrizeSelector performs weighted-random selection over a wheel
// configuration. It is pure over its inputs and the injected source.
type PrizeSelector struct {
	rand RandSource
}

// NewPrizeSelector creates a PrizeSelector drawing from the given source.
func NewPrizeSelector(rand RandSource) *PrizeSelector {
	return &PrizeSelector{rand: rand}
}

// Draw picks one wheel item with probability proportional to its weight
// and returns it with its index in the stored order. Weights need not be
// normalized; only their sum must be positive.
func (s *PrizeSelector) Draw(cfg *models.WheelConfig) (models.WheelItem, int, error) {
	if cfg == nil || len(cfg.Items) == 0 {
		return models.WheelItem{}, 0, &ConfigError{Reason: "wheel has no items"}
	}

	total := cfg.TotalProbability()
	if total <= 0 {
		return models.WheelItem{}, 0, &ConfigError{Reason: "wheel total probability must be positive"}
	}

	r := s.rand.Float64() * total
	for i, item := range cfg.Items {
		if r < item.Probability {
			return item, i, nil
		}
		r -= item.Probability
	}

	// Floating-point rounding can let the walk run off the end; the last
	// item wins in that case so a draw always produces a result.
	last := len(cfg.Items) - 1
	return cfg.Items[last], last, nil
}
