// Package selection implements weighted item picks and spin reel generation.
package selection

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"caseopener-rest-api/internal/catalog"
	"caseopener-rest-api/internal/model"
)

// Default reel geometry: 80 slots, stop index in [25, 72].
const (
	DefaultReelLength  = 80
	DefaultMarginStart = 25
	DefaultMarginEnd   = 7
)

// Source supplies randomness. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// lockedSource serializes access to a Source that is not goroutine-safe,
// such as *rand.Rand.
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.IntN(n)
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() } //nolint:gosec // game rolls, not secrets
func (globalSource) IntN(n int) int   { return rand.IntN(n) }   //nolint:gosec // game rolls, not secrets

// ReelConfig describes reel length and the slots kept clear at either end.
type ReelConfig struct {
	Length      int
	MarginStart int
	MarginEnd   int
}

// DefaultReelConfig returns the standard reel geometry.
func DefaultReelConfig() ReelConfig {
	return ReelConfig{
		Length:      DefaultReelLength,
		MarginStart: DefaultMarginStart,
		MarginEnd:   DefaultMarginEnd,
	}
}

// Validate checks that at least one stop position exists.
func (c ReelConfig) Validate() error {
	if c.Length <= 0 || c.MarginStart < 0 || c.MarginEnd < 0 {
		return fmt.Errorf("reel length and margins must be non-negative (length=%d, start=%d, end=%d)",
			c.Length, c.MarginStart, c.MarginEnd)
	}
	if c.Length < c.MarginStart+c.MarginEnd+1 {
		return fmt.Errorf("reel length %d leaves no stop position between margins %d and %d",
			c.Length, c.MarginStart, c.MarginEnd)
	}
	return nil
}

// Engine draws items from a pool using a rarity weight table.
type Engine struct {
	weights catalog.WeightTable
	reel    ReelConfig
	rnd     Source
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource replaces the default random source. One Engine serves spins of
// many users at once, so src is wrapped in a mutex.
func WithSource(src Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.rnd = &lockedSource{src: src}
		}
	}
}

// NewEngine creates an engine. The default source is the goroutine-safe
// math/rand/v2 global generator.
func NewEngine(weights catalog.WeightTable, reel ReelConfig, opts ...Option) (*Engine, error) {
	if err := reel.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		weights: weights,
		reel:    reel,
		rnd:     globalSource{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ReelConfig returns the reel geometry in use.
func (e *Engine) ReelConfig() ReelConfig {
	return e.reel
}

// ErrEmptyPool is the panic value raised when drawing from an empty pool.
var ErrEmptyPool = errors.New("selection: empty pool")

// weightedPool holds cumulative weights for repeated draws over one pool.
type weightedPool struct {
	items []model.Item
	cumul []float64
	total float64
}

func (e *Engine) newWeightedPool(items []model.Item) *weightedPool {
	if len(items) == 0 {
		panic(ErrEmptyPool)
	}
	p := &weightedPool{
		items: items,
		cumul: make([]float64, len(items)),
	}
	for i, it := range items {
		p.total += e.weights.Weight(it.Rarity)
		p.cumul[i] = p.total
	}
	return p
}

// draw returns the first item whose cumulative weight reaches r * total.
func (p *weightedPool) draw(r float64) model.Item {
	roll := r * p.total
	lo, hi := 0, len(p.cumul)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if p.cumul[mid] >= roll {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return p.items[lo]
}

// PickWeighted selects one item with probability proportional to its rarity
// weight. It panics if pool is empty.
func (e *Engine) PickWeighted(pool []model.Item) model.Item {
	return e.newWeightedPool(pool).draw(e.rnd.Float64())
}

// BuildReel produces a reel of independent weighted draws and places winner
// at a uniformly chosen stop index inside the configured margins.
// It panics if pool is empty.
func (e *Engine) BuildReel(pool []model.Item, winner model.Item) ([]model.Item, int) {
	wp := e.newWeightedPool(pool)

	reel := make([]model.Item, e.reel.Length)
	for i := range reel {
		reel[i] = wp.draw(e.rnd.Float64())
	}

	span := e.reel.Length - e.reel.MarginEnd - e.reel.MarginStart
	stop := e.reel.MarginStart + e.rnd.IntN(span)
	reel[stop] = winner

	return reel, stop
}
