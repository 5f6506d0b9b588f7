// Package variants supplies the phrasing and flavor randomness used by the
// dialogs. Flows only ever ask a Provider, so tests can pin the output.
package variants

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Provider picks text variants and rolls flavor chances. key names the
// catalog or event being decided and lets deterministic providers script
// individual decisions.
type Provider interface {
	Pick(key string, options []string) string
	Chance(key string, p float64) bool
}

// Random draws from a PCG source. It is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds a Random. A zero seed uses the wall clock.
func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Pick(_ string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return options[r.rng.IntN(len(options))]
}

func (r *Random) Chance(_ string, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64() < p
}

// Fixed always picks the first option unless Picks overrides the index for
// a key. Chance returns Roll unless Rolls overrides it for a key.
type Fixed struct {
	Roll  bool
	Picks map[string]int
	Rolls map[string]bool
}

func (f Fixed) Pick(key string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	idx := f.Picks[key]
	if idx < 0 || idx >= len(options) {
		idx = 0
	}
	return options[idx]
}

func (f Fixed) Chance(key string, _ float64) bool {
	if v, ok := f.Rolls[key]; ok {
		return v
	}
	return f.Roll
}
