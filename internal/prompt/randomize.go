package prompt

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Fid-Deen/fiddeen-kiosk/internal/log"
)

// Randomizer shuffles motif pools so repeated requests for the same country
// do not always present options in the same order. It is shared between
// requests.
type Randomizer struct {
	tables *Tables
	mu     sync.Mutex
	rnd    *rand.Rand
}

func NewRandomizer(tables *Tables) *Randomizer {
	return NewSeededRandomizer(tables, time.Now().UTC().UnixNano())
}

func NewSeededRandomizer(tables *Tables, seed int64) *Randomizer {
	return &Randomizer{tables: tables, rnd: rand.New(rand.NewSource(seed))}
}

func (r *Randomizer) Tables() *Tables {
	return r.tables
}

// Variants builds n prompts, one per slot, each with its own scene motif.
// When the pool holds at least n motifs every slot gets a distinct one.
func (r *Randomizer) Variants(ctx context.Context, country, theme, timeOfDay string, n int) []Prompt {
	logger := log.FromContextOrDiscard(ctx).WithGroup("randomizer")

	pool := r.shuffle(r.tables.Scenes(country, theme))
	logger.Debug("shuffled motif pool", "country", country, "theme", theme, "size", len(pool))

	prompts := make([]Prompt, n)
	for i := range prompts {
		scene := ""
		if len(pool) > 0 {
			scene = pool[i%len(pool)]
		}
		prompts[i] = r.tables.BuildScene(country, theme, timeOfDay, scene)
	}
	return prompts
}

func (r *Randomizer) shuffle(pool []string) []string {
	out := make([]string, len(pool))
	copy(out, pool)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
