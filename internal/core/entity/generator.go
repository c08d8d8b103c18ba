package entity

import (
	"sync"

	"github.com/entityforge/entityforge/internal/core/observability/log"
)

// Generator issues process-unique entity handles. Safe for concurrent use.
type Generator struct {
	log log.Log

	mu   sync.Mutex
	last Entity
}

func NewGenerator(logger log.Log) *Generator {
	return &Generator{log: logger}
}

// Next returns a fresh non-null handle, strictly greater than every handle
// issued before it. Wrapping back to Null would break uniqueness, so it
// terminates the process.
func (g *Generator) Next() Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	if g.last == Null {
		g.log.Fatal("overflow on entity id generation")
	}
	return g.last
}
