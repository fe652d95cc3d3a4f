package sync

import (
	"strconv"
	gosync "sync"
	"time"

	"github.com/nhle/tasksync/internal/model"
)

// IDGenerator produces the id for a new subtask given its future siblings.
type IDGenerator interface {
	Next(siblings []model.Subtask) string
}

// SubtaskIDs issues subtask ids as decimal millisecond timestamps. Ids from
// one generator strictly increase even when the clock stands still or
// steps back, and never repeat an id already present among the siblings.
type SubtaskIDs struct {
	mu   gosync.Mutex
	now  func() time.Time
	last int64
}

// NewSubtaskIDs returns a generator reading the given clock. A nil clock
// uses time.Now.
func NewSubtaskIDs(now func() time.Time) *SubtaskIDs {
	if now == nil {
		now = time.Now
	}
	return &SubtaskIDs{now: now}
}

// Next implements IDGenerator.
func (g *SubtaskIDs) Next(siblings []model.Subtask) string {
	taken := make(map[string]bool, len(siblings))
	for _, st := range siblings {
		taken[st.ID] = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		n := g.now().UnixMilli()
		if n <= g.last {
			n = g.last + 1
		}
		g.last = n

		id := strconv.FormatInt(n, 10)
		if !taken[id] {
			return id
		}
	}
}
