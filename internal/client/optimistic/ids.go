package optimistic

import (
	"fmt"
	"sync"
	"time"
)

// IDs hands out placeholder ids "<prefix><unix millis>". Ids created within
// the same millisecond get a "-<n>" suffix, so no two are equal.
type IDs struct {
	prefix string
	now    func() time.Time

	mu     sync.Mutex
	lastMs int64
	seq    int
}

func NewIDs(prefix string, now func() time.Time) *IDs {
	return &IDs{prefix: prefix, now: now}
}

func (g *IDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.lastMs {
		g.seq++
		return fmt.Sprintf("%s%d-%d", g.prefix, g.lastMs, g.seq)
	}
	g.lastMs = ms
	g.seq = 0
	return fmt.Sprintf("%s%d", g.prefix, ms)
}
