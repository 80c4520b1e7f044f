// Package projection builds local timelines from observed events and
// fetched history. It handles ordering and deduplication; it does not
// emit events or talk to the network.
package projection

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"teamchat/domain"
)

// Timeline holds one consumer's chronological view of a team's
// messages. Pushes and history pages can arrive interleaved and
// overlapping; every insert deduplicates by message id, so the
// server-side at-most-once delivery guarantee only needs to be a
// best-effort safety net here.
type Timeline struct {
	mu       sync.Mutex
	seen     map[uuid.UUID]struct{}
	messages []domain.Message
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uuid.UUID]struct{})}
}

// Append adds one pushed message. Returns false when the id was
// already present (duplicate push, or the sender's own echo after the
// synchronous send response).
func (t *Timeline) Append(message domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(message)
}

// Merge folds a history page (any order) into the timeline and
// re-sorts chronologically.
func (t *Timeline) Merge(messages []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := false
	for _, message := range messages {
		if t.insert(message) {
			added = true
		}
	}
	if added {
		sort.SliceStable(t.messages, func(i, j int) bool {
			return t.messages[i].CreatedAt.Before(t.messages[j].CreatedAt)
		})
	}
}

func (t *Timeline) insert(message domain.Message) bool {
	if _, ok := t.seen[message.ID]; ok {
		return false
	}
	t.seen[message.ID] = struct{}{}
	t.messages = append(t.messages, message)
	return true
}

// Messages returns a copy of the timeline, oldest first.
func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := make([]domain.Message, len(t.messages))
	copy(res, t.messages)
	return res
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
