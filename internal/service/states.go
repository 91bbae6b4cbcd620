package service

import (
	"sync"

	"github.com/JonnyWalker81/moodtrack/internal/models"
)

// DefaultStateCapacity is the number of tracked states kept per subject
const DefaultStateCapacity = 100

// stateBuffer keeps the most recent tracked states per subject so that the
// fields points cannot carry (primary emotion, contradictions) reach the
// crisis engine.
type stateBuffer struct {
	mu       sync.RWMutex
	capacity int
	states   map[string][]models.EmotionalState
}

func newStateBuffer(capacity int) *stateBuffer {
	if capacity <= 0 {
		capacity = DefaultStateCapacity
	}
	return &stateBuffer{
		capacity: capacity,
		states:   make(map[string][]models.EmotionalState),
	}
}

func (b *stateBuffer) record(subjectID string, state models.EmotionalState) {
	state.ContradictoryEmotions = append([]string(nil), state.ContradictoryEmotions...)

	b.mu.Lock()
	defer b.mu.Unlock()

	buf := append(b.states[subjectID], state)
	if len(buf) > b.capacity {
		buf = buf[len(buf)-b.capacity:]
	}
	b.states[subjectID] = buf
}

func (b *stateBuffer) reset(subjectID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, subjectID)
}

// overlay replaces reconstructed states with the tracked state recorded at
// the same instant. Reconstructed states without a match are kept, so the
// result always lines up with the point snapshot it was built from.
func (b *stateBuffer) overlay(subjectID string, reconstructed []models.EmotionalState) []models.EmotionalState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tracked := b.states[subjectID]
	if len(tracked) == 0 {
		return reconstructed
	}
	byTime := make(map[int64]models.EmotionalState, len(tracked))
	for _, s := range tracked {
		byTime[s.Timestamp.UnixNano()] = s
	}

	out := make([]models.EmotionalState, len(reconstructed))
	for i, s := range reconstructed {
		if t, ok := byTime[s.Timestamp.UnixNano()]; ok {
			t.ContradictoryEmotions = append([]string(nil), t.ContradictoryEmotions...)
			out[i] = t
			continue
		}
		out[i] = s
	}
	return out
}
