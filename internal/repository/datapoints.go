package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/JonnyWalker81/moodtrack/internal/models"
)

const (
	// DefaultCapacity is the number of points kept per subject
	DefaultCapacity = 1000

	// DefaultSummaryTTL bounds how long a cached summary may be served
	DefaultSummaryTTL = 5 * time.Minute
)

type cachedSummary struct {
	summary    *models.EvolutionSummary
	generation uint64
	storedAt   time.Time
}

// PointStore is the in-memory longitudinal store. It exclusively owns the
// per-subject point buffers; readers only ever receive copies.
type PointStore struct {
	mu         sync.RWMutex
	capacity   int
	summaryTTL time.Duration
	now        func() time.Time

	points      map[string][]models.DataPoint
	generations map[string]uint64
	summaries   map[string]map[string]cachedSummary
}

var (
	_ DataPointRepository = (*PointStore)(nil)
	_ SummaryCache        = (*PointStore)(nil)
)

// StoreOption configures a PointStore
type StoreOption func(*PointStore)

// WithCapacity sets the per-subject buffer size
func WithCapacity(n int) StoreOption {
	return func(s *PointStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithSummaryTTL sets how long cached summaries stay valid
func WithSummaryTTL(ttl time.Duration) StoreOption {
	return func(s *PointStore) {
		s.summaryTTL = ttl
	}
}

// WithStoreClock overrides the store's time source
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *PointStore) {
		s.now = now
	}
}

// NewPointStore creates a new longitudinal store
func NewPointStore(opts ...StoreOption) *PointStore {
	s := &PointStore{
		capacity:    DefaultCapacity,
		summaryTTL:  DefaultSummaryTTL,
		now:         time.Now,
		points:      make(map[string][]models.DataPoint),
		generations: make(map[string]uint64),
		summaries:   make(map[string]map[string]cachedSummary),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends a point, evicting the oldest inserted points beyond
// capacity. Cached summaries for the subject are dropped under the same lock.
func (s *PointStore) Record(subjectID string, point models.DataPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pts := append(s.points[subjectID], point)
	if len(pts) > s.capacity {
		pts = pts[len(pts)-s.capacity:]
	}
	s.points[subjectID] = pts

	s.generations[subjectID]++
	delete(s.summaries, subjectID)
}

// Query returns the subject's points with Timestamp >= since, in insertion order
func (s *PointStore) Query(subjectID string, since time.Time) []models.DataPoint {
	pts, _ := s.Snapshot(subjectID, since)
	return pts
}

// Snapshot is Query plus the subject generation the copy was taken at
func (s *PointStore) Snapshot(subjectID string, since time.Time) ([]models.DataPoint, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.points[subjectID]
	out := make([]models.DataPoint, 0, len(src))
	for _, p := range src {
		if !p.Timestamp.Before(since) {
			out = append(out, p)
		}
	}
	return out, s.generations[subjectID]
}

// Reset drops every point and cached summary held for a subject
func (s *PointStore) Reset(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.points, subjectID)
	delete(s.summaries, subjectID)
	// The generation keeps counting so that in-flight summaries are rejected.
	s.generations[subjectID]++
}

// Len returns the number of points buffered for a subject
func (s *PointStore) Len(subjectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points[subjectID])
}

// Subjects returns the IDs of subjects with buffered points, sorted
func (s *PointStore) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.points))
	for id, pts := range s.points {
		if len(pts) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CachedSummary returns a summary stored for key if it is still current.
// Returned summaries are shared and must not be mutated.
func (s *PointStore) CachedSummary(subjectID, key string) (*models.EvolutionSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.summaries[subjectID][key]
	if !ok {
		return nil, false
	}
	if entry.generation != s.generations[subjectID] {
		return nil, false
	}
	if s.summaryTTL > 0 && s.now().Sub(entry.storedAt) > s.summaryTTL {
		return nil, false
	}
	return entry.summary, true
}

// StoreSummary caches summary under key unless the subject has been written
// to since generation was observed. It reports whether the entry was kept.
func (s *PointStore) StoreSummary(subjectID, key string, generation uint64, summary *models.EvolutionSummary) bool {
	if s.summaryTTL <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generations[subjectID] {
		return false
	}
	if s.summaries[subjectID] == nil {
		s.summaries[subjectID] = make(map[string]cachedSummary)
	}
	s.summaries[subjectID][key] = cachedSummary{
		summary:    summary,
		generation: generation,
		storedAt:   s.now(),
	}
	return true
}
