// Package store persists annotation records per audio hash.
//
// All records live in one envelope {version, entries, order} under a single
// backend key. order lists keys from least to most recently touched; loads
// and saves both touch, and saves evict from the front once the envelope
// holds more than the configured capacity.
//
// Every read validates each entry individually. Entries that fail are
// dropped and their keys reported by RecentlyRemoved. An envelope without
// a version is upgraded in place; one from a newer version, or one that
// does not parse, is replaced by an empty store.
package store

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/segment"
	"github.com/hpungsan/diarist/internal/validation"
)

const (
	// Key is the backend key holding the envelope.
	Key = "diarist.annotations"
	// CurrentVersion is the envelope version this build writes.
	CurrentVersion = 1
	// DefaultCapacity is how many audio files keep their annotations.
	DefaultCapacity = 10
)

type envelope struct {
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
	Order   []string                   `json:"order"`
}

type rawEnvelope struct {
	Version *int                       `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
	Order   []string                   `json:"order"`
}

// Summary describes one stored record without its history.
type Summary struct {
	Key          string `json:"key"`
	FileName     string `json:"file_name,omitempty"`
	SavedAt      int64  `json:"saved_at"`
	SegmentCount int    `json:"segment_count"`
	SpeakerCount int    `json:"speaker_count"`
	HistoryDepth int    `json:"history_depth"`
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the LRU capacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger used for repairs and migrations.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for savedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the LRU record store.
type Store struct {
	backend  Backend
	capacity int
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	removed []string
}

// New creates a Store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		capacity: DefaultCapacity,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the LRU capacity.
func (s *Store) Capacity() int { return s.capacity }

// RecentlyRemoved returns the keys of entries dropped as invalid by the
// most recent read that dropped any.
func (s *Store) RecentlyRemoved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.removed)
}

// Load returns the record for key and marks it most recently used.
// Records come back exactly as stored; use Restore before handing them to
// an engine.
func (s *Store) Load(ctx context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.readLocked(ctx)
	if err != nil {
		return Record{}, false, err
	}
	raw, ok := env.Entries[key]
	if !ok {
		return Record{}, false, nil
	}
	rec, ok := decodeEntry(raw)
	if !ok {
		return Record{}, false, nil
	}

	touch(env, key)
	if err := s.writeLocked(ctx, env); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to record access order")
	}
	return rec, true, nil
}

// Save stores rec under key, stamping SavedAt, and evicts the least
// recently used entries beyond capacity. Returns the stamped record.
func (s *Store) Save(ctx context.Context, key string, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.readLocked(ctx)
	if err != nil {
		return Record{}, err
	}

	rec.Segments = segment.Clone(rec.Segments)
	if rec.ManualSpeakers == nil {
		rec.ManualSpeakers = []string{}
	}
	rec.History = nonNil(rec.History)
	rec.Future = nonNil(rec.Future)
	rec.SavedAt = s.now().UnixMilli()

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}
	env.Entries[key] = data
	touch(env, key)
	for _, evicted := range s.evict(env) {
		s.log.Debug().Str("key", evicted).Msg("evicted least recently used record")
	}

	if err := s.writeLocked(ctx, env); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes key. Returns false when it was not stored.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.readLocked(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := env.Entries[key]; !ok {
		return false, nil
	}
	delete(env.Entries, key)
	env.Order = slices.DeleteFunc(env.Order, func(k string) bool { return k == key })
	return true, s.writeLocked(ctx, env)
}

// List returns a summary of every record, most recently used first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.readLocked(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(env.Order))
	for i := len(env.Order) - 1; i >= 0; i-- {
		key := env.Order[i]
		rec, ok := decodeEntry(env.Entries[key])
		if !ok {
			continue
		}
		out = append(out, Summary{
			Key:          key,
			FileName:     rec.FileName,
			SavedAt:      rec.SavedAt,
			SegmentCount: len(rec.Segments),
			SpeakerCount: len(segment.Speakers(rec.Segments, rec.ManualSpeakers)),
			HistoryDepth: len(rec.History),
		})
	}
	return out, nil
}

// readLocked loads the envelope, repairing and writing it back when needed.
func (s *Store) readLocked(ctx context.Context) (*envelope, error) {
	env := &envelope{Version: CurrentVersion, Entries: map[string]json.RawMessage{}, Order: []string{}}

	data, found, err := s.backend.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	if !found {
		return env, nil
	}

	repaired := false
	var raw rawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn().Err(err).Msg("annotation store unreadable, starting empty")
		repaired = true
	} else {
		switch {
		case raw.Version == nil || *raw.Version < 1:
			entries := raw.Entries
			if entries == nil && raw.Version == nil {
				entries = legacyEntries(data)
			}
			if entries != nil {
				env.Entries = entries
			}
			env.Order = raw.Order
			repaired = true
			s.log.Info().Int("version", CurrentVersion).Msg("upgraded unversioned annotation store")
		case *raw.Version > CurrentVersion:
			s.log.Warn().Int("version", *raw.Version).Msg("annotation store written by a newer version, starting empty")
			repaired = true
		default:
			if raw.Entries != nil {
				env.Entries = raw.Entries
			}
			env.Order = raw.Order
		}
	}

	if removed := dropInvalid(env); len(removed) > 0 {
		s.removed = removed
		repaired = true
		s.log.Warn().Strs("keys", removed).Msg("dropped invalid annotation records")
	}
	if normalizeOrder(env) {
		repaired = true
	}
	if len(s.evict(env)) > 0 {
		repaired = true
	}

	if repaired {
		if err := s.writeLocked(ctx, env); err != nil {
			s.log.Warn().Err(err).Msg("failed to write repaired annotation store")
		}
	}
	return env, nil
}

func (s *Store) writeLocked(ctx context.Context, env *envelope) error {
	env.Version = CurrentVersion
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, Key, data)
}

// evict drops entries from the front of the order until capacity is met.
func (s *Store) evict(env *envelope) []string {
	var evicted []string
	for len(env.Order) > s.capacity {
		key := env.Order[0]
		env.Order = env.Order[1:]
		delete(env.Entries, key)
		evicted = append(evicted, key)
	}
	return evicted
}

// legacyEntries reads a pre-envelope store where records sat at the top level.
func legacyEntries(data []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	delete(m, "order")
	delete(m, "version")
	delete(m, "entries")
	return m
}

func decodeEntry(raw json.RawMessage) (Record, bool) {
	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return Record{}, false
	}
	if err := validation.Struct(w); err != nil {
		return Record{}, false
	}
	return w.record(), true
}

func dropInvalid(env *envelope) []string {
	var removed []string
	for key, raw := range env.Entries {
		if _, ok := decodeEntry(raw); !ok {
			delete(env.Entries, key)
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	return removed
}

// normalizeOrder makes order list every entry exactly once. Keys missing
// from order are placed oldest first by savedAt. Reports whether anything changed.
func normalizeOrder(env *envelope) bool {
	seen := make(map[string]bool, len(env.Order))
	order := make([]string, 0, len(env.Entries))
	for _, k := range env.Order {
		if _, ok := env.Entries[k]; ok && !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	var missing []string
	for k := range env.Entries {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		a, b := savedAt(env.Entries[missing[i]]), savedAt(env.Entries[missing[j]])
		if a != b {
			return a < b
		}
		return missing[i] < missing[j]
	})
	order = append(order, missing...)

	changed := !slices.Equal(order, env.Order)
	env.Order = order
	return changed
}

func savedAt(raw json.RawMessage) float64 {
	var v struct {
		SavedAt float64 `json:"savedAt"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.SavedAt
}

func touch(env *envelope, key string) {
	env.Order = slices.DeleteFunc(env.Order, func(k string) bool { return k == key })
	env.Order = append(env.Order, key)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
