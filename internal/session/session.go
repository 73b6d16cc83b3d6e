// Package session ties one editor engine to its drag controller, the
// record store and a playback transport.
//
// Loading audio hashes the bytes in the background. Each load supersedes
// the ones before it: a hash that finishes after a newer load has started
// is discarded and never becomes the current key.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/drag"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/rttm"
	"github.com/hpungsan/diarist/internal/store"
)

// Option configures a Session.
type Option func(*Session)

// WithTransport injects the playback transport. Defaults to a VirtualTransport.
func WithTransport(t Transport) Option {
	return func(s *Session) { s.transport = t }
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithAutosaveDelay sets the debounce delay for autosave.
func WithAutosaveDelay(d time.Duration) Option {
	return func(s *Session) { s.autosaveDelay = d }
}

// WithRecordingName sets the name written into exported label files.
func WithRecordingName(name string) Option {
	return func(s *Session) { s.recordingName = name }
}

// WithSurface sets the geometry the drag controller measures against.
func WithSurface(surface drag.Surface) Option {
	return func(s *Session) { s.surface = surface }
}

// Session is one interactive editing session.
type Session struct {
	engine    *editor.Engine
	drag      *drag.Controller
	store     *store.Store
	autosave  *Autosaver
	transport Transport
	log       zerolog.Logger

	autosaveDelay time.Duration
	recordingName string
	surface       drag.Surface

	mu       sync.Mutex
	gen      uint64
	loading  bool
	key      string
	fileName string
}

// Loaded reports the outcome of LoadAudio.
type Loaded struct {
	Key      string `json:"key,omitempty"`
	FileName string `json:"file_name,omitempty"`
	// Restored is true when a stored record was applied.
	Restored bool `json:"restored"`
	// Stale is true when a newer load superseded this one; nothing was applied.
	Stale bool  `json:"stale"`
	Err   error `json:"-"`
}

// New creates a session over engine, persisting through st.
func New(engine *editor.Engine, st *store.Store, opts ...Option) *Session {
	s := &Session{
		engine:        engine,
		store:         st,
		log:           zerolog.Nop(),
		autosaveDelay: DefaultAutosaveDelay,
		recordingName: rttm.DefaultName,
		surface:       drag.StaticSurface{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transport == nil {
		s.transport = NewVirtualTransport()
	}

	s.drag = drag.New(engine, s.surface, drag.WithLogger(s.log))
	s.autosave = NewAutosaver(engine, st, s.autosaveDelay, s.log)
	return s
}

// Engine returns the session engine.
func (s *Session) Engine() *editor.Engine { return s.engine }

// Drag returns the session drag controller.
func (s *Session) Drag() *drag.Controller { return s.drag }

// Transport returns the injected transport.
func (s *Session) Transport() Transport { return s.transport }

// Store returns the record store.
func (s *Session) Store() *store.Store { return s.store }

// AudioKey returns the hash of the current audio, or "" before any load completes.
func (s *Session) AudioKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// FileName returns the name of the current audio file.
func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// Loading reports whether a hash is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoadAudio hashes r in the background and switches the session to that
// audio: its stored record is restored with fresh ids, or the document is
// reset when none exists. The returned channel yields exactly one Loaded.
func (s *Session) LoadAudio(ctx context.Context, fileName string, r io.Reader) <-chan Loaded {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	out := make(chan Loaded, 1)
	go func() {
		defer close(out)
		out <- s.finishLoad(ctx, gen, fileName, r)
	}()
	return out
}

func (s *Session) finishLoad(ctx context.Context, gen uint64, fileName string, r io.Reader) Loaded {
	key, hashErr := HashAudio(ctx, r)

	// Holding mu across the apply keeps a newer completion from interleaving.
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.log.Debug().Str("file", fileName).Msg("discarded superseded audio hash")
		return Loaded{Key: key, FileName: fileName, Stale: true}
	}
	s.loading = false
	if hashErr != nil {
		return Loaded{FileName: fileName, Err: hashErr}
	}

	s.autosave.SetKey(key, fileName)
	s.key = key
	s.fileName = fileName

	res := Loaded{Key: key, FileName: fileName}
	rec, found, err := s.store.Load(ctx, key)
	if err != nil {
		// Storage trouble never blocks editing.
		s.log.Warn().Err(err).Str("key", key).Msg("could not read stored annotations")
	}
	if found {
		store.Apply(s.engine, store.Restore(rec))
		res.Restored = true
	} else {
		s.engine.Reset()
	}

	s.log.Info().Str("key", key).Str("file", fileName).Bool("restored", res.Restored).Msg("audio loaded")
	return res
}

// HashAudio returns the hex SHA-256 of r, stopping early when ctx is done.
func HashAudio(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, ctxReader{ctx: ctx, r: r}); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ImportResult describes an accepted or refused label import.
type ImportResult struct {
	Imported int           `json:"imported"`
	Speakers []string      `json:"speakers"`
	Check    rttm.Mismatch `json:"check"`
}

// ImportLabels parses label text and replaces the document with it. When
// the audio duration is known and the labels do not fit it, the import is
// refused with DURATION_MISMATCH unless force is set.
func (s *Session) ImportLabels(text string, force bool) (ImportResult, error) {
	segs := rttm.Parse(text)
	check := rttm.CheckMismatch(segs, s.transport.Duration())
	res := ImportResult{Imported: len(segs), Speakers: rttm.SpeakerIDs(segs), Check: check}

	if check.Mismatch && !force {
		return res, errors.NewDurationMismatch(check.Message, map[string]any{
			"kind":           string(check.Kind),
			"gap":            check.Gap,
			"audio_duration": check.AudioDuration,
			"max_end_time":   check.MaxEndTime,
		})
	}

	s.engine.SetSegments(segs)
	s.log.Info().Int("segments", len(segs)).Bool("forced", force && check.Mismatch).Msg("labels imported")
	return res, nil
}

// ExportLabels serializes the current document.
func (s *Session) ExportLabels() string {
	return rttm.Serialize(s.engine.State().Segments, s.recordingName)
}

// SeekToSegment selects the segment and moves the playhead to its start.
func (s *Session) SeekToSegment(id string) bool {
	seg, ok := s.engine.Segment(id)
	if !ok {
		return false
	}
	s.engine.SelectSegment(id)
	s.transport.SeekTo(seg.StartTime)
	return true
}

// Flush writes any pending autosave now.
func (s *Session) Flush(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// Close flushes and detaches the autosaver.
func (s *Session) Close() error {
	return s.autosave.Close()
}
