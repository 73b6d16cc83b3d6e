package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/store"
)

// DefaultAutosaveDelay is the quiet period before a change is written.
const DefaultAutosaveDelay = 500 * time.Millisecond

// Saver persists a record under an audio key. *store.Store implements it.
type Saver interface {
	Save(ctx context.Context, key string, rec store.Record) (store.Record, error)
}

// Autosaver writes the engine document to a Saver after every change,
// debounced: each change restarts the timer, so a burst of edits produces
// one write. A write is skipped when the document and key match the last
// successful write.
type Autosaver struct {
	saver Saver
	delay time.Duration
	log   zerolog.Logger
	unsub func()

	mu       sync.Mutex
	key      string
	fileName string
	pending  *editor.Document
	revision uint64
	timer    *time.Timer
	closed   bool

	writeMu sync.Mutex
	last    string
}

// NewAutosaver subscribes to engine. Nothing is written until SetKey names a target.
func NewAutosaver(engine *editor.Engine, saver Saver, delay time.Duration, log zerolog.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	a := &Autosaver{saver: saver, delay: delay, log: log}
	a.unsub = engine.Subscribe(a.onChange)
	return a
}

// SetKey points future writes at key. Any pending change for the previous
// key is written first.
func (a *Autosaver) SetKey(key, fileName string) {
	if err := a.Flush(context.Background()); err != nil {
		a.log.Warn().Err(err).Msg("autosave flush before key change failed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = key
	a.fileName = fileName
}

// Key returns the current target key.
func (a *Autosaver) Key() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key
}

func (a *Autosaver) onChange(doc editor.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.key == "" {
		return
	}
	// A slower notifier can arrive after a newer document.
	if doc.Revision < a.revision {
		return
	}
	a.revision = doc.Revision
	a.pending = &doc
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
		return
	}
	a.timer.Reset(a.delay)
}

func (a *Autosaver) fire() {
	if err := a.Flush(context.Background()); err != nil {
		// The engine stays authoritative; the next change retries.
		a.log.Warn().Err(err).Msg("autosave failed")
	}
}

// Flush writes the pending change now, if there is one.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	doc, key, fileName := a.pending, a.key, a.fileName
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	if doc == nil || key == "" || isEmpty(*doc) {
		return nil
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	fp, err := fingerprint(*doc, key)
	if err != nil {
		return err
	}
	if fp == a.last {
		return nil
	}
	if _, err := a.saver.Save(ctx, key, store.FromDocument(*doc, fileName)); err != nil {
		return err
	}
	a.last = fp
	a.log.Debug().Str("key", key).Int("segments", len(doc.Segments)).Msg("autosaved")
	return nil
}

// Close stops listening and writes anything pending.
func (a *Autosaver) Close() error {
	a.unsub()
	err := a.Flush(context.Background())

	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return err
}

// isEmpty reports a document with no content and no history, which is
// never worth a store slot.
func isEmpty(doc editor.Document) bool {
	return len(doc.Segments) == 0 && len(doc.ManualSpeakers) == 0 && len(doc.History) == 0 && len(doc.Future) == 0
}

func fingerprint(doc editor.Document, key string) (string, error) {
	data, err := json.Marshal(struct {
		Doc editor.Document `json:"doc"`
		Key string          `json:"key"`
	}{doc, key})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
