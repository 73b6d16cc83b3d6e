package editor

import (
	"github.com/hpungsan/diarist/internal/segment"
)

// pushHistoryLocked records the pre-mutation state and invalidates redo.
func (e *Engine) pushHistoryLocked() {
	e.history = pushCapped(e.history, e.snapshotLocked(), e.historyLimit)
	e.future = []Snapshot{}
}

// pushCapped prepends snap and drops the oldest entries beyond limit.
func pushCapped(stack []Snapshot, snap Snapshot, limit int) []Snapshot {
	out := make([]Snapshot, 0, min(len(stack)+1, limit))
	out = append(out, snap)
	out = append(out, stack...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) applyLocked(snap Snapshot) {
	e.segments = segment.Clone(snap.Segments)
	e.manualSpeakers = cloneStrings(snap.ManualSpeakers)
	e.recomputeLocked()
}

// Undo restores the most recent history snapshot and moves the current
// state onto the redo stack. Returns false when there is nothing to undo.
func (e *Engine) Undo() bool {
	return e.commit(func() bool {
		if len(e.history) == 0 {
			return false
		}
		prev := e.history[0]
		e.history = e.history[1:]
		e.future = pushCapped(e.future, e.snapshotLocked(), e.historyLimit)
		e.applyLocked(prev)
		return true
	})
}

// Redo re-applies the most recently undone snapshot.
func (e *Engine) Redo() bool {
	return e.commit(func() bool {
		if len(e.future) == 0 {
			return false
		}
		next := e.future[0]
		e.future = e.future[1:]
		e.history = pushCapped(e.history, e.snapshotLocked(), e.historyLimit)
		e.applyLocked(next)
		return true
	})
}

// CanUndo reports whether Undo would change anything.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history) > 0
}

// CanRedo reports whether Redo would change anything.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.future) > 0
}

// SetSegments replaces the whole document, e.g. on a fresh import.
// History and future are cleared: an import is not undoable.
func (e *Engine) SetSegments(segs []segment.Segment) {
	e.commit(func() bool {
		e.segments = segment.Clone(segs)
		e.history = []Snapshot{}
		e.future = []Snapshot{}
		e.drag = nil
		e.recomputeLocked()
		return true
	})
}

// RestoreWithHistory bulk-sets the document and both stacks without
// recording anything. Used when reloading a persisted document.
func (e *Engine) RestoreWithHistory(segs []segment.Segment, manual []string, history, future []Snapshot) {
	e.commit(func() bool {
		e.segments = segment.Clone(segs)
		e.manualSpeakers = cloneStrings(manual)
		e.history = capSnapshots(history, e.historyLimit)
		e.future = capSnapshots(future, e.historyLimit)
		e.drag = nil
		e.recomputeLocked()
		return true
	})
}

// Reset empties the document and both stacks.
func (e *Engine) Reset() {
	e.RestoreWithHistory(nil, nil, nil, nil)
}

func capSnapshots(snaps []Snapshot, limit int) []Snapshot {
	out := cloneSnapshots(snaps)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
