package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/db"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/logging"
	"github.com/hpungsan/diarist/internal/ops"
	"github.com/hpungsan/diarist/internal/session"
	"github.com/hpungsan/diarist/internal/store"
)

// sha256("abc")
const abcKey = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

const twoSpeakers = `SPEAKER meeting 1 0.000 2.000 <NA> <NA> A <NA> <NA>
SPEAKER meeting 1 3.000 2.000 <NA> <NA> A <NA> <NA>
SPEAKER meeting 1 1.000 3.000 <NA> <NA> B <NA> <NA>`

func setupTest(t *testing.T) (*Handlers, http.Handler) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	st := store.New(db.NewBackend(database))
	sess := session.New(editor.New(), st, session.WithAutosaveDelay(time.Hour))
	t.Cleanup(func() { _ = sess.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	h := &Handlers{
		session:  sess,
		store:    st,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, "test", logging.Nop()),
		log:      logging.Nop(),
	}
	mux := http.NewServeMux()
	h.routes(mux)
	return h, mux
}

// seedDocument stores labels under abcKey and returns the key.
func seedDocument(t *testing.T, h *Handlers) string {
	t.Helper()
	out, err := ops.Import(context.Background(), h.store, h.cfg, ops.ImportInput{
		Target: ops.Target{Key: abcKey},
		Text:   twoSpeakers,
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return out.Key
}

func do(t *testing.T, mux http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

type stateBody struct {
	Changed   bool         `json:"changed"`
	SegmentID string       `json:"segment_id"`
	SpeakerID string       `json:"speaker_id"`
	State     SessionState `json:"state"`
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Status  int            `json:"status"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// --- documents ---

func TestHandleDocuments_ListsStored(t *testing.T) {
	h, mux := setupTest(t)
	seedDocument(t, h)

	rec := do(t, mux, "GET", "/documents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, abcKey[:12]) {
		t.Error("expected short key in response")
	}
	if !strings.Contains(body, "Documents") {
		t.Error("expected page title in response")
	}
}

func TestHandleDocuments_Empty(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "GET", "/documents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No stored documents") {
		t.Error("expected empty state message")
	}
}

func TestHandleDocuments_JSON(t *testing.T) {
	h, mux := setupTest(t)
	seedDocument(t, h)

	rec := do(t, mux, "GET", "/documents", "", "Accept", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.ListOutput
	decodeBody(t, rec, &out)
	if len(out.Items) != 1 || out.Items[0].Key != abcKey {
		t.Fatalf("items = %+v, want one item for abcKey", out.Items)
	}
	if out.Items[0].SegmentCount != 3 {
		t.Errorf("segment_count = %d, want 3", out.Items[0].SegmentCount)
	}
}

func TestHandleDocuments_HtmxReturnsContentOnly(t *testing.T) {
	h, mux := setupTest(t)
	seedDocument(t, h)

	rec := do(t, mux, "GET", "/documents", "", "HX-Request", "true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<!DOCTYPE html>") {
		t.Error("htmx response should not include the layout")
	}
}

func TestHandleReport_Found(t *testing.T) {
	h, mux := setupTest(t)
	key := seedDocument(t, h)

	rec := do(t, mux, "GET", "/documents/"+key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<table>") {
		t.Error("expected rendered speaker table")
	}
	if !strings.Contains(body, "<h2>Timeline</h2>") {
		t.Error("expected rendered timeline heading")
	}
}

func TestHandleReport_JSON(t *testing.T) {
	h, mux := setupTest(t)
	key := seedDocument(t, h)

	rec := do(t, mux, "GET", "/documents/"+key, "", "Accept", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		Key      string `json:"key"`
		Markdown string `json:"markdown"`
		Stats    []struct {
			SpeakerID string  `json:"speaker_id"`
			TalkTime  float64 `json:"talk_time"`
		} `json:"stats"`
	}
	decodeBody(t, rec, &out)
	if len(out.Stats) != 2 || out.Stats[0].SpeakerID != "A" || out.Stats[0].TalkTime != 4 {
		t.Errorf("stats = %+v, want A with 4s first", out.Stats)
	}
	if !strings.HasPrefix(out.Markdown, "# ") {
		t.Errorf("markdown = %q, want a heading", out.Markdown)
	}
}

func TestHandleReport_NotFound(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "GET", "/documents/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error 404") {
		t.Error("expected full error page")
	}
}

func TestHandleDocumentLabels(t *testing.T) {
	h, mux := setupTest(t)
	key := seedDocument(t, h)

	rec := do(t, mux, "GET", "/documents/"+key+"/rttm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, abcKey[:12]+".rttm") {
		t.Errorf("Content-Disposition = %q, want key-based file name", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "SPEAKER ") {
		t.Errorf("line = %q, want SPEAKER record", lines[0])
	}
}

func TestHandleDeleteDocument_JSON(t *testing.T) {
	h, mux := setupTest(t)
	key := seedDocument(t, h)

	rec := do(t, mux, "DELETE", "/documents/"+key, "", "Accept", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.DeleteOutput
	decodeBody(t, rec, &out)
	if !out.Deleted || out.Key != key {
		t.Errorf("delete = %+v, want deleted %s", out, key)
	}

	_, found, err := h.store.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Error("document still stored after delete")
	}
}

func TestHandleDeleteDocument_HtmxRequest(t *testing.T) {
	h, mux := setupTest(t)
	key := seedDocument(t, h)

	rec := do(t, mux, "DELETE", "/documents/"+key, "", "HX-Request", "true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/documents" {
		t.Errorf("HX-Redirect = %q, want /documents", got)
	}
}

func TestHandleDeleteDocument_DefaultRedirect(t *testing.T) {
	h, mux := setupTest(t)
	key := seedDocument(t, h)

	rec := do(t, mux, "DELETE", "/documents/"+key, "")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
}

func TestHandleDeleteDocument_NotFound_JSON(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "DELETE", "/documents/nope", "", "Accept", "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var out errorBody
	decodeBody(t, rec, &out)
	if out.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", out.Error.Code)
	}
}

// --- live session ---

func loadAudio(t *testing.T, mux http.Handler, query string) stateBody {
	t.Helper()
	rec := do(t, mux, "POST", "/session/audio?"+query, "abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("load audio: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out stateBody
	decodeBody(t, rec, &out)
	return out
}

func TestHandleLoadAudio_RawBody(t *testing.T) {
	_, mux := setupTest(t)

	out := loadAudio(t, mux, "name=meeting.wav&duration=10")
	if out.State.Key != abcKey {
		t.Errorf("key = %q, want %q", out.State.Key, abcKey)
	}
	if out.State.FileName != "meeting.wav" {
		t.Errorf("file name = %q, want meeting.wav", out.State.FileName)
	}
	if out.State.Transport.Duration != 10 {
		t.Errorf("duration = %v, want 10", out.State.Transport.Duration)
	}
}

func TestHandleLoadAudio_Multipart(t *testing.T) {
	_, mux := setupTest(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "call.mp3")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("abc"))
	_ = mw.Close()

	rec := do(t, mux, "POST", "/session/audio", buf.String(), "Content-Type", mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out stateBody
	decodeBody(t, rec, &out)
	if out.State.Key != abcKey || out.State.FileName != "call.mp3" {
		t.Errorf("state = %+v, want abcKey/call.mp3", out.State)
	}
}

func TestHandleLoadAudio_RestoresStored(t *testing.T) {
	h, mux := setupTest(t)
	seedDocument(t, h)

	rec := do(t, mux, "POST", "/session/audio?name=meeting.wav", "abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Loaded session.Loaded `json:"loaded"`
		State  SessionState   `json:"state"`
	}
	decodeBody(t, rec, &out)
	if !out.Loaded.Restored {
		t.Error("expected stored record to be restored")
	}
	if len(out.State.Segments) != 3 {
		t.Errorf("segments = %d, want 3", len(out.State.Segments))
	}
}

func TestHandleImportLabels_AndExport(t *testing.T) {
	_, mux := setupTest(t)
	loadAudio(t, mux, "name=meeting.wav&duration=5")

	rec := do(t, mux, "POST", "/session/labels", twoSpeakers)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Import session.ImportResult `json:"import"`
		State  SessionState         `json:"state"`
	}
	decodeBody(t, rec, &out)
	if out.Import.Imported != 3 {
		t.Errorf("imported = %d, want 3", out.Import.Imported)
	}
	if len(out.State.Speakers) != 2 {
		t.Errorf("speakers = %v, want 2", out.State.Speakers)
	}

	rec = do(t, mux, "GET", "/session/labels", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "meeting.rttm") {
		t.Errorf("Content-Disposition = %q, want meeting.rttm", got)
	}
	if n := strings.Count(rec.Body.String(), "SPEAKER "); n != 3 {
		t.Errorf("exported %d records, want 3", n)
	}
}

func TestHandleImportLabels_DurationMismatch(t *testing.T) {
	_, mux := setupTest(t)
	loadAudio(t, mux, "name=meeting.wav&duration=2")

	rec := do(t, mux, "POST", "/session/labels", twoSpeakers, "Accept", "application/json")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var out errorBody
	decodeBody(t, rec, &out)
	if out.Error.Code != "DURATION_MISMATCH" {
		t.Errorf("code = %q, want DURATION_MISMATCH", out.Error.Code)
	}
	if out.Error.Details["kind"] != "exceeds_audio" {
		t.Errorf("details = %v, want exceeds_audio kind", out.Error.Details)
	}

	rec = do(t, mux, "POST", "/session/labels?force=true", twoSpeakers)
	if rec.Code != http.StatusOK {
		t.Fatalf("forced import: status = %d", rec.Code)
	}
}

func TestHandleImportLabels_Empty(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/labels", "  \n", "Accept", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSegments_Lifecycle(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/segments", `{"speaker_id":"A","start_time":1,"duration":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created stateBody
	decodeBody(t, rec, &created)
	if !created.Changed || created.SegmentID == "" {
		t.Fatalf("create = %+v, want changed with id", created)
	}
	if created.State.SelectedSegmentID != created.SegmentID {
		t.Error("new segment should be selected")
	}

	// Overlap in the same lane is refused.
	rec = do(t, mux, "POST", "/session/segments", `{"speaker_id":"A","start_time":2,"duration":1}`)
	var overlap stateBody
	decodeBody(t, rec, &overlap)
	if overlap.Changed {
		t.Error("overlapping create should not change the document")
	}

	rec = do(t, mux, "PATCH", "/session/segments/"+created.SegmentID, `{"speaker_id":"B"}`)
	var updated stateBody
	decodeBody(t, rec, &updated)
	if !updated.Changed || updated.State.Segments[0].SpeakerID != "B" {
		t.Errorf("update = %+v, want relabel to B", updated)
	}

	rec = do(t, mux, "DELETE", "/session/segments/"+created.SegmentID, "")
	var deleted stateBody
	decodeBody(t, rec, &deleted)
	if !deleted.Changed || len(deleted.State.Segments) != 0 {
		t.Errorf("delete = %+v, want empty document", deleted)
	}

	rec = do(t, mux, "POST", "/session/undo", "")
	var undone stateBody
	decodeBody(t, rec, &undone)
	if !undone.Changed || len(undone.State.Segments) != 1 || !undone.State.CanRedo {
		t.Errorf("undo = %+v, want segment back with redo available", undone)
	}

	rec = do(t, mux, "POST", "/session/redo", "")
	var redone stateBody
	decodeBody(t, rec, &redone)
	if !redone.Changed || len(redone.State.Segments) != 0 {
		t.Errorf("redo = %+v, want segment deleted again", redone)
	}
}

func TestHandleCreateSegment_Invalid(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/segments", `{"speaker_id":"","start_time":1,"duration":0}`, "Accept", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var out errorBody
	decodeBody(t, rec, &out)
	if !strings.Contains(out.Error.Message, "speaker_id") {
		t.Errorf("message = %q, want speaker_id named", out.Error.Message)
	}
}

func TestHandleCreateSegment_UnknownField(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/segments", `{"speaker":"A","duration":1}`, "Accept", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSeekToSegment(t *testing.T) {
	_, mux := setupTest(t)
	loadAudio(t, mux, "name=meeting.wav&duration=10")
	do(t, mux, "POST", "/session/labels", twoSpeakers)

	rec := do(t, mux, "GET", "/session", "", "Accept", "application/json")
	var st SessionState
	decodeBody(t, rec, &st)
	var target string
	for _, s := range st.Segments {
		if s.SpeakerID == "B" {
			target = s.ID
		}
	}

	rec = do(t, mux, "POST", "/session/segments/"+target+"/seek", "")
	var out stateBody
	decodeBody(t, rec, &out)
	if out.State.SelectedSegmentID != target {
		t.Errorf("selected = %q, want %q", out.State.SelectedSegmentID, target)
	}
	if out.State.Transport.Position != 1 {
		t.Errorf("position = %v, want 1", out.State.Transport.Position)
	}

	rec = do(t, mux, "POST", "/session/segments/nope/seek", "", "Accept", "application/json")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown segment: status = %d, want 404", rec.Code)
	}
}

func TestHandleSpeakers(t *testing.T) {
	_, mux := setupTest(t)
	do(t, mux, "POST", "/session/labels", twoSpeakers)

	rec := do(t, mux, "POST", "/session/speakers", "")
	var added stateBody
	decodeBody(t, rec, &added)
	if added.SpeakerID == "" || len(added.State.Speakers) != 3 {
		t.Fatalf("add = %+v, want third speaker", added)
	}

	rec = do(t, mux, "DELETE", "/session/speakers/"+added.SpeakerID, "")
	var removed stateBody
	decodeBody(t, rec, &removed)
	if !removed.Changed || len(removed.State.Speakers) != 2 {
		t.Errorf("remove = %+v, want two speakers", removed)
	}

	rec = do(t, mux, "POST", "/session/speakers/A/rename", `{"to":"Alice"}`)
	var renamed stateBody
	decodeBody(t, rec, &renamed)
	if !renamed.Changed || renamed.State.Speakers[0] != "Alice" {
		t.Errorf("rename = %+v, want Alice", renamed.State.Speakers)
	}

	rec = do(t, mux, "POST", "/session/speakers/B/merge", `{"into":"Alice"}`)
	var merged stateBody
	decodeBody(t, rec, &merged)
	if !merged.Changed || len(merged.State.Speakers) != 1 {
		t.Errorf("merge = %+v, want one speaker", merged.State.Speakers)
	}
}

func TestHandleGesture_ResizeRight(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/segments", `{"speaker_id":"A","start_time":1,"duration":1}`)
	var created stateBody
	decodeBody(t, rec, &created)

	// 100 px/s behind the default 150 px label column: x=500 is t=3.5.
	gesture := `{"kind":"resize-right","segment_id":"` + created.SegmentID + `",
		"viewport":{"left":0,"scroll_left":0,"pixels_per_second":100},
		"moves":[{"x":500,"y":0}]}`
	rec = do(t, mux, "POST", "/session/gesture", gesture)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Replay struct {
			Committed bool `json:"committed"`
		} `json:"replay"`
		State SessionState `json:"state"`
	}
	decodeBody(t, rec, &out)
	if !out.Replay.Committed {
		t.Fatal("gesture should commit")
	}
	if got := out.State.Segments[0].Duration; got != 2.5 {
		t.Errorf("duration = %v, want 2.5", got)
	}
}

func TestHandleGesture_InvalidKind(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/gesture", `{"kind":"spin","segment_id":"x","viewport":{},"moves":[]}`, "Accept", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleLabelWidth_Clamped(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "POST", "/session/label-width", `{"from":150,"to":200}`)
	var out stateBody
	decodeBody(t, rec, &out)
	if !out.Changed || out.State.LabelWidth != 200 {
		t.Errorf("label width = %v, want 200", out.State.LabelWidth)
	}

	rec = do(t, mux, "POST", "/session/label-width", `{"from":0,"to":1000}`)
	decodeBody(t, rec, &out)
	if out.State.LabelWidth != editor.MaxLabelWidth {
		t.Errorf("label width = %v, want max %v", out.State.LabelWidth, editor.MaxLabelWidth)
	}
}

func TestHandleTransport(t *testing.T) {
	_, mux := setupTest(t)
	loadAudio(t, mux, "name=meeting.wav&duration=10")

	steps := []struct {
		body string
		want session.TransportState
	}{
		{`{"action":"play_pause"}`, session.TransportState{Playing: true, Duration: 10, Rate: 1}},
		{`{"action":"seek","value":4}`, session.TransportState{Playing: true, Position: 4, Duration: 10, Rate: 1}},
		{`{"action":"skip","value":100}`, session.TransportState{Playing: true, Position: 10, Duration: 10, Rate: 1}},
		{`{"action":"rate","value":9}`, session.TransportState{Playing: true, Position: 10, Duration: 10, Rate: session.MaxPlaybackRate}},
	}
	for _, step := range steps {
		rec := do(t, mux, "POST", "/session/transport", step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", step.body, rec.Code)
		}
		var got session.TransportState
		decodeBody(t, rec, &got)
		if got != step.want {
			t.Errorf("%s: state = %+v, want %+v", step.body, got, step.want)
		}
	}

	rec := do(t, mux, "POST", "/session/transport", `{"action":"rewind"}`, "Accept", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action: status = %d, want 400", rec.Code)
	}
}

func TestHandleSave_WritesStore(t *testing.T) {
	h, mux := setupTest(t)
	loadAudio(t, mux, "name=meeting.wav")
	do(t, mux, "POST", "/session/segments", `{"speaker_id":"A","start_time":0,"duration":1}`)

	rec := do(t, mux, "POST", "/session/save", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec2, found, err := h.store.Load(context.Background(), abcKey)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found || len(rec2.Segments) != 1 {
		t.Errorf("stored = %+v (found %v), want one segment", rec2, found)
	}
	if rec2.FileName != "meeting.wav" {
		t.Errorf("file name = %q, want meeting.wav", rec2.FileName)
	}
}

func TestHandleSession_Page(t *testing.T) {
	_, mux := setupTest(t)
	loadAudio(t, mux, "name=meeting.wav")
	do(t, mux, "POST", "/session/labels", twoSpeakers)

	rec := do(t, mux, "GET", "/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "meeting.wav") {
		t.Error("expected file name as title")
	}
	if !strings.Contains(body, "1.000") {
		t.Error("expected segment times in table")
	}
}

func TestRootRedirectsToSession(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "GET", "/", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/session" {
		t.Errorf("status = %d location = %q, want 302 /session", rec.Code, rec.Header().Get("Location"))
	}
}

// --- rendering ---

func TestErrorRendering_HtmxFragment(t *testing.T) {
	_, mux := setupTest(t)

	rec := do(t, mux, "GET", "/documents/nope", "", "HX-Request", "true")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), `<div class="error-message">`) {
		t.Errorf("body = %q, want error fragment", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	_, mux := setupTest(t)

	rec := httptest.NewRecorder()
	securityHeaders(mux).ServeHTTP(rec, httptest.NewRequest("GET", "/documents", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected X-Frame-Options: DENY")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("expected restrictive CSP")
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/documents?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 20); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("meeting.wav", abcKey); got != "meeting.wav" {
		t.Errorf("displayName = %q, want meeting.wav", got)
	}
	if got := displayName("", abcKey); got != abcKey[:12]+"..." {
		t.Errorf("displayName = %q, want truncated key", got)
	}
}
