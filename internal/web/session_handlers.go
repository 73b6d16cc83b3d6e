package web

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hpungsan/diarist/internal/drag"
	"github.com/hpungsan/diarist/internal/editor"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/segment"
	"github.com/hpungsan/diarist/internal/session"
)

// Upload limits.
const (
	maxAudioBody = 2 << 30
	maxLabelBody = 16 << 20
)

// SessionState is the live session as seen by the browser.
type SessionState struct {
	Key               string                 `json:"key,omitempty"`
	FileName          string                 `json:"file_name,omitempty"`
	Loading           bool                   `json:"loading"`
	Segments          []segment.Segment      `json:"segments"`
	Speakers          []string               `json:"speakers"`
	ManualSpeakers    []string               `json:"manual_speakers"`
	SelectedSegmentID string                 `json:"selected_segment_id,omitempty"`
	LabelWidth        float64                `json:"label_width"`
	CanUndo           bool                   `json:"can_undo"`
	CanRedo           bool                   `json:"can_redo"`
	Drag              editor.DragKind        `json:"drag,omitempty"`
	Transport         session.TransportState `json:"transport"`
}

type mutationResponse struct {
	Changed   bool         `json:"changed"`
	SegmentID string       `json:"segment_id,omitempty"`
	SpeakerID string       `json:"speaker_id,omitempty"`
	State     SessionState `json:"state"`
}

func (h *Handlers) state() SessionState {
	s := h.session.Engine().State()
	out := SessionState{
		Key:               h.session.AudioKey(),
		FileName:          h.session.FileName(),
		Loading:           h.session.Loading(),
		Segments:          s.Segments,
		Speakers:          s.Speakers,
		ManualSpeakers:    s.ManualSpeakers,
		SelectedSegmentID: s.SelectedSegmentID,
		LabelWidth:        s.LabelWidth,
		CanUndo:           len(s.History) > 0,
		CanRedo:           len(s.Future) > 0,
		Transport:         transportState(h.session.Transport()),
	}
	if s.Drag != nil {
		out.Drag = s.Drag.Kind()
	}
	segment.SortByStart(out.Segments)
	return out
}

func transportState(t session.Transport) session.TransportState {
	if vt, ok := t.(*session.VirtualTransport); ok {
		return vt.State()
	}
	return session.TransportState{Position: t.CurrentTime(), Duration: t.Duration()}
}

func (h *Handlers) respond(w http.ResponseWriter, resp mutationResponse) {
	resp.State = h.state()
	renderJSON(w, http.StatusOK, resp)
}

// HandleSession handles GET /session: JSON state, or the session page.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	state := h.state()
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, state)
		return
	}
	title := "Session"
	if state.FileName != "" {
		title = state.FileName
	}
	h.renderer.renderPage(w, r, "session", SessionPageData{
		PageData: h.renderer.page(title, "session"),
		State:    state,
	})
}

// HandleLoadAudio handles POST /session/audio. The audio is either the raw
// body (named by ?name=) or the "audio" part of a multipart form. An
// optional ?duration= loads the virtual playhead.
func (h *Handlers) HandleLoadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBody)

	name := r.URL.Query().Get("name")
	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		part, err := formPart(r, "audio")
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		defer part.Close()
		if name == "" {
			name = part.FileName()
		}
		src = part
	}
	if name == "" {
		name = "audio"
	}

	loaded := <-h.session.LoadAudio(r.Context(), name, src)
	if loaded.Err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(loaded.Err, &tooLarge) {
			h.renderer.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("audio exceeds %d bytes", tooLarge.Limit)))
			return
		}
		h.renderer.renderError(w, r, errors.NewInternal(fmt.Errorf("hash audio: %w", loaded.Err)))
		return
	}

	if !loaded.Stale {
		if d, ok := parseFloatParam(r, "duration"); ok {
			if vt, ok := h.session.Transport().(*session.VirtualTransport); ok {
				vt.Load(d)
			}
		}
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"loaded": loaded,
		"state":  h.state(),
	})
}

// formPart returns the named part of a multipart request body.
func formPart(r *http.Request, field string) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid multipart body: %v", err))
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("form field %q is required", field))
		}
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid multipart body: %v", err))
		}
		if p.FormName() == field {
			return p, nil
		}
		_ = p.Close()
	}
}

// HandleImportLabels handles POST /session/labels. The body is RTTM text;
// ?force=true accepts labels that do not fit the audio duration.
func (h *Handlers) HandleImportLabels(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLabelBody))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("cannot read labels: %v", err)))
		return
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("labels are required"))
		return
	}

	res, err := h.session.ImportLabels(text, parseBoolParam(r, "force"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"import": res,
		"state":  h.state(),
	})
}

// HandleExportLabels handles GET /session/labels: download the session as RTTM.
func (h *Handlers) HandleExportLabels(w http.ResponseWriter, r *http.Request) {
	writeLabels(w, h.session.ExportLabels(), h.session.FileName(), h.session.AudioKey())
}

type createSegmentRequest struct {
	SpeakerID string  `json:"speaker_id" validate:"required"`
	StartTime float64 `json:"start_time" validate:"gte=0"`
	Duration  float64 `json:"duration" validate:"gt=0"`
}

// HandleCreateSegment handles POST /session/segments.
func (h *Handlers) HandleCreateSegment(w http.ResponseWriter, r *http.Request) {
	var req createSegmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	id, ok := h.session.Engine().CreateSegment(req.SpeakerID, req.StartTime, req.Duration)
	h.respond(w, mutationResponse{Changed: ok, SegmentID: id})
}

type updateSegmentRequest struct {
	StartTime *float64 `json:"start_time" validate:"omitempty,gte=0"`
	Duration  *float64 `json:"duration" validate:"omitempty,gt=0"`
	SpeakerID *string  `json:"speaker_id" validate:"omitempty,min=1"`
}

// HandleUpdateSegment handles PATCH /session/segments/{id}.
func (h *Handlers) HandleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	var req updateSegmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	ok := h.session.Engine().UpdateSegment(r.PathValue("id"), editor.Update{
		StartTime: req.StartTime,
		Duration:  req.Duration,
		SpeakerID: req.SpeakerID,
	})
	h.respond(w, mutationResponse{Changed: ok})
}

// HandleDeleteSegment handles DELETE /session/segments/{id}.
func (h *Handlers) HandleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	ok := h.session.Engine().DeleteSegment(r.PathValue("id"))
	h.respond(w, mutationResponse{Changed: ok})
}

// HandleSeekToSegment handles POST /session/segments/{id}/seek: select the
// segment and move the playhead to its start.
func (h *Handlers) HandleSeekToSegment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.session.SeekToSegment(id) {
		h.renderer.renderError(w, r, errors.NewNotFound("segment", id))
		return
	}
	h.respond(w, mutationResponse{SegmentID: id})
}

// HandleAddSpeaker handles POST /session/speakers.
func (h *Handlers) HandleAddSpeaker(w http.ResponseWriter, r *http.Request) {
	id := h.session.Engine().AddSpeaker()
	h.respond(w, mutationResponse{Changed: true, SpeakerID: id})
}

// HandleRemoveSpeaker handles DELETE /session/speakers/{id}.
func (h *Handlers) HandleRemoveSpeaker(w http.ResponseWriter, r *http.Request) {
	ok := h.session.Engine().RemoveSpeaker(r.PathValue("id"))
	h.respond(w, mutationResponse{Changed: ok})
}

type renameSpeakerRequest struct {
	To string `json:"to" validate:"required"`
}

// HandleRenameSpeaker handles POST /session/speakers/{id}/rename.
func (h *Handlers) HandleRenameSpeaker(w http.ResponseWriter, r *http.Request) {
	var req renameSpeakerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	ok := h.session.Engine().RenameSpeaker(r.PathValue("id"), req.To)
	h.respond(w, mutationResponse{Changed: ok, SpeakerID: req.To})
}

type mergeSpeakersRequest struct {
	Into string `json:"into" validate:"required"`
}

// HandleMergeSpeakers handles POST /session/speakers/{id}/merge.
func (h *Handlers) HandleMergeSpeakers(w http.ResponseWriter, r *http.Request) {
	var req mergeSpeakersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	ok := h.session.Engine().MergeSpeakers(r.PathValue("id"), req.Into)
	h.respond(w, mutationResponse{Changed: ok, SpeakerID: req.Into})
}

// HandleUndo handles POST /session/undo.
func (h *Handlers) HandleUndo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, mutationResponse{Changed: h.session.Engine().Undo()})
}

// HandleRedo handles POST /session/redo.
func (h *Handlers) HandleRedo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, mutationResponse{Changed: h.session.Engine().Redo()})
}

// HandleGesture handles POST /session/gesture: replay a recorded segment
// drag against the geometry it carries.
func (h *Handlers) HandleGesture(w http.ResponseWriter, r *http.Request) {
	var g drag.Gesture
	if err := decodeJSON(w, r, &g); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	engine := h.session.Engine()
	res := drag.Replay(engine, g, drag.WithLogger(h.log))
	if !res.Started && engine.DragState() != nil {
		h.renderer.renderError(w, r, errors.NewSessionBusy())
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"replay": res,
		"state":  h.state(),
	})
}

type labelWidthRequest struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// HandleLabelWidth handles POST /session/label-width: a complete drag of
// the label column edge from one x position to another.
func (h *Handlers) HandleLabelWidth(w http.ResponseWriter, r *http.Request) {
	var req labelWidthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	ctl := h.session.Drag()
	before := h.session.Engine().LabelWidth()
	ctl.StartLabelResize(req.From)
	width := ctl.MoveLabelResize(req.To)
	ctl.EndLabelResize()
	h.respond(w, mutationResponse{Changed: width != before})
}

// Transport actions.
const (
	actionPlayPause = "play_pause"
	actionSkip      = "skip"
	actionSeek      = "seek"
	actionRate      = "rate"
)

type transportRequest struct {
	Action string  `json:"action" validate:"required,oneof=play_pause skip seek rate"`
	Value  float64 `json:"value"`
}

// HandleTransport handles POST /session/transport.
func (h *Handlers) HandleTransport(w http.ResponseWriter, r *http.Request) {
	var req transportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	t := h.session.Transport()
	switch req.Action {
	case actionPlayPause:
		t.PlayPause()
	case actionSkip:
		t.Skip(req.Value)
	case actionSeek:
		t.SeekTo(req.Value)
	case actionRate:
		t.SetPlaybackRate(req.Value)
	}
	renderJSON(w, http.StatusOK, transportState(t))
}

// HandleSave handles POST /session/save: write any pending autosave now.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Flush(r.Context()); err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.NewUnavailable(err)
		}
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"saved": h.session.AudioKey() != "",
		"key":   h.session.AudioKey(),
	})
}
