package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/drag"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/ops"
	"github.com/hpungsan/diarist/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *store.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: st, cfg: cfg}
}

// Request types for each tool. Document-scoped requests embed ops.Target
// for the key/audio pair.

// ImportRequest represents the arguments for document_import.
type ImportRequest struct {
	ops.Target
	Text     string  `json:"text,omitempty"`
	Path     string  `json:"path,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Force    bool    `json:"force,omitempty"`
}

// FetchRequest represents the arguments for document_fetch.
type FetchRequest struct {
	ops.Target
	IncludeHistory bool `json:"include_history,omitempty"`
	IncludeLabels  bool `json:"include_labels,omitempty"`
}

// ListRequest represents the arguments for document_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for document_export.
type ExportRequest struct {
	ops.Target
	Path          string `json:"path,omitempty"`
	RecordingName string `json:"recording_name,omitempty"`
}

// CheckRequest represents the arguments for document_check.
type CheckRequest struct {
	ops.Target
	Duration float64 `json:"duration"`
	Text     string  `json:"text,omitempty"`
	Path     string  `json:"path,omitempty"`
}

// SegmentCreateRequest represents the arguments for segment_create.
type SegmentCreateRequest struct {
	ops.Target
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

// SegmentUpdateRequest represents the arguments for segment_update.
type SegmentUpdateRequest struct {
	ops.Target
	SegmentID string   `json:"segment_id"`
	StartTime *float64 `json:"start_time,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	SpeakerID *string  `json:"speaker_id,omitempty"`
}

// SegmentRequest represents the arguments for segment_delete.
type SegmentRequest struct {
	ops.Target
	SegmentID string `json:"segment_id"`
}

// SpeakerRequest represents the arguments for speaker_remove.
type SpeakerRequest struct {
	ops.Target
	SpeakerID string `json:"speaker_id"`
}

// RenameRequest represents the arguments for speaker_rename.
type RenameRequest struct {
	ops.Target
	From string `json:"from"`
	To   string `json:"to"`
}

// MergeRequest represents the arguments for speaker_merge.
type MergeRequest struct {
	ops.Target
	Source string `json:"source"`
	Into   string `json:"into"`
}

// GestureRequest represents the arguments for gesture_replay.
type GestureRequest struct {
	ops.Target
	Gesture drag.Gesture `json:"gesture"`
}

// Handler implementations

// HandleImport handles the document_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Import(ctx, h.store, h.cfg, ops.ImportInput{
		Target:   input.Target,
		Text:     input.Text,
		Path:     input.Path,
		Duration: input.Duration,
		Force:    input.Force,
	}))
}

// HandleFetch handles the document_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Fetch(ctx, h.store, h.cfg, ops.FetchInput{
		Target:         input.Target,
		IncludeHistory: input.IncludeHistory,
		IncludeLabels:  input.IncludeLabels,
	}))
}

// HandleList handles the document_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.List(ctx, h.store, ops.ListInput{Limit: input.Limit, Offset: input.Offset}))
}

// HandleExport handles the document_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Export(ctx, h.store, h.cfg, ops.ExportInput{
		Target:        input.Target,
		Path:          input.Path,
		RecordingName: input.RecordingName,
	}))
}

// HandleCheck handles the document_check tool call.
func (h *Handlers) HandleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Check(ctx, h.store, h.cfg, ops.CheckInput{
		Target:   input.Target,
		Text:     input.Text,
		Path:     input.Path,
		Duration: input.Duration,
	}))
}

// HandleDelete handles the document_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.Target](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.DeleteDocument(ctx, h.store, ops.DeleteInput{Target: input}))
}

// HandleSegmentCreate handles the segment_create tool call.
func (h *Handlers) HandleSegmentCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SegmentCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.CreateSegment(ctx, h.store, h.cfg, ops.CreateSegmentInput{
		Target:    input.Target,
		SpeakerID: input.SpeakerID,
		StartTime: input.StartTime,
		Duration:  input.Duration,
	}))
}

// HandleSegmentUpdate handles the segment_update tool call.
func (h *Handlers) HandleSegmentUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SegmentUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.UpdateSegment(ctx, h.store, h.cfg, ops.UpdateSegmentInput{
		Target:    input.Target,
		SegmentID: input.SegmentID,
		StartTime: input.StartTime,
		Duration:  input.Duration,
		SpeakerID: input.SpeakerID,
	}))
}

// HandleSegmentDelete handles the segment_delete tool call.
func (h *Handlers) HandleSegmentDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SegmentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.DeleteSegment(ctx, h.store, h.cfg, ops.DeleteSegmentInput{
		Target:    input.Target,
		SegmentID: input.SegmentID,
	}))
}

// HandleSpeakerAdd handles the speaker_add tool call.
func (h *Handlers) HandleSpeakerAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.Target](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.AddSpeaker(ctx, h.store, h.cfg, input))
}

// HandleSpeakerRemove handles the speaker_remove tool call.
func (h *Handlers) HandleSpeakerRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SpeakerRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.RemoveSpeaker(ctx, h.store, h.cfg, ops.SpeakerInput{
		Target:    input.Target,
		SpeakerID: input.SpeakerID,
	}))
}

// HandleSpeakerRename handles the speaker_rename tool call.
func (h *Handlers) HandleSpeakerRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.RenameSpeaker(ctx, h.store, h.cfg, ops.RenameSpeakerInput{
		Target: input.Target,
		From:   input.From,
		To:     input.To,
	}))
}

// HandleSpeakerMerge handles the speaker_merge tool call.
func (h *Handlers) HandleSpeakerMerge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MergeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.MergeSpeakers(ctx, h.store, h.cfg, ops.MergeSpeakersInput{
		Target: input.Target,
		Source: input.Source,
		Into:   input.Into,
	}))
}

// HandleUndo handles the history_undo tool call.
func (h *Handlers) HandleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.Target](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Undo(ctx, h.store, h.cfg, input))
}

// HandleRedo handles the history_redo tool call.
func (h *Handlers) HandleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.Target](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Redo(ctx, h.store, h.cfg, input))
}

// HandleGestureReplay handles the gesture_replay tool call.
func (h *Handlers) HandleGestureReplay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GestureRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.ReplayGesture(ctx, h.store, h.cfg, ops.GestureInput{
		Target:  input.Target,
		Gesture: input.Gesture,
	}))
}

// Result helpers

// result converts an ops return pair into a tool result.
func result[T any](data T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(data)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if dErr, ok := errors.As(err); ok {
		// Keep any context added by wrapping, e.g. "items[2]: ...".
		message := dErr.Message
		if prefix := strings.TrimSuffix(err.Error(), dErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    dErr.Code,
			"message": message,
			"status":  dErr.Status,
		}
		if dErr.Code != errors.ErrInternal && dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
