package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Every document-scoped tool takes the same pair of addressing arguments.
func targetArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("key", mcp.Description("Document key (SHA-256 of the audio file). Mutually exclusive with audio.")),
		mcp.WithString("audio", mcp.Description("Path to the audio file; it is hashed to find the key. Mutually exclusive with key.")),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	return mcp.NewTool(name, all...)
}

func targeted(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return tool(name, description, append(targetArgs(), opts...)...)
}

var importToolDef = targeted("document_import",
	"Replace a document's segments with RTTM speaker labels, creating the document if needed. Manual speakers survive; undo history is cleared.",
	mcp.WithString("text", mcp.Description("Inline RTTM text. Mutually exclusive with path.")),
	mcp.WithString("path", mcp.Description("Path to a .rttm or .txt label file in the exports dir or an allowed path.")),
	mcp.WithNumber("duration", mcp.Description("Audio duration in seconds. When set, labels that do not fit are refused with DURATION_MISMATCH.")),
	mcp.WithBoolean("force", mcp.Description("Import even when the labels do not fit the duration.")),
)

var fetchToolDef = targeted("document_fetch",
	"Fetch a stored document: segments, speakers and history depth.",
	mcp.WithBoolean("include_history", mcp.Description("Include the undo and redo snapshots.")),
	mcp.WithBoolean("include_labels", mcp.Description("Include the document serialized as RTTM.")),
)

var listToolDef = tool("document_list",
	"List stored documents, most recently used first.",
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100).")),
	mcp.WithNumber("offset", mcp.Description("Number of documents to skip.")),
)

var exportToolDef = targeted("document_export",
	"Write a document's segments to an .rttm file. Defaults to the exports dir.",
	mcp.WithString("path", mcp.Description("Destination .rttm path, directly inside the exports dir or an allowed path.")),
	mcp.WithString("recording_name", mcp.Description("Value of the file column in every line.")),
)

var checkToolDef = targeted("document_check",
	"Compare labels against an audio duration. Checks a stored document, or inline text / a label file when no key or audio is given.",
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Audio duration in seconds.")),
	mcp.WithString("text", mcp.Description("Inline RTTM text to check instead of a stored document.")),
	mcp.WithString("path", mcp.Description("Label file to check instead of a stored document.")),
)

var deleteToolDef = targeted("document_delete",
	"Delete a stored document.",
)

var segmentCreateToolDef = targeted("segment_create",
	"Add a segment to a speaker lane. Refused (changed:false) when it overlaps the lane.",
	mcp.WithString("speaker_id", mcp.Required(), mcp.Description("Speaker lane.")),
	mcp.WithNumber("start_time", mcp.Required(), mcp.Description("Start in seconds.")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Length in seconds.")),
)

var segmentUpdateToolDef = targeted("segment_update",
	"Resize and/or relabel a segment. Resizes clamp to lane neighbors; relabels that would overlap are refused.",
	mcp.WithString("segment_id", mcp.Required(), mcp.Description("Segment id.")),
	mcp.WithNumber("start_time", mcp.Description("New start in seconds; the end stays fixed.")),
	mcp.WithNumber("duration", mcp.Description("New length in seconds.")),
	mcp.WithString("speaker_id", mcp.Description("New speaker lane.")),
)

var segmentDeleteToolDef = targeted("segment_delete",
	"Delete a segment.",
	mcp.WithString("segment_id", mcp.Required(), mcp.Description("Segment id.")),
)

var speakerAddToolDef = targeted("speaker_add",
	"Add an empty speaker lane with the next free SPEAKER_NN id.",
)

var speakerRemoveToolDef = targeted("speaker_remove",
	"Remove an empty manually added speaker lane.",
	mcp.WithString("speaker_id", mcp.Required(), mcp.Description("Speaker to remove.")),
)

var speakerRenameToolDef = targeted("speaker_rename",
	"Rename a speaker. Refused when the new name is already in use.",
	mcp.WithString("from", mcp.Required(), mcp.Description("Current speaker id.")),
	mcp.WithString("to", mcp.Required(), mcp.Description("New speaker id.")),
)

var speakerMergeToolDef = targeted("speaker_merge",
	"Merge one speaker into another. Overlapping or touching segments are coalesced.",
	mcp.WithString("source", mcp.Required(), mcp.Description("Speaker to fold away.")),
	mcp.WithString("into", mcp.Required(), mcp.Description("Speaker that receives the segments.")),
)

var undoToolDef = targeted("history_undo",
	"Undo the most recent edit of a document.",
)

var redoToolDef = targeted("history_redo",
	"Redo the most recently undone edit of a document.",
)

var gestureReplayToolDef = targeted("gesture_replay",
	"Replay a recorded drag gesture (resize-left, resize-right or relabel) against a document.",
	mcp.WithObject("gesture", mcp.Required(), mcp.Description(
		`Recorded gesture: {"kind", "segment_id", "viewport": {"left", "scroll_left", "pixels_per_second"}, `+
			`"lanes": [{"speaker_id", "top", "bottom"}], "moves": [{"x", "y"}], "end": "release"|"cancel"}.`)),
)
