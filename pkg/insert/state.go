package insert

import (
	"github.com/docker/mdattach/pkg/editor"
)

// State is the phase of a placeholder sequence.
type State int

const (
	StateIdle State = iota
	StatePlaceholderInserted
	StateUploading
	StateResolvedSuccess
	StateResolvedEmpty
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaceholderInserted:
		return "placeholder-inserted"
	case StateUploading:
		return "uploading"
	case StateResolvedSuccess:
		return "resolved-success"
	case StateResolvedEmpty:
		return "resolved-empty"
	default:
		return "unknown"
	}
}

// ProgressTopic is the pubsub topic Progress events are published on.
const ProgressTopic = "insert.progress"

// Progress reports a state change of the sequence running on Editor.
type Progress struct {
	Editor editor.Bridge
	State  State
	Span   editor.Span
	// Files names the attachments being uploaded, empty for links.
	Files []string
	// Inserted is the final text, set once resolved.
	Inserted string
}

// Publisher receives Progress events. *pubsub.Broker[Progress] implements it.
type Publisher interface {
	Publish(topic string, data Progress)
}

// Result describes how a sequence resolved.
type Result struct {
	State State
	// Span is where the placeholder was reserved.
	Span editor.Span
	// Inserted is the text that replaced the placeholder.
	Inserted string
	// Err is the upload failure that left the placeholder empty, if any.
	// It is informational: the document is already consistent.
	Err error
}
