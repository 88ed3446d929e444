package stream

import (
	"encoding/json"
	"strings"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/logging"
)

var log = logging.Get()

// EventType discriminates the parsed stream events.
type EventType string

const (
	EventStart       EventType = "start"
	EventChunk       EventType = "chunk"
	EventTitleChar   EventType = "title_char"
	EventContentChar EventType = "content_char"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is a single typed unit parsed from the transport. Events are
// transient: they live for one generation session and are never persisted.
type Event struct {
	Type     EventType
	Content  string      // chunk / title_char / content_char fragment
	Progress *float64    // chunk only, nil when the server reported none
	Idea     *ideas.Idea // complete only
	Message  string      // error only
}

// dataPrefix frames event records on the wire ("data: <json>\n").
const dataPrefix = "data: "

type payload struct {
	Type     string      `json:"type"`
	Content  string      `json:"content"`
	Progress *float64    `json:"progress"`
	Idea     *ideas.Idea `json:"idea"`
	Error    string      `json:"error"`
}

// ParseLine interprets one decoded line as a stream event. Lines without
// the data prefix (keep-alives, comments), malformed JSON, and unknown or
// missing type tags are dropped with ok=false: transport noise must not
// abort an otherwise healthy stream.
func ParseLine(line string) (Event, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}

	data := strings.TrimPrefix(line, dataPrefix)

	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		log.Debug("Dropping malformed stream record: %v", err)
		return Event{}, false
	}

	switch EventType(p.Type) {
	case EventStart:
		return Event{Type: EventStart}, true
	case EventChunk:
		return Event{Type: EventChunk, Content: p.Content, Progress: p.Progress}, true
	case EventTitleChar:
		return Event{Type: EventTitleChar, Content: p.Content}, true
	case EventContentChar:
		return Event{Type: EventContentChar, Content: p.Content}, true
	case EventComplete:
		return Event{Type: EventComplete, Idea: p.Idea}, true
	case EventError:
		return Event{Type: EventError, Message: p.Error}, true
	default:
		log.Debug("Dropping stream record with unknown type %q", p.Type)
		return Event{}, false
	}
}
