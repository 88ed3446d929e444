package stream

import "testing"

func TestParseLineIgnoresNonDataLines(t *testing.T) {
	for _, line := range []string{
		"",
		": keep-alive",
		"event: message",
		"id: 42",
		"random noise",
	} {
		if _, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) ok = true, want ignored", line)
		}
	}
}

func TestParseLineDropsMalformedJSON(t *testing.T) {
	if _, ok := ParseLine("data: {not json"); ok {
		t.Error("expected malformed JSON to be dropped")
	}
	if _, ok := ParseLine("data: [DONE]"); ok {
		t.Error("expected non-object payload to be dropped")
	}
}

func TestParseLineDropsUnknownType(t *testing.T) {
	if _, ok := ParseLine(`data: {"type":"heartbeat"}`); ok {
		t.Error("expected unknown type to be dropped")
	}
	if _, ok := ParseLine(`data: {"content":"no type"}`); ok {
		t.Error("expected missing type to be dropped")
	}
}

func TestParseLineStart(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"start"}`)
	if !ok {
		t.Fatal("expected start event")
	}
	if ev.Type != EventStart {
		t.Errorf("Type = %q, want start", ev.Type)
	}
}

func TestParseLineChunk(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"chunk","content":"Eco","progress":0.3}`)
	if !ok {
		t.Fatal("expected chunk event")
	}
	if ev.Type != EventChunk {
		t.Errorf("Type = %q, want chunk", ev.Type)
	}
	if ev.Content != "Eco" {
		t.Errorf("Content = %q, want Eco", ev.Content)
	}
	if ev.Progress == nil || *ev.Progress != 0.3 {
		t.Errorf("Progress = %v, want 0.3", ev.Progress)
	}
}

func TestParseLineChunkWithoutProgress(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"chunk","content":"Smart"}`)
	if !ok {
		t.Fatal("expected chunk event")
	}
	if ev.Progress != nil {
		t.Errorf("Progress = %v, want nil when unreported", ev.Progress)
	}
}

func TestParseLineTitleAndContentChars(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"title_char","content":"E"}`)
	if !ok || ev.Type != EventTitleChar || ev.Content != "E" {
		t.Errorf("title_char = %+v ok=%v", ev, ok)
	}

	ev, ok = ParseLine(`data: {"type":"content_char","content":"c"}`)
	if !ok || ev.Type != EventContentChar || ev.Content != "c" {
		t.Errorf("content_char = %+v ok=%v", ev, ok)
	}
}

func TestParseLineComplete(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"complete","idea":{"id":"42","title":"EcoSmartCity","content":"...","category":"business","generation_method":"streaming"}}`)
	if !ok {
		t.Fatal("expected complete event")
	}
	if ev.Type != EventComplete {
		t.Errorf("Type = %q, want complete", ev.Type)
	}
	if ev.Idea == nil {
		t.Fatal("expected embedded idea")
	}
	if ev.Idea.ID != "42" {
		t.Errorf("Idea.ID = %q, want 42", ev.Idea.ID)
	}
	if ev.Idea.GenerationMethod != "streaming" {
		t.Errorf("GenerationMethod = %q, want streaming", ev.Idea.GenerationMethod)
	}
}

func TestParseLineError(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"error","error":"model overloaded"}`)
	if !ok {
		t.Fatal("expected error event")
	}
	if ev.Type != EventError {
		t.Errorf("Type = %q, want error", ev.Type)
	}
	if ev.Message != "model overloaded" {
		t.Errorf("Message = %q, want model overloaded", ev.Message)
	}
}

func TestParseLineIgnoresIrrelevantFields(t *testing.T) {
	ev, ok := ParseLine(`data: {"type":"start","content":"x","progress":0.9,"error":"y"}`)
	if !ok {
		t.Fatal("expected start event")
	}
	if ev.Type != EventStart {
		t.Errorf("Type = %q, want start", ev.Type)
	}
}
