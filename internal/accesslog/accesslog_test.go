package accesslog

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewEvent_NeverCarriesPin(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	ev := NewEvent("door", "main", "peter", true, at)

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(data)), "pin") {
		t.Errorf("event payload mentions a pin: %s", data)
	}
	if ev.At != at.UnixMilli() {
		t.Errorf("At = %d, want %d", ev.At, at.UnixMilli())
	}
}

func TestNewEvent_OmitsUnknownOwner(t *testing.T) {
	t.Parallel()

	ev := NewEvent("door", "main", "", false, time.Now())
	data, _ := json.Marshal(ev)
	if strings.Contains(string(data), `"owner"`) {
		t.Errorf("expected owner to be omitted: %s", data)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Record(Event{DoorID: "main"})
	r.Record(Event{DoorID: "gym"})

	events := r.Events()
	if len(events) != 2 || events[1].DoorID != "gym" {
		t.Errorf("Events() = %+v", events)
	}

	events[0].DoorID = "changed"
	if r.Events()[0].DoorID != "main" {
		t.Error("Events() should return a copy")
	}
}
