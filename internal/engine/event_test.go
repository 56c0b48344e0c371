package engine

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetaValue_EncodeDecode(t *testing.T) {
	md := map[string]MetaValue{
		"note":   MetaStr("morning run"),
		"indoor": MetaB(false),
		"reps":   MetaI(42),
		"miles":  MetaF(3.2),
	}

	raw, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]MetaValue
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got["note"].Kind != MetaString || got["note"].Str != "morning run" {
		t.Errorf("note = %+v, want string %q", got["note"], "morning run")
	}
	if got["indoor"].Kind != MetaBool || got["indoor"].Bool != false {
		t.Errorf("indoor = %+v, want bool false", got["indoor"])
	}
	if got["reps"].Kind != MetaInt || got["reps"].Int != 42 {
		t.Errorf("reps = %+v, want int 42", got["reps"])
	}
	if got["miles"].Kind != MetaFloat || got["miles"].Float != 3.2 {
		t.Errorf("miles = %+v, want float 3.2", got["miles"])
	}
}

func TestMetaValue_KindTagDisambiguates(t *testing.T) {
	// A string that looks like a number must stay a string.
	var v MetaValue
	if err := json.Unmarshal([]byte(`{"kind":"string","value":"3"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Kind != MetaString || v.Str != "3" {
		t.Errorf("decoded %+v, want string %q", v, "3")
	}
}

func TestMetaValue_UnknownKindRejected(t *testing.T) {
	var v MetaValue
	if err := json.Unmarshal([]byte(`{"kind":"blob","value":"x"}`), &v); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNewEvent_NormalizesToUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	local := time.Date(2026, 3, 9, 21, 0, 0, 0, ny)
	ev := NewEvent("s", local, "America/New_York", nil)

	if ev.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp location = %v, want UTC", ev.Timestamp.Location())
	}
	if !ev.Timestamp.Equal(local) {
		t.Error("UTC normalization changed the instant")
	}
	if ev.ID == "" {
		t.Error("event ID not assigned")
	}
	if ev.Timezone != "America/New_York" {
		t.Errorf("timezone = %q, want America/New_York", ev.Timezone)
	}
}
