package snapshot

import (
	"reflect"
	"testing"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/internal/service/orchestrator"
)

func fullSnapshot() *Snapshot {
	return &Snapshot{
		Context:           "quarterly report",
		Objective:         "summarize results",
		Role:              "financial analyst",
		Expectations:      "bullet points",
		SystemInstruction: "be concise",
		PromptBody:        "draft prompt",
		MediaInstruction:  "warm colors",
		AIPlatform:        "Gemini",
		OutputType:        "Ảnh",
		FileName:          "chart.png",
		FileMimeType:      "image/png",
		FileData:          []byte{0x89, 0x50, 0x4E, 0x47},
		PreviewLanguage:   "English",
		MasterPromptLanguages: []string{
			"English", "Vietnamese",
		},
		Temperature: 0.65,
		TopP:        0.85,
		AspectRatio: "4:3",
		LastResult: &orchestrator.GenerationResult{
			MasterPrompts: []orchestrator.MasterPrompt{
				{Language: "English", Prompt: "master EN"},
				{Language: "Vietnamese", Prompt: "master VI"},
			},
			Preview: orchestrator.Preview{
				Kind: orchestrator.PreviewImage,
				Data: "data:image/png;base64,xyz",
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	original := fullSnapshot()

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !reflect.DeepEqual(original, restored) {
		t.Errorf("round-trip mismatch:\n got: %+v\nwant: %+v", restored, original)
	}
}

func TestDecode_OldSnapshotDefaults(t *testing.T) {
	// A snapshot written before sampling and language controls existed.
	old := []byte(`{
		"context": "legacy project",
		"objective": "do the thing",
		"role": "assistant",
		"expectations": "good output"
	}`)

	s, err := Decode(old)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if s.Context != "legacy project" {
		t.Errorf("present field lost: %q", s.Context)
	}
	if s.PreviewLanguage != DefaultPreviewLanguage {
		t.Errorf("previewLanguage = %q, want default %q", s.PreviewLanguage, DefaultPreviewLanguage)
	}
	if !reflect.DeepEqual(s.MasterPromptLanguages, DefaultMasterPromptLanguages) {
		t.Errorf("masterPromptLanguages = %v, want defaults", s.MasterPromptLanguages)
	}
	if s.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want default %v", s.Temperature, DefaultTemperature)
	}
	if s.TopP != DefaultTopP {
		t.Errorf("topP = %v, want default %v", s.TopP, DefaultTopP)
	}
	if s.AspectRatio != DefaultAspectRatio {
		t.Errorf("aspectRatio = %q, want default %q", s.AspectRatio, DefaultAspectRatio)
	}
}

func TestDecode_ExplicitZeroNotDefaulted(t *testing.T) {
	// temperature: 0 is a deliberate setting, not an absent field.
	data := []byte(`{"temperature": 0, "topP": 0}`)

	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.Temperature != 0 {
		t.Errorf("explicit zero temperature replaced with %v", s.Temperature)
	}
	if s.TopP != 0 {
		t.Errorf("explicit zero topP replaced with %v", s.TopP)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid snapshot data")
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store := NewStore(t.TempDir(), logger.Nop())

	original := fullSnapshot()
	id, err := store.Save(original)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty id")
	}

	restored, err := store.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(original, restored) {
		t.Errorf("store round-trip mismatch:\n got: %+v\nwant: %+v", restored, original)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(t.TempDir(), logger.Nop())

	if _, err := store.Load("no-such-id"); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	store := NewStore(t.TempDir(), logger.Nop())

	for _, id := range []string{"", "../etc/passwd", `..\x`} {
		if _, err := store.Load(id); err == nil {
			t.Errorf("Load(%q) should be rejected", id)
		}
	}
}
