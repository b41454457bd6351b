package snapshot

import (
	"encoding/json"

	"github.com/peterpham171289-blip/promptmaster/internal/service/orchestrator"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

// Defaults substituted for fields absent in snapshots written by older versions.
const (
	DefaultPreviewLanguage = "Vietnamese"
	DefaultTemperature     = 1.0
	DefaultTopP            = 0.95
	DefaultAspectRatio     = "16:9"
)

var DefaultMasterPromptLanguages = []string{"Vietnamese", "English"}

// Snapshot is a flat export of every form field plus the last generation
// result, written to and re-read from a user-chosen file.
type Snapshot struct {
	Version int `json:"version"`

	Context      string `json:"context"`
	Objective    string `json:"objective"`
	Role         string `json:"role"`
	Expectations string `json:"expectations"`

	SystemInstruction string `json:"systemInstruction"`
	PromptBody        string `json:"promptBody"`
	MediaInstruction  string `json:"mediaInstruction"`

	AIPlatform string `json:"aiPlatform"`
	OutputType string `json:"outputType"`

	FileName     string `json:"fileName,omitempty"`
	FileMimeType string `json:"fileMimeType,omitempty"`
	FileData     []byte `json:"fileData,omitempty"`

	PreviewLanguage       string   `json:"previewLanguage"`
	MasterPromptLanguages []string `json:"masterPromptLanguages"`

	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	AspectRatio string  `json:"aspectRatio"`

	LastResult *orchestrator.GenerationResult `json:"lastResult,omitempty"`
}

// CurrentVersion marks the snapshot layout produced by Encode.
const CurrentVersion = 1

// Encode serializes the snapshot for export.
func Encode(s *Snapshot) ([]byte, error) {
	s.Version = CurrentVersion
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshot, "failed to encode snapshot")
	}
	return data, nil
}

// Decode re-hydrates an exported snapshot, substituting documented defaults
// for any field an older export did not carry.
func Decode(data []byte) (*Snapshot, error) {
	// Pointer shadows distinguish "absent" from zero values.
	var raw struct {
		Snapshot
		PreviewLanguage       *string   `json:"previewLanguage"`
		MasterPromptLanguages *[]string `json:"masterPromptLanguages"`
		Temperature           *float64  `json:"temperature"`
		TopP                  *float64  `json:"topP"`
		AspectRatio           *string   `json:"aspectRatio"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSnapshot, "failed to decode snapshot")
	}

	s := raw.Snapshot

	if raw.PreviewLanguage != nil {
		s.PreviewLanguage = *raw.PreviewLanguage
	} else {
		s.PreviewLanguage = DefaultPreviewLanguage
	}
	if raw.MasterPromptLanguages != nil && len(*raw.MasterPromptLanguages) > 0 {
		s.MasterPromptLanguages = *raw.MasterPromptLanguages
	} else {
		s.MasterPromptLanguages = append([]string(nil), DefaultMasterPromptLanguages...)
	}
	if raw.Temperature != nil {
		s.Temperature = *raw.Temperature
	} else {
		s.Temperature = DefaultTemperature
	}
	if raw.TopP != nil {
		s.TopP = *raw.TopP
	} else {
		s.TopP = DefaultTopP
	}
	if raw.AspectRatio != nil {
		s.AspectRatio = *raw.AspectRatio
	} else {
		s.AspectRatio = DefaultAspectRatio
	}

	return &s, nil
}
