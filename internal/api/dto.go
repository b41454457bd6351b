package api

import "encoding/json"

// Envelope types accepted by the proxy dispatcher.
const (
	TypeGenerate = "generate"
	TypeAnalyze  = "analyze"
)

// ProxyRequest is the single envelope the browser client posts. Payload is
// decoded per Type.
type ProxyRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// GeneratePayload mirrors the prompt-authoring form.
type GeneratePayload struct {
	Context      string `json:"context"`
	Objective    string `json:"objective"`
	Role         string `json:"role"`
	Expectations string `json:"expectations"`

	SystemInstruction string `json:"systemInstruction"`
	PromptBody        string `json:"promptBody"`
	MediaInstruction  string `json:"mediaInstruction"`

	AIPlatform string `json:"aiPlatform"`
	OutputType string `json:"outputType"`

	File *FilePayload `json:"file,omitempty"`

	PreviewLanguage       string   `json:"previewLanguage"`
	MasterPromptLanguages []string `json:"masterPromptLanguages"`

	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	AspectRatio string  `json:"aspectRatio"`
}

// FilePayload is an inline upload: base64 data (optionally a data URL) plus its
// MIME type and original name.
type FilePayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
}

// AnalyzePayload is the free-text prompt to score.
type AnalyzePayload struct {
	PromptToAnalyze string `json:"promptToAnalyze"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// SnapshotSavedResponse acknowledges a project export.
type SnapshotSavedResponse struct {
	ID string `json:"id"`
}
