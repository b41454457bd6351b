package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/httpclient"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/internal/service/gemini"
	"github.com/peterpham171289-blip/promptmaster/internal/service/imagegen"
	"github.com/peterpham171289-blip/promptmaster/internal/service/videogen"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

func TestClassifyOutputType(t *testing.T) {
	tests := []struct {
		outputType string
		want       PreviewKind
	}{
		{"Image", PreviewImage},
		{"Ảnh", PreviewImage},
		{"Hình ảnh", PreviewImage},
		{"Video", PreviewVideo},
		{"Phim ngắn", PreviewVideo},
		{"Văn bản", PreviewText},
		{"Text", PreviewText},
		{"", PreviewText},
		{"image", PreviewText}, // membership is exact, not fuzzy
		{"  Image  ", PreviewImage},
	}

	for _, tt := range tests {
		if got := classifyOutputType(tt.outputType); got != tt.want {
			t.Errorf("classifyOutputType(%q) = %q, want %q", tt.outputType, got, tt.want)
		}
	}
}

func TestSelectBasePrompt(t *testing.T) {
	tests := []struct {
		name    string
		prompts []MasterPrompt
		want    string
	}{
		{
			name: "english preferred regardless of order",
			prompts: []MasterPrompt{
				{Language: "French", Prompt: "bonjour"},
				{Language: "English", Prompt: "X"},
			},
			want: "X",
		},
		{
			name: "case insensitive match",
			prompts: []MasterPrompt{
				{Language: "english", Prompt: "lower"},
			},
			want: "lower",
		},
		{
			name: "first entry when english absent",
			prompts: []MasterPrompt{
				{Language: "Vietnamese", Prompt: "xin chào"},
				{Language: "French", Prompt: "bonjour"},
			},
			want: "xin chào",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectBasePrompt(tt.prompts); got != tt.want {
				t.Errorf("selectBasePrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeGemini serves generateContent for both the structured master-prompt call
// and the free-form text preview call, telling them apart by the presence of a
// response schema in the request body.
func fakeGemini(t *testing.T, masterPrompts []MasterPrompt, previewText string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		var text string
		if strings.Contains(string(body), "responseSchema") {
			payload, _ := json.Marshal(map[string]interface{}{"prompts": masterPrompts})
			text = string(payload)
		} else {
			text = previewText
		}

		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": text}},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestOrchestrator(baseURL string) *Orchestrator {
	client := httpclient.New(httpclient.Options{Timeout: 5 * time.Second})
	log := logger.Nop()
	return New(
		gemini.New("test-key", "gemini-test", baseURL, client, log),
		imagegen.New("test-key", "imagen-test", baseURL, client, log),
		videogen.New("test-key", "veo-test", baseURL, time.Millisecond, 10, client, log),
		log,
	)
}

func TestGenerate_MasterPromptsPerLanguage(t *testing.T) {
	server := fakeGemini(t, []MasterPrompt{
		{Language: "Vietnamese", Prompt: "lời nhắc chính"},
		{Language: "English", Prompt: "the master prompt"},
	}, "preview text")

	orch := newTestOrchestrator(server.URL)

	result, err := orch.Generate(context.Background(), &GenerationRequest{
		Context:               "marketing team",
		Objective:             "write a slogan",
		Role:                  "copywriter",
		Expectations:          "short and catchy",
		OutputType:            "Văn bản",
		PreviewLanguage:       "Vietnamese",
		MasterPromptLanguages: []string{"English", "Vietnamese"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.MasterPrompts) != 2 {
		t.Fatalf("got %d master prompts, want 2", len(result.MasterPrompts))
	}
	// Output follows the requested language order, not the model's.
	if result.MasterPrompts[0].Language != "English" || result.MasterPrompts[1].Language != "Vietnamese" {
		t.Errorf("unexpected language order: %+v", result.MasterPrompts)
	}
	for _, p := range result.MasterPrompts {
		if strings.TrimSpace(p.Prompt) == "" {
			t.Errorf("empty prompt for language %s", p.Language)
		}
	}
	if result.Preview.Kind != PreviewText || result.Preview.Data != "preview text" {
		t.Errorf("unexpected preview: %+v", result.Preview)
	}
}

func TestGenerate_MissingLanguageFails(t *testing.T) {
	server := fakeGemini(t, []MasterPrompt{
		{Language: "English", Prompt: "only english"},
	}, "preview")

	orch := newTestOrchestrator(server.URL)

	_, err := orch.Generate(context.Background(), &GenerationRequest{
		MasterPromptLanguages: []string{"English", "Vietnamese"},
	})
	if err == nil {
		t.Fatal("expected error when a requested language is missing")
	}
	if !errors.Is(err, errors.ErrCodeGeneration) {
		t.Errorf("error code = %v, want %s", err, errors.ErrCodeGeneration)
	}
}

func TestGenerate_EmptyLanguageListRejected(t *testing.T) {
	orch := newTestOrchestrator("http://unused.invalid")

	_, err := orch.Generate(context.Background(), &GenerationRequest{})
	if err == nil {
		t.Fatal("expected error for empty language list")
	}
	if !errors.Is(err, errors.ErrCodeInvalidReq) {
		t.Errorf("error code = %v, want %s", err, errors.ErrCodeInvalidReq)
	}
}

func TestGenerate_ImagePathway(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, ":generateContent"):
			payload, _ := json.Marshal(map[string]interface{}{
				"prompts": []MasterPrompt{{Language: "English", Prompt: "a red fox"}},
			})
			fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, payload)
		case strings.Contains(r.URL.Path, ":predict"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"predictions": []map[string]string{
					{"bytesBase64Encoded": "aGVsbG8=", "mimeType": "image/png"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	orch := newTestOrchestrator(server.URL)

	result, err := orch.Generate(context.Background(), &GenerationRequest{
		OutputType:            "Ảnh",
		AspectRatio:           "16:9",
		MasterPromptLanguages: []string{"English"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Preview.Kind != PreviewImage {
		t.Fatalf("preview kind = %q, want image", result.Preview.Kind)
	}
	if !strings.HasPrefix(result.Preview.Data, "data:image/png;base64,") {
		t.Errorf("preview is not an image data URL: %q", result.Preview.Data)
	}
}

func TestAnalyze_ReturnsModelResultVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Out-of-range score on purpose: the relay does not clamp it.
		analysis, _ := json.Marshal(map[string]interface{}{
			"score": 150,
			"analysis": map[string]string{
				"context":      "clear",
				"objective":    "vague",
				"role":         "",
				"expectations": "missing",
			},
			"suggestions": "state the role explicitly",
		})
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, analysis)
	}))
	defer server.Close()

	orch := newTestOrchestrator(server.URL)

	result, err := orch.Analyze(context.Background(), "write me something good")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Score != 150 {
		t.Errorf("score = %v, want 150 passed through unclamped", result.Score)
	}
	if result.Analysis.Role != "" {
		t.Errorf("empty analysis field should survive verbatim, got %q", result.Analysis.Role)
	}
	if result.Suggestions != "state the role explicitly" {
		t.Errorf("suggestions = %q", result.Suggestions)
	}
}

func TestAnalyze_EmptyPromptRejected(t *testing.T) {
	orch := newTestOrchestrator("http://unused.invalid")

	_, err := orch.Analyze(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for blank prompt")
	}
	if !errors.Is(err, errors.ErrCodeInvalidReq) {
		t.Errorf("error code = %v, want %s", err, errors.ErrCodeInvalidReq)
	}
}
