package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/httpclient"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

// InlineFile is a user-supplied attachment forwarded to the model as inline data.
type InlineFile struct {
	Data     []byte
	MimeType string
	Name     string
}

// TextOptions tunes a free-form completion.
type TextOptions struct {
	Temperature float64
	TopP        float64
	File        *InlineFile
}

type Service struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *httpclient.Client
	logger     *logger.Logger
}

func New(apiKey, model, baseURL string, client *httpclient.Client, log *logger.Logger) *Service {
	return &Service{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: client,
		logger:     log,
	}
}

// GenerateStructured runs a completion constrained to the given response schema
// and returns the raw JSON text of the first candidate.
func (s *Service) GenerateStructured(ctx context.Context, prompt string, schema map[string]interface{}) ([]byte, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"responseSchema":   schema,
		},
	}

	text, err := s.generateContent(ctx, requestBody)
	if err != nil {
		return nil, err
	}

	text = trimCodeFence(text)
	if text == "" {
		return nil, errors.New(errors.ErrCodeGeneration, "empty structured response from model")
	}
	if !json.Valid([]byte(text)) {
		s.logger.Error("structured response is not valid JSON", "text", text)
		return nil, errors.New(errors.ErrCodeGeneration, "structured response is not valid JSON")
	}

	return []byte(text), nil
}

// GenerateText runs a free-form completion, optionally with an inline file
// prepended to the prompt part.
func (s *Service) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	parts := []map[string]interface{}{}
	if opts.File != nil && len(opts.File.Data) > 0 {
		mimeType := opts.File.MimeType
		if mimeType == "" {
			mimeType = detectMimeType(opts.File.Data)
		}
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]string{
				"mime_type": mimeType,
				"data":      base64.StdEncoding.EncodeToString(opts.File.Data),
			},
		})
	}
	parts = append(parts, map[string]interface{}{"text": prompt})

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"temperature": opts.Temperature,
			"topP":        opts.TopP,
		},
	}

	text, err := s.generateContent(ctx, requestBody)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New(errors.ErrCodeGeneration, "empty response from model")
	}

	return text, nil
}

func (s *Service) generateContent(ctx context.Context, requestBody map[string]interface{}) (string, error) {
	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)

	resp, err := s.httpClient.PostJSON(ctx, url, bodyBytes)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUpstream, "gemini API request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUpstream, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("gemini API error", "status", resp.StatusCode, "body", string(respBody))
		return "", errors.New(errors.ErrCodeUpstream, fmt.Sprintf("gemini API returned %d", resp.StatusCode))
	}

	return extractText(respBody)
}

func extractText(body []byte) (string, error) {
	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUpstream, "failed to parse gemini response")
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", errors.New(errors.ErrCodeGeneration, "empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// trimCodeFence strips a markdown fence the model sometimes wraps JSON in.
func trimCodeFence(text string) string {
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func detectMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}
	if data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 {
		return "image/webp"
	}
	if data[0] == 0x25 && data[1] == 0x50 && data[2] == 0x44 && data[3] == 0x46 {
		return "application/pdf"
	}

	return "application/octet-stream"
}
