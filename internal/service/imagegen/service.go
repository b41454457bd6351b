package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/httpclient"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

// GeneratedImage holds one synthesized image, base64-encoded as returned by the API.
type GeneratedImage struct {
	Base64Data string
	MimeType   string
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

// Generate requests a single image for the prompt at the given aspect ratio.
func (s *Service) Generate(ctx context.Context, prompt, aspectRatio string) (*GeneratedImage, error) {
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	requestBody := map[string]interface{}{
		"instances": []map[string]interface{}{
			{"prompt": prompt},
		},
		"parameters": map[string]interface{}{
			"sampleCount": 1,
			"aspectRatio": aspectRatio,
		},
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:predict?key=%s", s.baseURL, s.model, s.apiKey)

	resp, err := s.httpClient.PostJSON(ctx, url, bodyBytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "image generation API request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("image gen API error", "status", resp.StatusCode, "body", string(respBody))
		return nil, errors.New(errors.ErrCodeUpstream, fmt.Sprintf("image generation API returned %d", resp.StatusCode))
	}

	return parsePredictResponse(respBody)
}

func parsePredictResponse(body []byte) (*GeneratedImage, error) {
	var response struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to parse image gen response")
	}

	for _, p := range response.Predictions {
		if p.BytesBase64Encoded != "" {
			mimeType := p.MimeType
			if mimeType == "" {
				mimeType = "image/png"
			}
			return &GeneratedImage{
				Base64Data: p.BytesBase64Encoded,
				MimeType:   mimeType,
			}, nil
		}
	}

	return nil, errors.New(errors.ErrCodeGeneration, "no image in response")
}

// DataURL renders the image as a browser-displayable data URL.
func (g *GeneratedImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", g.MimeType, g.Base64Data)
}
