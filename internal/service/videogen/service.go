package videogen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/httpclient"
	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

// SeedImage optionally conditions the video on a user-supplied still.
type SeedImage struct {
	Data     []byte
	MimeType string
}

// GeneratedVideo holds the downloaded asset of a completed job.
type GeneratedVideo struct {
	Bytes    []byte
	MimeType string
}

type Service struct {
	apiKey          string
	model           string
	baseURL         string
	pollInterval    time.Duration
	maxPollAttempts int
	httpClient      *httpclient.Client
	logger          *logger.Logger
}

func New(apiKey, model, baseURL string, pollInterval time.Duration, maxPollAttempts int, client *httpclient.Client, log *logger.Logger) *Service {
	return &Service{
		apiKey:          apiKey,
		model:           model,
		baseURL:         baseURL,
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
		httpClient:      client,
		logger:          log,
	}
}

// Generate submits a video synthesis job, polls the long-running operation until
// it completes and downloads the produced asset. Polling is paced at the
// configured interval and gives up after maxPollAttempts status checks.
func (s *Service) Generate(ctx context.Context, prompt, aspectRatio string, seed *SeedImage) (*GeneratedVideo, error) {
	opName, err := s.submit(ctx, prompt, aspectRatio, seed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("video job submitted", "operation", opName)

	op, err := s.waitForCompletion(ctx, opName)
	if err != nil {
		return nil, err
	}

	uri := op.videoURI()
	if uri == "" {
		return nil, errors.New(errors.ErrCodeGeneration, "completed video operation has no output asset")
	}

	return s.download(ctx, uri)
}

func (s *Service) submit(ctx context.Context, prompt, aspectRatio string, seed *SeedImage) (string, error) {
	instance := map[string]interface{}{
		"prompt": prompt,
	}
	if seed != nil && len(seed.Data) > 0 {
		instance["image"] = map[string]string{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(seed.Data),
			"mimeType":           seed.MimeType,
		}
	}

	parameters := map[string]interface{}{}
	if aspectRatio != "" {
		parameters["aspectRatio"] = aspectRatio
	}

	requestBody := map[string]interface{}{
		"instances":  []map[string]interface{}{instance},
		"parameters": parameters,
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning?key=%s", s.baseURL, s.model, s.apiKey)

	resp, err := s.httpClient.PostJSON(ctx, url, bodyBytes)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUpstream, "video generation API request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUpstream, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("video gen API error", "status", resp.StatusCode, "body", string(respBody))
		return "", errors.New(errors.ErrCodeUpstream, fmt.Sprintf("video generation API returned %d", resp.StatusCode))
	}

	var submitted operation
	if err := json.Unmarshal(respBody, &submitted); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUpstream, "failed to parse video gen response")
	}
	if submitted.Name == "" {
		return "", errors.New(errors.ErrCodeGeneration, "video generation returned no operation handle")
	}

	return submitted.Name, nil
}

func (s *Service) waitForCompletion(ctx context.Context, opName string) (*operation, error) {
	// Burst 1 makes the first status check immediate; later checks are spaced
	// by the poll interval and abort with the context.
	pacer := rate.NewLimiter(rate.Every(s.pollInterval), 1)

	for attempt := 1; attempt <= s.maxPollAttempts; attempt++ {
		if err := pacer.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUpstream, "video polling cancelled")
		}

		op, err := s.checkStatus(ctx, opName)
		if err != nil {
			return nil, err
		}

		if op.Error != nil {
			return nil, errors.New(errors.ErrCodeGeneration,
				fmt.Sprintf("video operation failed: %s", op.Error.Message))
		}
		if op.Done {
			s.logger.Info("video job completed", "operation", opName, "attempts", attempt)
			return op, nil
		}

		s.logger.Debug("video job still running", "operation", opName, "attempt", attempt)
	}

	return nil, errors.New(errors.ErrCodeGeneration,
		fmt.Sprintf("video operation did not complete within %d polls", s.maxPollAttempts))
}

func (s *Service) checkStatus(ctx context.Context, opName string) (*operation, error) {
	url := fmt.Sprintf("%s/%s?key=%s", s.baseURL, opName, s.apiKey)

	resp, err := s.httpClient.Get(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "video status check failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to read status response")
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("video status API error", "status", resp.StatusCode, "body", string(respBody))
		return nil, errors.New(errors.ErrCodeUpstream, fmt.Sprintf("video status API returned %d", resp.StatusCode))
	}

	var op operation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to parse operation status")
	}
	return &op, nil
}

func (s *Service) download(ctx context.Context, uri string) (*GeneratedVideo, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}

	resp, err := s.httpClient.Get(ctx, uri+sep+"key="+s.apiKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "video download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeUpstream, fmt.Sprintf("video download returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstream, "failed to read video asset")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeGeneration, "video asset is empty")
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "video/mp4"
	}

	return &GeneratedVideo{Bytes: data, MimeType: mimeType}, nil
}

// DataURL renders the video as a data URL the client can feed to a <video> tag.
func (v *GeneratedVideo) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", v.MimeType, base64.StdEncoding.EncodeToString(v.Bytes))
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (o *operation) videoURI() string {
	if o.Response == nil {
		return ""
	}
	samples := o.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 {
		return ""
	}
	return samples[0].Video.URI
}
