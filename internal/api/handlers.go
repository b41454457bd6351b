package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/internal/service/gemini"
	"github.com/peterpham171289-blip/promptmaster/internal/service/orchestrator"
	"github.com/peterpham171289-blip/promptmaster/internal/snapshot"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

type Handler struct {
	orchestrator  *orchestrator.Orchestrator
	store         *snapshot.Store
	credentialSet bool
	logger        *logger.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, store *snapshot.Store, apiKey string, log *logger.Logger) *Handler {
	return &Handler{
		orchestrator:  orch,
		store:         store,
		credentialSet: apiKey != "",
		logger:        log,
	}
}

// Proxy dispatches the client envelope to the generation or analysis pipeline.
func (h *Handler) Proxy(c *gin.Context) {
	var req ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid proxy request", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	// Credential presence is checked before anything reaches the provider,
	// regardless of envelope type.
	if !h.credentialSet {
		h.logger.Error("proxy called without provider credential")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "GEMINI_API_KEY is not configured on the server",
		})
		return
	}

	switch req.Type {
	case TypeGenerate:
		h.handleGenerate(c, req.Payload)
	case TypeAnalyze:
		h.handleAnalyze(c, req.Payload)
	default:
		h.logger.Warn("unknown envelope type", "type", req.Type)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown request type: " + req.Type})
	}
}

func (h *Handler) handleGenerate(c *gin.Context, payload json.RawMessage) {
	var p GeneratePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.logger.Error("malformed generate payload", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed generate payload: " + err.Error()})
		return
	}

	orchReq, err := toGenerationRequest(&p)
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.orchestrator.Generate(c.Request.Context(), orchReq)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) handleAnalyze(c *gin.Context, payload json.RawMessage) {
	var p AnalyzePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.logger.Error("malformed analyze payload", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed analyze payload: " + err.Error()})
		return
	}

	result, err := h.orchestrator.Analyze(c.Request.Context(), p.PromptToAnalyze)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportProject saves a project snapshot posted by the client and returns its id.
func (h *Handler) ExportProject(c *gin.Context) {
	var s snapshot.Snapshot
	if err := c.ShouldBindJSON(&s); err != nil {
		h.logger.Error("invalid snapshot", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid snapshot: " + err.Error()})
		return
	}

	id, err := h.store.Save(&s)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SnapshotSavedResponse{ID: id})
}

// ImportProject re-hydrates a previously exported snapshot.
func (h *Handler) ImportProject(c *gin.Context) {
	s, err := h.store.Load(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, s)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errors.ErrCodeInvalidReq) {
		status = http.StatusBadRequest
	}

	h.logger.Error("request failed", "error", err, "status", status)
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func toGenerationRequest(p *GeneratePayload) (*orchestrator.GenerationRequest, error) {
	req := &orchestrator.GenerationRequest{
		RequestID:             uuid.New().String(),
		Context:               p.Context,
		Objective:             p.Objective,
		Role:                  p.Role,
		Expectations:          p.Expectations,
		SystemInstruction:     p.SystemInstruction,
		PromptBody:            p.PromptBody,
		MediaInstruction:      p.MediaInstruction,
		AIPlatform:            p.AIPlatform,
		OutputType:            p.OutputType,
		PreviewLanguage:       p.PreviewLanguage,
		MasterPromptLanguages: p.MasterPromptLanguages,
		Temperature:           p.Temperature,
		TopP:                  p.TopP,
		AspectRatio:           p.AspectRatio,
	}

	if p.File != nil && p.File.Data != "" {
		data := p.File.Data
		// Accept both raw base64 and data URLs (data:image/png;base64,...).
		if idx := strings.Index(data, ","); idx >= 0 && strings.HasPrefix(data, "data:") {
			data = data[idx+1:]
		}
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidReq, "file data is not valid base64")
		}
		req.File = &gemini.InlineFile{
			Data:     decoded,
			MimeType: p.File.MimeType,
			Name:     p.File.Name,
		}
	}

	return req, nil
}
