package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peterpham171289-blip/promptmaster/internal/infra/logger"
	"github.com/peterpham171289-blip/promptmaster/internal/service/gemini"
	"github.com/peterpham171289-blip/promptmaster/internal/service/imagegen"
	"github.com/peterpham171289-blip/promptmaster/internal/service/videogen"
	"github.com/peterpham171289-blip/promptmaster/pkg/errors"
)

// GenerationRequest carries every field of the prompt-authoring form.
type GenerationRequest struct {
	RequestID string

	Context      string
	Objective    string
	Role         string
	Expectations string

	SystemInstruction string
	PromptBody        string
	MediaInstruction  string

	AIPlatform string
	OutputType string

	File *gemini.InlineFile

	PreviewLanguage       string
	MasterPromptLanguages []string

	Temperature float64
	TopP        float64
	AspectRatio string
}

// MasterPrompt is one synthesized prompt in one requested language.
type MasterPrompt struct {
	Language string `json:"language"`
	Prompt   string `json:"prompt"`
}

type PreviewKind string

const (
	PreviewNone  PreviewKind = "none"
	PreviewText  PreviewKind = "text"
	PreviewImage PreviewKind = "image"
	PreviewVideo PreviewKind = "video"
)

// Preview is the single materialized sample shown to the user. Image and video
// previews carry a base64 data URL in Data.
type Preview struct {
	Kind PreviewKind `json:"kind"`
	Data string      `json:"data,omitempty"`
}

type GenerationResult struct {
	MasterPrompts []MasterPrompt `json:"masterPrompts"`
	Preview       Preview        `json:"preview"`
}

type AnalysisBreakdown struct {
	Context      string `json:"context"`
	Objective    string `json:"objective"`
	Role         string `json:"role"`
	Expectations string `json:"expectations"`
}

// AnalysisResult is returned to the caller exactly as the model produced it;
// score range and field emptiness are deliberately not validated.
type AnalysisResult struct {
	Score       float64           `json:"score"`
	Analysis    AnalysisBreakdown `json:"analysis"`
	Suggestions string            `json:"suggestions"`
}

type Orchestrator struct {
	geminiSvc *gemini.Service
	imageSvc  *imagegen.Service
	videoSvc  *videogen.Service
	logger    *logger.Logger
}

func New(
	geminiSvc *gemini.Service,
	imageSvc *imagegen.Service,
	videoSvc *videogen.Service,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		geminiSvc: geminiSvc,
		imageSvc:  imageSvc,
		videoSvc:  videoSvc,
		logger:    log,
	}
}

// Generate runs the full pipeline: master prompts in every requested language,
// then exactly one preview chosen by output-type classification.
func (o *Orchestrator) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	if len(req.MasterPromptLanguages) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidReq, "masterPromptLanguages must not be empty")
	}

	o.logger.Info("starting generation",
		"request_id", req.RequestID,
		"platform", req.AIPlatform,
		"output_type", req.OutputType,
		"languages", len(req.MasterPromptLanguages),
	)

	prompts, err := o.buildMasterPrompts(ctx, req)
	if err != nil {
		o.logger.Error("failed to build master prompts", "request_id", req.RequestID, "error", err)
		return nil, err
	}

	basePrompt := selectBasePrompt(prompts)
	pathway := classifyOutputType(req.OutputType)

	o.logger.Info("master prompts ready",
		"request_id", req.RequestID,
		"count", len(prompts),
		"preview_pathway", string(pathway),
	)

	preview, err := o.materializePreview(ctx, req, basePrompt, pathway)
	if err != nil {
		o.logger.Error("failed to materialize preview",
			"request_id", req.RequestID,
			"pathway", string(pathway),
			"error", err,
		)
		return nil, err
	}

	return &GenerationResult{
		MasterPrompts: prompts,
		Preview:       preview,
	}, nil
}

func (o *Orchestrator) buildMasterPrompts(ctx context.Context, req *GenerationRequest) ([]MasterPrompt, error) {
	instruction := buildGenerationInstruction(req)

	raw, err := o.geminiSvc.GenerateStructured(ctx, instruction, masterPromptSchema())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Prompts []MasterPrompt `json:"prompts"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGeneration, "master prompt response did not match schema")
	}
	if len(parsed.Prompts) == 0 {
		return nil, errors.New(errors.ErrCodeGeneration, "model returned no master prompts")
	}

	// Re-order to the requested language order and require full coverage, so a
	// model that drops or blanks a language fails loudly instead of silently.
	byLanguage := make(map[string]MasterPrompt, len(parsed.Prompts))
	for _, p := range parsed.Prompts {
		byLanguage[strings.ToLower(strings.TrimSpace(p.Language))] = p
	}

	ordered := make([]MasterPrompt, 0, len(req.MasterPromptLanguages))
	for _, lang := range req.MasterPromptLanguages {
		p, ok := byLanguage[strings.ToLower(strings.TrimSpace(lang))]
		if !ok || strings.TrimSpace(p.Prompt) == "" {
			return nil, errors.New(errors.ErrCodeGeneration,
				fmt.Sprintf("model omitted a master prompt for language %q", lang))
		}
		ordered = append(ordered, MasterPrompt{Language: lang, Prompt: p.Prompt})
	}

	return ordered, nil
}

func (o *Orchestrator) materializePreview(ctx context.Context, req *GenerationRequest, basePrompt string, pathway PreviewKind) (Preview, error) {
	switch pathway {
	case PreviewImage:
		img, err := o.imageSvc.Generate(ctx, basePrompt, req.AspectRatio)
		if err != nil {
			return Preview{}, err
		}
		return Preview{Kind: PreviewImage, Data: img.DataURL()}, nil

	case PreviewVideo:
		var seed *videogen.SeedImage
		if req.File != nil && strings.HasPrefix(req.File.MimeType, "image/") {
			seed = &videogen.SeedImage{Data: req.File.Data, MimeType: req.File.MimeType}
		}
		vid, err := o.videoSvc.Generate(ctx, basePrompt, req.AspectRatio, seed)
		if err != nil {
			return Preview{}, err
		}
		return Preview{Kind: PreviewVideo, Data: vid.DataURL()}, nil

	default:
		prompt := basePrompt
		if req.PreviewLanguage != "" {
			prompt = fmt.Sprintf("%s\n\nIMPORTANT: Respond in %s.", basePrompt, req.PreviewLanguage)
		}
		text, err := o.geminiSvc.GenerateText(ctx, prompt, gemini.TextOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			File:        req.File,
		})
		if err != nil {
			return Preview{}, err
		}
		return Preview{Kind: PreviewText, Data: text}, nil
	}
}

// Analyze scores a free-text prompt against the C.O.R.E framework.
func (o *Orchestrator) Analyze(ctx context.Context, promptText string) (*AnalysisResult, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, errors.New(errors.ErrCodeInvalidReq, "promptToAnalyze must not be empty")
	}

	instruction := buildAnalysisInstruction(promptText)

	raw, err := o.geminiSvc.GenerateStructured(ctx, instruction, analysisSchema())
	if err != nil {
		return nil, err
	}

	var result AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGeneration, "analysis response did not match schema")
	}

	return &result, nil
}

// selectBasePrompt picks the prompt used for preview synthesis: the English
// entry when present, otherwise the first one.
func selectBasePrompt(prompts []MasterPrompt) string {
	for _, p := range prompts {
		if strings.EqualFold(strings.TrimSpace(p.Language), "English") {
			return p.Prompt
		}
	}
	return prompts[0].Prompt
}

var (
	imageOutputTypes = map[string]struct{}{
		"Image":    {},
		"Ảnh":      {},
		"Hình ảnh": {},
	}
	videoOutputTypes = map[string]struct{}{
		"Video":     {},
		"Phim ngắn": {},
	}
)

// classifyOutputType maps the declared output type onto a preview pathway.
// Unrecognized tokens fall through to text.
func classifyOutputType(outputType string) PreviewKind {
	token := strings.TrimSpace(outputType)
	if _, ok := imageOutputTypes[token]; ok {
		return PreviewImage
	}
	if _, ok := videoOutputTypes[token]; ok {
		return PreviewVideo
	}
	return PreviewText
}
