package orchestrator

import (
	"fmt"
	"strings"
)

func buildGenerationInstruction(req *GenerationRequest) string {
	var sb strings.Builder

	sb.WriteString("You are an expert prompt engineer. Using the C.O.R.E framework below, ")
	sb.WriteString(fmt.Sprintf("write one complete, self-contained \"master prompt\" tailored for %s.\n\n", platformOrDefault(req.AIPlatform)))

	sb.WriteString(fmt.Sprintf("Context: %s\n", req.Context))
	sb.WriteString(fmt.Sprintf("Objective: %s\n", req.Objective))
	sb.WriteString(fmt.Sprintf("Role: %s\n", req.Role))
	sb.WriteString(fmt.Sprintf("Expectations: %s\n", req.Expectations))

	if req.SystemInstruction != "" {
		sb.WriteString(fmt.Sprintf("\nSystem instruction to embed: %s\n", req.SystemInstruction))
	}
	if req.PromptBody != "" {
		sb.WriteString(fmt.Sprintf("\nDraft prompt from the user to refine: %s\n", req.PromptBody))
	}
	if req.MediaInstruction != "" {
		sb.WriteString(fmt.Sprintf("\nMedia direction (style, composition, mood): %s\n", req.MediaInstruction))
	}
	if req.OutputType != "" {
		sb.WriteString(fmt.Sprintf("\nThe prompt must ask the target model for this output type: %s\n", req.OutputType))
	}

	sb.WriteString(fmt.Sprintf("\nProduce the master prompt in each of these languages: %s.\n",
		strings.Join(req.MasterPromptLanguages, ", ")))
	sb.WriteString("Each translation must carry the full meaning, not a summary. ")
	sb.WriteString("Return JSON only, matching the response schema: one entry per language ")
	sb.WriteString("with fields \"language\" (exactly as listed above) and \"prompt\".")

	return sb.String()
}

func buildAnalysisInstruction(promptText string) string {
	return fmt.Sprintf(`You are a prompt quality reviewer. Evaluate the prompt below against the C.O.R.E framework (Context, Objective, Role, Expectations).

Prompt to evaluate:
"""
%s
"""

Score it from 0 to 100, write a short assessment of each C.O.R.E dimension (state clearly when a dimension is missing), and give concrete suggestions on how to improve the prompt. Answer in the same language the prompt is written in. Return JSON only, matching the response schema.`, promptText)
}

func platformOrDefault(platform string) string {
	if platform == "" {
		return "a general-purpose AI model"
	}
	return platform
}

// masterPromptSchema is the Gemini responseSchema for the generation call.
func masterPromptSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"prompts": map[string]interface{}{
				"type": "ARRAY",
				"items": map[string]interface{}{
					"type": "OBJECT",
					"properties": map[string]interface{}{
						"language": map[string]interface{}{"type": "STRING"},
						"prompt":   map[string]interface{}{"type": "STRING"},
					},
					"required": []string{"language", "prompt"},
				},
			},
		},
		"required": []string{"prompts"},
	}
}

// analysisSchema is the Gemini responseSchema for the analysis call.
func analysisSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"score": map[string]interface{}{"type": "NUMBER"},
			"analysis": map[string]interface{}{
				"type": "OBJECT",
				"properties": map[string]interface{}{
					"context":      map[string]interface{}{"type": "STRING"},
					"objective":    map[string]interface{}{"type": "STRING"},
					"role":         map[string]interface{}{"type": "STRING"},
					"expectations": map[string]interface{}{"type": "STRING"},
				},
				"required": []string{"context", "objective", "role", "expectations"},
			},
			"suggestions": map[string]interface{}{"type": "STRING"},
		},
		"required": []string{"score", "analysis", "suggestions"},
	}
}
