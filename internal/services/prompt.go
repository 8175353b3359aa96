package services

import (
	"fmt"
	"strings"
)

// The five derived analysis views. Each one is rendered from the same
// first-stage raw analysis with a different prompt.
const (
	AnalysisExecutiveSummary   = "executive_summary"
	AnalysisActionFixes        = "action_fixes"
	AnalysisStrengths          = "strengths"
	AnalysisTechnicalBreakdown = "technical_breakdown"
	AnalysisPracticePlan       = "practice_plan"
)

type promptTemplate struct {
	Instructions string
	JSONOutput   bool
}

var promptCatalog = map[string]promptTemplate{
	AnalysisExecutiveSummary: {
		Instructions: `You are an experienced movement and performance coach. Below is a structured analysis of a short training video. Write an executive summary for the performer: a two or three paragraph overall verdict in plain language, leading with the single most important takeaway. No headings, no lists.

Structured analysis:
{{raw_analysis}}`,
	},
	AnalysisActionFixes: {
		Instructions: `You are an experienced movement and performance coach. Below is a structured analysis of a short training video. Produce the corrections the performer should make, ordered by impact.

Respond with JSON only, in this shape:
{"fixes": [{"priority": 1, "issue": "...", "correction": "...", "cue": "..."}]}

Structured analysis:
{{raw_analysis}}`,
		JSONOutput: true,
	},
	AnalysisStrengths: {
		Instructions: `You are an experienced movement and performance coach. Below is a structured analysis of a short training video. Describe what the performer is already doing well and should keep doing. Be specific; point at moments in the video where the analysis supports each point.

Structured analysis:
{{raw_analysis}}`,
	},
	AnalysisTechnicalBreakdown: {
		Instructions: `You are an experienced movement and performance coach. Below is a structured analysis of a short training video. Break the performance down segment by segment.

Respond with JSON only, in this shape:
{"segments": [{"label": "...", "observation": "...", "assessment": "..."}]}

Structured analysis:
{{raw_analysis}}`,
		JSONOutput: true,
	},
	AnalysisPracticePlan: {
		Instructions: `You are an experienced movement and performance coach. Below is a structured analysis of a short training video. Write a one-week practice plan targeting the issues found, one short block per day, each with a drill and what to pay attention to.

Structured analysis:
{{raw_analysis}}`,
	},
}

// KnownAnalysisTypes returns the recognized analysis type identifiers.
func KnownAnalysisTypes() []string {
	return []string{
		AnalysisExecutiveSummary,
		AnalysisActionFixes,
		AnalysisStrengths,
		AnalysisTechnicalBreakdown,
		AnalysisPracticePlan,
	}
}

// IsValidAnalysisType reports whether t is one of the five analysis views.
func IsValidAnalysisType(t string) bool {
	_, ok := promptCatalog[t]
	return ok
}

// BuildPrompt renders the prompt for an analysis type with the raw analysis
// data embedded. It also reports whether the prompt requests JSON output.
// Pure function; fails only on an unrecognized type.
func BuildPrompt(analysisType, rawAnalysis string) (string, bool, error) {
	tpl, ok := promptCatalog[analysisType]
	if !ok {
		return "", false, fmt.Errorf("unknown analysis type: %s", analysisType)
	}

	prompt := strings.ReplaceAll(tpl.Instructions, "{{raw_analysis}}", rawAnalysis)
	return prompt, tpl.JSONOutput, nil
}
