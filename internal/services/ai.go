package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"formcoach/internal/config"
	"formcoach/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

// Stages recorded on ai_usage_logs.
const (
	StageRawAnalysis = "raw_analysis"
	StageFeedback    = "feedback"
	StageChat        = "chat"
)

const rawAnalysisInstructions = `You are a video movement analyst. Watch the referenced training video and produce a structured analysis of the performance.

Respond with JSON only, in this shape:
{
  "activity": "...",
  "duration_estimate_seconds": 0,
  "segments": [{"label": "...", "observation": "..."}],
  "issues": [{"issue": "...", "severity": "low|medium|high", "evidence": "..."}],
  "positives": ["..."]
}`

// AIService issues single request/response calls to the configured model
// providers. No retries: a failure propagates to the caller, which surfaces
// it as a 503 with a client-side retry affordance.
type AIService struct {
	cfg   *config.AIConfig
	usage *AIUsageService
}

func NewAIService(db *gorm.DB, cfg *config.AIConfig) *AIService {
	return &AIService{
		cfg:   cfg,
		usage: NewAIUsageService(db),
	}
}

// callResult is a single provider response plus whatever token accounting
// the provider exposes.
type callResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// GenerateRawAnalysis runs the first-stage analysis of a video reference.
// Used only when no cached raw analysis exists for the video yet. Returns
// the structured JSON text and the provider that produced it.
func (s *AIService) GenerateRawAnalysis(ctx context.Context, videoURI, contentType string) (string, string, error) {
	provider := s.cfg.RawProvider

	start := time.Now()
	var result *callResult
	var err error

	switch provider {
	case "external":
		result, err = s.callExternalAnalyzer(ctx, videoURI)
	default:
		provider = "gemini"
		result, err = s.callGeminiVideo(ctx, videoURI, contentType)
	}

	s.recordUsage(StageRawAnalysis, provider, s.providerModel(provider), result, time.Since(start), err)
	if err != nil {
		return "", provider, err
	}
	if strings.TrimSpace(result.Content) == "" {
		return "", provider, fmt.Errorf("%s returned an empty analysis", provider)
	}

	return result.Content, provider, nil
}

// GenerateFromPrompt runs the second-stage call with a fully built prompt.
// When jsonMode is set the provider is asked for structured output; the
// caller is responsible for validating that the result parses as JSON.
func (s *AIService) GenerateFromPrompt(ctx context.Context, stage, prompt string, jsonMode bool) (string, string, error) {
	provider := s.cfg.FeedbackProvider

	logger.Debug().
		Str("provider", provider).
		Int("prompt_chars", len(prompt)).
		Bool("json_mode", jsonMode).
		Msg("dispatching prompt")

	start := time.Now()
	var result *callResult
	var err error

	switch provider {
	case "anthropic":
		result, err = s.callAnthropic(ctx, prompt)
	case "ollama":
		result, err = s.callOllama(ctx, prompt, jsonMode)
	case "azure":
		result, err = s.callAzure(ctx, prompt, jsonMode)
	case "openai":
		result, err = s.callOpenAI(ctx, &s.cfg.OpenAI, prompt, jsonMode)
	default:
		provider = "gemini"
		result, err = s.callGeminiText(ctx, prompt, jsonMode)
	}

	s.recordUsage(stage, provider, s.providerModel(provider), result, time.Since(start), err)
	if err != nil {
		return "", provider, err
	}
	if strings.TrimSpace(result.Content) == "" {
		return "", provider, fmt.Errorf("%s returned an empty response", provider)
	}

	return result.Content, provider, nil
}

// AnalysisSource maps the provider pair of the two stages to the provenance
// recorded on a feedback session.
func AnalysisSource(rawProvider, feedbackProvider string) string {
	rawGemini := rawProvider == "gemini"
	feedbackGemini := feedbackProvider == "gemini"

	switch {
	case rawGemini && feedbackGemini:
		return "gemini_direct"
	case !rawGemini && !feedbackGemini:
		return "external_ai"
	default:
		return "hybrid"
	}
}

// callGeminiVideo analyzes a video by file URI with the Gemini API.
func (s *AIService) callGeminiVideo(ctx context.Context, videoURI, contentType string) (*callResult, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: s.cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	if contentType == "" {
		contentType = "video/mp4"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(videoURI, contentType),
			genai.NewPartFromText(rawAnalysisInstructions),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, s.geminiModel(), contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	return geminiResult(resp), nil
}

// callGeminiText handles text prompts with the Gemini API.
func (s *AIService) callGeminiText(ctx context.Context, prompt string, jsonMode bool) (*callResult, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: s.cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	var genCfg *genai.GenerateContentConfig
	if jsonMode {
		genCfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := client.Models.GenerateContent(ctx, s.geminiModel(), genai.Text(prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	return geminiResult(resp), nil
}

func geminiResult(resp *genai.GenerateContentResponse) *callResult {
	result := &callResult{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result
}

// callExternalAnalyzer calls the configured OpenAI-compatible video analysis
// endpoint. The video reference travels inside the prompt; the endpoint is
// expected to fetch and analyze the object itself.
func (s *AIService) callExternalAnalyzer(ctx context.Context, videoURI string) (*callResult, error) {
	prompt := rawAnalysisInstructions + "\n\nVideo reference: " + videoURI
	return s.callOpenAI(ctx, &s.cfg.External, prompt, true)
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs.
func (s *AIService) callOpenAI(ctx context.Context, pc *config.ProviderConfig, prompt string, jsonMode bool) (*callResult, error) {
	clientConfig := openai.DefaultConfig(pc.APIKey)
	if pc.BaseURL != "" {
		clientConfig.BaseURL = pc.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model: pc.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperatureOrDefault(pc),
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return &callResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// callAzure handles Azure OpenAI; the Model field is the deployment name.
func (s *AIService) callAzure(ctx context.Context, prompt string, jsonMode bool) (*callResult, error) {
	pc := &s.cfg.OpenAI
	clientConfig := openai.DefaultAzureConfig(pc.APIKey, pc.BaseURL)
	client := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model: pc.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperatureOrDefault(pc),
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Azure OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from Azure OpenAI")
	}

	return &callResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// callAnthropic handles the Anthropic API using the native SDK.
func (s *AIService) callAnthropic(ctx context.Context, prompt string) (*callResult, error) {
	pc := &s.cfg.Anthropic
	client := anthropic.NewClient(
		option.WithAPIKey(pc.APIKey),
	)

	maxTokens := int64(pc.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	model := pc.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &callResult{
		Content:          content,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// callOllama handles a local Ollama instance using the native SDK.
func (s *AIService) callOllama(ctx context.Context, prompt string, jsonMode bool) (*callResult, error) {
	pc := &s.cfg.Ollama
	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := pc.Model
	if model == "" {
		model = "llama3"
	}

	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": pc.Temperature,
		},
	}
	if jsonMode {
		req.Format = json.RawMessage(`"json"`)
	}

	var content strings.Builder
	err = client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama API error: %w", err)
	}

	return &callResult{Content: content.String()}, nil
}

func (s *AIService) geminiModel() string {
	if s.cfg.Gemini.Model != "" {
		return s.cfg.Gemini.Model
	}
	return "gemini-2.0-flash"
}

func (s *AIService) providerModel(provider string) string {
	switch provider {
	case "gemini":
		return s.geminiModel()
	case "openai", "azure":
		return s.cfg.OpenAI.Model
	case "anthropic":
		return s.cfg.Anthropic.Model
	case "ollama":
		return s.cfg.Ollama.Model
	case "external":
		return s.cfg.External.Model
	default:
		return ""
	}
}

func (s *AIService) recordUsage(stage, provider, model string, result *callResult, latency time.Duration, callErr error) {
	entry := usageEntry(stage, provider, model, latency, callErr)
	if result != nil {
		entry.PromptTokens = result.PromptTokens
		entry.CompletionTokens = result.CompletionTokens
		entry.TotalTokens = result.PromptTokens + result.CompletionTokens
	}
	s.usage.Record(entry)
}

func temperatureOrDefault(pc *config.ProviderConfig) float32 {
	if pc.Temperature > 0 {
		return float32(pc.Temperature)
	}
	return 0.3
}

// StripJSONFences removes Markdown code fences some models wrap around
// structured output, so the result can be parse-validated.
func StripJSONFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
