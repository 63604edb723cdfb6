package openai

import (
	"context"
	"log"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultSummaryModel balances quality and cost for two-sentence summaries.
	DefaultSummaryModel = "gpt-4o-mini"

	summaryTemperature = 0.2
	summaryMaxTokens   = 220
	fallbackMaxLength  = 280
)

// ChatAPI is the slice of the OpenAI surface the summarizer needs.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Summarizer produces short analyst summaries of threat reports. When no
// API key is configured, or the model call fails, it degrades to a
// heuristic extract of the leading sentences rather than erroring.
type Summarizer struct {
	api   ChatAPI
	model string
}

type SummarizerConfig struct {
	APIKey string
	Model  string
}

func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	model := cfg.Model
	if model == "" {
		model = DefaultSummaryModel
	}
	s := &Summarizer{model: model}
	if cfg.APIKey != "" {
		s.api = openai.NewClient(cfg.APIKey)
	}
	return s
}

// NewSummarizerWithAPI is used by tests to substitute the OpenAI client.
func NewSummarizerWithAPI(api ChatAPI, model string) *Summarizer {
	if model == "" {
		model = DefaultSummaryModel
	}
	return &Summarizer{api: api, model: model}
}

// Summarize returns a two-sentence summary of text in the given language
// ("da" or anything else, treated as English).
func (s *Summarizer) Summarize(ctx context.Context, text, language string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}
	if s.api == nil {
		log.Printf("openai api key missing, using heuristic summarization")
		return FallbackSummary(text), nil
	}

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(language)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(text, language)},
		},
	})
	if err != nil {
		log.Printf("summarization api failed: %v", err)
		return FallbackSummary(text), nil
	}

	if len(resp.Choices) == 0 {
		return FallbackSummary(text), nil
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return FallbackSummary(text), nil
	}
	return content, nil
}

func systemPrompt(language string) string {
	if language == "da" {
		return "Du er en cybersikkerhedsekspert der laver korte faktuelle resuméer."
	}
	return "You are a cyber security analyst generating concise factual summaries."
}

func userPrompt(text, language string) string {
	instruction := "Summarize the security report in two sentences, including impacted actors, TTPs, and recommended action."
	if language == "da" {
		instruction = "Opsummer sikkerhedsrapporten i 2 sætninger. Inkludér påvirkede aktører, TTP og anbefalet handling."
	}
	return instruction + "\n\nTekst:\n" + text
}

var sentenceBoundaryRe = regexp.MustCompile(`([.!?])\s+`)

// FallbackSummary extracts the first two sentences, capped in length.
func FallbackSummary(text string) string {
	marked := sentenceBoundaryRe.ReplaceAllString(text, "$1\x00")
	sentences := strings.SplitN(marked, "\x00", 3)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	summary := strings.Join(sentences, " ")
	if len(summary) > fallbackMaxLength {
		summary = summary[:fallbackMaxLength]
	}
	return summary
}
