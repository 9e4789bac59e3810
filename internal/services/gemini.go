package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"bloom-backend/internal/logger"
)

var ErrEmptyGeneration = errors.New("remote generation returned no text")

const assistantInstruction = "You are Bloom Assistant, a friendly photography studio assistant for Bloom Wedding Photography. " +
	"Answer concisely, be helpful, and keep responses under 120 words unless asked for more. " +
	"Focus on: services/pricing guidance, event type suggestions, explaining our work style, and guiding users to our gallery. " +
	"Use warm, professional tone. Prefer internal links like /services, /booking, /gallery, /contact when relevant. " +
	"If asked about availability or booking, suggest using /booking. If asked to see photos, point to /gallery. " +
	"If pricing specifics are requested, direct them to /services and suggest sharing date + event details for a tailored quote."

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	log      *logger.Logger
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int, log *logger.Logger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.9)
	model.SetMaxOutputTokens(400)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(assistantInstruction)}}

	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		log:      log.With("service", "GeminiService"),
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) GenerateReply(ctx context.Context, utterance, siteContext string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildChatPrompt(siteContext, utterance)))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.log.Warn("gemini candidate did not stop cleanly", "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

func buildChatPrompt(siteContext, utterance string) string {
	return fmt.Sprintf("Context (site info):\n%s\n\nUser message: %s", siteContext, utterance)
}

// extractText joins the text parts of the first candidate that has any.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		if text.Len() > 0 {
			return text.String()
		}
	}
	return ""
}
