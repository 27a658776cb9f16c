package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"room-advisor/internal/models"
	"room-advisor/pkg/metrics"

	"go.uber.org/zap"
)

const systemPromptTemplate = `You are a helpful assistant trained on {brand} product offerings.

Given room type, platform, and user needs, respond ONLY with strict JSON in this schema:
{
  "rationale": "overview + per-product details",
  "products": [
    {
      "name": "Product name",
      "summary": "1-2 sentence summary",
      "price": "string like '$2,499' or 'Request quote' if pricing isn't public",
      "why_fit": ["bullet 1", "bullet 2", "bullet 3"]
    }
  ]
}

Write the rationale as follows:
- Start with ONE concise sentence that connects the room type, platform, and the user's needs to the overall solution approach.
- Then include an itemized list, one line per product, written to coach a beginner. For each line use this pattern:
  "<Product Name>: what it is (in plain English), where it goes in the room, what it plugs into or controls, and why it is needed for this setup."
  Use simple, non-jargon language. If you use an acronym, write it once as Full Term (ACRONYM). Keep each line around 20-30 words.

Formatting rules:
- Put the overview sentence first, then each product line on its own line within the same rationale string.
- Do NOT use markdown formatting inside the JSON values.
- Keep the rationale under about 120 words total.

Guidelines:
- Favor products that match the platform (Teams / Zoom / Audio / Other).
- Reflect any constraints in the user needs (e.g., dual displays, ceiling mics, BYOD).
- Use the exact catalog model number in each product name when you know it.
- For pricing, use a brief string (e.g., '$1,999', 'Starting at $X', or 'Request quote').
- Keep the product list to 2-4 items.
- Do NOT include any extra keys, comments, markdown, or text outside the JSON.`

const retryPromptTemplate = `Your previous reply could not be used: {reason}.
Reply again with ONLY the JSON object described in the instructions, with a "rationale" string and 2-4 "products", each with a non-empty "name".`

// RecommendationService asks the language model for a product set and
// turns its reply into a validated RecommendationSet.
type RecommendationService struct {
	completer ChatCompleter
	brand     string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRecommendationService accepts a nil completer; every request then
// fails with ErrConfiguration.
func NewRecommendationService(completer ChatCompleter, brand string, timeout time.Duration, logger *zap.Logger) *RecommendationService {
	if brand == "" {
		brand = "Crestron Flex"
	}
	return &RecommendationService{
		completer: completer,
		brand:     brand,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *RecommendationService) SystemPrompt() string {
	return fillTemplate(systemPromptTemplate, map[string]string{"brand": s.brand})
}

// UserPrompt renders the three input fields in the order the model expects.
func UserPrompt(input models.UserInput) string {
	return fmt.Sprintf("Room Type: %s\nPlatform: %s\nUser Needs: %s",
		input.RoomType, input.Platform, strings.TrimSpace(input.NeedsText))
}

// GetRecommendations returns 2-4 products for the input. A reply that
// fails validation is retried once with the reason attached.
func (s *RecommendationService) GetRecommendations(ctx context.Context, input models.UserInput) (*models.RecommendationSet, error) {
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	set, err := s.request(ctx, input)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.RecommendationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return set, nil
}

func (s *RecommendationService) request(ctx context.Context, input models.UserInput) (*models.RecommendationSet, error) {
	if s.completer == nil {
		return nil, &RecommendationError{Kind: ErrConfiguration, Reason: "no language model credential configured"}
	}

	messages := []ChatMessage{
		{Role: RoleSystem, Content: s.SystemPrompt()},
		{Role: RoleUser, Content: UserPrompt(input)},
	}

	var last ParseResult
	for attempt := 1; attempt <= 2; attempt++ {
		raw, err := s.complete(ctx, messages)
		if err != nil {
			s.logger.Error("Recommendation request failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, &RecommendationError{Kind: ErrUpstreamUnavailable, Err: err}
		}

		last = ParseRecommendations(raw)
		if last.OK() {
			s.logger.Info("Recommendations received",
				zap.String("room_type", string(input.RoomType)),
				zap.String("platform", string(input.Platform)),
				zap.Int("products", len(last.Set.Products)),
				zap.Int("attempt", attempt),
			)
			return last.Set, nil
		}

		s.logger.Warn("Model reply rejected",
			zap.Int("attempt", attempt),
			zap.String("reason", last.Reason),
		)
		messages = append(messages,
			ChatMessage{Role: RoleAssistant, Content: raw},
			ChatMessage{Role: RoleUser, Content: fillTemplate(retryPromptTemplate, map[string]string{"reason": last.Reason})},
		)
	}

	return nil, &RecommendationError{Kind: ErrMalformedResponse, Reason: last.Reason, Raw: last.Raw}
}

func (s *RecommendationService) complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, err := s.completer.Complete(ctx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("no reply within %s: %w", s.timeout, err)
		}
		return "", err
	}
	return raw, nil
}
