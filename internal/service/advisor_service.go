package service

import (
	"context"
	"errors"
	"time"

	"room-advisor/internal/models"
	"room-advisor/internal/repository"

	"go.uber.org/zap"
)

// AdvisorService runs the visitor flow: recommend, then record a lead or
// export the summary. Recommendation state is kept per session.
type AdvisorService struct {
	recommender *RecommendationService
	resolver    *ResolverService
	leads       *LeadService
	exporter    *ExportService
	sessions    repository.SessionRepository
	now         func() time.Time
	logger      *zap.Logger
}

func NewAdvisorService(
	recommender *RecommendationService,
	resolver *ResolverService,
	leads *LeadService,
	exporter *ExportService,
	sessions repository.SessionRepository,
	logger *zap.Logger,
) *AdvisorService {
	return &AdvisorService{
		recommender: recommender,
		resolver:    resolver,
		leads:       leads,
		exporter:    exporter,
		sessions:    sessions,
		now:         time.Now,
		logger:      logger,
	}
}

// Recommend requests a product set for input, resolves catalog links and
// stores it as the session's current set. On failure the session keeps the
// input but no set.
func (s *AdvisorService) Recommend(ctx context.Context, sessionID string, input models.UserInput) (*models.RecommendationSet, error) {
	session := &models.Session{ID: sessionID, Input: input, UpdatedAt: s.now()}

	set, err := s.recommender.GetRecommendations(ctx, input)
	if err != nil {
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			s.logger.Warn("Failed to clear session", zap.String("session_id", sessionID), zap.Error(saveErr))
		}
		return nil, err
	}

	if s.resolver != nil {
		s.resolver.ResolveAll(ctx, set)
	}

	session.Set = set
	session.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Failed to store session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return set, nil
}

// Current returns the session's state. ErrSessionNotFound when the visitor
// has not requested recommendations yet or the session expired.
func (s *AdvisorService) Current(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitLead records a lead for the session's current recommendations.
func (s *AdvisorService) SubmitLead(ctx context.Context, sessionID string, contact models.Contact) (*models.Lead, error) {
	session, err := s.Current(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrNoRecommendations
	}
	if err != nil {
		return nil, err
	}
	if session.Set.Empty() {
		return nil, ErrNoRecommendations
	}

	return s.leads.SubmitLead(ctx, LeadRequest{
		Contact: contact,
		Input:   session.Input,
		Set:     session.Set,
	})
}

// Export renders the session's input and recommendations. A session
// without a set still exports; the document notes that no products are
// available.
func (s *AdvisorService) Export(ctx context.Context, sessionID string) ([]byte, error) {
	session, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, session.Input, session.Set)
}
