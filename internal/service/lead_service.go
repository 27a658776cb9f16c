package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"room-advisor/internal/models"
	"room-advisor/internal/repository"
	"room-advisor/pkg/metrics"

	"go.uber.org/zap"
)

type LeadRequest struct {
	Contact models.Contact
	Input   models.UserInput
	Set     *models.RecommendationSet
}

// LeadService validates contact details and records leads in the ledger.
type LeadService struct {
	repo   *repository.LeadRepository
	now    func() time.Time
	logger *zap.Logger
}

func NewLeadService(repo *repository.LeadRepository, logger *zap.Logger) *LeadService {
	return &LeadService{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source used for lead ids and timestamps.
func (s *LeadService) WithClock(now func() time.Time) *LeadService {
	s.now = now
	return s
}

// NewLeadID formats a lead id from the UTC date and the Unix second.
// Two leads created in the same second share an id.
func NewLeadID(t time.Time) string {
	return "LEAD-" + t.UTC().Format("20060102") + "-" + strconv.FormatInt(t.Unix(), 10)
}

func (s *LeadService) SubmitLead(ctx context.Context, req LeadRequest) (*models.Lead, error) {
	contact := req.Contact
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Company = strings.TrimSpace(contact.Company)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Notes = strings.TrimSpace(contact.Notes)
	if err := contact.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := ""
	if req.Set != nil {
		data, err := json.Marshal(req.Set)
		if err != nil {
			return nil, fmt.Errorf("failed to encode recommendation snapshot: %w", err)
		}
		snapshot = string(data)
	}

	now := s.now()
	lead := &models.Lead{
		ID:        NewLeadID(now),
		Contact:   contact,
		Input:     req.Input,
		Products:  req.Set.ProductNames(),
		Snapshot:  snapshot,
		CreatedAt: now.UTC(),
	}

	if err := s.repo.Append(lead); err != nil {
		metrics.LeadsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("Failed to record lead", zap.String("lead_id", lead.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.LeadsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Info("Lead recorded",
		zap.String("lead_id", lead.ID),
		zap.Int("products", len(lead.Products)),
	)
	return lead, nil
}

// Count returns the number of leads in the ledger.
func (s *LeadService) Count() (int, error) {
	rows, err := s.repo.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return len(rows), nil
}
