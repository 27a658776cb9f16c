package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"room-advisor/internal/models"

	"go.uber.org/zap"
)

// LeadColumns is the ledger header, in column order.
var LeadColumns = []string{
	"lead_id", "created_at", "contact_name", "email", "company", "phone",
	"room_type", "platform", "needs_text", "notes", "products", "recommendation_json",
}

// LeadRepository appends leads to a CSV ledger. Rows are never rewritten.
// The file is opened per write so external readers always see complete rows.
type LeadRepository struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewLeadRepository(path string, logger *zap.Logger) *LeadRepository {
	return &LeadRepository{
		path:   path,
		logger: logger,
	}
}

func (r *LeadRepository) Path() string {
	return r.path
}

func (r *LeadRepository) Append(lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat ledger: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(LeadColumns); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}
	if err := w.Write(leadRow(lead)); err != nil {
		return fmt.Errorf("failed to write lead: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}

	r.logger.Debug("Lead appended", zap.String("lead_id", lead.ID), zap.String("path", r.path))
	return nil
}

// ReadAll returns every data row keyed by column name. A missing ledger
// reads as empty.
func (r *LeadRepository) ReadAll() ([]map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return []map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func leadRow(lead *models.Lead) []string {
	return []string{
		lead.ID,
		lead.CreatedAt.UTC().Format(time.RFC3339),
		lead.Contact.Name,
		lead.Contact.Email,
		lead.Contact.Company,
		lead.Contact.Phone,
		string(lead.Input.RoomType),
		string(lead.Input.Platform),
		lead.Input.NeedsText,
		lead.Contact.Notes,
		strings.Join(lead.Products, "; "),
		lead.Snapshot,
	}
}
