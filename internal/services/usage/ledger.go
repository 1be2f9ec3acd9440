// Package usage implements the usage ledger: it prices each unit of model
// consumption, keeps running totals, enforces the hard budget ceiling, and
// answers aggregate queries.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aiopslab/aiops-gateway/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Ledger is the single budget authority for the process. The budget is
// global across identities, so the check-then-append in Record is one
// critical section; Stats and BudgetStatus take the read side and observe a
// consistent snapshot.
type Ledger struct {
	mu          sync.RWMutex
	records     []models.UsageRecord
	totalCost   float64
	totalTokens int

	budgetLimit float64
	autoPersist bool
	db          *gorm.DB
}

// NewLedger builds a ledger. db may be nil for memory-only operation; when
// set, previously persisted records are loaded and totals recomputed so the
// ceiling survives restarts.
func NewLedger(db *gorm.DB, config models.BudgetConfig) (*Ledger, error) {
	l := &Ledger{
		budgetLimit: config.Limit,
		autoPersist: config.AutoPersist && db != nil,
		db:          db,
	}

	if db != nil {
		if err := db.AutoMigrate(&models.UsageRecord{}); err != nil {
			return nil, fmt.Errorf("failed to migrate usage records: %w", err)
		}
		if config.AutoPersist {
			if err := db.Order("timestamp ASC").Find(&l.records).Error; err != nil {
				return nil, fmt.Errorf("failed to load usage records: %w", err)
			}
			for _, r := range l.records {
				l.totalCost += r.TotalCost
				l.totalTokens += r.TotalTokens
			}
		}
	}

	fiberlog.Infof("Usage ledger initialized: %d records, total cost $%.4f", len(l.records), l.totalCost)
	return l, nil
}

// Record prices the call and appends it to the ledger. When a budget ceiling
// is configured and this cost would cross it, the call fails with
// ErrBudgetExceeded and neither the record list nor the totals change: the
// ledger enforces at-most-budget, not best-effort.
func (l *Ledger) Record(ctx context.Context, params models.RecordUsageParams) (*models.UsageRecord, error) {
	inputCost, outputCost, known := CalculateCost(params.Provider, params.Model, params.InputTokens, params.OutputTokens)
	if !known {
		fiberlog.Warnf("No pricing for %s/%s, recording at zero cost", params.Provider, params.Model)
	}
	totalCost := inputCost + outputCost

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.budgetLimit > 0 && l.totalCost+totalCost > l.budgetLimit {
		remaining := l.budgetLimit - l.totalCost
		fiberlog.Errorf("Budget limit exceeded: current $%.4f, limit $%.4f, request $%.4f",
			l.totalCost, l.budgetLimit, totalCost)
		return nil, models.NewBudgetExceededError(remaining)
	}

	record := models.UsageRecord{
		Timestamp:    time.Now().UTC(),
		Provider:     params.Provider,
		Model:        params.Model,
		InputTokens:  params.InputTokens,
		OutputTokens: params.OutputTokens,
		TotalTokens:  params.InputTokens + params.OutputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    totalCost,
		Subject:      params.Subject,
		Agent:        params.Agent,
		Operation:    params.Operation,
		RequestID:    params.RequestID,
		Metadata:     params.Metadata,
	}

	if l.autoPersist {
		if err := l.db.WithContext(ctx).Create(&record).Error; err != nil {
			// The in-memory ledger stays authoritative for budget
			// enforcement; persistence failure is logged, not fatal.
			fiberlog.Errorf("Failed to persist usage record: %v", err)
		}
	}

	l.records = append(l.records, record)
	l.totalCost += totalCost
	l.totalTokens += record.TotalTokens

	fiberlog.Infof("Usage recorded: %s/%s tokens=%d/%d cost=$%.4f total=$%.4f",
		params.Provider, params.Model, params.InputTokens, params.OutputTokens, totalCost, l.totalCost)

	return &record, nil
}

// Stats aggregates the record set, optionally bounded by time. An empty set
// yields all-zero aggregates.
func (l *Ledger) Stats(from, to *time.Time) models.UsageStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := models.UsageStats{
		ByModel:   make(map[string]models.UsageBreakdown),
		BySubject: make(map[string]models.UsageBreakdown),
		ByAgent:   make(map[string]models.UsageBreakdown),
	}

	for i := range l.records {
		r := &l.records[i]
		if from != nil && r.Timestamp.Before(*from) {
			continue
		}
		if to != nil && r.Timestamp.After(*to) {
			continue
		}

		stats.TotalRequests++
		stats.TotalInputTokens += r.InputTokens
		stats.TotalOutputTokens += r.OutputTokens
		stats.TotalTokens += r.TotalTokens
		stats.TotalCost += r.TotalCost

		accumulate(stats.ByModel, r.Model, r)
		if r.Subject != "" {
			accumulate(stats.BySubject, r.Subject, r)
		}
		if r.Agent != "" {
			accumulate(stats.ByAgent, r.Agent, r)
		}
	}

	if stats.TotalRequests > 0 {
		stats.AvgTokensPerRequest = float64(stats.TotalTokens) / float64(stats.TotalRequests)
		stats.AvgCostPerRequest = stats.TotalCost / float64(stats.TotalRequests)
	}

	return stats
}

func accumulate(m map[string]models.UsageBreakdown, key string, r *models.UsageRecord) {
	b := m[key]
	b.Requests++
	b.InputTokens += r.InputTokens
	b.OutputTokens += r.OutputTokens
	b.TotalTokens += r.TotalTokens
	b.Cost += r.TotalCost
	m[key] = b
}

// BudgetStatus reports the ledger's position against the ceiling.
func (l *Ledger) BudgetStatus() models.BudgetStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.budgetLimit <= 0 {
		return models.BudgetStatus{
			Enabled:   false,
			TotalCost: l.totalCost,
		}
	}

	return models.BudgetStatus{
		Enabled:     true,
		Limit:       l.budgetLimit,
		TotalCost:   l.totalCost,
		Remaining:   l.budgetLimit - l.totalCost,
		PercentUsed: l.totalCost / l.budgetLimit * 100,
		Exceeded:    l.totalCost >= l.budgetLimit,
	}
}

// Reset clears records and totals atomically. Admin-only; the handler
// enforces the role.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		if err := l.db.WithContext(ctx).Where("1 = 1").Delete(&models.UsageRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear persisted usage records: %w", err)
		}
	}

	l.records = nil
	l.totalCost = 0
	l.totalTokens = 0

	fiberlog.Info("Usage ledger reset")
	return nil
}

// TotalCost exposes the running total for health reporting.
func (l *Ledger) TotalCost() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalCost
}
