package service

import (
	"context"
	"fmt"
	"time"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/metrics"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
)

const historyWriteTimeout = 5 * time.Second

// HistorySink receives acquisition records. The Redis history buffer and
// DirectHistorySink both satisfy it.
type HistorySink interface {
	Record(ctx context.Context, rec model.AcquisitionRecord) error
}

// DirectHistorySink writes each record straight to the repository.
type DirectHistorySink struct {
	repo repository.HistoryRepository
}

// NewDirectHistorySink creates a sink over repo.
func NewDirectHistorySink(repo repository.HistoryRepository) *DirectHistorySink {
	return &DirectHistorySink{repo: repo}
}

// Record appends one record.
func (s *DirectHistorySink) Record(ctx context.Context, rec model.AcquisitionRecord) error {
	return s.repo.AppendHistory(ctx, []model.AcquisitionRecord{rec})
}

// HistoryService records acquisitions and serves the recent-drops feed.
type HistoryService struct {
	sink  HistorySink
	repo  repository.HistoryRepository
	limit int
}

// NewHistoryService creates a history service. limit bounds Recent.
func NewHistoryService(sink HistorySink, repo repository.HistoryRepository, limit int) *HistoryService {
	if limit <= 0 {
		limit = 25
	}
	return &HistoryService{sink: sink, repo: repo, limit: limit}
}

// RecordAcquisition is fire-and-forget: failures are logged and counted,
// never returned. It runs detached from ctx cancellation so a client
// disconnect after commit does not drop the record.
func (s *HistoryService) RecordAcquisition(ctx context.Context, rec model.AcquisitionRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.sink.Record(writeCtx, rec); err != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		logger.FromContext(ctx).Warn("Failed to record acquisition history",
			"user_id", rec.UserID, "item_id", rec.ItemID, "case_id", rec.CaseID, "error", err)
	}
}

// Limit is the maximum number of records Recent returns.
func (s *HistoryService) Limit() int {
	return s.limit
}

// Recent returns the user's newest acquisitions.
func (s *HistoryService) Recent(ctx context.Context, userID int64) ([]model.AcquisitionRecord, error) {
	records, err := s.repo.ListRecentHistory(ctx, userID, s.limit)
	if err != nil {
		return nil, persistenceErr("list history", err)
	}
	return records, nil
}

// HistoryFlushFunc creates the flush callback for the Redis history buffer.
func HistoryFlushFunc(repo repository.HistoryRepository) cache.FlushFunc {
	return func(ctx context.Context, records []model.AcquisitionRecord) error {
		if err := repo.AppendHistory(ctx, records); err != nil {
			return fmt.Errorf("failed to flush %d history records: %w", len(records), err)
		}
		return nil
	}
}
