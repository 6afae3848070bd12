package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/pipeline"
)

// EventActivityIngested is emitted by the ingestion service once an
// activity and its samples are fully stored.
const EventActivityIngested = "activity.ingested"

type activityIngested struct {
	ActivityID string `json:"activity_id"`
	UserID     string `json:"user_id"`
}

// ActivityProcessor is the slice of the pipeline service the handler needs.
type ActivityProcessor interface {
	ProcessActivity(ctx context.Context, activityID string) (*pipeline.ProcessResult, error)
}

// ProcessHandler runs the analytics pipeline for each ingested activity.
type ProcessHandler struct {
	service ActivityProcessor
	logger  *log.Logger
}

// NewProcessHandler constructs a handler driving the given pipeline service.
func NewProcessHandler(service ActivityProcessor, logger *log.Logger) *ProcessHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[process-handler] ", log.LstdFlags|log.Lshortfile)
	}
	return &ProcessHandler{service: service, logger: logger}
}

// Handle processes activity.ingested events and ignores everything else.
// Unknown activity ids are logged and committed rather than retried: the
// ingesting side owns the row, and a missing id will not appear by replaying.
func (h *ProcessHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != EventActivityIngested {
		return nil
	}

	var event activityIngested
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
	}
	if event.ActivityID == "" {
		return errors.New("activity.ingested event missing activity_id")
	}

	result, err := h.service.ProcessActivity(ctx, event.ActivityID)
	if errors.Is(err, domain.ErrActivityNotFound) {
		h.logger.Printf("skipping unknown activity %s (user=%s)", event.ActivityID, event.UserID)
		return nil
	}
	if errors.Is(err, domain.ErrAggregationFailed) {
		// Derived rows are committed; only the rollup is stale. Let the
		// message retry so the next pass rebuilds it.
		h.logger.Printf("daily rollup failed for activity %s: %v", event.ActivityID, err)
		return err
	}
	if err != nil {
		return err
	}

	h.logger.Printf("processed activity %s: samples=%d insights=%d records=%d",
		result.ActivityID, result.SampleCount, result.InsightCount, len(result.NewRecords))
	return nil
}
