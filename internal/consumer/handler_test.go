package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/pipeline"
)

type stubProcessor struct {
	calls  []string
	result *pipeline.ProcessResult
	err    error
}

func (p *stubProcessor) ProcessActivity(_ context.Context, activityID string) (*pipeline.ProcessResult, error) {
	p.calls = append(p.calls, activityID)
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func ingestedMessage(activityID, userID string) Message {
	payload, _ := json.Marshal(map[string]string{
		"activity_id": activityID,
		"user_id":     userID,
	})
	return Message{
		Topic:     "activity_ingested",
		EventType: EventActivityIngested,
		UserID:    userID,
		Payload:   payload,
	}
}

func TestProcessHandlerRunsPipeline(t *testing.T) {
	proc := &stubProcessor{result: &pipeline.ProcessResult{
		ActivityID:   "act-1",
		UserID:       "user-1",
		SampleCount:  100,
		InsightCount: 3,
	}}
	handler := NewProcessHandler(proc, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), ingestedMessage("act-1", "user-1"))
	require.NoError(t, err)
	require.Equal(t, []string{"act-1"}, proc.calls)
}

func TestProcessHandlerIgnoresOtherEvents(t *testing.T) {
	proc := &stubProcessor{}
	handler := NewProcessHandler(proc, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), Message{EventType: "activity.deleted"})
	require.NoError(t, err)
	require.Empty(t, proc.calls)
}

func TestProcessHandlerSkipsUnknownActivity(t *testing.T) {
	proc := &stubProcessor{err: domain.ErrActivityNotFound}
	handler := NewProcessHandler(proc, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), ingestedMessage("ghost", "user-1"))
	require.NoError(t, err, "unknown activities are committed, not retried")
}

func TestProcessHandlerRetriesAggregationFailure(t *testing.T) {
	proc := &stubProcessor{err: fmt.Errorf("%w: deadlock", domain.ErrAggregationFailed)}
	handler := NewProcessHandler(proc, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), ingestedMessage("act-1", "user-1"))
	require.ErrorIs(t, err, domain.ErrAggregationFailed)
}

func TestProcessHandlerRejectsBadPayload(t *testing.T) {
	proc := &stubProcessor{}
	handler := NewProcessHandler(proc, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), Message{
		EventType: EventActivityIngested,
		Payload:   []byte(`{"activity_id":`),
	})
	require.Error(t, err)

	err = handler.Handle(context.Background(), Message{
		EventType: EventActivityIngested,
		Payload:   []byte(`{"user_id":"u1"}`),
	})
	require.Error(t, err, "missing activity_id")
	require.Empty(t, proc.calls)
}

func TestProcessHandlerPropagatesErrors(t *testing.T) {
	proc := &stubProcessor{err: errors.New("pg down")}
	handler := NewProcessHandler(proc, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), ingestedMessage("act-1", "user-1"))
	require.Error(t, err)
}
