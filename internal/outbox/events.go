// Package outbox persists and delivers analytics events to Kafka.
package outbox

import "time"

// Topic and event names published by this service.
const (
	TopicAnalyticsEvents = "analytics_events"

	EventActivityProcessed = "activity.processed"
)

// ActivityProcessed is emitted after an activity's metrics and insights have
// been committed. Downstream consumers (notifications, feeds) key off it.
type ActivityProcessed struct {
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id"`
	InsightCount int       `json:"insight_count"`
	RecordTypes  []string  `json:"record_types"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventMetadata describes how an event type is routed.
type EventMetadata struct {
	Topic        string
	PartitionKey func(ActivityProcessed) string
}

// Catalog maps event types to routing metadata. Partitioning by user keeps
// one user's events ordered.
var Catalog = map[string]EventMetadata{
	EventActivityProcessed: {
		Topic: TopicAnalyticsEvents,
		PartitionKey: func(e ActivityProcessed) string {
			return e.UserID
		},
	},
}
