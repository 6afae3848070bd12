package domain

import (
	"context"
	"time"
)

// Repository captures the persistence operations the pipeline issues. Lookup
// methods return nil (not an error) when the row does not exist.
type Repository interface {
	GetActivity(ctx context.Context, activityID string) (*Activity, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	ListActivityRecords(ctx context.Context, activityID string) ([]ActivityRecord, error)

	// ReplaceDerived commits the activity's metrics row and its full insight
	// set in a single transaction, replacing whatever a prior run wrote, and
	// enqueues the processed event for outbox delivery. Either all of it
	// commits or none of it does.
	ReplaceDerived(ctx context.Context, activity Activity, metrics ActivityMetrics, insights []ActivityInsight, newRecordTypes []string) error

	// UpsertUserRecord performs the compare-and-set record write: it
	// installs the candidate if no record exists for the triple, the
	// candidate is strictly better at write time, or the candidate's
	// activity already holds the record with the same value. Returns whether
	// the candidate holds the record afterwards, so reprocessing the
	// achieving activity reports its records again while a tying candidate
	// from another activity does not.
	UpsertUserRecord(ctx context.Context, record UserRecord) (bool, error)

	// RecomputeDailyStats rebuilds the (user, date) rollup from scratch over
	// all of the user's activities on that calendar date in the given
	// timezone. Idempotent; removes the row when the date has no activities.
	RecomputeDailyStats(ctx context.Context, userID string, date time.Time, timezone string) error

	GetActivityMetrics(ctx context.Context, activityID string) (*ActivityMetrics, error)
	ListActivityInsights(ctx context.Context, activityID string) ([]ActivityInsight, error)
	ListUserRecords(ctx context.Context, userID, sport string) ([]UserRecord, error)
	ListDailyStats(ctx context.Context, userID string, from, to time.Time) ([]UserStatsDaily, error)
	ListActivitiesByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
}
