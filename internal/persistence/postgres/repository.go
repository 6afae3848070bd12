// Package postgres provides the pgx-backed repository for activities and
// their derived analytics rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/outbox"
	"example.com/analytics/internal/records"
)

// Repository implements domain.Repository on top of a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `activity_id, user_id, external_activity_id, activity_name, sport, sub_sport,
        start_time, end_time, duration_seconds, distance_meters, avg_speed, max_speed,
        avg_heart_rate, max_heart_rate, min_heart_rate, total_calories, total_ascent, total_descent,
        avg_cadence, max_cadence, avg_power, max_power, start_lat, start_lon, end_lat, end_lon,
        device_name, has_gps, has_heart_rate, has_power, has_cadence, created_at, updated_at`

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(
		&a.ID, &a.UserID, &a.ExternalActivityID, &a.Name, &a.Sport, &a.SubSport,
		&a.StartTime, &a.EndTime, &a.DurationSeconds, &a.DistanceMeters, &a.AvgSpeed, &a.MaxSpeed,
		&a.AvgHeartRate, &a.MaxHeartRate, &a.MinHeartRate, &a.TotalCalories, &a.TotalAscent, &a.TotalDescent,
		&a.AvgCadence, &a.MaxCadence, &a.AvgPower, &a.MaxPower, &a.StartLat, &a.StartLon, &a.EndLat, &a.EndLon,
		&a.DeviceName, &a.HasGPS, &a.HasHeartRate, &a.HasPower, &a.HasCadence, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActivity returns the activity or nil when the id is unknown.
func (r *Repository) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE activity_id = $1`
	activity, err := scanActivity(r.pool.QueryRow(ctx, query, activityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return activity, nil
}

// GetUser returns the user profile or nil when unknown.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT user_id, external_user_id, timezone, max_heart_rate, created_at
        FROM users WHERE user_id = $1`

	var u domain.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(&u.ID, &u.ExternalUserID, &u.Timezone, &u.MaxHeartRate, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActivityRecords returns the activity's samples ordered by record
// index.
func (r *Repository) ListActivityRecords(ctx context.Context, activityID string) ([]domain.ActivityRecord, error) {
	const query = `SELECT activity_id, record_index, elapsed_seconds, latitude, longitude, altitude,
            heart_rate, cadence, power, speed, vertical_oscillation, stance_time, step_length, temperature
        FROM activity_records WHERE activity_id = $1 ORDER BY record_index`

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActivityRecord
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(
			&rec.ActivityID, &rec.RecordIndex, &rec.ElapsedSeconds, &rec.Latitude, &rec.Longitude, &rec.Altitude,
			&rec.HeartRate, &rec.Cadence, &rec.Power, &rec.Speed, &rec.VerticalOscillation, &rec.StanceTime,
			&rec.StepLength, &rec.Temperature,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReplaceDerived commits the metrics row, the full insight set, and the
// processed outbox event in one transaction. Reprocessing replaces, never
// appends.
func (r *Repository) ReplaceDerived(ctx context.Context, activity domain.Activity, metrics domain.ActivityMetrics, insights []domain.ActivityInsight, newRecordTypes []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = upsertMetrics(ctx, tx, metrics); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM activity_insights WHERE activity_id = $1`, activity.ID); err != nil {
		return err
	}

	for _, ins := range insights {
		var payload []byte
		if ins.Payload != nil {
			payload, err = json.Marshal(ins.Payload)
			if err != nil {
				return err
			}
		}
		if _, err = tx.Exec(ctx,
			`INSERT INTO activity_insights (insight_id, activity_id, insight_type, category, message, payload, created_at)
             VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			ins.ID, ins.ActivityID, string(ins.Type), ins.Category, ins.Message, payload, ins.CreatedAt,
		); err != nil {
			return err
		}
	}

	if err = insertOutboxEvent(ctx, tx, activity, len(insights), newRecordTypes); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	return err
}

func upsertMetrics(ctx context.Context, tx pgx.Tx, m domain.ActivityMetrics) error {
	const stmt = `INSERT INTO activity_metrics (
            activity_id, hr_drift_percent, consistency_score, fatigue_index_percent, aerobic_efficiency,
            calories_per_km, zone1_seconds, zone2_seconds, zone3_seconds, zone4_seconds, zone5_seconds,
            zone1_percent, zone2_percent, zone3_percent, zone4_percent, zone5_percent,
            hr_std_dev, speed_variability, cadence_std_dev, cadence_consistency,
            avg_vertical_oscillation, avg_stance_time, avg_step_length, total_steps,
            training_effect, anaerobic_training_effect, computed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
        ON CONFLICT (activity_id) DO UPDATE SET
            hr_drift_percent = EXCLUDED.hr_drift_percent,
            consistency_score = EXCLUDED.consistency_score,
            fatigue_index_percent = EXCLUDED.fatigue_index_percent,
            aerobic_efficiency = EXCLUDED.aerobic_efficiency,
            calories_per_km = EXCLUDED.calories_per_km,
            zone1_seconds = EXCLUDED.zone1_seconds,
            zone2_seconds = EXCLUDED.zone2_seconds,
            zone3_seconds = EXCLUDED.zone3_seconds,
            zone4_seconds = EXCLUDED.zone4_seconds,
            zone5_seconds = EXCLUDED.zone5_seconds,
            zone1_percent = EXCLUDED.zone1_percent,
            zone2_percent = EXCLUDED.zone2_percent,
            zone3_percent = EXCLUDED.zone3_percent,
            zone4_percent = EXCLUDED.zone4_percent,
            zone5_percent = EXCLUDED.zone5_percent,
            hr_std_dev = EXCLUDED.hr_std_dev,
            speed_variability = EXCLUDED.speed_variability,
            cadence_std_dev = EXCLUDED.cadence_std_dev,
            cadence_consistency = EXCLUDED.cadence_consistency,
            avg_vertical_oscillation = EXCLUDED.avg_vertical_oscillation,
            avg_stance_time = EXCLUDED.avg_stance_time,
            avg_step_length = EXCLUDED.avg_step_length,
            total_steps = EXCLUDED.total_steps,
            training_effect = EXCLUDED.training_effect,
            anaerobic_training_effect = EXCLUDED.anaerobic_training_effect,
            computed_at = EXCLUDED.computed_at`

	_, err := tx.Exec(ctx, stmt,
		m.ActivityID, m.HRDriftPercent, m.ConsistencyScore, m.FatigueIndexPercent, m.AerobicEfficiency,
		m.CaloriesPerKm, m.Zone1Seconds, m.Zone2Seconds, m.Zone3Seconds, m.Zone4Seconds, m.Zone5Seconds,
		m.Zone1Percent, m.Zone2Percent, m.Zone3Percent, m.Zone4Percent, m.Zone5Percent,
		m.HRStdDev, m.SpeedVariability, m.CadenceStdDev, m.CadenceConsistency,
		m.AvgVerticalOscillation, m.AvgStanceTime, m.AvgStepLength, m.TotalSteps,
		m.TrainingEffect, m.AnaerobicTrainingEffect, m.ComputedAt,
	)
	return err
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, activity domain.Activity, insightCount int, newRecordTypes []string) error {
	event := outbox.ActivityProcessed{
		ActivityID:   activity.ID,
		UserID:       activity.UserID,
		InsightCount: insightCount,
		RecordTypes:  newRecordTypes,
		OccurredAt:   time.Now().UTC(),
	}

	meta, ok := outbox.Catalog[outbox.EventActivityProcessed]
	if !ok {
		return fmt.Errorf("unknown event type: %s", outbox.EventActivityProcessed)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("%s:%s", activity.ID, outbox.EventActivityProcessed)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		activity.ID,
		outbox.EventActivityProcessed,
		meta.Topic,
		meta.PartitionKey(event),
		body,
		dedupeKey,
	)
	return err
}

// UpsertUserRecord installs the candidate record only when it beats the
// stored value in the configured direction, or re-asserts a record this
// same activity already holds. The comparison happens inside the statement,
// so concurrent writers cannot lose updates; RowsAffected reports whether
// this candidate holds the record afterwards. The holder re-assert branch
// keeps reprocessing deterministic: a re-run of the achieving activity sees
// its record as held, a tying candidate from a different activity does not.
func (r *Repository) UpsertUserRecord(ctx context.Context, record domain.UserRecord) (bool, error) {
	lowerIsBetter := records.DirectionOf(record.RecordType) == records.LowerIsBetter

	const stmt = `INSERT INTO user_records (user_id, record_type, sport, value, unit, activity_id, achieved_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
        ON CONFLICT (user_id, record_type, sport) DO UPDATE SET
            value = EXCLUDED.value,
            unit = EXCLUDED.unit,
            activity_id = EXCLUDED.activity_id,
            achieved_at = EXCLUDED.achieved_at,
            updated_at = NOW()
        WHERE ($8 AND EXCLUDED.value < user_records.value)
           OR (NOT $8 AND EXCLUDED.value > user_records.value)
           OR (user_records.activity_id IS NOT DISTINCT FROM EXCLUDED.activity_id
               AND user_records.value = EXCLUDED.value)`

	tag, err := r.pool.Exec(ctx, stmt,
		record.UserID, record.RecordType, record.Sport, record.Value, record.Unit,
		record.ActivityID, record.AchievedAt, lowerIsBetter,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecomputeDailyStats rebuilds the (user, date) rollup from scratch over
// all of the user's activities on that local calendar date. The whole
// recompute is one statement per branch, so concurrent runs converge on the
// same totals.
func (r *Repository) RecomputeDailyStats(ctx context.Context, userID string, date time.Time, timezone string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	// Pace is averaged per activity (1000/avg_speed), not derived from the
	// mean speed; the two differ whenever activity speeds vary.
	const upsert = `INSERT INTO user_stats_daily (
            user_id, stats_date, total_activities, total_distance_meters, total_duration_seconds,
            total_calories, avg_heart_rate, avg_pace_seconds_per_km, updated_at)
        SELECT $1, $2::date, COUNT(*),
            COALESCE(SUM(distance_meters), 0),
            COALESCE(SUM(duration_seconds), 0),
            COALESCE(SUM(total_calories), 0),
            AVG(avg_heart_rate::double precision),
            AVG(1000.0 / NULLIF(avg_speed, 0)),
            NOW()
        FROM activities
        WHERE user_id = $1 AND (start_time AT TIME ZONE $3)::date = $2::date
        HAVING COUNT(*) > 0
        ON CONFLICT (user_id, stats_date) DO UPDATE SET
            total_activities = EXCLUDED.total_activities,
            total_distance_meters = EXCLUDED.total_distance_meters,
            total_duration_seconds = EXCLUDED.total_duration_seconds,
            total_calories = EXCLUDED.total_calories,
            avg_heart_rate = EXCLUDED.avg_heart_rate,
            avg_pace_seconds_per_km = EXCLUDED.avg_pace_seconds_per_km,
            updated_at = NOW()`

	var tag pgconn.CommandTag
	tag, err = tx.Exec(ctx, upsert, userID, date, timezone)
	if err != nil {
		return err
	}

	// No activities left on that date: drop the stale rollup, if any.
	if tag.RowsAffected() == 0 {
		if _, err = tx.Exec(ctx,
			`DELETE FROM user_stats_daily WHERE user_id = $1 AND stats_date = $2::date`,
			userID, date,
		); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	return err
}

// GetActivityMetrics returns the derived metrics row, or nil when the
// activity has not been processed.
func (r *Repository) GetActivityMetrics(ctx context.Context, activityID string) (*domain.ActivityMetrics, error) {
	const query = `SELECT activity_id, hr_drift_percent, consistency_score, fatigue_index_percent,
            aerobic_efficiency, calories_per_km,
            zone1_seconds, zone2_seconds, zone3_seconds, zone4_seconds, zone5_seconds,
            zone1_percent, zone2_percent, zone3_percent, zone4_percent, zone5_percent,
            hr_std_dev, speed_variability, cadence_std_dev, cadence_consistency,
            avg_vertical_oscillation, avg_stance_time, avg_step_length, total_steps,
            training_effect, anaerobic_training_effect, computed_at
        FROM activity_metrics WHERE activity_id = $1`

	var m domain.ActivityMetrics
	err := r.pool.QueryRow(ctx, query, activityID).Scan(
		&m.ActivityID, &m.HRDriftPercent, &m.ConsistencyScore, &m.FatigueIndexPercent,
		&m.AerobicEfficiency, &m.CaloriesPerKm,
		&m.Zone1Seconds, &m.Zone2Seconds, &m.Zone3Seconds, &m.Zone4Seconds, &m.Zone5Seconds,
		&m.Zone1Percent, &m.Zone2Percent, &m.Zone3Percent, &m.Zone4Percent, &m.Zone5Percent,
		&m.HRStdDev, &m.SpeedVariability, &m.CadenceStdDev, &m.CadenceConsistency,
		&m.AvgVerticalOscillation, &m.AvgStanceTime, &m.AvgStepLength, &m.TotalSteps,
		&m.TrainingEffect, &m.AnaerobicTrainingEffect, &m.ComputedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActivityInsights returns the activity's current insight set.
func (r *Repository) ListActivityInsights(ctx context.Context, activityID string) ([]domain.ActivityInsight, error) {
	const query = `SELECT insight_id, activity_id, insight_type, category, message, payload, created_at
        FROM activity_insights WHERE activity_id = $1 ORDER BY insight_id`

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActivityInsight
	for rows.Next() {
		var ins domain.ActivityInsight
		var insightType string
		var payload []byte
		if err := rows.Scan(&ins.ID, &ins.ActivityID, &insightType, &ins.Category, &ins.Message, &payload, &ins.CreatedAt); err != nil {
			return nil, err
		}
		ins.Type = domain.InsightType(insightType)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ins.Payload); err != nil {
				return nil, fmt.Errorf("decode insight payload %s: %w", ins.ID, err)
			}
		}
		out = append(out, ins)
	}
	return out, rows.Err()
}

// ListUserRecords returns the user's personal records, optionally narrowed
// to one sport.
func (r *Repository) ListUserRecords(ctx context.Context, userID, sport string) ([]domain.UserRecord, error) {
	query := `SELECT user_id, record_type, sport, value, unit, activity_id, achieved_at
        FROM user_records WHERE user_id = $1`
	args := []interface{}{userID}

	if sport != "" {
		query += ` AND sport = $2`
		args = append(args, sport)
	}
	query += ` ORDER BY sport, record_type`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserRecord
	for rows.Next() {
		var rec domain.UserRecord
		if err := rows.Scan(&rec.UserID, &rec.RecordType, &rec.Sport, &rec.Value, &rec.Unit, &rec.ActivityID, &rec.AchievedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListDailyStats returns the user's daily rollups between two dates,
// inclusive.
func (r *Repository) ListDailyStats(ctx context.Context, userID string, from, to time.Time) ([]domain.UserStatsDaily, error) {
	const query = `SELECT user_id, stats_date, total_activities, total_distance_meters,
            total_duration_seconds, total_calories, avg_heart_rate, avg_pace_seconds_per_km, updated_at
        FROM user_stats_daily
        WHERE user_id = $1 AND stats_date >= $2::date AND stats_date <= $3::date
        ORDER BY stats_date`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserStatsDaily
	for rows.Next() {
		var st domain.UserStatsDaily
		if err := rows.Scan(&st.UserID, &st.Date, &st.TotalActivities, &st.TotalDistanceMeters,
			&st.TotalDurationSeconds, &st.TotalCalories, &st.AvgHeartRate, &st.AvgPaceSecondsPerKm, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListActivitiesByUser returns activities newest first with keyset
// pagination.
func (r *Repository) ListActivitiesByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = $1`
	args := []interface{}{userID, limit}

	if cursor != nil {
		query += ` AND (start_time, activity_id) < ($3, $4)`
		args = append(args, cursor.StartedAt, cursor.ID)
	}
	query += ` ORDER BY start_time DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0, limit)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{StartedAt: last.StartTime, ID: last.ID}
	}

	return results, next, nil
}
