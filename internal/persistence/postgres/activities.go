package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/events"
	"example.com/healthtracker/internal/observability"
)

const activityColumns = `activity_id, user_id, activity_type, title, notes, started_at, ended_at,
        duration_minutes, distance_km, steps, calories_burned, source, created_at, updated_at`

// CreateActivity persists the activity and records an outbox event inside a single transaction.
func (r *Repository) CreateActivity(ctx context.Context, a domain.Activity) error {
	err := r.ownerTx(ctx, a.UserID, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO activities (` + activityColumns + `)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
		if _, err := tx.Exec(ctx, stmt,
			a.ID, a.UserID, string(a.Kind), a.Title, a.Notes, a.StartedAt, a.EndedAt,
			a.DurationMinutes, a.DistanceKm, a.Steps, a.CaloriesBurned, a.Source, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, a.UserID, a.ID, events.ActivityCreated, a.UpdatedAt, activityEvent(a, a.UpdatedAt))
	})
	if err != nil {
		return err
	}
	observability.RecordWrite("activity", a.UpdatedAt)
	return nil
}

// GetActivity retrieves an activity by owner and id; (nil, nil) when absent.
func (r *Repository) GetActivity(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	if !validID(userID, activityID) {
		return nil, nil
	}

	var found *domain.Activity
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE user_id=$1 AND activity_id=$2`, userID, activityID)
		a, err := scanActivity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListActivities returns one page of the owner's activities and the total match count.
func (r *Repository) ListActivities(ctx context.Context, userID string, q domain.ActivityQuery) ([]domain.Activity, int, error) {
	if !validID(userID) {
		return nil, 0, nil
	}

	where := []string{"user_id=$1"}
	args := []any{userID}
	if q.Kind != "" {
		args = append(args, string(q.Kind))
		where = append(where, fmt.Sprintf("activity_type=$%d", len(args)))
	}
	if q.From != nil {
		args = append(args, *q.From)
		where = append(where, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		where = append(where, fmt.Sprintf("started_at <= $%d", len(args)))
	}
	filter := strings.Join(where, " AND ")

	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	listQuery := fmt.Sprintf(`SELECT %s FROM activities WHERE %s ORDER BY started_at %s, activity_id %s LIMIT $%d OFFSET $%d`,
		activityColumns, filter, order, order, len(args)+1, len(args)+2)

	var (
		results []domain.Activity
		total   int
	)
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE `+filter, args...).Scan(&total); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, listQuery, append(args, q.Limit, q.Offset)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		results = make([]domain.Activity, 0, q.Limit)
		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				return err
			}
			results = append(results, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// UpdateActivity overwrites the mutable columns of an owned activity.
func (r *Repository) UpdateActivity(ctx context.Context, a domain.Activity) error {
	if !validID(a.UserID, a.ID) {
		return domain.ErrActivityNotFound
	}
	err := r.ownerTx(ctx, a.UserID, func(tx pgx.Tx) error {
		const stmt = `UPDATE activities SET activity_type=$3, title=$4, notes=$5, started_at=$6, ended_at=$7,
                duration_minutes=$8, distance_km=$9, steps=$10, calories_burned=$11, source=$12, updated_at=$13
            WHERE activity_id=$1 AND user_id=$2`
		tag, err := tx.Exec(ctx, stmt,
			a.ID, a.UserID, string(a.Kind), a.Title, a.Notes, a.StartedAt, a.EndedAt,
			a.DurationMinutes, a.DistanceKm, a.Steps, a.CaloriesBurned, a.Source, a.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrActivityNotFound
		}
		return r.insertOutbox(ctx, tx, a.UserID, a.ID, events.ActivityUpdated, a.UpdatedAt, activityEvent(a, a.UpdatedAt))
	})
	if err != nil {
		return err
	}
	observability.RecordWrite("activity", a.UpdatedAt)
	return nil
}

// DeleteActivity removes an owned activity.
func (r *Repository) DeleteActivity(ctx context.Context, userID, activityID string) error {
	if !validID(userID, activityID) {
		return domain.ErrActivityNotFound
	}
	now := time.Now().UTC()
	return r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE activity_id=$1 AND user_id=$2`, activityID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrActivityNotFound
		}
		return r.insertOutbox(ctx, tx, userID, activityID, events.ActivityDeleted, now, events.ActivityChanged{
			ActivityID: activityID,
			UserID:     userID,
			OccurredAt: now,
		})
	})
}

const totalsSelect = `COUNT(*), COALESCE(SUM(steps),0), COALESCE(SUM(calories_burned),0),
        COALESCE(SUM(distance_km),0), COALESCE(SUM(duration_minutes),0)`

// SumActivities aggregates the owner's activities that started within [from, to].
func (r *Repository) SumActivities(ctx context.Context, userID string, from, to time.Time) (domain.Totals, error) {
	var totals domain.Totals
	if !validID(userID) {
		return totals, nil
	}
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+totalsSelect+` FROM activities
            WHERE user_id=$1 AND started_at >= $2 AND started_at <= $3`, userID, from, to)
		return scanTotals(row, &totals)
	})
	return totals, err
}

// SummarizeActivities groups the owner's activities in [from, to] by kind and by local day.
func (r *Repository) SummarizeActivities(ctx context.Context, userID string, from, to time.Time, loc *time.Location) (domain.ActivitySummary, error) {
	var summary domain.ActivitySummary
	if !validID(userID) {
		return summary, nil
	}

	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		const match = ` FROM activities WHERE user_id=$1 AND started_at >= $2 AND started_at <= $3`

		if err := scanTotals(tx.QueryRow(ctx, `SELECT `+totalsSelect+match, userID, from, to), &summary.Totals); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT activity_type, COUNT(*)`+match+`
            GROUP BY activity_type ORDER BY COUNT(*) DESC, activity_type`, userID, from, to)
		if err != nil {
			return err
		}
		for rows.Next() {
			var (
				kind  string
				count int
			)
			if err := rows.Scan(&kind, &count); err != nil {
				rows.Close()
				return err
			}
			summary.ByType = append(summary.ByType, domain.TypeCount{Kind: domain.ActivityKind(kind), Count: count})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT to_char(started_at AT TIME ZONE COALESCE(NULLIF($4, ''), current_setting('TimeZone')), 'YYYY-MM-DD') AS day, `+
			totalsSelect+match+` GROUP BY day ORDER BY day`, userID, from, to, zoneName(loc))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var bucket domain.DailyTotals
			if err := rows.Scan(&bucket.Date, &bucket.Activities, &bucket.Steps, &bucket.CaloriesBurned, &bucket.DistanceKm, &bucket.DurationMinutes); err != nil {
				return err
			}
			summary.Daily = append(summary.Daily, bucket)
		}
		return rows.Err()
	})
	return summary, err
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a    domain.Activity
		kind string
	)
	err := row.Scan(&a.ID, &a.UserID, &kind, &a.Title, &a.Notes, &a.StartedAt, &a.EndedAt,
		&a.DurationMinutes, &a.DistanceKm, &a.Steps, &a.CaloriesBurned, &a.Source, &a.CreatedAt, &a.UpdatedAt)
	a.Kind = domain.ActivityKind(kind)
	return a, err
}

func scanTotals(row pgx.Row, t *domain.Totals) error {
	return row.Scan(&t.Activities, &t.Steps, &t.CaloriesBurned, &t.DistanceKm, &t.DurationMinutes)
}

func activityEvent(a domain.Activity, occurredAt time.Time) events.ActivityChanged {
	started := a.StartedAt
	return events.ActivityChanged{
		ActivityID:      a.ID,
		UserID:          a.UserID,
		ActivityType:    string(a.Kind),
		StartedAt:       &started,
		EndedAt:         a.EndedAt,
		DurationMinutes: a.DurationMinutes,
		DistanceKm:      a.DistanceKm,
		Steps:           a.Steps,
		CaloriesBurned:  a.CaloriesBurned,
		Source:          a.Source,
		OccurredAt:      occurredAt,
	}
}
