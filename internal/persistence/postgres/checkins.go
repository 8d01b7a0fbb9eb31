package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/events"
	"example.com/healthtracker/internal/observability"
	"example.com/healthtracker/internal/persistence"
)

const checkinColumns = `checkin_id, user_id, goal_id, day, value, created_at, updated_at`

// UpsertCheckin inserts the check-in or overwrites the value of the existing (user, goal, day) row.
func (r *Repository) UpsertCheckin(ctx context.Context, c domain.Checkin) (*domain.Checkin, error) {
	if !validID(c.UserID, c.GoalID) {
		return nil, domain.ErrGoalNotFound
	}

	var stored domain.Checkin
	err := r.ownerTx(ctx, c.UserID, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO goal_checkins (` + checkinColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7)
            ON CONFLICT (user_id, goal_id, day) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
            RETURNING ` + checkinColumns
		row := tx.QueryRow(ctx, stmt, c.ID, c.UserID, c.GoalID, c.Day, c.Value, c.CreatedAt, c.UpdatedAt)
		var err error
		if stored, err = scanCheckin(row); err != nil {
			return err
		}

		value := stored.Value
		return r.insertOutbox(ctx, tx, c.UserID, stored.ID, events.CheckinUpserted, stored.UpdatedAt, events.CheckinChanged{
			CheckinID:  stored.ID,
			GoalID:     stored.GoalID,
			UserID:     stored.UserID,
			Day:        stored.Day.Format(time.RFC3339),
			Value:      &value,
			OccurredAt: stored.UpdatedAt,
		})
	})
	switch {
	case persistence.IsUniqueViolation(err):
		return nil, domain.ErrCheckinConflict
	case persistence.IsForeignKeyViolation(err):
		return nil, domain.ErrGoalNotFound
	case err != nil:
		return nil, err
	}
	observability.RecordWrite("checkin", stored.UpdatedAt)
	return &stored, nil
}

// ListCheckins returns up to limit check-ins for a goal, newest day first.
func (r *Repository) ListCheckins(ctx context.Context, userID, goalID string, limit int) ([]domain.Checkin, error) {
	if !validID(userID, goalID) {
		return nil, nil
	}

	var items []domain.Checkin
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+checkinColumns+` FROM goal_checkins
            WHERE user_id=$1 AND goal_id=$2 ORDER BY day DESC LIMIT $3`, userID, goalID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			c, err := scanCheckin(rows)
			if err != nil {
				return err
			}
			items = append(items, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteCheckin removes a check-in matching owner, goal and id.
func (r *Repository) DeleteCheckin(ctx context.Context, userID, goalID, checkinID string) error {
	if !validID(userID, goalID, checkinID) {
		return domain.ErrCheckinNotFound
	}
	now := time.Now().UTC()
	return r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM goal_checkins WHERE checkin_id=$1 AND goal_id=$2 AND user_id=$3`, checkinID, goalID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCheckinNotFound
		}
		return r.insertOutbox(ctx, tx, userID, checkinID, events.CheckinDeleted, now, events.CheckinChanged{
			CheckinID:  checkinID,
			GoalID:     goalID,
			UserID:     userID,
			OccurredAt: now,
		})
	})
}

// SumCheckins totals check-in values whose day falls within [from, to].
func (r *Repository) SumCheckins(ctx context.Context, userID, goalID string, from, to time.Time) (float64, error) {
	if !validID(userID, goalID) {
		return 0, nil
	}
	var sum float64
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT COALESCE(SUM(value),0) FROM goal_checkins
            WHERE user_id=$1 AND goal_id=$2 AND day >= $3 AND day <= $4`, userID, goalID, from, to).Scan(&sum)
	})
	return sum, err
}

func scanCheckin(row pgx.Row) (domain.Checkin, error) {
	var c domain.Checkin
	err := row.Scan(&c.ID, &c.UserID, &c.GoalID, &c.Day, &c.Value, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
