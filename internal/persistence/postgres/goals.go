package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/events"
	"example.com/healthtracker/internal/observability"
)

const goalColumns = `goal_id, user_id, goal_type, target_value, unit, period, start_date, end_date,
        is_active, title, created_at, updated_at`

// CreateGoal persists a goal together with its outbox event.
func (r *Repository) CreateGoal(ctx context.Context, g domain.Goal) error {
	err := r.ownerTx(ctx, g.UserID, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO goals (` + goalColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
		if _, err := tx.Exec(ctx, stmt,
			g.ID, g.UserID, string(g.Kind), g.TargetValue, g.Unit, string(g.Period), g.StartDate, g.EndDate,
			g.IsActive, g.Title, g.CreatedAt, g.UpdatedAt,
		); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, g.UserID, g.ID, events.GoalCreated, g.UpdatedAt, goalEvent(g, g.UpdatedAt))
	})
	if err != nil {
		return err
	}
	observability.RecordWrite("goal", g.UpdatedAt)
	return nil
}

// GetGoal retrieves an owned goal; (nil, nil) when absent.
func (r *Repository) GetGoal(ctx context.Context, userID, goalID string) (*domain.Goal, error) {
	if !validID(userID, goalID) {
		return nil, nil
	}

	var found *domain.Goal
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		g, err := scanGoal(tx.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id=$1 AND goal_id=$2`, userID, goalID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListGoals returns the owner's goals newest first, optionally filtered on is_active.
func (r *Repository) ListGoals(ctx context.Context, userID string, active *bool) ([]domain.Goal, error) {
	if !validID(userID) {
		return nil, nil
	}

	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id=$1`
	args := []any{userID}
	if active != nil {
		query += ` AND is_active=$2`
		args = append(args, *active)
	}
	query += ` ORDER BY created_at DESC, goal_id DESC`

	var goals []domain.Goal
	err := r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			g, err := scanGoal(rows)
			if err != nil {
				return err
			}
			goals = append(goals, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return goals, nil
}

// UpdateGoal overwrites the mutable columns of an owned goal.
func (r *Repository) UpdateGoal(ctx context.Context, g domain.Goal) error {
	if !validID(g.UserID, g.ID) {
		return domain.ErrGoalNotFound
	}
	err := r.ownerTx(ctx, g.UserID, func(tx pgx.Tx) error {
		const stmt = `UPDATE goals SET goal_type=$3, target_value=$4, unit=$5, period=$6, start_date=$7,
                end_date=$8, is_active=$9, title=$10, updated_at=$11
            WHERE goal_id=$1 AND user_id=$2`
		tag, err := tx.Exec(ctx, stmt,
			g.ID, g.UserID, string(g.Kind), g.TargetValue, g.Unit, string(g.Period), g.StartDate,
			g.EndDate, g.IsActive, g.Title, g.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrGoalNotFound
		}
		return r.insertOutbox(ctx, tx, g.UserID, g.ID, events.GoalUpdated, g.UpdatedAt, goalEvent(g, g.UpdatedAt))
	})
	if err != nil {
		return err
	}
	observability.RecordWrite("goal", g.UpdatedAt)
	return nil
}

// DeleteGoal removes an owned goal; its check-ins go with it via ON DELETE CASCADE.
func (r *Repository) DeleteGoal(ctx context.Context, userID, goalID string) error {
	if !validID(userID, goalID) {
		return domain.ErrGoalNotFound
	}
	now := time.Now().UTC()
	return r.ownerTx(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM goals WHERE goal_id=$1 AND user_id=$2`, goalID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrGoalNotFound
		}
		return r.insertOutbox(ctx, tx, userID, goalID, events.GoalDeleted, now, events.GoalChanged{
			GoalID:     goalID,
			UserID:     userID,
			OccurredAt: now,
		})
	})
}

func scanGoal(row pgx.Row) (domain.Goal, error) {
	var (
		g            domain.Goal
		kind, period string
	)
	err := row.Scan(&g.ID, &g.UserID, &kind, &g.TargetValue, &g.Unit, &period, &g.StartDate, &g.EndDate,
		&g.IsActive, &g.Title, &g.CreatedAt, &g.UpdatedAt)
	g.Kind = domain.GoalKind(kind)
	g.Period = domain.Period(period)
	return g, err
}

func goalEvent(g domain.Goal, occurredAt time.Time) events.GoalChanged {
	target, active := g.TargetValue, g.IsActive
	return events.GoalChanged{
		GoalID:      g.ID,
		UserID:      g.UserID,
		GoalType:    string(g.Kind),
		TargetValue: &target,
		Period:      string(g.Period),
		IsActive:    &active,
		OccurredAt:  occurredAt,
	}
}
