package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/observability"
	"example.com/healthtracker/internal/persistence"
)

const userColumns = `user_id, username, email, password_hash, first_name, last_name, profile_picture,
        date_of_birth, gender, height_cm, weight_kg, created_at, updated_at`

// CreateUser inserts a user. Either unique index tripping maps to domain.ErrDuplicateUser.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	const stmt = `INSERT INTO users (` + userColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.pool.Exec(ctx, stmt,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.ProfilePicture,
		u.DateOfBirth, u.Gender, u.HeightCm, u.WeightKg, u.CreatedAt, u.UpdatedAt,
	)
	if persistence.IsUniqueViolation(err) {
		return domain.ErrDuplicateUser
	}
	if err != nil {
		return err
	}
	observability.RecordWrite("user", u.UpdatedAt)
	return nil
}

// GetUser fetches a user by id; (nil, nil) when absent.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, nil
	}
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, userID)
}

// GetUserByEmail fetches a user by normalised email; (nil, nil) when absent.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// UsernameTaken reports whether a user other than exceptUserID holds username.
func (r *Repository) UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username=$1 AND user_id::text <> $2)`,
		username, exceptUserID,
	).Scan(&taken)
	return taken, err
}

// UpdateUser overwrites the profile columns of a user.
func (r *Repository) UpdateUser(ctx context.Context, u domain.User) error {
	if !validID(u.ID) {
		return domain.ErrUserNotFound
	}
	const stmt = `UPDATE users SET username=$2, first_name=$3, last_name=$4, profile_picture=$5,
            date_of_birth=$6, gender=$7, height_cm=$8, weight_kg=$9, updated_at=$10
        WHERE user_id=$1`
	tag, err := r.pool.Exec(ctx, stmt,
		u.ID, u.Username, u.FirstName, u.LastName, u.ProfilePicture,
		u.DateOfBirth, u.Gender, u.HeightCm, u.WeightKg, u.UpdatedAt,
	)
	if persistence.IsUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	observability.RecordWrite("user", u.UpdatedAt)
	return nil
}

func (r *Repository) findUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.ProfilePicture,
		&u.DateOfBirth, &u.Gender, &u.HeightCm, &u.WeightKg, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
