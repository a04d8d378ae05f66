package repository

import (
	"context"
	"strings"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, first_name, last_name, email, password_hash, bio, study_interests, profile_image, created_at`

type UserRepository struct {
	db DBTX
}

type UpdateUserInput struct {
	FirstName      *string
	LastName       *string
	Bio            *string
	StudyInterests *string
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Bio,
		&user.StudyInterests,
		&user.ProfileImage,
		&user.CreatedAt,
	)
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, user.FirstName, user.LastName, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListExcept returns every user but excludeID, newest first. Empty filter
// fields match everything.
func (r *UserRepository) ListExcept(ctx context.Context, excludeID int64, filter models.UserListFilter) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id <> $1
		  AND ($2::text = ''
		       OR first_name ILIKE $2
		       OR last_name ILIKE $2
		       OR email ILIKE $2
		       OR COALESCE(study_interests, '') ILIKE $2)
		  AND ($3::text = '' OR COALESCE(study_interests, '') ILIKE $3)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, excludeID, containsPattern(filter.Search), containsPattern(filter.Interest))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) UpdatePartial(ctx context.Context, id int64, req UpdateUserInput) (*models.User, error) {
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name),
		    bio = COALESCE($4, bio),
		    study_interests = COALESCE($5, study_interests)
		WHERE id = $1
		RETURNING ` + userColumns

	var user models.User
	err := scanUser(r.db.QueryRow(ctx, query, id, req.FirstName, req.LastName, req.Bio, req.StudyInterests), &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfileImage(ctx context.Context, id int64, imagePath string) (*models.User, error) {
	query := `
		UPDATE users
		SET profile_image = $2
		WHERE id = $1
		RETURNING ` + userColumns

	var user models.User
	if err := scanUser(r.db.QueryRow(ctx, query, id, imagePath), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(term) + "%"
}
