package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/sports-card-catalog/app/db"
	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user data persistence.
type UserRepo interface {
	// CreateUser inserts a user. Returns types.ErrConflict if the email is taken.
	CreateUser(ctx context.Context, email, username, passwordHash string) (*types.User, error)
	// GetUserByID returns types.ErrNotFound if no such user exists.
	GetUserByID(ctx context.Context, userID int64) (*types.User, error)
	// GetUserByUsername returns the lowest-id user with that username, or
	// types.ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	// DeleteUser removes the user and every card it owns in one transaction.
	DeleteUser(ctx context.Context, userID int64) (*types.UserDeletion, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool database.DB
}

func NewPostgresUserRepo(pgpool database.DB, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresUserRepo) CreateUser(ctx context.Context, email, username, passwordHash string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "CreateUser", time.Now())

	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("email", email))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "email check failed")
		if database.IsDataException(err) {
			return nil, fmt.Errorf("%w: email rejected by database: %w", types.ErrValidation, err)
		}
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		l.WarnContext(ctx, "Email already registered")
		span.SetStatus(codes.Error, "email exists")
		return nil, fmt.Errorf("email already registered: %w", types.ErrConflict)
	}

	user := types.User{Email: email, Username: username, PasswordHash: passwordHash}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, username, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`,
		email, username, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			l.WarnContext(ctx, "Email registered concurrently")
			span.SetStatus(codes.Error, "unique violation")
			return nil, fmt.Errorf("email already registered: %w", types.ErrConflict)
		}
		if database.IsDataException(err) {
			span.SetStatus(codes.Error, "rejected value")
			return nil, fmt.Errorf("%w: user rejected by database: %w", types.ErrValidation, err)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}

	span.SetAttributes(attribute.Int64("db.user.id", user.ID))
	span.SetStatus(codes.Ok, "user created")
	l.InfoContext(ctx, "User created", slog.Int64("userID", user.ID))
	return &user, nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID int64) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "GetUserByID", time.Now())

	var user types.User
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	span.SetStatus(codes.Ok, "user fetched")
	return &user, nil
}

func (r *PostgresUserRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "GetUserByUsername", time.Now())

	var user types.User
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE username = $1 ORDER BY id LIMIT 1`,
		username,
	).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("username %q: %w", username, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to fetch user by username: %w", err)
	}
	span.SetStatus(codes.Ok, "user fetched")
	return &user, nil
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, userID int64) (*types.UserDeletion, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeleteUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "DeleteUser", time.Now())

	l := r.logger.With(slog.String("method", "DeleteUser"), slog.Int64("userID", userID))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var user types.User
	err = tx.QueryRow(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("user %d: %w", userID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock failed")
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM cards WHERE user_id = $1`, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete user cards", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "card delete failed")
		return nil, fmt.Errorf("failed to delete cards: %w", err)
	}
	deleted := int(tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "user delete failed")
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit user deletion: %w", err)
	}

	span.SetAttributes(attribute.Int("db.cards.deleted", deleted))
	span.SetStatus(codes.Ok, "user deleted")
	l.InfoContext(ctx, "User deleted", slog.Int("deletedCards", deleted))
	return &types.UserDeletion{User: user, DeletedCardCount: deleted}, nil
}
