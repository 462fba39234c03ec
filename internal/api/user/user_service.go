package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/sports-card-catalog/app/observability/metrics"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/auth"
	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the business logic contract for user operations.
type UserService interface {
	Register(ctx context.Context, email, username, password string) (*types.User, error)
	// Login returns types.ErrUnauthenticated for an unknown username or a
	// wrong password; the two are indistinguishable to the caller.
	Login(ctx context.Context, username, password string) (*types.PublicUser, error)
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	DeleteUser(ctx context.Context, userID int64) (*types.UserDeletion, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger    *slog.Logger
	repo      UserRepo
	passwords auth.PasswordService
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, passwords auth.PasswordService, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:    logger,
		repo:      repo,
		passwords: passwords,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, email, username, password string) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))
	l.DebugContext(ctx, "Registering user")

	if strings.TrimSpace(email) == "" || strings.TrimSpace(username) == "" || password == "" {
		span.SetStatus(codes.Error, "missing fields")
		return nil, fmt.Errorf("%w: email, username and password are required", types.ErrValidation)
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		l.WarnContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash failed")
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, username, hashed)
	if err != nil {
		l.WarnContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("error registering user: %w", err)
	}

	metrics.Get().UsersRegisteredTotal.Add(ctx, 1)
	l.InfoContext(ctx, "User registered", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "user registered")
	return user, nil
}

func (s *UserServiceImpl) Login(ctx context.Context, username, password string) (*types.PublicUser, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login for unknown username")
			span.SetStatus(codes.Error, "invalid credentials")
			return nil, fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
		}
		l.ErrorContext(ctx, "Failed to look up user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		l.WarnContext(ctx, "Login with wrong password", slog.Int64("userID", user.ID))
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
	}

	l.InfoContext(ctx, "User logged in", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "logged in")
	return &types.PublicUser{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUser", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "user fetched")
	return user, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID int64) (*types.UserDeletion, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "DeleteUser", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteUser"), slog.Int64("userID", userID))

	deletion, err := s.repo.DeleteUser(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to delete user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return nil, fmt.Errorf("error deleting user: %w", err)
	}

	l.InfoContext(ctx, "User deleted", slog.Int("deletedCards", deletion.DeletedCardCount))
	span.SetStatus(codes.Ok, "user deleted")
	return deletion, nil
}
