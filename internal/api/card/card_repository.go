package card

import (
	"context"
	"encoding/json"
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

var _ CardRepo = (*PostgresCardRepo)(nil)

const cardColumns = `id, user_id, player_name, year, brand, set_name, sport, card_number,
	condition, value, features, sold, front_image_url, back_image_url, created_at`

// CardRepo defines the contract for card persistence. Every mutation runs
// in its own transaction and is rolled back on any error.
type CardRepo interface {
	// Create returns types.ErrNotFound if fields.UserID does not resolve.
	Create(ctx context.Context, fields types.CardFields) (*types.Card, error)
	GetByID(ctx context.Context, cardID int64) (*types.Card, error)
	// List returns every card ordered by id.
	List(ctx context.Context) ([]types.Card, error)
	ListByUser(ctx context.Context, userID int64) ([]types.Card, error)
	// Update replaces every mutable field. Returns types.ErrNotFound if the
	// card or the new owner is absent.
	Update(ctx context.Context, cardID int64, fields types.CardFields) (*types.Card, error)
	Delete(ctx context.Context, cardID int64) error
	// SetImage points one image field of the card at ref.
	SetImage(ctx context.Context, cardID int64, side types.ImageSide, ref string) (*types.Card, error)
}

type PostgresCardRepo struct {
	logger *slog.Logger
	pgpool database.DB
}

func NewPostgresCardRepo(pgpool database.DB, logger *slog.Logger) *PostgresCardRepo {
	return &PostgresCardRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func scanCard(row pgx.Row) (*types.Card, error) {
	var (
		c        types.Card
		features []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &c.PlayerName, &c.Year, &c.Brand, &c.SetName, &c.Sport, &c.CardNumber,
		&c.Condition, &c.Value, &features, &c.Sold, &c.FrontImageURL, &c.BackImageURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &c.Features); err != nil {
		return nil, fmt.Errorf("decoding features of card %d: %w", c.ID, err)
	}
	return &c, nil
}

// lockOwner fails with types.ErrNotFound unless the user exists, and holds
// the row against concurrent deletion until the transaction ends.
func lockOwner(ctx context.Context, tx pgx.Tx, userID int64) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR KEY SHARE`, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user with id %d not found: %w", userID, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check card owner: %w", err)
	}
	return nil
}

func (r *PostgresCardRepo) Create(ctx context.Context, fields types.CardFields) (*types.Card, error) {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "cards"),
		attribute.Int64("db.user.id", fields.UserID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "CreateCard", time.Now())

	l := r.logger.With(slog.String("method", "Create"), slog.Int64("userID", fields.UserID))

	features, err := json.Marshal(fields.Features)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding features: %w", types.ErrValidation, err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwner(ctx, tx, fields.UserID); err != nil {
		span.SetStatus(codes.Error, "owner check failed")
		return nil, err
	}

	card, err := scanCard(tx.QueryRow(ctx, `
		INSERT INTO cards (user_id, player_name, year, brand, set_name, sport, card_number,
		                   condition, value, features, sold, front_image_url, back_image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+cardColumns,
		fields.UserID, fields.PlayerName, fields.Year, fields.Brand, fields.SetName, fields.Sport, fields.CardNumber,
		fields.Condition, fields.Value, features, fields.Sold, fields.FrontImageURL, fields.BackImageURL,
	))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			span.SetStatus(codes.Error, "owner vanished")
			return nil, fmt.Errorf("user with id %d not found: %w", fields.UserID, types.ErrNotFound)
		}
		if database.IsDataException(err) {
			span.SetStatus(codes.Error, "rejected value")
			return nil, fmt.Errorf("%w: card rejected by database: %w", types.ErrValidation, err)
		}
		l.ErrorContext(ctx, "Failed to insert card", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to insert card: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit card: %w", err)
	}

	span.SetAttributes(attribute.Int64("db.card.id", card.ID))
	span.SetStatus(codes.Ok, "card created")
	return card, nil
}

func (r *PostgresCardRepo) GetByID(ctx context.Context, cardID int64) (*types.Card, error) {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "GetByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.Int64("db.card.id", cardID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "GetCard", time.Now())

	card, err := scanCard(r.pgpool.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("card %d: %w", cardID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to fetch card: %w", err)
	}
	span.SetStatus(codes.Ok, "card fetched")
	return card, nil
}

func (r *PostgresCardRepo) List(ctx context.Context) ([]types.Card, error) {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "ListCards", time.Now())

	cards, err := r.list(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY id`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(cards)))
	span.SetStatus(codes.Ok, "cards listed")
	return cards, nil
}

func (r *PostgresCardRepo) ListByUser(ctx context.Context, userID int64) ([]types.Card, error) {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "ListByUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "ListCardsByUser", time.Now())

	cards, err := r.list(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(cards)))
	span.SetStatus(codes.Ok, "cards listed")
	return cards, nil
}

func (r *PostgresCardRepo) list(ctx context.Context, query string, args ...any) ([]types.Card, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards := []types.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}
	return cards, nil
}

func (r *PostgresCardRepo) Update(ctx context.Context, cardID int64, fields types.CardFields) (*types.Card, error) {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "cards"),
		attribute.Int64("db.card.id", cardID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "UpdateCard", time.Now())

	l := r.logger.With(slog.String("method", "Update"), slog.Int64("cardID", cardID))

	features, err := json.Marshal(fields.Features)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding features: %w", types.ErrValidation, err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwner(ctx, tx, fields.UserID); err != nil {
		span.SetStatus(codes.Error, "owner check failed")
		return nil, err
	}

	card, err := scanCard(tx.QueryRow(ctx, `
		UPDATE cards SET user_id = $2, player_name = $3, year = $4, brand = $5, set_name = $6, sport = $7,
		                 card_number = $8, condition = $9, value = $10, features = $11, sold = $12,
		                 front_image_url = $13, back_image_url = $14
		WHERE id = $1
		RETURNING `+cardColumns,
		cardID, fields.UserID, fields.PlayerName, fields.Year, fields.Brand, fields.SetName, fields.Sport,
		fields.CardNumber, fields.Condition, fields.Value, features, fields.Sold, fields.FrontImageURL, fields.BackImageURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("card %d: %w", cardID, types.ErrNotFound)
		}
		if database.IsForeignKeyViolation(err) {
			span.SetStatus(codes.Error, "owner vanished")
			return nil, fmt.Errorf("user with id %d not found: %w", fields.UserID, types.ErrNotFound)
		}
		if database.IsDataException(err) {
			span.SetStatus(codes.Error, "rejected value")
			return nil, fmt.Errorf("%w: card rejected by database: %w", types.ErrValidation, err)
		}
		l.ErrorContext(ctx, "Failed to update card", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit card update: %w", err)
	}

	span.SetStatus(codes.Ok, "card updated")
	return card, nil
}

func (r *PostgresCardRepo) Delete(ctx context.Context, cardID int64) error {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.Int64("db.card.id", cardID),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "DeleteCard", time.Now())

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM cards WHERE id = $1`, cardID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("card %d: %w", cardID, types.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("failed to commit card deletion: %w", err)
	}
	span.SetStatus(codes.Ok, "card deleted")
	return nil
}

func (r *PostgresCardRepo) SetImage(ctx context.Context, cardID int64, side types.ImageSide, ref string) (*types.Card, error) {
	ctx, span := otel.Tracer("CardRepo").Start(ctx, "SetImage", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.Int64("db.card.id", cardID),
		attribute.String("card.image.side", string(side)),
	))
	defer span.End()
	defer database.ObserveQuery(ctx, "SetCardImage", time.Now())

	var column string
	switch side {
	case types.ImageFront:
		column = "front_image_url"
	case types.ImageBack:
		column = "back_image_url"
	default:
		return nil, fmt.Errorf("%w: unknown image side %q", types.ErrValidation, side)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	card, err := scanCard(tx.QueryRow(ctx,
		`UPDATE cards SET `+column+` = $2 WHERE id = $1 RETURNING `+cardColumns,
		cardID, ref,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("card %d: %w", cardID, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("failed to set card image: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit card image: %w", err)
	}
	span.SetStatus(codes.Ok, "card image set")
	return card, nil
}
