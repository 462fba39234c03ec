package card

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/sports-card-catalog/app/observability/metrics"
	"github.com/FACorreiaa/sports-card-catalog/internal/api/asset"
	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

var _ CardService = (*CardServiceImpl)(nil)

// UserLookup resolves card owners. user.UserService satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
}

// CardService defines the business logic contract for card operations.
type CardService interface {
	CreateCard(ctx context.Context, fields types.CardFields) (*types.Card, error)
	GetCard(ctx context.Context, cardID int64) (*types.Card, error)
	ListCards(ctx context.Context) ([]types.Card, error)
	ListCardsByUser(ctx context.Context, userID int64) ([]types.Card, error)
	UpdateCard(ctx context.Context, cardID int64, fields types.CardFields) (*types.Card, error)
	DeleteCard(ctx context.Context, cardID int64) error
	// UploadImage stores r as the card's front or back image and returns
	// the new reference. side must be "front" or "back".
	UploadImage(ctx context.Context, cardID int64, side string, r io.Reader, filename string) (string, error)
}

type CardServiceImpl struct {
	logger       *slog.Logger
	repo         CardRepo
	users        UserLookup
	materializer asset.Materializer
}

func NewCardService(repo CardRepo, users UserLookup, materializer asset.Materializer, logger *slog.Logger) *CardServiceImpl {
	return &CardServiceImpl{
		logger:       logger,
		repo:         repo,
		users:        users,
		materializer: materializer,
	}
}

// materializeImages replaces embedded image payloads with asset references.
// Plain strings and nil are left as they are.
func (s *CardServiceImpl) materializeImages(ctx context.Context, fields *types.CardFields) error {
	for _, img := range []struct {
		side types.ImageSide
		url  **string
	}{
		{types.ImageFront, &fields.FrontImageURL},
		{types.ImageBack, &fields.BackImageURL},
	} {
		if *img.url == nil || !asset.IsEmbedded(**img.url) {
			continue
		}
		ref, err := s.materializer.Materialize(ctx, asset.Embedded(**img.url), img.side)
		if err != nil {
			return fmt.Errorf("error saving %s image: %w", img.side, err)
		}
		*img.url = &ref
	}
	return nil
}

func (s *CardServiceImpl) CreateCard(ctx context.Context, fields types.CardFields) (*types.Card, error) {
	ctx, span := otel.Tracer("CardService").Start(ctx, "CreateCard", trace.WithAttributes(
		attribute.Int64("user.id", fields.UserID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateCard"), slog.Int64("userID", fields.UserID))

	// The owner must exist before any asset is written.
	if _, err := s.users.GetUser(ctx, fields.UserID); err != nil {
		l.WarnContext(ctx, "Card owner lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "owner lookup failed")
		return nil, fmt.Errorf("error resolving card owner: %w", err)
	}

	if err := s.materializeImages(ctx, &fields); err != nil {
		l.WarnContext(ctx, "Failed to materialize card images", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "materialize failed")
		return nil, err
	}

	card, err := s.repo.Create(ctx, fields)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create card", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("error creating card: %w", err)
	}

	metrics.Get().CardsCreatedTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Card created", slog.Int64("cardID", card.ID))
	span.SetStatus(codes.Ok, "card created")
	return card, nil
}

func (s *CardServiceImpl) GetCard(ctx context.Context, cardID int64) (*types.Card, error) {
	ctx, span := otel.Tracer("CardService").Start(ctx, "GetCard", trace.WithAttributes(
		attribute.Int64("card.id", cardID),
	))
	defer span.End()

	card, err := s.repo.GetByID(ctx, cardID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("error fetching card: %w", err)
	}
	span.SetStatus(codes.Ok, "card fetched")
	return card, nil
}

func (s *CardServiceImpl) ListCards(ctx context.Context) ([]types.Card, error) {
	ctx, span := otel.Tracer("CardService").Start(ctx, "ListCards")
	defer span.End()

	cards, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("error listing cards: %w", err)
	}
	span.SetStatus(codes.Ok, "cards listed")
	return cards, nil
}

func (s *CardServiceImpl) ListCardsByUser(ctx context.Context, userID int64) ([]types.Card, error) {
	ctx, span := otel.Tracer("CardService").Start(ctx, "ListCardsByUser", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	cards, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("error listing user cards: %w", err)
	}
	span.SetStatus(codes.Ok, "cards listed")
	return cards, nil
}

func (s *CardServiceImpl) UpdateCard(ctx context.Context, cardID int64, fields types.CardFields) (*types.Card, error) {
	ctx, span := otel.Tracer("CardService").Start(ctx, "UpdateCard", trace.WithAttributes(
		attribute.Int64("card.id", cardID),
		attribute.Int64("user.id", fields.UserID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateCard"), slog.Int64("cardID", cardID))

	if _, err := s.repo.GetByID(ctx, cardID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "card lookup failed")
		return nil, fmt.Errorf("error fetching card: %w", err)
	}
	if _, err := s.users.GetUser(ctx, fields.UserID); err != nil {
		l.WarnContext(ctx, "Card owner lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "owner lookup failed")
		return nil, fmt.Errorf("error resolving card owner: %w", err)
	}

	if err := s.materializeImages(ctx, &fields); err != nil {
		l.WarnContext(ctx, "Failed to materialize card images", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "materialize failed")
		return nil, err
	}

	card, err := s.repo.Update(ctx, cardID, fields)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update card", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error updating card: %w", err)
	}

	l.InfoContext(ctx, "Card updated")
	span.SetStatus(codes.Ok, "card updated")
	return card, nil
}

func (s *CardServiceImpl) DeleteCard(ctx context.Context, cardID int64) error {
	ctx, span := otel.Tracer("CardService").Start(ctx, "DeleteCard", trace.WithAttributes(
		attribute.Int64("card.id", cardID),
	))
	defer span.End()

	if err := s.repo.Delete(ctx, cardID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("error deleting card: %w", err)
	}

	s.logger.InfoContext(ctx, "Card deleted", slog.Int64("cardID", cardID))
	span.SetStatus(codes.Ok, "card deleted")
	return nil
}

func (s *CardServiceImpl) UploadImage(ctx context.Context, cardID int64, side string, r io.Reader, filename string) (string, error) {
	ctx, span := otel.Tracer("CardService").Start(ctx, "UploadImage", trace.WithAttributes(
		attribute.Int64("card.id", cardID),
		attribute.String("card.image.side", side),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UploadImage"), slog.Int64("cardID", cardID))

	if _, err := s.repo.GetByID(ctx, cardID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "card lookup failed")
		return "", fmt.Errorf("error fetching card: %w", err)
	}

	imageSide, err := types.ParseImageSide(side)
	if err != nil {
		span.SetStatus(codes.Error, "invalid side")
		return "", err
	}

	ref, err := s.materializer.Materialize(ctx, asset.Stream(r, filename), imageSide)
	if err != nil {
		l.WarnContext(ctx, "Failed to store uploaded image", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "materialize failed")
		return "", fmt.Errorf("error saving %s image: %w", imageSide, err)
	}

	if _, err := s.repo.SetImage(ctx, cardID, imageSide, ref); err != nil {
		l.ErrorContext(ctx, "Failed to attach uploaded image", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "set image failed")
		return "", fmt.Errorf("error attaching %s image: %w", imageSide, err)
	}

	l.InfoContext(ctx, "Card image uploaded", slog.String("side", side), slog.String("ref", ref))
	span.SetStatus(codes.Ok, "image uploaded")
	return ref, nil
}
