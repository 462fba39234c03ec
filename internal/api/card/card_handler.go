package card

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/FACorreiaa/sports-card-catalog/internal/api"
	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

// maxUploadMemory is how much of a multipart upload is held in memory
// before spilling to temporary files.
const maxUploadMemory = 32 << 20

// DefaultMaxBodyBytes caps card JSON bodies. Both image fields may carry
// base64 data URLs, so this is far above the generic API limit.
const DefaultMaxBodyBytes int64 = 64 << 20

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateCard(w http.ResponseWriter, r *http.Request)
	ListCards(w http.ResponseWriter, r *http.Request)
	GetCard(w http.ResponseWriter, r *http.Request)
	UpdateCard(w http.ResponseWriter, r *http.Request)
	DeleteCard(w http.ResponseWriter, r *http.Request)
	UploadImage(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	cardService  CardService
	logger       *slog.Logger
	maxBodyBytes int64
}

type HandlerOption func(*HandlerImpl)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes. Values of zero or less
// keep the default.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *HandlerImpl) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

func NewHandlerImpl(cardService CardService, logger *slog.Logger, opts ...HandlerOption) *HandlerImpl {
	h := &HandlerImpl{
		cardService:  cardService,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// decodeCard reads a card body. Keys outside CardRequest, such as the id and
// createdAt of a record fetched with GET, are ignored so the record can be
// sent back as is.
func (h *HandlerImpl) decodeCard(w http.ResponseWriter, r *http.Request) (types.CardFields, error) {
	var req types.CardRequest
	if err := api.DecodeJSONBodyWith(w, r, &req, api.DecodeOptions{
		MaxBytes:           h.maxBodyBytes,
		AllowUnknownFields: true,
	}); err != nil {
		return types.CardFields{}, err
	}
	return req.Fields()
}

// writeError maps a service error to its status. Client errors carry the
// error text; anything else gets fallback.
func (h *HandlerImpl) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := api.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), fallback, slog.Any("error", err))
		api.ErrorResponse(w, r, status, fallback)
		return
	}
	api.ErrorResponse(w, r, status, err.Error())
}

// CreateCard godoc
// @Summary      Create Card
// @Description  Embedded data:image payloads in the image fields are stored as assets.
// @Tags         Cards
// @Accept       json
// @Produce      json
// @Param        card body types.CardRequest true "Card"
// @Success      200 {object} types.Card
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      404 {object} types.Response "Owner not found"
// @Router       /cards [post]
func (h *HandlerImpl) CreateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CreateCard"))

	fields, err := h.decodeCard(w, r)
	if err != nil {
		l.WarnContext(ctx, "Invalid card body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.cardService.CreateCard(ctx, fields)
	if err != nil {
		h.writeError(w, r, err, "Failed to create card")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, card)
}

// ListCards godoc
// @Summary      List Cards
// @Tags         Cards
// @Produce      json
// @Param        user_id query int false "Only cards owned by this user"
// @Success      200 {array} types.Card
// @Router       /cards [get]
func (h *HandlerImpl) ListCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		cards []types.Card
		err   error
	)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user_id")
			return
		}
		cards, err = h.cardService.ListCardsByUser(ctx, userID)
	} else {
		cards, err = h.cardService.ListCards(ctx)
	}
	if err != nil {
		h.writeError(w, r, err, "Failed to list cards")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, cards)
}

// GetCard godoc
// @Summary      Get Card
// @Tags         Cards
// @Produce      json
// @Param        id path int true "Card ID"
// @Success      200 {object} types.Card
// @Failure      404 {object} types.Response "Card not found"
// @Router       /cards/{id} [get]
func (h *HandlerImpl) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := api.ParseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid card ID format")
		return
	}

	card, err := h.cardService.GetCard(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Card not found")
			return
		}
		h.writeError(w, r, err, "Failed to retrieve card")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, card)
}

// UpdateCard godoc
// @Summary      Update Card
// @Description  Replaces every mutable field of the card.
// @Tags         Cards
// @Accept       json
// @Produce      json
// @Param        id path int true "Card ID"
// @Param        card body types.CardRequest true "Card"
// @Success      200 {object} types.Card
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      404 {object} types.Response "Card or owner not found"
// @Router       /cards/{id} [put]
func (h *HandlerImpl) UpdateCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateCard"))

	cardID, err := api.ParseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid card ID format")
		return
	}

	fields, err := h.decodeCard(w, r)
	if err != nil {
		l.WarnContext(ctx, "Invalid card body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	card, err := h.cardService.UpdateCard(ctx, cardID, fields)
	if err != nil {
		h.writeError(w, r, err, "Failed to update card")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, card)
}

// DeleteCard godoc
// @Summary      Delete Card
// @Tags         Cards
// @Produce      json
// @Param        id path int true "Card ID"
// @Success      200 {object} types.Response
// @Failure      404 {object} types.Response "Card not found"
// @Router       /cards/{id} [delete]
func (h *HandlerImpl) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := api.ParseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid card ID format")
		return
	}

	if err := h.cardService.DeleteCard(r.Context(), cardID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Card not found")
			return
		}
		h.writeError(w, r, err, "Failed to delete card")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Message: fmt.Sprintf("Card %d deleted successfully", cardID),
	})
}

// UploadImage godoc
// @Summary      Upload Card Image
// @Tags         Cards
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path int true "Card ID"
// @Param        image_type query string true "front or back"
// @Param        file formData file true "Image"
// @Success      200 {object} types.UploadImageResponse
// @Failure      400 {object} types.Response "Invalid image_type"
// @Failure      404 {object} types.Response "Card not found"
// @Router       /cards/{id}/upload-image [post]
func (h *HandlerImpl) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UploadImage"))

	cardID, err := api.ParseID(r, "id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid card ID format")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		l.WarnContext(ctx, "Failed to parse multipart form", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	side := r.URL.Query().Get("image_type")
	ref, err := h.cardService.UploadImage(ctx, cardID, side, file, header.Filename)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Card not found")
			return
		}
		h.writeError(w, r, err, "Failed to upload image")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.UploadImageResponse{
		Message:  fmt.Sprintf("%s image uploaded successfully", side),
		ImageURL: ref,
	})
}
