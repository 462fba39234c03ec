package types

import (
	"fmt"
	"time"
)

// ImageSide tags which face of a card an image belongs to.
type ImageSide string

const (
	ImageFront ImageSide = "front"
	ImageBack  ImageSide = "back"
)

// ParseImageSide accepts exactly "front" or "back".
func ParseImageSide(s string) (ImageSide, error) {
	switch ImageSide(s) {
	case ImageFront, ImageBack:
		return ImageSide(s), nil
	default:
		return "", fmt.Errorf("%w: image_type must be 'front' or 'back'", ErrValidation)
	}
}

// Card is a persisted card record. Image URLs are nil or a reference
// string, usually one produced by the asset materializer.
type Card struct {
	ID            int64     `json:"id" example:"7"`
	UserID        int64     `json:"user_id" example:"1"`
	PlayerName    string    `json:"playerName" example:"Ken Griffey Jr."`
	Year          int       `json:"year" example:"1989"`
	Brand         string    `json:"brand" example:"Upper Deck"`
	SetName       string    `json:"setName" example:"Base"`
	Sport         string    `json:"sport" example:"Baseball"`
	CardNumber    string    `json:"cardNumber" example:"1"`
	Condition     string    `json:"condition" example:"PSA 9"`
	Value         *float64  `json:"value"`
	Features      Features  `json:"features"`
	Sold          bool      `json:"sold"`
	FrontImageURL *string   `json:"front_image_url"`
	BackImageURL  *string   `json:"back_image_url"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CardFields is the full set of mutable card attributes. Create and update
// both take every field; update replaces rather than merges.
type CardFields struct {
	UserID        int64
	PlayerName    string
	Year          int
	Brand         string
	SetName       string
	Sport         string
	CardNumber    string
	Condition     string
	Value         *float64
	Features      Features
	Sold          bool
	FrontImageURL *string
	BackImageURL  *string
}

// CardRequest is the wire body of POST /cards and PUT /cards/{id}.
// Required attributes are pointers so absence can be told apart from zero.
type CardRequest struct {
	UserID        *int64   `json:"user_id"`
	PlayerName    *string  `json:"playerName"`
	Year          *int     `json:"year"`
	Brand         *string  `json:"brand"`
	SetName       *string  `json:"setName"`
	Sport         *string  `json:"sport"`
	CardNumber    *string  `json:"cardNumber"`
	Condition     *string  `json:"condition"`
	Value         *float64 `json:"value"`
	Features      Features `json:"features"`
	Sold          *bool    `json:"sold"`
	FrontImageURL *string  `json:"front_image_url"`
	BackImageURL  *string  `json:"back_image_url"`
}

// Fields checks required attributes and applies schema defaults
// (sold=false, features={}).
func (r CardRequest) Fields() (CardFields, error) {
	var missing []string
	if r.UserID == nil {
		missing = append(missing, "user_id")
	}
	if r.PlayerName == nil {
		missing = append(missing, "playerName")
	}
	if r.Year == nil {
		missing = append(missing, "year")
	}
	if r.Brand == nil {
		missing = append(missing, "brand")
	}
	if r.SetName == nil {
		missing = append(missing, "setName")
	}
	if r.Sport == nil {
		missing = append(missing, "sport")
	}
	if r.CardNumber == nil {
		missing = append(missing, "cardNumber")
	}
	if r.Condition == nil {
		missing = append(missing, "condition")
	}
	if len(missing) > 0 {
		return CardFields{}, fmt.Errorf("%w: missing required fields %v", ErrValidation, missing)
	}

	f := CardFields{
		UserID:        *r.UserID,
		PlayerName:    *r.PlayerName,
		Year:          *r.Year,
		Brand:         *r.Brand,
		SetName:       *r.SetName,
		Sport:         *r.Sport,
		CardNumber:    *r.CardNumber,
		Condition:     *r.Condition,
		Value:         r.Value,
		Features:      r.Features,
		FrontImageURL: r.FrontImageURL,
		BackImageURL:  r.BackImageURL,
	}
	if r.Sold != nil {
		f.Sold = *r.Sold
	}
	return f, nil
}

// UploadImageResponse is returned by POST /cards/{id}/upload-image.
type UploadImageResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"image_url"`
}
