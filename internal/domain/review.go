package domain

import (
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5

	// DefaultAuthorName is stored when the identity carries no display name.
	DefaultAuthorName = "User"
)

type Review struct {
	ID         string    `json:"id"`
	ReserveID  string    `json:"reserveId"`
	AuthorID   string    `json:"userId"`
	AuthorName string    `json:"userName"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"date"`
}

type ReviewInput struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (in ReviewInput) Validate() error {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	if strings.TrimSpace(in.Text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	return nil
}
