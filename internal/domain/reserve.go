package domain

import (
	"strings"
	"time"
)

// MinYearFounded is the earliest founding year accepted for a reserve.
const MinYearFounded = 1000

type Location struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Address    string  `json:"address"`
	Directions string  `json:"directions"`
}

// Reserve is the stored record. Image fields hold blob refs, not URLs.
type Reserve struct {
	ID               string
	Name             string
	Description      string
	Region           string
	YearFounded      int
	Flora            []string
	Fauna            []string
	ImageRef         *string
	AdditionalImages []string
	Location         *Location
	CreatedAt        time.Time
}

// ReserveInput carries the fields accepted by the create operation.
type ReserveInput struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Region           string    `json:"region"`
	YearFounded      int       `json:"yearFounded"`
	Flora            []string  `json:"flora"`
	Fauna            []string  `json:"fauna"`
	ImageRef         *string   `json:"imageUrl,omitempty"`
	AdditionalImages []string  `json:"additionalImages,omitempty"`
	Location         *Location `json:"location,omitempty"`
}

// Validate checks the record invariants against the given current year.
func (in ReserveInput) Validate(currentYear int) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Region) == "" {
		return &ValidationError{Field: "region", Reason: "must not be empty"}
	}
	if in.YearFounded < MinYearFounded || in.YearFounded > currentYear {
		return &ValidationError{Field: "yearFounded", Reason: "must be between 1000 and the current year"}
	}
	for _, s := range in.Flora {
		if strings.TrimSpace(s) == "" {
			return &ValidationError{Field: "flora", Reason: "species names must not be empty"}
		}
	}
	for _, s := range in.Fauna {
		if strings.TrimSpace(s) == "" {
			return &ValidationError{Field: "fauna", Reason: "species names must not be empty"}
		}
	}
	if in.ImageRef != nil && strings.TrimSpace(*in.ImageRef) == "" {
		return &ValidationError{Field: "imageUrl", Reason: "blob reference must not be empty"}
	}
	for _, ref := range in.AdditionalImages {
		if strings.TrimSpace(ref) == "" {
			return &ValidationError{Field: "additionalImages", Reason: "blob references must not be empty"}
		}
	}
	if l := in.Location; l != nil {
		if l.Latitude < -90 || l.Latitude > 90 {
			return &ValidationError{Field: "location.latitude", Reason: "must be between -90 and 90"}
		}
		if l.Longitude < -180 || l.Longitude > 180 {
			return &ValidationError{Field: "location.longitude", Reason: "must be between -180 and 180"}
		}
	}
	return nil
}

// ReserveView is a reserve with its blob refs resolved to fetchable URLs.
// A nil entry in AdditionalImageURLs marks a blob that could not be resolved.
type ReserveView struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Region              string    `json:"region"`
	YearFounded         int       `json:"yearFounded"`
	Flora               []string  `json:"flora"`
	Fauna               []string  `json:"fauna"`
	ImageURL            *string   `json:"imageUrl,omitempty"`
	AdditionalImageURLs []*string `json:"additionalImages,omitempty"`
	Location            *Location `json:"location,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// UploadTarget is a one-time destination for a direct blob upload.
type UploadTarget struct {
	URL       string              `json:"url"`
	Method    string              `json:"method"`
	Headers   map[string][]string `json:"headers,omitempty"`
	BlobRef   string              `json:"blobRef"`
	ExpiresAt time.Time           `json:"expiresAt"`
}
