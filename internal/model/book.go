package model

import "time"

// Book represents a title in the catalog. Copies are tracked as counts:
// total_copies is the number the library owns, available_copies the number
// currently on the shelf.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Category        string     `json:"category"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	PublicationYear int        `json:"publication_year,omitempty"`
	Publisher       string     `json:"publisher,omitempty"`
	Description     string     `json:"description,omitempty"`
	CoverMime       string     `json:"cover_mime,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// IsAvailable reports whether at least one copy is on the shelf.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}
