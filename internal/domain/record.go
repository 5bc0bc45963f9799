package domain

import "time"

// Base holds the fields every stored record carries.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) GetID() string {
	return b.ID
}

func (b *Base) SetID(id string) {
	b.ID = id
}

// Stamp sets the update timestamp, and the creation timestamp for new records.
func (b *Base) Stamp(created bool, now time.Time) {
	if created && b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip"`
	Country string `json:"country,omitempty"`
}

// Validate checks the fields required for shipping.
func (a Address) Validate() error {
	switch {
	case a.Street == "":
		return Invalid("shipping address street is required")
	case a.City == "":
		return Invalid("shipping address city is required")
	case a.Zip == "":
		return Invalid("shipping address zip is required")
	}
	return nil
}
