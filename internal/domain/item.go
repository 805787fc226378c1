package domain

import "time"

type ItemCondition string

const (
	ItemConditionNew  ItemCondition = "NEW"
	ItemConditionGood ItemCondition = "GOOD"
	ItemConditionFair ItemCondition = "FAIR"
	ItemConditionPoor ItemCondition = "POOR"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ItemConditionNew, ItemConditionGood, ItemConditionFair, ItemConditionPoor:
		return true
	}
	return false
}

type Item struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"owner_id"`
	Owner           *User         `json:"owner,omitempty"`
	CategoryID      *string       `json:"category_id,omitempty"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	PricePerDay     int64         `json:"price_per_day"`
	SecurityDeposit int64         `json:"security_deposit"`
	Condition       ItemCondition `json:"condition"`
	Images          []string      `json:"images"`
	// IsAvailable is owned by the rental engine; catalog edits never change it.
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ItemFilter struct {
	Query         string
	CategoryID    string
	OwnerID       string
	AvailableOnly bool
	MaxPrice      int64
	Page          int32
	PageSize      int32
}
