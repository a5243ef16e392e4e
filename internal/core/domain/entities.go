package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrListingNotFound   = errors.New("listing not found")
	ErrLocationNotFound  = errors.New("location not found")
	ErrInvalidTransition = errors.New("invalid viewport transition")
)

// Condition is the wear grade a trader assigns to an item.
type Condition string

const (
	ConditionNew       Condition = "New"
	ConditionLikeNew   Condition = "Like New"
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

// Conditions lists every grade from best to worst.
var Conditions = []Condition{
	ConditionNew, ConditionLikeNew, ConditionExcellent,
	ConditionGood, ConditionFair, ConditionPoor,
}

// ParseCondition accepts display names and common spellings ("LikeNew", "like-new").
func ParseCondition(s string) (Condition, bool) {
	key := ConditionKey(s)
	for _, c := range Conditions {
		if ConditionKey(string(c)) == key {
			return c, true
		}
	}
	return "", false
}

// ConditionKey folds a condition label to a comparable key: lower case, no separators.
func ConditionKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '-', '_':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Listing is an item offered for barter. Listings are immutable once created.
type Listing struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Category       string     `json:"category"`
	Condition      Condition  `json:"condition"`
	EstimatedValue float64    `json:"estimated_value"`
	OwnerID        string     `json:"owner_id,omitempty"`
	OwnerRating    float64    `json:"owner_rating"`
	Coordinates    Coordinate `json:"coordinates"`
	LookingFor     []string   `json:"looking_for,omitempty"`
	DistanceMiles  *float64   `json:"distance_miles,omitempty"` // computed field
	CreatedAt      time.Time  `json:"created_at"`
}

// Place is a resolved free-text location.
type Place struct {
	Query       string     `json:"query"`
	DisplayName string     `json:"display_name"`
	Coordinates Coordinate `json:"coordinates"`
}

// SearchEvent is published after a search is served.
type SearchEvent struct {
	Time         time.Time    `json:"time"`
	SessionID    string       `json:"session_id,omitempty"`
	TextQuery    string       `json:"text_query,omitempty"`
	Categories   []string     `json:"categories,omitempty"`
	Worldwide    bool         `json:"worldwide"`
	UserLocation *Coordinate  `json:"user_location,omitempty"`
	ResultCount  int          `json:"result_count"`
	Viewport     *ViewportRef `json:"viewport,omitempty"`
}

// ViewportRef is the serialisable part of a viewport carried in events.
type ViewportRef struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
	Bounds Bounds     `json:"bounds"`
}
