// Package questionbank holds the visa interview question bank: the question,
// follow-up and risk-factor types, the storage interface with Postgres and
// in-memory implementations, and the adaptive ranker that selects the next
// question from interview performance.
package questionbank

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ValidCountries lists the supported destination country codes.
var ValidCountries = []string{
	"US", "UK", "CA", "AU", "DE", "FR", "NL", "IE", "IT", "ES",
	"CH", "SE", "FI", "NO", "DK", "JP", "KR", "SG", "NZ", "AE",
}

// ValidCategories lists the supported question categories.
var ValidCategories = []string{
	"academics", "finance", "intent", "ties", "background",
	"course_choice", "country_specific",
}

var (
	// ErrUnknownCountry is returned for destination codes outside ValidCountries.
	ErrUnknownCountry = errors.New("unsupported destination country")
	// ErrUnknownCategory is returned for categories outside ValidCategories.
	ErrUnknownCategory = errors.New("unknown question category")
	// ErrInvalidDifficulty is returned for difficulty levels outside 1..3.
	ErrInvalidDifficulty = errors.New("difficulty must be 1, 2 or 3")
)

// Question is one interview question from the bank.
type Question struct {
	ID          int    `json:"id"`
	Destination string `json:"destination_country"`
	Category    string `json:"category"`
	Difficulty  int    `json:"difficulty_level"`
	TextEN      string `json:"question_en"`
	HintHI      string `json:"hint_hi,omitempty"`
}

// Followup is a follow-up question attached to a parent question.
type Followup struct {
	ID       int    `json:"id"`
	ParentID int    `json:"parent_question_id"`
	TextEN   string `json:"question_en"`
}

// RiskFactor describes extra scrutiny applied to a destination/origin pair.
// ScrutinyLevel runs 1 (routine) to 3 (high).
type RiskFactor struct {
	ID            int    `json:"id"`
	Destination   string `json:"destination_country"`
	Origin        string `json:"origin_country"`
	Description   string `json:"description"`
	ScrutinyLevel int    `json:"scrutiny_level"`
}

// Destination is a supported destination country.
type Destination struct {
	CountryCode string `json:"country_code"`
	Name        string `json:"name"`
}

// Filter narrows a question query. Zero values mean "no filter".
type Filter struct {
	Category   string
	Difficulty int
}

// Store is the read interface over the question bank. Questions are returned
// ordered by difficulty then ID; risk factors by scrutiny level descending.
type Store interface {
	Questions(ctx context.Context, destination string, filter Filter) ([]Question, error)
	QuestionByID(ctx context.Context, id int) (*Question, error)
	Followups(ctx context.Context, parentID int) ([]Followup, error)
	RiskFactors(ctx context.Context, destination, origin string) ([]RiskFactor, error)
	Destinations(ctx context.Context) ([]Destination, error)
}

// ValidateCountry checks a destination country code.
func ValidateCountry(code string) error {
	if !slices.Contains(ValidCountries, code) {
		return fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}
	return nil
}

// ValidateFilter checks the optional category and difficulty filters.
func ValidateFilter(f Filter) error {
	if f.Category != "" && !slices.Contains(ValidCategories, f.Category) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, f.Category)
	}
	if f.Difficulty != 0 && (f.Difficulty < 1 || f.Difficulty > 3) {
		return fmt.Errorf("%w: %d", ErrInvalidDifficulty, f.Difficulty)
	}
	return nil
}
