package model

import "time"

// Language is a canonical language row from the reference data. Priority is
// an ascending rank used to break ties when an oracle response matches more
// than one candidate; lower wins.
type Language struct {
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	ID        int64     `json:"id"`
	Priority  int       `json:"priority"`
}

// Category is a canonical classification category.
type Category struct {
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
}

// Word is a canonical vocabulary row. Classification mutates LanguageID,
// EnglishTranslation and Category as a side effect; (Word, LanguageID) pairs
// are unique.
type Word struct {
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	LanguageID         *int64    `json:"languageId,omitempty"`
	ID                 string    `json:"id"`
	Word               string    `json:"word"`
	EnglishTranslation string    `json:"englishTranslation,omitempty"`
	Category           string    `json:"category,omitempty"`
}
