package model

import (
	"github.com/pkg/errors"
)

type Language string

const (
	French  Language = "fr"
	Arabic  Language = "ar"
	English Language = "en"

	DefaultLanguage = French
)

func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case French, Arabic, English:
		return Language(s), true
	}
	return "", false
}

// LocalizedText holds one value per supported language. The default language
// is mandatory; other languages fall back to it when empty.
type LocalizedText struct {
	Fr string `json:"fr"`
	Ar string `json:"ar,omitempty"`
	En string `json:"en,omitempty"`
}

func (t LocalizedText) In(lang Language) string {
	var v string
	switch lang {
	case Arabic:
		v = t.Ar
	case English:
		v = t.En
	default:
		v = t.Fr
	}
	if v == "" {
		return t.Fr
	}
	return v
}

func (t LocalizedText) Validate(field string) error {
	if t.Fr == "" {
		return errors.Wrapf(ErrInvalidInput, "%s: %s translation is required", field, DefaultLanguage)
	}
	return nil
}
