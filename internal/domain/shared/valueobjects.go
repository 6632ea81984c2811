// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// ═══════════════════════════════════════════════════════════════════════════
// Money Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Money is a currency-tagged amount stored in minor units (cents, xu, ...).
// The number of minor-unit digits follows the ISO 4217 standard rounding of the currency.
type Money struct {
	amount   int64
	currency string
}

// NewMoney creates a Money from an amount in minor units.
// Only the currency is validated here; sign checks belong to the caller's contract.
func NewMoney(minorUnits int64, code string) (Money, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Money{}, WrapError("money", "New", ErrInvalidInput, "currency must be a valid ISO 4217 code", err)
	}
	return Money{amount: minorUnits, currency: unit.String()}, nil
}

// ParseMoney parses a decimal amount such as "100" or "12.50" in the given currency.
func ParseMoney(amount, code string) (Money, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Money{}, WrapError("money", "Parse", ErrInvalidInput, "currency must be a valid ISO 4217 code", err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	amount = strings.TrimSpace(amount)
	negative := strings.HasPrefix(amount, "-")
	amount = strings.TrimPrefix(amount, "-")

	whole, frac, _ := strings.Cut(amount, ".")
	if len(frac) > scale {
		return Money{}, NewDomainError("money", "Parse", ErrInvalidFormat,
			fmt.Sprintf("%s allows at most %d fractional digits", unit, scale))
	}
	frac += strings.Repeat("0", scale-len(frac))

	minor, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return Money{}, WrapError("money", "Parse", ErrInvalidFormat, "amount is not a decimal number", err)
	}
	if negative {
		minor = -minor
	}
	return Money{amount: minor, currency: unit.String()}, nil
}

// Amount returns the amount in minor units.
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string {
	return m.currency
}

// Scale returns the number of minor-unit digits of the currency.
func (m Money) Scale() int {
	unit, err := currency.ParseISO(m.currency)
	if err != nil {
		return 0
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Validate checks the non-negative, valid-currency contract used for prices.
func (m Money) Validate() error {
	if _, err := currency.ParseISO(m.currency); err != nil {
		return ErrInvalidCurrency
	}
	if m.amount < 0 {
		return ErrNegativeMoney
	}
	return nil
}

// Compare returns -1, 0 or 1. Amounts in different currencies cannot be compared.
func (m Money) Compare(other Money) (int, error) {
	if m.currency != other.currency {
		return 0, ErrCurrencyMismatch
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// String renders the amount with its currency, e.g. "12.50 USD" or "100 VND".
func (m Money) String() string {
	scale := m.Scale()
	if scale == 0 {
		return fmt.Sprintf("%d %s", m.amount, m.currency)
	}
	div := int64(math.Pow10(scale))
	sign := ""
	abs := m.amount
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, abs/div, scale, abs%div, m.currency)
}

// ═══════════════════════════════════════════════════════════════════════════
// Language Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Language is the spoken language of a course or one of its subtitle tracks.
type Language string

const (
	LanguageEnglish    Language = "ENGLISH"
	LanguageVietnamese Language = "VIETNAMESE"
	LanguageJapanese   Language = "JAPANESE"
	LanguageKorean     Language = "KOREAN"
	LanguageChinese    Language = "CHINESE"
	LanguageFrench     Language = "FRENCH"
	LanguageGerman     Language = "GERMAN"
	LanguageSpanish    Language = "SPANISH"
	LanguageRussian    Language = "RUSSIAN"
)

var languageTags = map[Language]language.Tag{
	LanguageEnglish:    language.English,
	LanguageVietnamese: language.Vietnamese,
	LanguageJapanese:   language.Japanese,
	LanguageKorean:     language.Korean,
	LanguageChinese:    language.Chinese,
	LanguageFrench:     language.French,
	LanguageGerman:     language.German,
	LanguageSpanish:    language.Spanish,
	LanguageRussian:    language.Russian,
}

// IsValid checks if the language is one of the supported values.
func (l Language) IsValid() bool {
	_, ok := languageTags[l]
	return ok
}

// Tag returns the BCP 47 tag of the language.
func (l Language) Tag() language.Tag {
	if tag, ok := languageTags[l]; ok {
		return tag
	}
	return language.Und
}

// String returns the string representation.
func (l Language) String() string {
	return string(l)
}

// ParseLanguage accepts either an enum name ("ENGLISH") or a BCP 47 tag ("en", "vi-VN").
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if l := Language(strings.ToUpper(s)); l.IsValid() {
		return l, nil
	}

	tag, err := language.Parse(s)
	if err != nil {
		return "", WrapError("language", "Parse", ErrInvalidInput, fmt.Sprintf("unsupported language %q", s), err)
	}
	base, _ := tag.Base()
	for l, known := range languageTags {
		if kb, _ := known.Base(); kb == base {
			return l, nil
		}
	}
	return "", ErrInvalidLanguage
}

// ═══════════════════════════════════════════════════════════════════════════
// Set helpers
// ═══════════════════════════════════════════════════════════════════════════

// UniqueStrings trims, drops blanks and de-duplicates while keeping the first occurrence order.
func UniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// UniqueLanguages de-duplicates languages and returns them sorted.
func UniqueLanguages(values []Language) []Language {
	seen := make(map[Language]struct{}, len(values))
	out := make([]Language, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
