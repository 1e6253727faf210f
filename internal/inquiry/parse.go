package inquiry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// FieldError is a user input problem. Key names the catalog message that re-prompts.
type FieldError struct {
	Field string
	Key   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s", e.Field)
}

// ParseObjectType trims s and requires it to be non-empty. The text is kept whole.
func ParseObjectType(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &FieldError{Field: "object_type", Key: "object_type_invalid"}
	}
	return s, nil
}

// ParseArea reads a positive area in square meters. A comma works as the decimal separator
// and a trailing unit is ignored.
func ParseArea(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, unit := range []string{"m²", "m2", "м²", "м2", "m"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, unit))
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, &FieldError{Field: "area", Key: "area_invalid"}
	}
	return v, nil
}

// ParseFloors reads a positive whole number of floors.
func ParseFloors(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, &FieldError{Field: "floors", Key: "floors_invalid"}
	}
	return v, nil
}

const minPhoneDigits = 6

// ParseContact extracts a phone number and an email address from free text.
// An email is any word with "@" and "."; a phone is any remaining text with at least six digits.
// At least one of them must be present.
func ParseContact(s string) (phone, email string, err error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, part := range parts {
		var rest []string
		for _, word := range strings.Fields(part) {
			if email == "" && looksLikeEmail(word) {
				email = strings.Trim(word, "<>()")
				continue
			}
			rest = append(rest, word)
		}
		candidate := strings.Join(rest, " ")
		if phone == "" && digits(candidate) >= minPhoneDigits {
			phone = candidate
		}
	}
	if phone == "" && email == "" {
		return "", "", &FieldError{Field: "contact", Key: "contact_invalid"}
	}
	return phone, email, nil
}

func looksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && strings.Contains(s[at:], ".")
}

func digits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
