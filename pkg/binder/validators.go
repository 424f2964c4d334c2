package binder

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// isbnValidator accepts ISBN-10 and ISBN-13 values, with or without
// separating hyphens or spaces. It checks shape only, not the checksum,
// since catalog records imported from older systems often carry ISBNs with
// recalculated check digits.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	cleaned := strings.NewReplacer("-", "", " ", "").Replace(value)
	switch len(cleaned) {
	case 10:
		for i, r := range cleaned {
			if r >= '0' && r <= '9' {
				continue
			}
			// ISBN-10 allows X as the final check digit.
			if i == 9 && (r == 'X' || r == 'x') {
				continue
			}
			return false
		}
		return true
	case 13:
		for _, r := range cleaned {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}
