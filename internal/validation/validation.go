package validation

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ValidateRequired checks that a field is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(fieldName + " is required")
	}
	return nil
}

// ValidateUUID checks that a string is a valid UUID
func ValidateUUID(value, fieldName string) error {
	if _, err := uuid.Parse(value); err != nil {
		return errors.New(fieldName + " must be a valid UUID")
	}
	return nil
}

// ValidateVerificationCode checks the shape of a submitted verification code.
// Codes are lowercase base32 without padding, at least 20 characters for the
// minimum 12 bytes of entropy.
func ValidateVerificationCode(code string) error {
	if err := ValidateRequired(code, "verification_code"); err != nil {
		return err
	}
	if len(code) < 20 {
		return errors.New("verification_code is too short")
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			return errors.New("verification_code has an invalid format")
		}
	}
	return nil
}
