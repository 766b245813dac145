package lead

import (
	"errors"
	"fmt"
	"strings"
)

// placeholders are substrings of emails a model invents instead of asking.
var placeholders = []string{"guest", "example.com", "returning.customer", "user@", "email@"}

// ValidateEmail rejects empty, placeholder and malformed emails. The error
// text is phrased for the model so it re-asks the user.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("Email is missing. You MUST ask the user for their email.")
	}
	lower := strings.ToLower(strings.TrimSpace(email))
	for _, p := range placeholders {
		if strings.Contains(lower, p) {
			return fmt.Errorf("Invalid Email '%s'. You are using a placeholder. You MUST ASK the user for their real email.", email)
		}
	}
	if !strings.Contains(lower, "@") || !strings.Contains(lower, ".") {
		return errors.New("Email format is invalid. Please ask for a valid email address.")
	}
	return nil
}

// IsAnonymous reports whether an email cannot identify a customer.
func IsAnonymous(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	return e == "" || strings.Contains(e, "guest")
}
