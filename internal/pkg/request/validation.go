package request

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed binding rule, reported by its wire name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors flattens validator errors for clients. It returns nil for
// errors that did not come from struct validation, such as malformed JSON.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	case "local_datetime":
		return "must be a local date and time in YYYY-MM-DDTHH:mm format"
	case "booking_status":
		return "must be one of pending, confirmed, completed, cancelled"
	case "medium":
		return "must be one of in-person, online, phone"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
