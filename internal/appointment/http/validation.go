package http

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
)

var localDateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}$`)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the booking tags to gin's validator and reports
// fields by their wire names. Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(wireName)

		validations := map[string]validator.Func{
			"local_datetime": validateLocalDateTime,
			"booking_status": validateBookingStatus,
			"medium":         validateMedium,
		}
		for tag, fn := range validations {
			if err := v.RegisterValidation(tag, fn); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

func wireName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form", "uri"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return fld.Name
}

// Only the shape is checked here; the calendar and the timezone decide the rest.
func validateLocalDateTime(fl validator.FieldLevel) bool {
	return localDateTimePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	_, err := appointment.ParseStatus(fl.Field().String())
	return err == nil
}

func validateMedium(fl validator.FieldLevel) bool {
	_, err := appointment.ParseMedium(fl.Field().String())
	return err == nil
}
