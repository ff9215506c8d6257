package city

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bobby-s-dev/weather-lookup/internal/apperror"
)

const (
	MinQueryLength = 2
	MaxQueryLength = 50
)

// Query is a trimmed city name that passed validation.
type Query string

var (
	namePattern = regexp.MustCompile(`^[\x{4e00}-\x{9fa5}a-zA-Z\s\-']+$`)
	validate    = newValidator()
)

type queryInput struct {
	Name string `validate:"required,min=2,max=50,cityname"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("cityname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

var details = map[string]string{
	"required": "city name cannot be empty",
	"min":      "city name must be at least 2 characters",
	"max":      "city name is too long, please enter a valid city name",
	"cityname": "city name may only contain Chinese characters, English letters, spaces, hyphens or apostrophes",
}

// ParseQuery trims and validates raw user input. It never touches the
// network; failures are InvalidInput app errors.
func ParseQuery(raw string) (Query, error) {
	input := queryInput{Name: strings.TrimSpace(raw)}

	err := validate.Struct(input)
	if err == nil {
		return Query(input.Name), nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if detail, ok := details[fieldErrs[0].Tag()]; ok {
			return "", apperror.InvalidInput(raw, detail)
		}
	}
	return "", apperror.InvalidInput(raw, err.Error())
}
