package decision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use once constructed.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the calm step against its field constraints.
func (c CalmStep) Validate() error {
	return check("calm step", c)
}

// Validate checks the option against its field constraints.
func (o DecisionOption) Validate() error {
	return check("option", o)
}

// Validate checks the whole brief, including every nested option.
func (b DecisionBrief) Validate() error {
	return check("decision brief", b)
}

func check(what string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", what, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatValidationError(e))
	}
	return fmt.Errorf("invalid %s: %s", what, strings.Join(msgs, "; "))
}

func formatValidationError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s exceeds %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s is below %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", field, e.Param(), e.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s out of range (got %v)", field, e.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, e.Tag())
	}
}
