package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report json field names in validation messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ticketFields is the validated subset of a submission.
type ticketFields struct {
	Title            string `json:"title" validate:"required,max=200"`
	Description      string `json:"description" validate:"required"`
	Priority         string `json:"priority" validate:"required,oneof=Low Medium High Critical"`
	Email            string `json:"email" validate:"required,email,max=254"`
	StepsToReproduce string `json:"stepsToReproduce" validate:"required"`
	Category         string `json:"category" validate:"max=100"`
}

// normalize trims every field and canonicalizes a recognizable priority.
func (f *ticketFields) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Email = strings.TrimSpace(f.Email)
	f.StepsToReproduce = strings.TrimSpace(f.StepsToReproduce)
	f.Priority = strings.TrimSpace(f.Priority)
	f.Category = strings.TrimSpace(f.Category)
	if p, ok := domain.ParsePriority(f.Priority); ok {
		f.Priority = string(p)
	}
}

// validateTicketFields enforces the configured strictness. Strict requires
// every field; relaxed requires description and email and defaults an empty
// priority to Medium.
func validateTicketFields(f *ticketFields, strict bool) error {
	f.normalize()

	var err error
	if strict {
		err = validate.Struct(f)
	} else {
		fields := []string{"Description", "Email", "Category"}
		if f.Priority == "" {
			f.Priority = string(domain.TicketPriorityMedium)
		} else {
			fields = append(fields, "Priority")
		}
		if f.Title != "" {
			fields = append(fields, "Title")
		}
		err = validate.StructPartial(f, fields...)
	}
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	messages := make([]string, 0, len(validationErrors))
	fieldNames := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldErrorMessage(fe))
		fieldNames = append(fieldNames, fe.Field())
	}
	return apperrors.NewValidationError(strings.Join(messages, "; "), map[string]any{"fields": fieldNames})
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
