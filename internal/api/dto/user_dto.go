package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

var validate = validator.New()

// CreateUserRequest payload for POST /users.
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// UpdateUserRequest payload for PUT /users/:id; absent fields stay untouched.
type UpdateUserRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Name  *string `json:"name" validate:"omitempty,min=1"`
}

// Validate checks the payload against its schema.
func (r CreateUserRequest) Validate() error {
	return checkStruct(r)
}

// Data converts the request into domain input.
func (r CreateUserRequest) Data() domain.UserCreateData {
	return domain.UserCreateData{Email: r.Email, Name: r.Name}
}

// Validate checks the payload against its schema.
func (r UpdateUserRequest) Validate() error {
	return checkStruct(r)
}

// Data converts the request into domain input.
func (r UpdateUserRequest) Data() domain.UserUpdateData {
	return domain.UserUpdateData{Email: r.Email, Name: r.Name}
}

func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperrors.NewValidationError(strings.Join(msgs, ", "), nil)
	}
	return apperrors.NewValidationError("Validation failed", nil)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
