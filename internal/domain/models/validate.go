package models

import (
	"strings"

	"todoapp/internal/domain/errors"

	"github.com/go-playground/validator"
)

var valid = validator.New()

// Validate checks struct tags on v and maps the first failing field to a
// domain error.
func Validate(v any) error {
	if err := valid.Struct(v); err != nil {
		return validationErrorToDomain(err)
	}
	return nil
}

// NormalizeCreate trims the text and applies the default priority.
func NormalizeCreate(text string, priority Priority) (CreateTodoRequest, error) {
	req := CreateTodoRequest{
		Text:     strings.TrimSpace(text),
		Priority: Priority(strings.ToLower(strings.TrimSpace(string(priority)))),
	}
	if req.Text == "" {
		return req, errors.ErrEmptyText
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	if err := Validate(req); err != nil {
		return req, err
	}
	return req, nil
}

// NormalizeUpdate trims a text change and rejects whitespace-only text.
func NormalizeUpdate(req UpdateTodoRequest) (UpdateTodoRequest, error) {
	if req.Text != nil {
		trimmed := strings.TrimSpace(*req.Text)
		if trimmed == "" {
			return req, errors.ErrEmptyText
		}
		req.Text = &trimmed
	}
	if req.Empty() {
		return req, errors.ErrBadRequest
	}
	if err := Validate(req); err != nil {
		return req, err
	}
	return req, nil
}

func validationErrorToDomain(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Text":
				return errors.ErrEmptyText
			case "Priority":
				return errors.ErrInvalidPriority
			}
		}
	}
	return errors.ErrValidationFailed
}
