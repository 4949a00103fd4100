// Package validation binds and validates request payloads.  Two rules
// from the API contract live here: validation failures report every
// bad field at once as a field->message map, and payloads containing
// fields the schema does not declare are rejected outright.
package validation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BindStrict decodes the JSON body into dst, rejecting unknown fields,
// then runs struct validation.  Errors are already apperr values ready
// for the boundary handler.
func BindStrict(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return &apperr.Error{
				Status:  http.StatusBadRequest,
				Message: "Request validation failed",
				Fields:  map[string]string{"body": "Unknown fields present in request body"},
			}
		}
		return apperr.BadRequest("Invalid request body!")
	}
	return Check(dst)
}

// Check validates dst and converts validator errors into a single
// apperr carrying all failed fields.
func Check(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.BadRequest("Invalid request body!")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe)] = msgForTag(fe)
	}
	return apperr.Validation(fields)
}

func jsonName(fe validator.FieldError) string {
	// StructNamespace is Type.Field; the json tag convention in the
	// request DTOs is lowerCamel of the field name.
	name := fe.Field()
	if name == "" {
		return "body"
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}
