package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("notblank", validators.NotBlank)

	// Report fields by their JSON names so clients see the keys they sent.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// Lets numeric tags such as gte=0 apply to prices.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
}

// ValidateRequest validates v against its validate struct tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

type validatedBodyKey[T any] struct{}

// ValidateJSON decodes the request body into a T and validates it before the
// handler runs. Malformed or invalid bodies are rejected with 400; the
// handler reads the accepted value with ValidatedBody.
func ValidateJSON[T any](logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(T)

			err := DecodeAndValidate(w, r, body)
			if err != nil {
				var validationErrors validator.ValidationErrors
				if errors.As(err, &validationErrors) {
					logger.Debug("Request validation failed",
						zap.String("path", r.URL.Path),
						zap.Int("errors", len(validationErrors)),
					)
					RespondWithValidationErrors(w, FormatValidationErrors(err))
					return
				}

				logger.Debug("Malformed request body", zap.String("path", r.URL.Path), zap.Error(err))
				RespondWithError(w, http.StatusBadRequest, "invalid request body")
				return
			}

			ctx := context.WithValue(r.Context(), validatedBodyKey[T]{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidatedBody returns the body accepted by ValidateJSON[T]
func ValidatedBody[T any](r *http.Request) (*T, bool) {
	body, ok := r.Context().Value(validatedBodyKey[T]{}).(*T)
	return body, ok
}

// RequireQuery rejects requests where any of the named query parameters is
// missing or blank
func RequireQuery(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()

			var missing []ValidationError
			for _, name := range names {
				if strings.TrimSpace(query.Get(name)) == "" {
					missing = append(missing, ValidationError{
						Field:   name,
						Message: "This field is required",
					})
				}
			}

			if len(missing) > 0 {
				RespondWithValidationErrors(w, missing)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// DecodeAndValidate decodes a JSON request body of at most 1 MiB into v and
// validates it
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errs []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errs = append(errs, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return errs
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "oneof":
		return "Value must be one of: " + e.Param()
	case "notblank":
		return "Value must not be blank"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}
