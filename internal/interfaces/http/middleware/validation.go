package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// SetupValidator makes binding errors report JSON field names instead
// of Go struct field names.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
}

// HandleValidationError renders a binding error as a 400 response with
// per-field details when the error carries them.
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestIDFrom(c)))
}

// FormatValidationErrors builds the standard validation error payload
func FormatValidationErrors(err error, requestID string) dto.Response {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, err.Error(), requestID)
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   fieldErr.Field(),
			Message: fieldMessage(fieldErr),
		})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

func requestIDFrom(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// fieldMessage translates a failed validation tag into a readable message
func fieldMessage(e validator.FieldError) string {
	param := e.Param()
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + param
	case "min", "max", "len":
		return lengthMessage(e.Tag(), param, e.Type().Kind() == reflect.String)
	case "gt":
		return "Must be greater than " + param
	case "gte":
		return "Must be greater than or equal to " + param
	case "lt":
		return "Must be less than " + param
	case "lte":
		return "Must be less than or equal to " + param
	case "numeric":
		return "Must be numeric"
	case "datetime":
		return "Must match the date format " + param
	default:
		return "Invalid value"
	}
}

func lengthMessage(tag, param string, isString bool) string {
	unit := ""
	if isString {
		unit = " characters"
	}
	switch tag {
	case "min":
		return "Must be at least " + param + unit
	case "max":
		return "Must be at most " + param + unit
	default:
		return "Must be exactly " + param + unit
	}
}
