package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

// SetupValidator makes binding errors name fields by their JSON key
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}
		return name
	})
}

// HandleValidationError answers a failed ShouldBind with 400 and one detail per field
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		GetRequestID(c),
		validationDetails(err),
	))
}

func validationDetails(err error) []dto.ValidationDetail {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
		return details
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []dto.ValidationDetail{{Field: typeErr.Field, Message: "Must be of type " + typeErr.Type.String()}}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return []dto.ValidationDetail{{Field: "body", Message: "Request body exceeds the allowed size"}}
	}
	return []dto.ValidationDetail{{Field: "body", Message: "Malformed JSON body"}}
}

// fieldPath drops the request struct name: "PlaceOrderRequest.shipping.city" becomes "shipping.city"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	} else if fe.Kind() == reflect.Slice {
		unit = " items"
	}

	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + fe.Param() + unit
	case "max":
		return "Must be at most " + fe.Param() + unit
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid":
		return "Must be a UUID"
	default:
		return "Invalid value"
	}
}
