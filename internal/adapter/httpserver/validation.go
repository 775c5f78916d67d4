package httpserver

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/harvest-gateway/pkg/textx"
)

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(jsonFieldName)
		_ = vld.RegisterValidation("oneline", validateOneLine)
	})
	return vld
}

// validateOneLine rejects blank values and values carrying control or line
// separator characters, which would not survive prompt interpolation.
func validateOneLine(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.TrimSpace(v) == "" {
		return false
	}
	return !strings.ContainsFunc(v, func(r rune) bool {
		return unicode.IsControl(r) || r == '\u2028' || r == '\u2029'
	})
}

// jsonFieldName reports fields by their wire name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// validateStruct runs struct tags and flattens failures into field/code pairs.
func validateStruct(v any) []ValidationError {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []ValidationError{{Field: "body", Code: "invalid"}}
	}
	out := make([]ValidationError, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, ValidationError{Field: field, Code: fe.Tag()})
	}
	return out
}

// SanitizeString cleans a single-line client field and caps its length.
func SanitizeString(input string, maxLen int) string {
	return textx.Truncate(textx.SingleLine(input), maxLen)
}
