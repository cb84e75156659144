package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/finimport/internal/core"
)

// maxJSONBody bounds request bodies other than uploads.
const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// mappingRequest is the body of preview and confirm mapping.
type mappingRequest struct {
	ColumnMappings core.ColumnMapping `json:"columnMappings" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// validateRequest is the optional body of validate.
type validateRequest struct {
	ColumnMappings core.ColumnMapping `json:"columnMappings" validate:"omitempty,dive,keys,required,endkeys,required"`
}

// executeRequest is the optional body of execute.
type executeRequest struct {
	Options *core.OptionsOverride `json:"options"`
}

// decodeJSON reads an optional JSON body into dst and validates it. An
// empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("malformed JSON body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return describeValidation(err)
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(problems, "; "))
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
