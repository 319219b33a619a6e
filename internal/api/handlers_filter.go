package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type filterRequest struct {
	Text     string `json:"text" validate:"required"`
	Langcode string `json:"langcode" validate:"omitempty,bcp47_language_tag"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	// Allow for JSON escaping overhead on top of the text limit.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxTextBytes+4096)

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	if int64(len(req.Text)) > s.cfg.MaxTextBytes {
		jsonError(w, fmt.Sprintf("text exceeds max size (%d bytes)", s.cfg.MaxTextBytes), http.StatusRequestEntityTooLarge)
		return
	}

	res := s.filter.Text(r.Context(), req.Text, req.Langcode, "api")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	long, _ := strconv.ParseBool(r.URL.Query().Get("long"))
	writeJSON(w, http.StatusOK, map[string]any{
		"long": long,
		"tips": s.filter.Tips(r.URL.Query().Get("langcode"), long),
	})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plugins": s.filter.Handlers()})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	snap := s.filter.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"settings":   snap.Settings,
		"enabled":    snap.Set.IDs(),
		"applied_at": snap.Applied,
	})
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
