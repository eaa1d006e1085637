package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Importer merges a parsed roster into a stored session. The import side
// lives elsewhere so the parser stays persistence-free.
type Importer interface {
	ImportRoster(ctx context.Context, sessionName string, result Result) ([]string, error)
}

// Handler exposes roster upload as an HTTP endpoint.
type Handler struct {
	service  *Service
	importer Importer
}

// NewHTTPHandler wraps the parser and importer with a POST endpoint.
func NewHTTPHandler(service *Service, importer Importer) http.Handler {
	return &Handler{service: service, importer: importer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	sessionName := strings.TrimSpace(r.FormValue("session"))
	if sessionName == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.service.Parse(header.Filename, bytes.NewReader(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mergeLog, err := h.importer.ImportRoster(r.Context(), sessionName, result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": result.Summary,
		"log":     mergeLog,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
