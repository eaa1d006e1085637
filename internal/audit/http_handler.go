package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lncpro/rosteraudit/internal/domain"
	"github.com/lncpro/rosteraudit/internal/reconcile"
	"github.com/lncpro/rosteraudit/internal/repository"
)

// Handler exposes the audit workflow over plain HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wires the audit routes onto a fresh mux.
func NewHTTPHandler(service *Service) http.Handler {
	h := &Handler{service: service}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", h.listSessions)
	mux.HandleFunc("GET /api/sessions/{name}", h.getSession)
	mux.HandleFunc("DELETE /api/sessions/{name}", h.deleteSession)
	mux.HandleFunc("GET /api/sessions/{name}/review", h.reviewSession)
	mux.HandleFunc("POST /api/sessions/{name}/rows", h.applyRows)
	mux.HandleFunc("POST /api/sessions/{name}/backfill", h.backfillSession)
	mux.HandleFunc("GET /api/config/rules", h.getRules)
	mux.HandleFunc("PUT /api/config/rules", h.putRules)
	mux.HandleFunc("GET /api/config/equivalences", h.getEquivalences)
	mux.HandleFunc("PUT /api/config/equivalences", h.putEquivalences)
	mux.HandleFunc("GET /api/licenses", h.licenseStatus)
	mux.HandleFunc("POST /api/licenses", h.importLicenses)

	return mux
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.Sessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if infos == nil {
		infos = []repository.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Session(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reviewSession(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.Review(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) applyRows(w http.ResponseWriter, r *http.Request) {
	var inputs []reconcile.RowInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(inputs) == 0 {
		http.Error(w, "at least one row is required", http.StatusBadRequest)
		return
	}
	for _, input := range inputs {
		if input.Identity == "" {
			http.Error(w, "identity is required on every row", http.StatusBadRequest)
			return
		}
	}

	outcomes, err := h.service.ApplyManual(r.Context(), r.PathValue("name"), inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (h *Handler) backfillSession(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.BackfillSession(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []string{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) getRules(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Rules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) putRules(w http.ResponseWriter, r *http.Request) {
	var cfg domain.RuleConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.service.SaveRules(r.Context(), cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getEquivalences(w http.ResponseWriter, r *http.Request) {
	eq, err := h.service.Equivalences(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (h *Handler) putEquivalences(w http.ResponseWriter, r *http.Request) {
	var eq domain.EquivalenceMap
	if err := json.NewDecoder(r.Body).Decode(&eq); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.service.SaveEquivalences(r.Context(), eq); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) licenseStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     h.service.directory.Len(),
		"fetchedAt": h.service.directory.FetchedAt().Format(time.RFC3339),
		"stale":     h.service.directory.IsStale(h.service.maxCacheAge),
	})
}

func (h *Handler) importLicenses(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	count, err := h.service.ImportLicenseCSV(r.Context(), file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
