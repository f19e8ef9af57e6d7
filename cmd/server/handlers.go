package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/apperr"
	"github.com/Simplici0/metalrate/internal/history"
	"github.com/Simplici0/metalrate/internal/pricing"
	"github.com/Simplici0/metalrate/internal/screen"
)

const maxBodyBytes = 1 << 20

// bulkUpdateSource labels history entries posted to the bulk-update endpoint.
const bulkUpdateSource = "bulk-update API"

type screenResponse struct {
	Screen screen.View          `json:"screen"`
	Notice *screen.Notice       `json:"notice,omitempty"`
	Result *screen.SubmitResult `json:"result,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type bulkUpdateResponse struct {
	pricing.Outcome
	Error string `json:"error,omitempty"`
}

type submissionsResponse struct {
	Query       string          `json:"query"`
	Submissions []history.Entry `json:"submissions"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form"})
			return
		}
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	email := strings.TrimSpace(req.Email)
	valid, err := s.auth.validateCredentials(r.Context(), email, req.Password)
	if err != nil {
		s.logger.Error("authentication error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "authentication error"})
		return
	}
	if !valid {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	s.auth.setSessionCookie(w, email)
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.screens.Drop(sessionFrom(r.Context()))
	s.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) screenFor(r *http.Request) *screen.Screen {
	return s.screens.Get(sessionFrom(r.Context()))
}

func (s *server) handleScreen(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	force := r.URL.Query().Get("reload") == "1"
	if err := sc.Load(r.Context(), force); err != nil {
		s.logger.Error("catalog load failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, screenResponse{
			Screen: sc.View(),
			Notice: &screen.Notice{Level: screen.LevelError, Message: fmt.Sprintf("could not load collections: %v", err)},
		})
		return
	}
	writeJSON(w, http.StatusOK, screenResponse{Screen: sc.View()})
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	s.writeScreen(w, sc, sc.Toggle(chi.URLParam(r, "id")))
}

func (s *server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	s.writeScreen(w, sc, sc.SelectAll())
}

func (s *server) handleDeselectAll(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	s.writeScreen(w, sc, sc.DeselectAll())
}

func (s *server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	s.writeScreen(w, sc, sc.Confirm())
}

func (s *server) handleReselect(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	sc.Reselect()
	s.writeScreen(w, sc, nil)
}

func (s *server) handleSavePricing(w http.ResponseWriter, r *http.Request) {
	rate, percent, err := parsePricingInput(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sc := s.screenFor(r)
	_, err = sc.SavePricing(r.Context(), chi.URLParam(r, "id"), rate, percent)
	s.writeScreen(w, sc, err)
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sc := s.screenFor(r)
	result, err := sc.Submit(r.Context())
	if err != nil {
		s.writeScreen(w, sc, err)
		return
	}
	writeJSON(w, http.StatusOK, screenResponse{Screen: sc.View(), Notice: &result.Notice, Result: &result})
}

// handleBulkUpdate applies a change set posted directly by a client.
func (s *server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var sub pricing.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	for i, u := range sub.Updates {
		if strings.TrimSpace(u.ProductID) == "" || strings.TrimSpace(u.VariantID) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("update %d is missing productId or variantId", i)})
			return
		}
	}

	outcome, err := s.updater.UpdatePrices(r.Context(), sub)
	if len(sub.Updates) > 0 {
		if _, recErr := s.history.Record(r.Context(), []string{bulkUpdateSource}, sub, outcome, err); recErr != nil {
			s.logger.Error("failed to record price submission", zap.Error(recErr))
		}
	}
	if err != nil {
		s.logger.Error("bulk price update failed", zap.Int("changes", len(sub.Updates)), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, bulkUpdateResponse{Outcome: outcome, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, bulkUpdateResponse{Outcome: outcome})
}

func (s *server) handleSubmissionPayload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := s.history.Payload(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "submission not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load submission payload", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load submission"})
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	entries, err := s.history.List(r.Context(), query)
	if err != nil {
		s.logger.Error("failed to list submissions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load submissions"})
		return
	}
	writeJSON(w, http.StatusOK, submissionsResponse{Query: query, Submissions: entries})
}

// writeScreen answers with the current view. Validation errors become a
// warning notice with status 400.
func (s *server) writeScreen(w http.ResponseWriter, sc *screen.Screen, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, screenResponse{Screen: sc.View()})
		return
	}
	if apperr.IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, screenResponse{
			Screen: sc.View(),
			Notice: &screen.Notice{Level: screen.LevelWarning, Message: err.Error()},
		})
		return
	}
	s.logger.Error("screen operation failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, screenResponse{
		Screen: sc.View(),
		Notice: &screen.Notice{Level: screen.LevelError, Message: "something went wrong"},
	})
}

// parsePricingInput reads rate and percent as the merchant typed them, from a
// JSON body (strings or numbers) or a form.
func parsePricingInput(w http.ResponseWriter, r *http.Request) (string, string, error) {
	if !isJSON(r) {
		if err := r.ParseForm(); err != nil {
			return "", "", err
		}
		return r.FormValue("rate"), r.FormValue("percent"), nil
	}

	var body struct {
		Rate    json.RawMessage `json:"rate"`
		Percent json.RawMessage `json:"percent"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		return "", "", err
	}
	return rawText(body.Rate), rawText(body.Percent), nil
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("decode request body: trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
