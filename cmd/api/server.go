package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/fredDebt/pkg/amortization"
	"github.com/mcclellann/fredDebt/pkg/models"
	"github.com/mcclellann/fredDebt/pkg/planner"
	"github.com/sirupsen/logrus"
)

// Server exposes the planner over HTTP.
type Server struct {
	planner *planner.Planner
	log     *logrus.Logger
}

func NewServer(p *planner.Planner, log *logrus.Logger) *Server {
	return &Server{planner: p, log: log}
}

// Router wires every route onto a new mux router.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/profile", s.getProfileHandler).Methods("GET")
	router.HandleFunc("/profile", s.saveProfileHandler).Methods("PUT")

	router.HandleFunc("/debts", s.listDebtsHandler).Methods("GET")
	router.HandleFunc("/debts", s.createDebtHandler).Methods("POST")
	router.HandleFunc("/debts/{id}", s.getDebtHandler).Methods("GET")
	router.HandleFunc("/debts/{id}", s.updateDebtHandler).Methods("PUT")
	router.HandleFunc("/debts/{id}", s.deleteDebtHandler).Methods("DELETE")
	router.HandleFunc("/debts/{id}/simulation", s.simulationHandler).Methods("GET")

	router.HandleFunc("/simulations", s.listSimulationsHandler).Methods("GET")
	router.HandleFunc("/overview", s.overviewHandler).Methods("GET")
	return router
}

func (s *Server) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.planner.GetProfile(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) saveProfileHandler(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := s.planner.SaveProfile(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) listDebtsHandler(w http.ResponseWriter, r *http.Request) {
	debts, err := s.planner.ListDebts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) createDebtHandler(w http.ResponseWriter, r *http.Request) {
	var in models.DebtInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	debt, err := s.planner.SaveDebt(r.Context(), nil, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, debt)
}

func (s *Server) getDebtHandler(w http.ResponseWriter, r *http.Request) {
	debtID, ok := parseDebtID(w, r)
	if !ok {
		return
	}

	debt, err := s.planner.GetDebt(r.Context(), debtID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (s *Server) updateDebtHandler(w http.ResponseWriter, r *http.Request) {
	debtID, ok := parseDebtID(w, r)
	if !ok {
		return
	}

	var in models.DebtInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	debt, err := s.planner.SaveDebt(r.Context(), &debtID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debt)
}

func (s *Server) deleteDebtHandler(w http.ResponseWriter, r *http.Request) {
	debtID, ok := parseDebtID(w, r)
	if !ok {
		return
	}

	if err := s.planner.DeleteDebt(r.Context(), debtID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) simulationHandler(w http.ResponseWriter, r *http.Request) {
	debtID, ok := parseDebtID(w, r)
	if !ok {
		return
	}

	result, err := s.planner.Simulate(r.Context(), debtID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type simulationResponse struct {
	DebtID   uuid.UUID                   `json:"debt_id"`
	LoanName string                      `json:"loan_name"`
	Schedule []models.AmortizationRow    `json:"schedule,omitempty"`
	Summary  *models.AmortizationSummary `json:"summary,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

func (s *Server) listSimulationsHandler(w http.ResponseWriter, r *http.Request) {
	sims, err := s.planner.SimulateAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]simulationResponse, 0, len(sims))
	for _, sim := range sims {
		item := simulationResponse{DebtID: sim.Debt.ID, LoanName: sim.Debt.LoanName}
		if sim.Err != nil {
			item.Error = sim.Err.Error()
		} else {
			item.Schedule = sim.Result.Schedule
			item.Summary = &sim.Result.Summary
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) overviewHandler(w http.ResponseWriter, r *http.Request) {
	ov, err := s.planner.Overview(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func parseDebtID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	debtID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid debt ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return debtID, true
}

// writeError maps planner errors onto HTTP statuses. Insufficient payments are
// reported with the engine's message unchanged.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid input", "fields": verr.Fields})
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, amortization.ErrPaymentInsufficient):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		s.log.WithError(err).Error("Request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
	})
}
