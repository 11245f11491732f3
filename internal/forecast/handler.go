package forecast

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const defaultHorizon = 30

// Handler exposes the regression forecaster over the batch predict protocol.
type Handler struct {
	model *Regression
}

func NewHandler(model *Regression) *Handler {
	if model == nil {
		model = NewRegression()
	}
	return &Handler{model: model}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/predict", h.Predict).Methods("POST")
	router.HandleFunc("/health", h.Health).Methods("GET")
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Details []BatchItem `json:"details"`
		Horizon *int        `json:"horizon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	horizon := defaultHorizon
	if body.Horizon != nil {
		horizon = *body.Horizon
	}

	results := make(BatchResponse, len(body.Details))
	for _, item := range body.Details {
		results[item.SKU] = h.model.Predict(item.History, horizon)
	}

	log.Debug().Int("items", len(body.Details)).Int("horizon", horizon).Msg("forecast batch served")
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
