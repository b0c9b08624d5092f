package simulate

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ha1tch/fsm-canvas/pkg/fsm"
)

// maxRequest bounds the size of a posted machine.
const maxRequest = 1 << 20

// Handler serves /simulate by running posted machines locally.
type Handler struct {
	Logger *slog.Logger
}

// NewHandler returns a handler that logs to logger.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{Logger: logger}
}

// NewMux returns a mux with the handler mounted on /simulate.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/simulate", h)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if id := r.Header.Get("X-Request-Id"); id != "" {
		log = log.With("request_id", id)
		w.Header().Set("X-Request-Id", id)
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Err: strPtr("Method not allowed")})
		return
	}

	var m PreppedMachine
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequest))
	if err := dec.Decode(&m); err != nil {
		log.Info("bad machine payload", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Err: strPtr("Malformed machine: " + err.Error())})
		return
	}

	tape := r.URL.Query().Get("tape")
	res, err := m.Run(tape)
	if err != nil {
		var nd *fsm.NondeterministicError
		if errors.As(err, &nd) {
			log.Info("nondeterministic machine", "state", nd.State, "symbol", string(nd.Symbol))
		} else {
			log.Info("invalid machine", "error", err)
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Err: strPtr(err.Error())})
		return
	}

	log.Debug("simulated", "tape", tape, "accepted", res.Accepted)
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func strPtr(s string) *string {
	return &s
}
