package predict

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
	"github.com/cpipredict/cpi-predictor/core/prediction"
	"github.com/cpipredict/cpi-predictor/infra/logger"
	"github.com/cpipredict/cpi-predictor/internal/eventbus"
)

// DefaultMaxBodyBytes caps the request body when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Handler serves POST /predict.
type Handler struct {
	engine  prediction.Engine
	bus     eventbus.Bus[coremetrics.Event]
	log     logger.Logger
	maxBody int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithBus publishes prediction and rejection events on bus.
func WithBus(bus eventbus.Bus[coremetrics.Event]) Option {
	return func(h *Handler) { h.bus = bus }
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMaxBodyBytes limits the request body size. Non-positive values keep
// the default.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler returns a Handler predicting with engine.
func NewHandler(engine prediction.Engine, opts ...Option) *Handler {
	h := &Handler{engine: engine, log: logger.NopLogger{}, maxBody: DefaultMaxBodyBytes}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.refuse(w, http.StatusRequestEntityTooLarge, reject(coremetrics.ReasonMalformed, DetailTooLarge))
			return
		}
		h.refuse(w, http.StatusBadRequest, reject(coremetrics.ReasonMalformed, DetailMalformed))
		return
	}

	semesters, cpi, verr := req.Validate()
	if verr != nil {
		h.refuse(w, http.StatusBadRequest, verr)
		return
	}

	res, err := h.engine.Predict(semesters, cpi)
	switch {
	case errors.Is(err, prediction.ErrDegenerateFit):
		h.log.Warnf("degenerate fit for %d points: %v", len(semesters), err)
		h.refuse(w, http.StatusUnprocessableEntity, reject(coremetrics.ReasonDegenerate, err.Error()))
		return
	case err != nil:
		h.log.Errorf("predict %d points: %v", len(semesters), err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	ev := coremetrics.PredictionEvent{
		ID:         uuid.NewString(),
		Points:     len(semesters),
		Degree:     res.Degree,
		Prediction: res.Prediction,
		Clamped:    res.Clamped(),
		Duration:   time.Since(start),
		Time:       time.Now().UTC(),
	}
	h.publish(ev)
	h.log.Debugw("prediction served", map[string]any{
		"id":         ev.ID,
		"points":     ev.Points,
		"degree":     ev.Degree,
		"prediction": ev.Prediction,
		"clamped":    ev.Clamped,
	})

	w.Header().Set("X-Prediction-ID", ev.ID)
	writeJSON(w, http.StatusOK, Response{Ans: res.Prediction, Plot: res.Chart})
}

func (h *Handler) refuse(w http.ResponseWriter, status int, verr *ValidationError) {
	h.publish(coremetrics.RejectionEvent{Reason: verr.Reason, Time: time.Now().UTC()})
	writeError(w, status, verr.Detail)
}

func (h *Handler) publish(ev coremetrics.Event) {
	if h.bus != nil {
		h.bus.Publish(ev)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
