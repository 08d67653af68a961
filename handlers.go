/*
File: handlers.go
Version: 1.2.0
Description: HTTP API: health, metrics, model info, single and batch predictions.
             The ready model is injected at construction; handlers never trigger training.
             UPDATED: Predictions go straight to the model; no result cache.
*/

package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

// API serves predictions from a single read-only model.
type API struct {
	model   *Model
	manager *ModelManager
	metrics *MetricsStore
	limiter *LimiterManager
	cfg     ServerConfig
}

func NewAPI(model *Model, manager *ModelManager, metrics *MetricsStore, limiter *LimiterManager, cfg ServerConfig) *API {
	return &API{model: model, manager: manager, metrics: metrics, limiter: limiter, cfg: cfg}
}

// predict classifies rawURL with surrounding whitespace removed.
func (a *API) predict(rawURL string) PredictionResult {
	return a.model.PredictWithExplain(strings.TrimSpace(rawURL))
}

type predictRequest struct {
	URL *string `json:"url"`
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

type batchResponse struct {
	Results []PredictionResult `json:"results"`
}

type modelInfo struct {
	Source           string             `json:"source"`
	FeatureNames     []string           `json:"feature_names"`
	Weights          map[string]float64 `json:"weights"`
	Bias             float64            `json:"bias"`
	TrainedAt        time.Time          `json:"trained_at"`
	TrainingExamples int                `json:"training_examples"`
	Warnings         []string           `json:"warnings"`
	Evaluation       *EvalReport        `json:"evaluation,omitempty"`
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.cors)
	r.Use(a.rateLimit)

	r.Get("/health", a.handleHealth)
	r.Get("/metrics", a.handleMetrics)
	r.Get("/model", a.handleModel)
	r.Post("/predict", a.handlePredict)
	r.Post("/predict/batch", a.handlePredictBatch)

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := a.metrics.Load()
	if err != nil {
		LogWarn("[METRICS] %v", err)
		writeError(w, http.StatusInternalServerError, "metrics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) handleModel(w http.ResponseWriter, r *http.Request) {
	weights := make(map[string]float64, len(a.model.Weights))
	for i, name := range a.model.FeatureNames {
		weights[name] = a.model.Weights[i]
	}

	info := modelInfo{
		FeatureNames:     a.model.FeatureNames,
		Weights:          weights,
		Bias:             a.model.Bias,
		TrainedAt:        a.model.TrainedAt,
		TrainingExamples: a.model.TrainingExamples,
		Warnings:         []string{},
	}
	if a.manager != nil {
		info.Source = a.manager.Source()
		info.Warnings = append(info.Warnings, a.manager.Warnings()...)
		info.Evaluation = a.manager.Evaluation()
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.URL == nil {
		writeError(w, http.StatusUnprocessableEntity, "field 'url' is required")
		return
	}

	result := a.predict(*req.URL)
	if IsDebugEnabled() {
		LogDebug("[API] %s -> %s (%.4f) [req %s]", result.URL, result.PredLabel, result.PredProba, middleware.GetReqID(r.Context()))
	}

	if _, err := a.metrics.Record(result.PredLabel); err != nil {
		LogWarn("[METRICS] Failed to record prediction: %v", err)
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !a.decode(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "field 'urls' must be a non-empty list")
		return
	}
	if len(req.URLs) > a.cfg.MaxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "too many urls in batch")
		return
	}

	results := make([]PredictionResult, len(req.URLs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, u := range req.URLs {
		g.Go(func() error {
			results[i] = a.predict(u)
			return nil
		})
	}
	_ = g.Wait()

	labels := make([]string, len(results))
	for i, res := range results {
		labels[i] = res.PredLabel
	}
	if _, err := a.metrics.Record(labels...); err != nil {
		LogWarn("[METRICS] Failed to record batch: %v", err)
	}

	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// decode reads a JSON body into dst, writing a 400 response on failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
		}
		return false
	}
	return true
}

// --- Middleware ---

func (a *API) cors(next http.Handler) http.Handler {
	allowAll := slices.Contains(a.cfg.CORSOrigins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAll || slices.Contains(a.cfg.CORSOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		action, delay, reason := a.limiter.Check(clientIP(r))
		switch action {
		case ActionDrop:
			LogWarn("[LIMITER] %s", reason)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		case ActionDelay:
			if IsDebugEnabled() {
				LogDebug("[LIMITER] %s", reason)
			}
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP parses r.RemoteAddr (already rewritten by middleware.RealIP).
func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// --- Responses ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		LogWarn("[API] Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
