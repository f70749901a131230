// Package http HTTP API сервиса: авторизация, анализ снимков, история и справочник FDI.
package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"dental-screen/internal/container"
	"dental-screen/internal/domain/entity"
	"dental-screen/internal/infrastructure/vision"
)

// Options настройки транспорта
type Options struct {
	Version           string
	DefaultConfidence float64
	MaxUploadBytes    int64
	AllowedOrigins    []string
}

type Handler struct {
	c      *container.Container
	opts   Options
	logger zerolog.Logger
}

func NewHandler(c *container.Container, opts Options, logger zerolog.Logger) *Handler {
	return &Handler{
		c:      c,
		opts:   opts,
		logger: logger,
	}
}

// Routes собирает маршруты вместе с middleware
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.RootHandler)
	mux.HandleFunc("GET /health", h.HealthHandler)
	mux.HandleFunc("GET /metadata", h.MetadataHandler)
	mux.HandleFunc("GET /cache/stats", h.CacheStatsHandler)

	mux.HandleFunc("POST /auth/register", h.RegisterHandler)
	mux.HandleFunc("POST /auth/login", h.LoginHandler)
	mux.HandleFunc("GET /auth/me", h.requireAuth(h.MeHandler))

	mux.HandleFunc("POST /analyze", h.requireAuth(h.AnalyzeHandler))
	mux.HandleFunc("POST /analyze-public", h.AnalyzePublicHandler)
	mux.HandleFunc("POST /analyze-url", h.AnalyzeURLHandler)

	mux.HandleFunc("GET /analyses", h.requireAuth(h.ListAnalysesHandler))
	mux.HandleFunc("DELETE /analyses/{id}", h.requireAuth(h.DeleteAnalysisHandler))

	mux.HandleFunc("GET /fdi-info/{fdi}", h.FDIInfoHandler)
	mux.HandleFunc("GET /fdi-map", h.FDIMapHandler)

	return requestID(h.logRequests(cors(h.opts.AllowedOrigins, mux)))
}

func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"message": "Dental Detection API",
		"version": h.opts.Version,
		"features": []string{
			"Detección de caries, dientes retenidos, pérdida ósea",
			"Validación de radiografías antes del análisis",
			"Autenticación con JWT",
			"Historial de análisis por usuario",
			"Resumen FDI por diente y patología",
		},
		"endpoints": map[string]string{
			"register": "/auth/register",
			"login":    "/auth/login",
			"analyze":  "/analyze",
			"history":  "/analyses",
			"fdi":      "/fdi-map",
		},
	}, http.StatusOK)
}

// HealthHandler состояние сервиса и модели
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	model := h.c.AnalysisService.DetectorName()

	classes := make(map[int]entity.Finding, len(entity.Findings))
	for i, f := range entity.Findings {
		classes[i] = f
	}

	respondJSON(w, map[string]any{
		"status":        "ok",
		"model_loaded":  model != "",
		"model_path":    model,
		"model_classes": classes,
		"version":       h.opts.Version,
	}, http.StatusOK)
}

type classInfo struct {
	ID       int            `json:"id"`
	Name     entity.Finding `json:"name"`
	ColorRGB [3]uint8       `json:"color_rgb"`
	ColorHex string         `json:"color_hex"`
}

func (h *Handler) MetadataHandler(w http.ResponseWriter, r *http.Request) {
	classes := make([]classInfo, 0, len(entity.Findings))
	for i, f := range entity.Findings {
		c := vision.ClassColor(f)
		classes = append(classes, classInfo{
			ID:       i,
			Name:     f,
			ColorRGB: [3]uint8{c.R, c.G, c.B},
			ColorHex: vision.HexColor(f),
		})
	}

	respondJSON(w, map[string]any{
		"classes":                classes,
		"default_conf_threshold": h.opts.DefaultConfidence,
	}, http.StatusOK)
}

func (h *Handler) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	if h.c.Cache == nil {
		respondJSON(w, map[string]any{"enabled": false}, http.StatusOK)
		return
	}
	respondJSON(w, h.c.Cache.Stats(), http.StatusOK)
}
