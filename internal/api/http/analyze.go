package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	app "dental-screen/internal/application"
	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/xray"
	"dental-screen/internal/infrastructure/inference"
)

const (
	multipartMemory = 32 << 20

	msgNoFile        = "No se recibió ningún archivo"
	msgBadForm       = "No se pudo leer el formulario"
	msgTooLarge      = "El archivo es demasiado grande"
	msgBadConfidence = "El valor de confianza no es un número válido"
	msgBadFlag       = "Valor booleano inválido"
	msgBadURL        = "URL inválida. Debe comenzar con http:// o https://"
	msgDownload      = "No se pudo descargar la imagen desde la URL"
)

type analyzeResponse struct {
	*entity.AnalysisResult
	ImageBase64  *string              `json:"image_base64"`
	Model        string               `json:"model"`
	Confidence   float64              `json:"confidence"`
	Admission    xray.AdmissionResult `json:"admission"`
	Cached       bool                 `json:"cached"`
	ProcessingMs int64                `json:"processing_time_ms"`
	AnalysisID   int64                `json:"analysis_id,omitempty"`
	PerUserIndex int                  `json:"per_user_index,omitempty"`
}

type analyzeURLRequest struct {
	URL         string   `json:"url"`
	Confidence  *float64 `json:"confidence"`
	ReturnImage bool     `json:"return_image"`
}

func newAnalyzeResponse(out *app.AnalysisOutput, returnImage bool) analyzeResponse {
	resp := analyzeResponse{
		AnalysisResult: out.Result,
		Model:          out.Model,
		Confidence:     out.Confidence,
		Admission:      out.Admission,
		Cached:         out.Cached,
		ProcessingMs:   out.ProcessedIn.Milliseconds(),
		AnalysisID:     out.HistoryID,
		PerUserIndex:   out.PerUserIdx,
	}
	if img := out.ImageBase64(); returnImage && img != "" {
		resp.ImageBase64 = &img
	}
	return resp
}

// AnalyzeHandler обрабатывает POST /analyze, при save=true сохраняет результат в историю
func (h *Handler) AnalyzeHandler(w http.ResponseWriter, r *http.Request, user *entity.User) {
	req, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	req.UserID = user.ID

	out, err := h.c.AnalysisService.Analyze(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, newAnalyzeResponse(out, req.ReturnImage), http.StatusOK)
}

// AnalyzePublicHandler обрабатывает POST /analyze-public. Ничего не сохраняет.
func (h *Handler) AnalyzePublicHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	req.Save = false

	out, err := h.c.AnalysisService.Analyze(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, newAnalyzeResponse(out, req.ReturnImage), http.StatusOK)
}

// AnalyzeURLHandler скачивает снимок по ссылке. Проверка расширения не выполняется.
func (h *Handler) AnalyzeURLHandler(w http.ResponseWriter, r *http.Request) {
	var body analyzeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, "Cuerpo de la solicitud inválido", http.StatusBadRequest)
		return
	}

	u, err := url.Parse(body.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		respondError(w, msgBadURL, http.StatusBadRequest)
		return
	}

	confidence := h.opts.DefaultConfidence
	if body.Confidence != nil {
		confidence = *body.Confidence
	}

	data, err := h.c.Fetcher.Fetch(r.Context(), u.String())
	if err != nil {
		h.logger.Warn().Err(err).Str("host", u.Host).Msg("failed to download image")
		if errors.Is(err, inference.ErrTooLarge) {
			respondError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, msgDownload, http.StatusBadRequest)
		return
	}

	out, err := h.c.AnalysisService.Analyze(r.Context(), app.AnalysisRequest{
		Data:        data,
		Confidence:  confidence,
		ReturnImage: body.ReturnImage,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, newAnalyzeResponse(out, body.ReturnImage), http.StatusOK)
}

// parseUpload читает multipart-форму: file, confidence, return_image, save
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (app.AnalysisRequest, bool) {
	var req app.AnalysisRequest

	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, msgTooLarge, http.StatusRequestEntityTooLarge)
			return req, false
		}
		respondError(w, msgBadForm, http.StatusBadRequest)
		return req, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, msgNoFile, http.StatusBadRequest)
		return req, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, msgBadForm, http.StatusBadRequest)
		return req, false
	}

	req.Data = data
	req.Filename = header.Filename
	req.Confidence = h.opts.DefaultConfidence

	if v := r.FormValue("confidence"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, msgBadConfidence, http.StatusBadRequest)
			return req, false
		}
		req.Confidence = c
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"return_image", &req.ReturnImage},
		{"save", &req.Save},
	}
	for _, f := range flags {
		v := r.FormValue(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, msgBadFlag+": "+f.name, http.StatusBadRequest)
			return req, false
		}
		*f.dst = b
	}

	return req, true
}
