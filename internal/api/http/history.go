package http

import (
	"net/http"
	"strconv"

	"dental-screen/internal/domain/entity"
)

func (h *Handler) ListAnalysesHandler(w http.ResponseWriter, r *http.Request, user *entity.User) {
	items, err := h.c.HistoryService.List(r.Context(), user.ID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, items, http.StatusOK)
}

// DeleteAnalysisHandler удаляет анализ по analysis_id. Чужие записи не видны: 404.
func (h *Handler) DeleteAnalysisHandler(w http.ResponseWriter, r *http.Request, user *entity.User) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, "ID inválido", http.StatusBadRequest)
		return
	}

	if err := h.c.HistoryService.Delete(r.Context(), user.ID, id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, map[string]int64{"deleted": id}, http.StatusOK)
}
