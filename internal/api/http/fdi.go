package http

import (
	"net/http"
	"strconv"

	"dental-screen/internal/domain/fdi"
)

func (h *Handler) FDIInfoHandler(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("fdi"))
	if err != nil {
		respondError(w, fdi.ErrInvalidCode.Error(), http.StatusBadRequest)
		return
	}

	tooth, err := fdi.Lookup(code)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, tooth, http.StatusOK)
}

func (h *Handler) FDIMapHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, fdi.Chart(), http.StatusOK)
}
