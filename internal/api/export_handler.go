package api

import (
	"encoding/json"
	"net/http"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/favorites"
)

type ImportFavoritesResponse struct {
	Imported int    `json:"imported"`
	Total    int    `json:"total"`
	Warning  string `json:"warning,omitempty"`
}

func attachment(w http.ResponseWriter, filename string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	json.NewEncoder(w).Encode(v)
}

// exportStatistics downloads the statistics document.
// @Summary      Export statistics
// @Tags         Export
// @Produce      json
// @Success      200  {object}  service.StatisticsExport
// @Router       /statistics/export [get]
func (h *Handler) exportStatistics(w http.ResponseWriter, r *http.Request) {
	attachment(w, "exam-statistics.json", h.tracker.ExportStatistics())
}

// exportFavorites downloads the favorites document.
// @Summary      Export favorites
// @Tags         Export
// @Produce      json
// @Success      200  {object}  service.FavoritesExport
// @Router       /favorites/export [get]
func (h *Handler) exportFavorites(w http.ResponseWriter, r *http.Request) {
	attachment(w, "exam-favorites.json", h.tracker.ExportFavorites())
}

// importFavorites merges an exported favorites document. Both the export
// envelope and a bare favorites document are accepted.
// @Summary      Import favorites
// @Description  Entries present on both sides keep the most recently modified version.
// @Tags         Export
// @Accept       json
// @Produce      json
// @Param        body  body      service.FavoritesExport  true  "Exported favorites"
// @Success      200   {object}  ImportFavoritesResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /favorites/import [post]
func (h *Handler) importFavorites(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	var envelope struct {
		Data *favorites.Data `json:"data"`
	}
	in := &favorites.Data{}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		in = envelope.Data
	} else if err := json.Unmarshal(raw, in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid favorites document")
		return
	}

	imported, res, err := h.tracker.ImportFavorites(r.Context(), in)
	if h.handleError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, ImportFavoritesResponse{
		Imported: imported,
		Total:    h.tracker.Favorites().Count(),
		Warning:  res.Warning,
	})
}
