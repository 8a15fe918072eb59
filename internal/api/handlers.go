package api

import (
	"net/http"
	"strconv"

	"agenda/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleProfessionals(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.ListActiveProfessionals(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("List professionals failed")
		writeError(w, http.StatusInternalServerError, "failed to list professionals")
		return
	}
	if list == nil {
		list = []models.Professional{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"professionals": list})
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid professional id")
		return
	}

	list, err := s.catalog.ListActiveServices(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Int64("professional_id", id).Msg("List services failed")
		writeError(w, http.StatusInternalServerError, "failed to list services")
		return
	}

	type serviceView struct {
		models.Service
		Price    string `json:"price"`
		Duration string `json:"duration"`
	}
	out := make([]serviceView, 0, len(list))
	for _, svc := range list {
		out = append(out, serviceView{Service: svc, Price: svc.PriceLabel(), Duration: svc.DurationLabel()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"professional_id": id, "services": out})
}

func (s *HTTPServer) handleTimeSlots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"time_slots": models.TimeSlots})
}
