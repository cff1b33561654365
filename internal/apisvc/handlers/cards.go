package handlers

import (
	"net/http"
	"strconv"

	"github.com/avvvet/manavault/internal/apisvc/models"
	log "github.com/sirupsen/logrus"
)

type pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type searchResponse struct {
	Results    []models.Card `json:"results"`
	Pagination pagination    `json:"pagination"`
}

// SearchCards serves GET /cards/search?name=&color=&type=&limit=&offset=&order=&direction=
func (h *Handler) SearchCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// unparsable numbers fall back to the service defaults
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := models.CardFilter{
		Name:      q.Get("name"),
		Color:     q.Get("color"),
		Type:      q.Get("type"),
		Limit:     limit,
		Offset:    offset,
		Order:     q.Get("order"),
		Direction: q.Get("direction"),
	}

	cards, used, err := h.cards.Search(r.Context(), filter)
	if err != nil {
		log.Errorf("Error searching cards: %v", err)
		h.errorResponse(w, http.StatusInternalServerError, "Error searching cards")
		return
	}

	h.writeJSON(w, http.StatusOK, searchResponse{
		Results:    cards,
		Pagination: pagination{Limit: used.Limit, Offset: used.Offset},
	})
}
