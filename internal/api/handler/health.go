package handler

import (
	"net/http"

	"github.com/mcoot/roomhost/internal/api/response"
)

// Health handles GET /api/v1/health
func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
