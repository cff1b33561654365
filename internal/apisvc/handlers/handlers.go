package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/avvvet/manavault/internal/apisvc/models"
	"github.com/avvvet/manavault/internal/comm"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

type AuthService interface {
	Signup(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type CardService interface {
	Search(ctx context.Context, f models.CardFilter) ([]models.Card, models.CardFilter, error)
}

// ImportStatus is filled from the import events on the bus.
type ImportStatus interface {
	LastImport() (last, lastSuccess *comm.ImportEvent)
	ImporterHeartbeat() *comm.ServiceHeartbeat
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	auth      AuthService
	cards     CardService
	imports   ImportStatus
	port      string
}

func NewHandler(tokenAuth *jwtauth.JWTAuth, auth AuthService, cards CardService, port string) *Handler {
	return &Handler{
		tokenAuth: tokenAuth,
		auth:      auth,
		cards:     cards,
		port:      port,
	}
}

type Response struct {
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	h.writeJSON(w, rsp.Code, rsp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, code int, msg string) {
	h.CreateResponse(w, Response{Message: msg, Code: code, Error: http.StatusText(code)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// SetImportStatus enables /api/import/status.
func (h *Handler) SetImportStatus(s ImportStatus) {
	h.imports = s
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "api service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

func (h *Handler) ImportStatusHandler(w http.ResponseWriter, r *http.Request) {
	if h.imports == nil {
		h.errorResponse(w, http.StatusServiceUnavailable, "import events not connected")
		return
	}

	last, lastSuccess := h.imports.LastImport()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"last":         last,
		"last_success": lastSuccess,
		"importer":     h.imports.ImporterHeartbeat(),
	})
}
