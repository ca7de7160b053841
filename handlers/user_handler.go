package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

// UserHandler lida com requisições HTTP relacionadas a usuários.
type UserHandler struct {
	responder
	Directory Directory
	Portfolio *services.PortfolioService
}

// NewUserHandler cria uma nova instância do handler de usuários.
func NewUserHandler(dir Directory, portfolio *services.PortfolioService, opts ...Option) *UserHandler {
	return &UserHandler{responder: newResponder(opts), Directory: dir, Portfolio: portfolio}
}

// CreateUser cria um novo usuário.
// POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		h.badRequest(w, "nome e email são obrigatórios")
		return
	}

	user := models.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      req.Name,
		Email:     req.Email,
		IsActive:  true,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := h.Directory.SaveUser(r.Context(), user); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// GetUserByID obtém um usuário pelo ID.
// GET /users/{id}
func (h *UserHandler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	user, found, err := h.Directory.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		h.writeError(w, services.ErrUserUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// GetUserFractions lista as frações ativas do usuário, da mais antiga para a mais nova.
// GET /users/{id}/fractions?asset_id=
func (h *UserHandler) GetUserFractions(w http.ResponseWriter, r *http.Request) {
	fractions, err := h.Portfolio.Fractions(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("asset_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if fractions == nil {
		fractions = []models.Fraction{}
	}
	h.writeJSON(w, http.StatusOK, fractions)
}

// GetPortfolio devolve a carteira consolidada do usuário.
// GET /users/{id}/portfolio
func (h *UserHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.Portfolio.Holdings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}
