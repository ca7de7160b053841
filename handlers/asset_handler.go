package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

// Directory é o cadastro de usuários e ativos. Em produção pertence a outro serviço;
// aqui serve para semear ambientes de desenvolvimento.
type Directory interface {
	SaveUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	SaveAsset(ctx context.Context, asset models.Asset) error
	GetAsset(ctx context.Context, id string) (models.Asset, bool, error)
}

// AssetHandler lida com requisições HTTP relacionadas a ativos.
type AssetHandler struct {
	responder
	Directory Directory
	Fractions *services.FractionLedger
	Offers    *services.OfferBook
}

// NewAssetHandler cria uma nova instância do handler de ativos.
func NewAssetHandler(dir Directory, fractions *services.FractionLedger, offers *services.OfferBook, opts ...Option) *AssetHandler {
	return &AssetHandler{responder: newResponder(opts), Directory: dir, Fractions: fractions, Offers: offers}
}

// CreateAsset cadastra um ativo.
// POST /assets
func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string          `json:"name"`
		TotalUnit  int64           `json:"total_unit"`
		UnitMin    int64           `json:"unit_min"`
		UnitMax    int64           `json:"unit_max"`
		TotalValue decimal.Decimal `json:"total_value"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.badRequest(w, "nome do ativo é obrigatório")
		return
	}
	if req.TotalUnit < 1 || req.UnitMin < 1 || req.UnitMax < req.UnitMin || req.UnitMax > req.TotalUnit {
		h.badRequest(w, "limites de unidades inválidos: exige 1 <= unit_min <= unit_max <= total_unit")
		return
	}
	if req.TotalValue.IsNegative() {
		h.badRequest(w, "valor total não pode ser negativo")
		return
	}

	asset := models.Asset{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Name:       req.Name,
		TotalUnit:  req.TotalUnit,
		UnitMin:    req.UnitMin,
		UnitMax:    req.UnitMax,
		TotalValue: req.TotalValue,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := h.Directory.SaveAsset(r.Context(), asset); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, asset)
}

// GetAssetByID obtém um ativo pelo ID.
// GET /assets/{id}
func (h *AssetHandler) GetAssetByID(w http.ResponseWriter, r *http.Request) {
	asset, found, err := h.Directory.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		h.writeError(w, services.ErrAssetNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, asset)
}

// IssueFraction emite uma fração do ativo para um dono.
// POST /assets/{id}/fractions
func (h *AssetHandler) IssueFraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID   string          `json:"owner_id"`
		Units     int64           `json:"units"`
		UnitValue decimal.Decimal `json:"unit_value"`
	}
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	f, err := h.Fractions.CreateFraction(r.Context(), chi.URLParam(r, "id"), req.OwnerID, req.Units, req.UnitValue)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, f)
}

// GetBook devolve o livro de ofertas ativas do ativo.
// GET /assets/{id}/offers
func (h *AssetHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.Offers.BookFor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, book)
}

// GetActiveUnits devolve a soma das unidades ativas do ativo.
// GET /assets/{id}/units
func (h *AssetHandler) GetActiveUnits(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")
	total, err := h.Fractions.TotalActiveUnits(r.Context(), assetID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"asset_id": assetID, "active_units": total})
}
