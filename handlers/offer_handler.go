package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

// ActorHeader identifica o usuário que age na requisição. A autenticação fica fora deste serviço.
const ActorHeader = "X-User-ID"

// OfferHandler lida com o livro de ofertas e a execução de negociações.
type OfferHandler struct {
	responder
	Offers  *services.OfferBook
	Trading *services.TradingService
}

// NewOfferHandler cria o handler de ofertas.
func NewOfferHandler(offers *services.OfferBook, trading *services.TradingService, opts ...Option) *OfferHandler {
	return &OfferHandler{responder: newResponder(opts), Offers: offers, Trading: trading}
}

// CreateOfferRequest é o corpo de POST /offers.
type CreateOfferRequest struct {
	CreatorID    string          `json:"creator_id"`
	AssetID      string          `json:"asset_id"`
	Direction    string          `json:"direction"`
	Units        int64           `json:"units"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

// CreateOffer abre uma oferta.
// POST /offers
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	dir, err := models.ParseDirection(req.Direction)
	if err != nil {
		h.writeError(w, services.ErrInvalidDirection)
		return
	}

	offer, err := h.Offers.CreateOffer(r.Context(), req.CreatorID, req.AssetID, dir, req.Units, req.PricePerUnit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, offer)
}

// GetOffer obtém uma oferta pelo ID.
// GET /offers/{id}
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.Offers.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, offer)
}

// ListOffers filtra ofertas.
// GET /offers?asset_id=&creator_id=&direction=&active=&min_units=&max_units=&min_price=&max_price=&from=&to=&sort=&order=&page=&per_page=
func (h *OfferHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.OfferFilter{
		AssetID:   q.Get("asset_id"),
		CreatorID: q.Get("creator_id"),
		SortBy:    q.Get("sort"),
		Desc:      q.Get("order") == "desc",
	}

	var err error
	if v := q.Get("direction"); v != "" {
		if f.Direction, err = models.ParseDirection(v); err != nil {
			h.writeError(w, services.ErrInvalidDirection)
			return
		}
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			h.badRequest(w, "active deve ser true ou false")
			return
		}
		f.Active = &active
	}
	ints := []struct {
		name string
		dst  *int64
	}{{"min_units", &f.MinUnits}, {"max_units", &f.MaxUnits}}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			if *p.dst, err = strconv.ParseInt(v, 10, 64); err != nil {
				h.badRequest(w, p.name+" deve ser inteiro")
				return
			}
		}
	}
	prices := []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}}
	for _, p := range prices {
		if v := q.Get(p.name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				h.badRequest(w, p.name+" deve ser decimal")
				return
			}
			*p.dst = &d
		}
	}
	if f.CreatedAfter, err = parseTime(q.Get("from")); err != nil {
		h.badRequest(w, "from deve estar em RFC3339")
		return
	}
	if f.CreatedBefore, err = parseTime(q.Get("to")); err != nil {
		h.badRequest(w, "to deve estar em RFC3339")
		return
	}
	if f.Page, err = parseInt(q.Get("page")); err != nil {
		h.badRequest(w, "page deve ser inteiro")
		return
	}
	if f.PerPage, err = parseInt(q.Get("per_page")); err != nil {
		h.badRequest(w, "per_page deve ser inteiro")
		return
	}

	page, err := h.Offers.FilterOffers(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// CancelOffer encerra a oferta a pedido do criador, identificado pelo cabeçalho X-User-ID.
// DELETE /offers/{id}
func (h *OfferHandler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get(ActorHeader)
	if actor == "" {
		h.badRequest(w, "cabeçalho "+ActorHeader+" é obrigatório")
		return
	}
	offer, err := h.Offers.CancelOffer(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, offer)
}

// ExecuteTradeRequest é o corpo de POST /offers/{id}/execute.
type ExecuteTradeRequest struct {
	CounterpartyID string `json:"counterparty_id"`
	Units          int64  `json:"units"`
}

// ExecuteTrade aceita a oferta em nome da contraparte.
// POST /offers/{id}/execute
func (h *OfferHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req ExecuteTradeRequest
	if err := decodeBody(r, &req); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	res, err := h.Trading.ExecuteTrade(r.Context(), chi.URLParam(r, "id"), req.CounterpartyID, req.Units)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
