package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

// TransactionHandler expõe o histórico de negociações.
type TransactionHandler struct {
	responder
	Ledger *services.TransactionLedger
}

// NewTransactionHandler cria o handler de transações.
func NewTransactionHandler(l *services.TransactionLedger, opts ...Option) *TransactionHandler {
	return &TransactionHandler{responder: newResponder(opts), Ledger: l}
}

// ListTransactions devolve uma página do histórico, da mais nova para a mais antiga.
// GET /transactions?user_id=&asset_id=&type=&from=&to=&cursor=&limit=
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.HistoryFilter{
		UserID:  q.Get("user_id"),
		AssetID: q.Get("asset_id"),
		Type:    models.TransactionType(q.Get("type")),
	}
	var err error
	if f.From, err = parseTime(q.Get("from")); err != nil {
		h.badRequest(w, "from deve estar em RFC3339")
		return
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		h.badRequest(w, "to deve estar em RFC3339")
		return
	}
	if f.PageSize, err = parseInt(q.Get("limit")); err != nil {
		h.badRequest(w, "limit deve ser inteiro")
		return
	}

	page, err := h.Ledger.HistoryPage(r.Context(), f, q.Get("cursor"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// GetTransaction obtém uma transação pelo ID.
// GET /transactions/{id}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}
