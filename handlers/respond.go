package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ferreirogomes/fracionado/services"
)

// errorResponse é o corpo devolvido em qualquer falha.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

var statusByCode = map[string]int{
	services.CodeInvalidInput:                    http.StatusBadRequest,
	services.CodeInvalidUnits:                    http.StatusBadRequest,
	services.CodeInvalidPrice:                    http.StatusBadRequest,
	services.CodeInvalidDirection:                http.StatusBadRequest,
	services.CodeOfferNotFound:                   http.StatusNotFound,
	services.CodeAssetNotFound:                   http.StatusNotFound,
	services.CodeFractionNotFound:                http.StatusNotFound,
	services.CodeTransactionNotFound:             http.StatusNotFound,
	services.CodeUserUnavailable:                 http.StatusUnprocessableEntity,
	services.CodeOfferInactive:                   http.StatusConflict,
	services.CodeSelfTradeRejected:               http.StatusConflict,
	services.CodeUnitsExceedOfferRemainder:       http.StatusConflict,
	services.CodeInsufficientUnits:               http.StatusConflict,
	services.CodeDuplicateActiveOffer:            http.StatusConflict,
	services.CodeInsufficientHoldingForSellOffer: http.StatusConflict,
	services.CodeNotOfferCreator:                 http.StatusForbidden,
	services.CodeAssetConstraintViolation:        http.StatusUnprocessableEntity,
}

// statusFor devolve o status HTTP do código de erro.
func statusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Option ajusta um handler na criação.
type Option func(*responder)

// WithLogger define o logger usado pelos handlers.
func WithLogger(l *slog.Logger) Option {
	return func(r *responder) {
		if l != nil {
			r.logger = l
		}
	}
}

// responder escreve as respostas JSON e registra falhas no logger do handler.
type responder struct {
	logger *slog.Logger
}

func newResponder(opts []Option) responder {
	r := responder{logger: slog.Default()}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (rs responder) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rs.logger.Error("falha ao escrever resposta", "error", err)
	}
}

// writeError traduz o erro do núcleo em resposta HTTP. Falhas internas não expõem detalhes.
func (rs responder) writeError(w http.ResponseWriter, err error) {
	code := services.ErrorCode(err)
	status := statusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		rs.logger.Error("erro interno ao atender requisição", "error", err)
		msg = "erro interno"
	}
	rs.writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func (rs responder) badRequest(w http.ResponseWriter, msg string) {
	rs.writeJSON(w, http.StatusBadRequest, errorResponse{Code: services.CodeInvalidInput, Error: msg})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
