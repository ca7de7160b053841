package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes agrupa os handlers montados no roteador.
type Routes struct {
	Assets       *AssetHandler
	Users        *UserHandler
	Offers       *OfferHandler
	Transactions *TransactionHandler
	Metrics      http.Handler // opcional
	Logger       *slog.Logger // log de acesso; slog.Default() se nil
}

// NewRouter monta o roteador HTTP do serviço.
func NewRouter(rt Routes) chi.Router {
	res := newResponder([]Option{WithLogger(rt.Logger)})
	accessLog := slog.NewLogLogger(res.logger.Handler(), slog.LevelInfo)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: accessLog, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		res.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics)
	}

	r.Route("/assets", func(r chi.Router) {
		r.Post("/", rt.Assets.CreateAsset)
		r.Get("/{id}", rt.Assets.GetAssetByID)
		r.Get("/{id}/offers", rt.Assets.GetBook)
		r.Post("/{id}/fractions", rt.Assets.IssueFraction)
		r.Get("/{id}/units", rt.Assets.GetActiveUnits)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", rt.Users.CreateUser)
		r.Get("/{id}", rt.Users.GetUserByID)
		r.Get("/{id}/fractions", rt.Users.GetUserFractions)
		r.Get("/{id}/portfolio", rt.Users.GetPortfolio)
	})

	r.Route("/offers", func(r chi.Router) {
		r.Post("/", rt.Offers.CreateOffer)
		r.Get("/", rt.Offers.ListOffers)
		r.Get("/{id}", rt.Offers.GetOffer)
		r.Delete("/{id}", rt.Offers.CancelOffer)
		r.Post("/{id}/execute", rt.Offers.ExecuteTrade)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", rt.Transactions.ListTransactions)
		r.Get("/{id}", rt.Transactions.GetTransaction)
	})

	return r
}
