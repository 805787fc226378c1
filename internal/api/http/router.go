package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentloop-backend/internal/config"
	"rentloop-backend/internal/security"
	"rentloop-backend/internal/service"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth   service.AuthService
	User   service.UserService
	Ledger service.LedgerService
	Item   service.ItemService
	Cart   service.CartService
	Rental service.RentalService
}

type Handler struct {
	svc    Services
	health func(r *http.Request) error
}

// NewRouter wires every API route. health may be nil, in which case the
// health route always reports ok.
func NewRouter(svc Services, tokens security.TokenManager, health func(r *http.Request) error) *mux.Router {
	h := &Handler{svc: svc, health: health}
	auth := NewAuthMiddleware(tokens)

	r := mux.NewRouter()
	r.Use(RecoveryMiddleware, LoggingMiddleware, auth.Handler)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost).Name(config.RouteRegister)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost).Name(config.RouteLogin)
	api.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost).Name(config.RouteRefresh)

	api.HandleFunc("/users/me", h.GetMe).Methods(http.MethodGet).Name(config.RouteGetMe)
	api.HandleFunc("/users/me", h.UpdateMe).Methods(http.MethodPatch).Name(config.RouteUpdateMe)
	api.HandleFunc("/users/me/topup", h.TopUp).Methods(http.MethodPost).Name(config.RouteTopUp)
	api.HandleFunc("/users/me/transactions", h.ListMyTransactions).Methods(http.MethodGet).Name(config.RouteMyTransactions)
	api.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet).Name(config.RouteGetUser)

	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet).Name(config.RouteListCategories)
	api.HandleFunc("/categories/{id}", h.GetCategory).Methods(http.MethodGet).Name(config.RouteGetCategory)
	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet).Name(config.RouteListItems)
	api.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost).Name(config.RouteCreateItem)
	api.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet).Name(config.RouteGetItem)
	api.HandleFunc("/items/{id}", h.UpdateItem).Methods(http.MethodPatch).Name(config.RouteUpdateItem)
	api.HandleFunc("/items/{id}", h.DeleteItem).Methods(http.MethodDelete).Name(config.RouteDeleteItem)

	api.HandleFunc("/cart", h.ListCart).Methods(http.MethodGet).Name(config.RouteListCart)
	api.HandleFunc("/cart", h.AddToCart).Methods(http.MethodPost).Name(config.RouteAddToCart)
	api.HandleFunc("/cart/checkout", h.Checkout).Methods(http.MethodPost).Name(config.RouteCheckoutCart)
	api.HandleFunc("/cart/{id}", h.UpdateCartItem).Methods(http.MethodPatch).Name(config.RouteUpdateCart)
	api.HandleFunc("/cart/{id}", h.RemoveFromCart).Methods(http.MethodDelete).Name(config.RouteRemoveCart)

	api.HandleFunc("/rentals", h.CreateRental).Methods(http.MethodPost).Name(config.RouteCreateRental)
	api.HandleFunc("/rentals", h.ListRentals).Methods(http.MethodGet).Name(config.RouteListRentals)
	api.HandleFunc("/rentals/user/{userId}", h.ListUserRentals).Methods(http.MethodGet).Name(config.RouteUserRentals)
	api.HandleFunc("/rentals/{id}", h.GetRental).Methods(http.MethodGet).Name(config.RouteGetRental)
	api.HandleFunc("/rentals/{id}/approve", h.ApproveRental).Methods(http.MethodPatch).Name(config.RouteApproveRental)
	api.HandleFunc("/rentals/{id}/reject", h.RejectRental).Methods(http.MethodPatch).Name(config.RouteRejectRental)
	api.HandleFunc("/rentals/{id}/complete", h.CompleteRental).Methods(http.MethodPatch).Name(config.RouteCompleteRent)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerID is only called from access-protected routes, where the auth
// middleware has already rejected anonymous requests.
func callerID(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}
