package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealmesh/mealmesh-backend/api/controllers"
	"github.com/mealmesh/mealmesh-backend/api/middleware"
	"github.com/mealmesh/mealmesh-backend/internal/cart"
	"github.com/mealmesh/mealmesh-backend/internal/disputes"
	"github.com/mealmesh/mealmesh-backend/internal/menu"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/payments"
	"github.com/mealmesh/mealmesh-backend/internal/payouts"
	"github.com/mealmesh/mealmesh-backend/internal/promotions"
	"github.com/mealmesh/mealmesh-backend/internal/reviews"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/internal/users"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
	"github.com/mealmesh/mealmesh-backend/pkg/metrics"
	"github.com/mealmesh/mealmesh-backend/pkg/redis"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Users      users.Service
	Stores     stores.Service
	Menu       menu.Service
	Cart       cart.Service
	Orders     orders.Service
	Payments   payments.Service
	Payouts    payouts.Service
	Promotions promotions.Service
	Reviews    reviews.Service
	Disputes   disputes.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.CORS(),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	authLimiter := middleware.RateLimit("auth", cfg.RateLimit.Auth(), redisClient, logg)
	apiLimiter := middleware.RateLimit("api", cfg.RateLimit, redisClient, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/register", controllers.AuthRegister(svcs.Users, logg))
			r.With(authLimiter).Post("/login", controllers.AuthLogin(svcs.Users, logg))
		})

		// Browsing and promo preview work without an account.
		r.Group(func(r chi.Router) {
			r.Use(apiLimiter)

			r.Get("/stores", controllers.StoreListPublic(svcs.Stores, logg))
			r.Get("/stores/{storeID}", controllers.StoreGet(svcs.Stores, logg))
			r.Get("/stores/{storeID}/menu", controllers.MenuList(svcs.Menu, logg))
			r.Get("/stores/{storeID}/reviews", controllers.ReviewListForStore(svcs.Reviews, logg))
			r.Get("/menu-items/{itemID}", controllers.MenuItemGet(svcs.Menu, logg))
			r.Get("/promotions/active", controllers.PromotionListActive(svcs.Promotions, logg))
			r.Post("/promotions/validate", controllers.PromotionValidate(svcs.Promotions, logg))

			r.Route("/guest-cart", func(r chi.Router) {
				r.Post("/items", controllers.GuestCartAddItem(svcs.Cart, logg))
				r.Get("/{token}", controllers.GuestCartGet(svcs.Cart, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(apiLimiter)

			r.Get("/profile", controllers.Profile(svcs.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", controllers.CartGet(svcs.Cart, logg))
					r.Delete("/", controllers.CartClear(svcs.Cart, logg))
					r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
					r.Patch("/items/{itemID}", controllers.CartUpdateItem(svcs.Cart, logg))
					r.Delete("/items/{itemID}", controllers.CartRemoveItem(svcs.Cart, logg))
					r.Put("/address", controllers.CartSetAddress(svcs.Cart, logg))
					r.Post("/promo", controllers.CartApplyPromo(svcs.Cart, logg))
					r.Delete("/promo", controllers.CartRemovePromo(svcs.Cart, logg))
					r.Post("/merge", controllers.GuestCartMerge(svcs.Cart, logg))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
					r.Post("/from-cart", controllers.OrderCreateFromCart(svcs.Orders, logg))
					r.Get("/", controllers.OrderListMine(svcs.Orders, logg))
					r.Post("/{orderID}/cancel", controllers.OrderCancel(svcs.Orders, logg))
				})

				r.Route("/payments", func(r chi.Router) {
					r.Post("/", controllers.PaymentCreate(svcs.Payments, logg))
					r.Get("/", controllers.PaymentListMine(svcs.Payments, logg))
				})

				r.Post("/reviews", controllers.ReviewCreate(svcs.Reviews, logg))
				r.Get("/reviews", controllers.ReviewListMine(svcs.Reviews, logg))

				r.Route("/disputes", func(r chi.Router) {
					r.Post("/", controllers.DisputeCreate(svcs.Disputes, logg))
					r.Get("/", controllers.DisputeListMine(svcs.Disputes, logg))
					r.Post("/{disputeID}/comments", controllers.DisputeComment(svcs.Disputes, logg))
				})
			})

			// Order detail is shared; the service scopes it to the caller.
			r.Get("/orders/{orderID}", controllers.OrderGet(svcs.Orders, logg))
			r.Get("/disputes/{disputeID}", controllers.DisputeGet(svcs.Disputes, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleStoreOwner))

				r.Route("/vendor/stores", func(r chi.Router) {
					r.Post("/", controllers.StoreCreate(svcs.Stores, logg))
					r.Get("/", controllers.StoreListMine(svcs.Stores, logg))
					r.Patch("/{storeID}", controllers.StoreUpdate(svcs.Stores, logg))
					r.Put("/{storeID}/availability", controllers.StoreSetAvailability(svcs.Stores, logg))

					r.Post("/{storeID}/menu", controllers.MenuItemCreate(svcs.Menu, logg))
					r.Patch("/{storeID}/menu/{itemID}", controllers.MenuItemUpdate(svcs.Menu, logg))
					r.Delete("/{storeID}/menu/{itemID}", controllers.MenuItemDelete(svcs.Menu, logg))

					r.Get("/{storeID}/orders", controllers.OrderListForStore(svcs.Orders, logg))
					r.Get("/{storeID}/disputes", controllers.DisputeListForStore(svcs.Disputes, logg))
					r.Get("/{storeID}/payments", controllers.PaymentListForStore(svcs.Payments, logg))
					r.Get("/{storeID}/payouts", controllers.PayoutListForStore(svcs.Payouts, logg))
					r.Post("/{storeID}/payouts/request", controllers.PayoutRequestEarly(svcs.Payouts, logg))
				})

				r.Post("/vendor/reviews/{reviewID}/response", controllers.ReviewRespond(svcs.Reviews, logg))
			})

			// Store owners move orders they fulfil; couriers mark delivery legs.
			r.With(middleware.RequireRole(logg, enums.UserRoleStoreOwner, enums.UserRoleDelivery, enums.UserRoleAdmin)).
				Patch("/orders/{orderID}/status", controllers.OrderTransition(svcs.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

				r.Route("/admin", func(r chi.Router) {
					r.Post("/stores/{storeID}/verify", controllers.StoreVerify(svcs.Stores, logg))
					r.Put("/stores/{storeID}/commission", controllers.StoreSetCommission(svcs.Stores, logg))

					r.Get("/orders", controllers.OrderListAll(svcs.Orders, logg))
					r.Post("/orders/{orderID}/cancel", controllers.OrderAdminCancel(svcs.Orders, logg))

					r.Get("/payments", controllers.PaymentListAll(svcs.Payments, logg))
					r.Get("/payments/{paymentID}", controllers.PaymentGet(svcs.Payments, logg))
					r.Post("/payments/{paymentID}/complete", controllers.PaymentComplete(svcs.Payments, logg))
					r.Post("/payments/{paymentID}/fail", controllers.PaymentFail(svcs.Payments, logg))
					r.Post("/payments/{paymentID}/refund", controllers.PaymentRefund(svcs.Payments, logg))

					r.Get("/payouts", controllers.PayoutListAll(svcs.Payouts, logg))
					r.Get("/payouts/{payoutID}", controllers.PayoutGet(svcs.Payouts, logg))
					r.Post("/stores/{storeID}/payouts", controllers.PayoutGenerate(svcs.Payouts, logg))
					r.Post("/payouts/{payoutID}/approve", controllers.PayoutApprove(svcs.Payouts, logg))
					r.Post("/payouts/{payoutID}/complete", controllers.PayoutComplete(svcs.Payouts, logg))
					r.Post("/payouts/{payoutID}/fail", controllers.PayoutFail(svcs.Payouts, logg))

					r.Get("/promotions", controllers.PromotionListAll(svcs.Promotions, logg))
					r.Post("/promotions", controllers.PromotionCreate(svcs.Promotions, logg))
					r.Patch("/promotions/{promotionID}", controllers.PromotionUpdate(svcs.Promotions, logg))
					r.Put("/promotions/{promotionID}/active", controllers.PromotionSetActive(svcs.Promotions, logg))
					r.Delete("/promotions/{promotionID}", controllers.PromotionDelete(svcs.Promotions, logg))
					r.Get("/promotions/{promotionID}/stats", controllers.PromotionStats(svcs.Promotions, logg))

					r.Post("/reviews/{reviewID}/moderate", controllers.ReviewModerate(svcs.Reviews, logg))

					r.Get("/disputes", controllers.DisputeListAll(svcs.Disputes, logg))
					r.Patch("/disputes/{disputeID}/status", controllers.DisputeUpdateStatus(svcs.Disputes, logg))
					r.Post("/disputes/{disputeID}/resolve", controllers.DisputeResolve(svcs.Disputes, logg))
				})
			})
		})
	})

	return r
}
