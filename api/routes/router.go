package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edures/resourcedesk-backend/api/controllers"
	"github.com/edures/resourcedesk-backend/api/middleware"
	"github.com/edures/resourcedesk-backend/internal/cart"
	"github.com/edures/resourcedesk-backend/internal/comments"
	"github.com/edures/resourcedesk-backend/internal/inventory"
	"github.com/edures/resourcedesk-backend/internal/notifications"
	"github.com/edures/resourcedesk-backend/internal/reports"
	"github.com/edures/resourcedesk-backend/internal/requests"
	"github.com/edures/resourcedesk-backend/internal/users"
	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/db"
	"github.com/edures/resourcedesk-backend/pkg/enums"
	"github.com/edures/resourcedesk-backend/pkg/logger"
	"github.com/edures/resourcedesk-backend/pkg/redis"
)

// Dependencies carries everything the router needs to mount the API.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *db.Client
	Redis         *redis.Client
	Users         users.Service
	Inventory     inventory.Service
	Cart          cart.Service
	Requests      requests.Service
	Comments      comments.Service
	Notifications notifications.Service
	Reports       reports.Service
}

// New assembles the HTTP API.
func New(deps Dependencies) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.CORS())
	r.Use(middleware.Logging(logg))

	r.Get("/health/live", controllers.Live())
	r.Get("/health/ready", controllers.Ready(deps.DB, deps.Redis, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(middleware.DefaultLoginPolicy(), deps.Redis, logg)).
			Post("/auth/login", controllers.Login(deps.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, logg))

			r.Post("/auth/change-password", controllers.ChangePassword(deps.Users, logg))

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", controllers.ListItems(deps.Inventory, logg))
				r.Get("/{itemID}", controllers.GetItem(deps.Inventory, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireElevated(logg))
					r.Post("/", controllers.CreateItem(deps.Inventory, logg))
					r.Post("/bulk", controllers.BulkImportItems(deps.Inventory, logg))
					r.Patch("/{itemID}", controllers.UpdateItem(deps.Inventory, logg))
					r.Delete("/{itemID}", controllers.DeleteItem(deps.Inventory, logg))
					r.Post("/{itemID}/restock", controllers.RestockItem(deps.Inventory, logg))
				})
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.Cart, logg))
				r.Delete("/", controllers.ClearCart(deps.Cart, logg))
				r.Post("/items", controllers.AddCartItem(deps.Cart, logg))
				r.Put("/items/{itemID}", controllers.SetCartItemQuantity(deps.Cart, logg))
				r.Delete("/items/{itemID}", controllers.RemoveCartItem(deps.Cart, logg))
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", controllers.SubmitRequest(deps.Requests, logg))
				r.Get("/", controllers.ListRequests(deps.Requests, logg))
				r.Get("/{requestID}", controllers.GetRequest(deps.Requests, logg))
				r.Patch("/{requestID}/lines/{lineID}", controllers.EditRequestLine(deps.Requests, logg))

				r.With(middleware.RequireElevated(logg)).
					Post("/{requestID}/action", controllers.ApplyRequestAction(deps.Requests, logg))

				r.Get("/{requestID}/comments", controllers.ListComments(deps.Comments, logg))
				r.Post("/{requestID}/comments", controllers.AddComment(deps.Comments, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})

			r.With(middleware.RequireElevated(logg)).
				Get("/reports/overview", controllers.ReportsOverview(deps.Reports, logg))

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleSuperAdmin, logg))
				r.Post("/", controllers.CreateUser(deps.Users, logg))
				r.Get("/", controllers.ListUsers(deps.Users, logg))
				r.Patch("/{userID}/active", controllers.SetUserActive(deps.Users, logg))
			})
		})
	})

	return r
}
