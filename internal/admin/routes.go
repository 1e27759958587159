package admin

import (
	"motorent/internal/audit"
	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/dashboard"
	"motorent/internal/models"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(api fiber.Router, cfg *config.Config) {
	authn := auth.JWTMiddleware(cfg)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	users := api.Group("/users", authn)
	users.Put("/profile", UpdateProfileHandler())
	users.Get("/", adminOnly, ListUsersHandler())
	users.Get("/:id", adminOnly, GetUserHandler())
	users.Post("/", adminOnly, CreateUserHandler())
	users.Put("/:id", adminOnly, UpdateUserHandler())
	users.Delete("/:id", adminOnly, DeleteUserHandler())

	dealers := api.Group("/dealers", authn, adminOnly)
	dealers.Get("/", ListDealersHandler())
	dealers.Get("/:id", GetDealerHandler())
	dealers.Post("/", CreateDealerHandler())

	referrers := api.Group("/referrers")
	referrers.Get("/", ListReferrersHandler())
	referrers.Post("/", authn, adminOnly, CreateReferrerHandler())
	referrers.Put("/:id", authn, adminOnly, UpdateReferrerHandler())
	referrers.Delete("/:id", authn, adminOnly, DeleteReferrerHandler())

	back := api.Group("/admin", authn)
	back.Get("/schema/:module", auth.RequireRole(models.RoleAdmin, models.RoleDealer), SchemaHandler())
	back.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler())
	back.Get("/stats", adminOnly, dashboard.StatsHandler(cfg))
}
