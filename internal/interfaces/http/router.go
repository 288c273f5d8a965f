package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/scanner-bridge/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Status    StatusProvider
	Scans     ScanSubmitter
	Broker    BrokerStatus // opcional
	JWTSecret string
	JWTIssuer string
	Log       zerolog.Logger
}

// Router registra las rutas de la API de control.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	bridgeHandler := NewBridgeHandler(deps.Status, deps.Scans, deps.Broker, deps.Log)
	protected.Get("/status",
		RequireRole(jwt.RoleAdmin, jwt.RoleOperator, jwt.RoleViewer),
		bridgeHandler.Status,
	)
	protected.Post("/scans",
		RequireRole(jwt.RoleAdmin, jwt.RoleOperator),
		bridgeHandler.SubmitScan,
	)
}
