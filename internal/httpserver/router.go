package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzaria-checkout/internal/checkout"
	"pizzaria-checkout/internal/geo"
)

// MenuProvider serves the catalog the storefront renders.
type MenuProvider interface {
	FetchMenu(ctx context.Context) (json.RawMessage, error)
}

// OrderStatusProvider serves the delivery status of a placed order.
type OrderStatusProvider interface {
	FetchOrderStatus(ctx context.Context, orderID string) (json.RawMessage, error)
}

// CEPProvider resolves postal codes for the address form.
type CEPProvider interface {
	Lookup(ctx context.Context, cep string) (*geo.Address, error)
}

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Sessions *checkout.Manager
	Menu     MenuProvider
	Status   OrderStatusProvider
	CEP      CEPProvider
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil {
		return nil, errors.New("httpserver: session manager is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &checkoutHandler{deps: deps, logger: logger}

	api := router.Group("/api")
	{
		api.POST("/checkout", h.create)
		api.GET("/checkout/:id", h.get)
		api.PATCH("/checkout/:id", h.patch)
		api.POST("/checkout/:id/advance", h.advance)
		api.POST("/checkout/:id/back", h.back)
		api.POST("/checkout/:id/goto", h.goTo)
		api.POST("/checkout/:id/payment", h.payment)
		api.POST("/checkout/:id/submit", h.submit)
		api.GET("/checkout/:id/summary", h.summary)

		api.GET("/menu", h.menu)
		api.GET("/orders/:id/status", h.orderStatus)
		api.GET("/cep/:cep", h.cep)
	}

	return router, nil
}
