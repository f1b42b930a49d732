package app

import (
	"net/http"

	"github.com/axonake/RANGERSTORE/internal/handler/admin"
	"github.com/axonake/RANGERSTORE/internal/handler/balance"
	"github.com/axonake/RANGERSTORE/internal/handler/middleware"
	"github.com/axonake/RANGERSTORE/internal/handler/order"
	"github.com/axonake/RANGERSTORE/internal/handler/product"
	"github.com/axonake/RANGERSTORE/internal/handler/stream"
	"github.com/axonake/RANGERSTORE/internal/handler/user"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const compressLevel = 5

func (app *App) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	userHandler := userhandler.New(app.users)
	productHandler := producthandler.New(app.catalog)
	orderHandler := orderhandler.New(app.orders)
	balanceHandler := balancehandler.New(app.balances)
	adminHandler := adminhandler.New(app.orders)
	streamHandler := streamhandler.New(app.orders, app.Queue)

	r.Handle(producthandler.ImagesPrefix+"*",
		http.StripPrefix(producthandler.ImagesPrefix, http.FileServer(http.Dir(app.Config.UploadDir))))

	r.Route("/api/products", func(r chi.Router) {
		r.Use(chimiddleware.Compress(compressLevel, "application/json"))

		r.Get("/", productHandler.List)
		r.Get("/latest", productHandler.Latest)
		r.Get("/{id}", productHandler.Get)
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(middleware.WithAuth(app.Config))

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(compressLevel, "application/json"))

			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)

			r.Get("/balance", balanceHandler.Balance)
			r.Post("/topup", balanceHandler.TopUp)
			r.Get("/topups", balanceHandler.TopUps)

			r.Post("/products/{id}/buy", orderHandler.Buy)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{number}/file", orderHandler.File)
			r.Post("/orders/{number}/link", orderHandler.SubmitLink)
		})

		r.Get("/orders/{number}/stream", streamHandler.Link)
		r.Get("/orders/{number}/phase2", streamHandler.Phase2)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.WithAuth(app.Config))
		r.Use(middleware.WithAdmin)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(compressLevel, "application/json"))

			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/orders", adminHandler.Orders)
			r.Get("/orders/export", adminHandler.Export)
			r.Get("/orders/{number}", adminHandler.Order)
			r.Post("/orders/{number}/status", adminHandler.SetStatus)

			r.Post("/products", productHandler.Create)
			r.Put("/products/{id}", productHandler.Update)
			r.Delete("/products/{id}", productHandler.Delete)
			r.Get("/products/{id}/stock", productHandler.Stock)
			r.Delete("/stock/{id}", productHandler.DeleteStock)
		})

		r.Get("/orders/{number}/stream", streamHandler.Link)
		r.Get("/orders/{number}/phase2", streamHandler.Phase2)
	})

	return r
}
