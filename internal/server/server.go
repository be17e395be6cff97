package server

import (
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ywfa-shop/internal/handler"
)

type Server struct {
	echo          *echo.Echo
	shopHandler   *handler.ShopHandler
	cartHandler   *handler.CartHandler
	stripeHandler *handler.StripeHandler
}

func NewServer(
	sessionSecret string,
	shopHandler *handler.ShopHandler,
	cartHandler *handler.CartHandler,
	stripeHandler *handler.StripeHandler,
) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(sessionSecret))))

	s := &Server{
		echo:          e,
		shopHandler:   shopHandler,
		cartHandler:   cartHandler,
		stripeHandler: stripeHandler,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- catalog / cart --------
	shop := s.echo.Group("/shop")
	shop.GET("/products", s.shopHandler.ListProducts)
	shop.GET("/products/:slug", s.shopHandler.GetProduct)
	shop.GET("/cart", s.cartHandler.GetCart)
	shop.POST("/cart/add", s.cartHandler.AddItem)
	shop.POST("/cart/remove", s.cartHandler.RemoveItem)
	shop.POST("/cart/clear", s.cartHandler.ClearCart)
	shop.POST("/cart/order", s.cartHandler.CreateOrder)

	// -------- checkout --------
	shop.GET("/order", s.cartHandler.OrderForm)
	shop.POST("/order", s.cartHandler.SubmitOrder)
	shop.GET("/orders/:orderid", s.shopHandler.OrderDetail)
	shop.GET("/payment/:orderid", s.stripeHandler.PaymentPage)

	// -------- stripe webhooks / callbacks --------
	shop.POST("/stripe-create-session", s.stripeHandler.CreateSession)
	shop.GET("/stripe-success/:order_id/:session_id", s.stripeHandler.Success)
	shop.GET("/stripe-cancelled/:order_id/:session_id", s.stripeHandler.Cancelled)
	shop.POST("/stripe-notify", s.stripeHandler.Webhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
