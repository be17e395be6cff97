package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"ywfa-shop/internal/cart"
	"ywfa-shop/internal/client"
	"ywfa-shop/internal/config"
	"ywfa-shop/internal/handler"
	"ywfa-shop/internal/repository"
	"ywfa-shop/internal/server"
	"ywfa-shop/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitSqliteClient(cfg.DatabaseURL)
	stripeClient := client.NewStripeClient(&cfg.Stripe)

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentEventRepo := repository.NewPaymentEventRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	if err := productRepo.Seed(context.Background()); err != nil {
		log.Fatal("seed products:", err)
	}

	cartStore := cart.NewStore(cart.Policy{
		ShippingCharge:     cfg.Shop.ShippingCharge,
		BulkShippingCharge: cfg.Shop.BulkShippingCharge,
		BulkQuantity:       cfg.Shop.BulkQuantity,
		TaxRate:            cfg.Shop.TaxRate,
	})

	orderService := service.NewOrderService(orderRepo, cfg.Shop.AcceptTimeout)
	checkoutService := service.NewCheckoutService(db, orderRepo, productRepo)
	stripeService := service.NewStripeService(
		stripeClient, cfg.BaseURL, cfg.Stripe.Currency,
		orderService,
		orderRepo,
		paymentEventRepo,
		webhookEventRepo,
	)

	shopHandler := handler.NewShopHandler(productRepo, orderService, orderRepo)
	cartHandler := handler.NewCartHandler(cartStore, productRepo, checkoutService)
	stripeHandler := handler.NewStripeHandler(stripeService, orderService, orderRepo, cfg.Stripe.PublicKey)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(cfg.Session.Secret, shopHandler, cartHandler, stripeHandler)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
