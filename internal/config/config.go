package config

import (
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"ywfa-shop.db"`

	Session Session `envPrefix:"SESSION_"`
	Stripe  Stripe  `envPrefix:"STRIPE_"`
	Shop    Shop    `envPrefix:"SHOP_"`
}

type Stripe struct {
	BaseApiURL     string `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	PublicKey      string `env:"PUBLIC_KEY"`
	SecretKey      string `env:"SECRET_KEY"`
	EndpointSecret string `env:"ENDPOINT_SECRET"`
	Currency       string `env:"CURRENCY" envDefault:"aud"`
}

// Shop is the site-level pricing policy: a flat shipping charge below the
// bulk quantity threshold, the bulk charge at or above it, and the
// tax-inclusive rate used to back-calculate the tax component of an order.
type Shop struct {
	ShippingCharge     decimal.Decimal `env:"SHIPPING_CHARGE" envDefault:"15.00"`
	BulkShippingCharge decimal.Decimal `env:"BULK_SHIPPING_CHARGE" envDefault:"10.00"`
	BulkQuantity       int             `env:"BULK_QUANTITY" envDefault:"100"`
	// Percentage figure for the tax-inclusive back calculation: with GST
	// at 10, the tax component of a total is total/(10+1).
	TaxRate decimal.Decimal `env:"TAX_RATE" envDefault:"10.00"`

	// How long an order may sit in PAYMENT_ACCEPTED before a status read
	// demotes it back to READY.
	AcceptTimeout time.Duration `env:"ACCEPT_TIMEOUT" envDefault:"5m"`
}

type Session struct {
	Secret string `env:"SECRET" envDefault:"insecure-dev-secret"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
