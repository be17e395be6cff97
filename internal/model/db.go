package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var rxProductCode = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64;index;not null"`
	Slug string `gorm:"size:64;uniqueIndex;not null"`
}

type Product struct {
	ID         uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"index;not null"`
	// Canonical uppercase identifier, letters/digits/dashes only.
	Code      string          `gorm:"size:16;uniqueIndex;not null"`
	Title     string          `gorm:"size:256;not null"`
	Slug      string          `gorm:"size:128;uniqueIndex;not null"`
	Detail    string          `gorm:"type:text"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Available bool            `gorm:"not null;default:true"`
	// Whether this product incurs a shipping charge. Digital or
	// donation-style products set this false.
	Shipping  bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeSave canonicalizes the product code and derives the URL slug
// from the title.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.Code = strings.ToUpper(p.Code)
	if !rxProductCode.MatchString(p.Code) {
		return ErrInvalidProductCode
	}
	p.Slug = Slugify(p.Title)
	return nil
}

type Order struct {
	ID         uint   `gorm:"primaryKey"`
	FirstName  string `gorm:"size:60;not null"`
	LastName   string `gorm:"size:60;not null"`
	Email      string `gorm:"size:254;not null"`
	Phone      string `gorm:"size:40"`
	Address    string `gorm:"type:text;not null"`
	City       string `gorm:"size:100;not null"`
	PostalCode string `gorm:"size:20;not null"`

	OrderStatus OrderStatus `gorm:"index;not null;default:0"`
	PaidStatus  bool        `gorm:"not null;default:false"`

	// TotalPrice includes both of the following components.
	Shipping   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Tax        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	// One checkout submission per token; retried submissions resolve to
	// the order already holding their token.
	CheckoutToken string `gorm:"size:36;uniqueIndex;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (o *Order) Name() string {
	return o.FirstName + " " + o.LastName
}

func (o *Order) CanAcceptPayment() bool {
	return o.OrderStatus == StatusNew || o.OrderStatus == StatusReady
}

func (o *Order) PaidOrCancelled() bool {
	switch o.OrderStatus {
	case StatusPaymentProcessing, StatusPaymentComplete, StatusCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	// Unit price frozen when the line entered the cart.
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity int             `gorm:"not null;default:1"`

	Product Product `gorm:"foreignKey:ProductID"`
}

func (i *OrderItem) PriceTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentEvent is an append-only log of payment provider milestones for an
// order. Rows are never updated or deleted.
type PaymentEvent struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uint            `gorm:"index;not null"`
	SessionID   string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Milestone   Milestone       `gorm:"not null"`
	SessionData string          `gorm:"type:text"`
	CreatedAt   time.Time
}

// WebhookEvent records provider webhook deliveries already processed, so a
// retried delivery of the same event id is a no-op.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// Slugify lowercases s and collapses runs of non-alphanumerics to single
// dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
