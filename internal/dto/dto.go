package dto

type CartItemRequest struct {
	ProductCode     string `json:"product_code" form:"product_code"`
	ProductQuantity int    `json:"product_quantity" form:"product_quantity"`
	Next            string `json:"next" form:"next"`
}

type OrderRequest struct {
	FirstName  string `json:"first_name" form:"first_name"`
	LastName   string `json:"last_name" form:"last_name"`
	Email      string `json:"email" form:"email"`
	Phone      string `json:"phone" form:"phone"`
	Address    string `json:"address" form:"address"`
	City       string `json:"city" form:"city"`
	PostalCode string `json:"postal_code" form:"postal_code"`
}

type ProductView struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Detail    string `json:"detail,omitempty"`
	Price     string `json:"price"`
	Shipping  bool   `json:"shipping"`
	Available bool   `json:"available"`
}

type ProductListView struct {
	Category string        `json:"category,omitempty"`
	Products []ProductView `json:"products"`
	Messages []string      `json:"messages,omitempty"`
}

type CartItemView struct {
	ProductCode  string `json:"product_code"`
	ProductTitle string `json:"product_title"`
	UnitPrice    string `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	LineTotal    string `json:"line_total"`
}

type CartView struct {
	Items         []CartItemView `json:"items"`
	TotalQuantity int            `json:"total_quantity"`
	ShippingPrice string         `json:"shipping_price"`
	TotalPrice    string         `json:"total_price"`
	Messages      []string       `json:"messages,omitempty"`
}

type OrderView struct {
	OrderID    uint   `json:"order_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Status     string `json:"status"`
	Paid       bool   `json:"paid"`
	Shipping   string `json:"shipping"`
	Tax        string `json:"tax"`
	TotalPrice string `json:"total_price"`
	TotalItems int    `json:"total_items"`
}

type PaymentPageView struct {
	Order           OrderView `json:"order"`
	StripePublicKey string    `json:"stripe_public_key"`
}

type CreateSessionRequest struct {
	OrderID     uint   `json:"orderid" form:"orderid"`
	OrderAmount string `json:"order_amount" form:"order_amount"`
}

type CreateSessionResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}
