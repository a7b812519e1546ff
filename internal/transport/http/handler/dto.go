package handler

import (
	"time"

	"github.com/The-Hawkeye/go-ecommerce/internal/domain"
)

type CartItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type CartResponse struct {
	ID     int64              `json:"id"`
	Status string             `json:"status"`
	Items  []CartItemResponse `json:"items"`
}

func cartFromDomain(cart *domain.Cart) CartResponse {
	resp := CartResponse{
		ID:     cart.ID,
		Status: string(cart.Status),
		Items:  make([]CartItemResponse, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return resp
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductSKU  string `json:"product_sku"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int32  `json:"quantity"`
	TotalPrice  int64  `json:"total_price"`
}

type ShippingAddressResponse struct {
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	AddressLabel string `json:"address_label,omitempty"`
	Line1        string `json:"address_line1"`
	Line2        string `json:"address_line2,omitempty"`
	Locality     string `json:"locality,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

type OrderResponse struct {
	ID              int64                    `json:"id"`
	OrderNumber     string                   `json:"order_number"`
	Status          string                   `json:"status"`
	PaymentStatus   string                   `json:"payment_status"`
	PaymentMode     string                   `json:"payment_mode"`
	SubtotalAmount  int64                    `json:"subtotal_amount"`
	TaxAmount       int64                    `json:"tax_amount"`
	ShippingFee     int64                    `json:"shipping_fee"`
	DiscountAmount  int64                    `json:"discount_amount"`
	TotalAmount     int64                    `json:"total_amount"`
	PlacedAt        time.Time                `json:"placed_at"`
	CancelledAt     *time.Time               `json:"cancelled_at,omitempty"`
	Items           []OrderItemResponse      `json:"items"`
	ShippingAddress *ShippingAddressResponse `json:"shipping_address,omitempty"`
}

func orderFromDomain(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PayStatus),
		PaymentMode:    string(order.PaymentMode),
		SubtotalAmount: order.SubtotalAmount,
		TaxAmount:      order.TaxAmount,
		ShippingFee:    order.ShippingFee,
		DiscountAmount: order.DiscountAmount,
		TotalAmount:    order.TotalAmount,
		PlacedAt:       order.PlacedAt,
		CancelledAt:    order.CancelledAt,
		Items:          make([]OrderItemResponse, 0, len(order.Items)),
	}

	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   item.ProductID,
			ProductSKU:  item.ProductSKU,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		})
	}

	if addr := order.ShippingAddress; addr != nil {
		resp.ShippingAddress = &ShippingAddressResponse{
			ContactName:  addr.ContactName,
			Phone:        addr.Phone,
			AddressLabel: addr.AddressLabel,
			Line1:        addr.Line1,
			Line2:        addr.Line2,
			Locality:     addr.Locality,
			City:         addr.City,
			State:        addr.State,
			Pincode:      addr.Pincode,
		}
	}

	return resp
}

type PaymentResponse struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	Mode           string `json:"mode"`
	GatewayOrderID string `json:"gateway_order_id"`
}

func paymentFromDomain(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             payment.ID,
		OrderID:        payment.OrderID,
		Amount:         payment.Amount,
		Status:         string(payment.Status),
		Mode:           string(payment.Mode),
		GatewayOrderID: payment.GatewayOrderID,
	}
}
