package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/heliokart/heliokart/internal/domain/order"
)

type orderItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentStatus   string              `json:"paymentStatus"`
	PaymentID       *string             `json:"paymentId,omitempty"`
	ShippingAddress order.Address       `json:"shippingAddress"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Discount        decimal.Decimal     `json:"discount"`
	Shipping        decimal.Decimal     `json:"shipping"`
	Tax             decimal.Decimal     `json:"tax"`
	Total           decimal.Decimal     `json:"total"`
	TrackingNumber  *string             `json:"trackingNumber,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Image:     it.Image,
		}
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentID:       o.PaymentID,
		ShippingAddress: o.ShippingAddress,
		Subtotal:        o.Subtotal,
		Discount:        o.Discount,
		Shipping:        o.Shipping,
		Tax:             o.Tax,
		Total:           o.Total,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
}

type createOrderRequest struct {
	ShippingAddress *order.Address `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	Notes           string         `json:"notes"`
}

// CreateOrder finalizes the user's cart into an order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := h.orders.Create(r.Context(), userID(r.Context()), order.CreateRequest{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		Notes:           req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, envelope{"order": toOrderResponse(o)})
}

// GetOrder returns an order visible to the requesting user.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, err := h.orders.Get(ctx, chi.URLParam(r, "id"), userID(ctx), isAdmin(ctx))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"order": toOrderResponse(o)})
}

type updateStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber"`
}

// UpdateOrderStatus applies an admin lifecycle transition.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		respondError(w, r, http.StatusBadRequest, "status is required")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), order.Status(req.Status), req.TrackingNumber)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, envelope{"order": toOrderResponse(o)})
}
