package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/ordering"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	ProductID   uuid.UUID       `json:"producto_id"`
	ProductName string          `json:"producto_nombre"`
	ProductType string          `json:"producto_tipo"`
	Quantity    int             `json:"cantidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
}

type placeOrderRequest struct {
	CustomerName    string             `json:"cliente_nombre"`
	CustomerEmail   string             `json:"cliente_email"`
	CustomerPhone   string             `json:"cliente_telefono"`
	DeliveryAddress string             `json:"direccion_entrega"`
	City            string             `json:"ciudad"`
	PostalCode      string             `json:"codigo_postal"`
	Notes           string             `json:"notas"`
	PaymentMethod   string             `json:"metodo_pago"`
	Items           []orderItemRequest `json:"items"`
	ShippingCost    decimal.Decimal    `json:"costo_envio"`
}

// itemTypes accepts both the storefront's Spanish tags and the canonical ones.
var itemTypes = map[string]domain.ItemType{
	"":         domain.ItemTypeProduct,
	"producto": domain.ItemTypeProduct,
	"curso":    domain.ItemTypeCourse,
	"product":  domain.ItemTypeProduct,
	"course":   domain.ItemTypeCourse,
}

func (r placeOrderRequest) toNewOrder() (ordering.NewOrder, error) {
	lines := make([]ordering.NewLine, 0, len(r.Items))

	for i, it := range r.Items {
		itemType, ok := itemTypes[it.ProductType]
		if !ok {
			return ordering.NewOrder{}, domain.Validationf("items[%d]: unknown type %q", i, it.ProductType)
		}

		lines = append(lines, ordering.NewLine{
			ItemID:    it.ProductID,
			ItemType:  itemType,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return ordering.NewOrder{
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		DeliveryAddress: r.DeliveryAddress,
		City:            r.City,
		PostalCode:      r.PostalCode,
		Notes:           r.Notes,
		PaymentMethod:   r.PaymentMethod,
		Lines:           lines,
		ShippingCost:    r.ShippingCost,
	}, nil
}

func (h *handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, domain.Validationf("malformed order: %s", err))
		return
	}

	newOrder, err := req.toNewOrder()
	if err != nil {
		h.fail(c, err)
		return
	}

	order, err := h.svc.Orders.PlaceOrder(c.Request.Context(), newOrder)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created",
		"data": gin.H{
			"orden_id":     order.ID,
			"numero_orden": order.Number,
			"total":        order.Total,
		},
	})
}

type orderLineResponse struct {
	ProductID   uuid.UUID       `json:"producto_id"`
	ProductName string          `json:"producto_nombre"`
	ProductType domain.ItemType `json:"producto_tipo"`
	Quantity    int             `json:"cantidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Number          string              `json:"numero_orden"`
	CustomerName    string              `json:"cliente_nombre"`
	CustomerEmail   string              `json:"cliente_email"`
	CustomerPhone   string              `json:"cliente_telefono"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ShippingCost    decimal.Decimal     `json:"costo_envio"`
	Total           decimal.Decimal     `json:"total"`
	Currency        string              `json:"moneda"`
	Status          domain.OrderStatus  `json:"estado"`
	PaymentMethod   string              `json:"metodo_pago"`
	DeliveryAddress string              `json:"direccion_entrega"`
	City            string              `json:"ciudad"`
	PostalCode      string              `json:"codigo_postal"`
	Notes           string              `json:"notas"`
	CreatedAt       time.Time           `json:"fecha_creacion"`
	PaidAt          *time.Time          `json:"fecha_pago,omitempty"`
	Items           []orderLineResponse `json:"orden_items"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		Number:          o.Number,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Total:           o.Total,
		Currency:        o.Currency.String(),
		Status:          o.Status,
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		City:            o.City,
		PostalCode:      o.PostalCode,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		Items: lo.Map(o.Lines, func(l domain.OrderLine, _ int) orderLineResponse {
			return orderLineResponse{
				ProductID:   l.ItemID,
				ProductName: l.Name,
				ProductType: l.ItemType,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Subtotal:    l.Subtotal,
			}
		}),
	}
}

func (h *handler) getOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, domain.ErrOrderNotFound)
		return
	}

	order, err := h.svc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toOrderResponse(order),
	})
}
