package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/microshop/backend/services/order-service/services"
)

type OrderController struct {
	orderService *services.OrderService
}

func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// CreateOrder handles order creation requests.
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req services.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"code":    services.ReasonInvalidRequest,
			"details": err.Error(),
		})
		return
	}

	order, serr := oc.orderService.CreateOrder(ctx.Request.Context(), &req)
	if serr != nil {
		ctx.JSON(serr.StatusCode, gin.H{"error": serr.Message, "code": serr.Reason})
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// GetOrders returns all orders in insertion order.
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	orders, serr := oc.orderService.ListOrders(ctx.Request.Context())
	if serr != nil {
		ctx.JSON(serr.StatusCode, gin.H{"error": serr.Message, "code": serr.Reason})
		return
	}
	ctx.JSON(http.StatusOK, orders)
}

// GetOrderByID returns a single order.
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID format",
			"code":  services.ReasonInvalidRequest,
		})
		return
	}

	order, serr := oc.orderService.GetOrder(ctx.Request.Context(), orderID)
	if serr != nil {
		ctx.JSON(serr.StatusCode, gin.H{"error": serr.Message, "code": serr.Reason})
		return
	}

	ctx.JSON(http.StatusOK, order)
}
