package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/microshop/backend/services/common/metrics"
	"github.com/microshop/backend/services/order-service/controllers"
)

func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, hc *controllers.HealthController, reg *metrics.Registry) {
	r.GET("/health", hc.Health)
	r.GET("/ready", hc.Ready)
	r.GET("/metrics", gin.WrapH(reg.Handler()))

	orderRoutes := r.Group("/orders")
	orderRoutes.POST("", oc.CreateOrder)
	orderRoutes.GET("", oc.GetOrders)
	orderRoutes.GET("/:id", oc.GetOrderByID)
}
