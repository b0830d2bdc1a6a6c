package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/microshop/backend/services/common/metrics"
	"github.com/microshop/backend/services/user-service/controllers"
)

func RegisterUserRoutes(r *gin.Engine, uc *controllers.UserController, hc *controllers.HealthController, reg *metrics.Registry) {
	r.GET("/health", hc.Health)
	r.GET("/ready", hc.Ready)
	r.GET("/metrics", gin.WrapH(reg.Handler()))

	userRoutes := r.Group("/users")
	userRoutes.POST("", uc.CreateUser)
	userRoutes.GET("", uc.GetUsers)
	userRoutes.GET("/:id", uc.GetUserByID)
	userRoutes.PUT("/:id", uc.UpdateUser)
	userRoutes.DELETE("/:id", uc.DeleteUser)
}
