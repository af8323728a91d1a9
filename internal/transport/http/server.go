package http

import (
	"github.com/gin-gonic/gin"

	"docchat/internal/bootstrap"
	"docchat/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)

	documentHandler := handler.NewDocumentHandler(app.Documents)
	chatHandler := handler.NewChatHandler(app.Chat)

	v1 := router.Group("/api/v1")

	docGroup := v1.Group("/documents")
	docGroup.POST("", documentHandler.Upload)
	docGroup.GET("", documentHandler.List)
	docGroup.DELETE("/:id", documentHandler.Delete)
	docGroup.DELETE("", documentHandler.DeleteAll)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("", chatHandler.Send)
	chatGroup.POST("/stream", chatHandler.Stream)
	chatGroup.GET("/sessions/:id/turns", chatHandler.Transcript)
	chatGroup.DELETE("/sessions/:id", chatHandler.ClearSession)
	chatGroup.DELETE("/sessions", chatHandler.ClearAllSessions)

	return router
}
