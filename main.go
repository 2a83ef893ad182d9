package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/symplle/chat_backend/controllers"
	"github.com/symplle/chat_backend/database"
	"github.com/symplle/chat_backend/middleware"
	"github.com/symplle/chat_backend/websocket"
)

// @title           Symplle Chat API
// @version         1.0
// @description     API Server for the Symplle chat messaging core
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize database
	database.Connect()
	database.Migrate()

	// Set up router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes
	api := router.Group("/api")
	api.Use(middleware.JWTAuth())
	{
		// Room routes
		api.GET("/rooms", controllers.GetRooms)
		api.POST("/rooms", controllers.CreateRoom)
		api.GET("/rooms/:id", controllers.GetRoom)
		api.PUT("/rooms/:id", controllers.UpdateRoom)
		api.DELETE("/rooms/:id", controllers.DeleteRoom)
		api.POST("/rooms/:id/archive", controllers.ArchiveRoom)
		api.GET("/rooms/:id/unread", controllers.GetUnreadCount)
		api.POST("/rooms/:id/read", controllers.UpdateLastRead)
		api.PUT("/rooms/:id/notifications", controllers.SetNotifications)

		// Membership routes
		api.GET("/rooms/:id/members", controllers.GetMembers)
		api.POST("/rooms/:id/members", controllers.JoinRoom)
		api.POST("/rooms/:id/leave", controllers.LeaveRoom)
		api.PUT("/rooms/:id/members/:userId/role", controllers.SetRole)
		api.PUT("/rooms/:id/members/:userId/mute", controllers.SetMuted)

		// Message routes
		api.GET("/messages", controllers.GetMessages)
		api.POST("/messages", controllers.CreateMessage)
		api.GET("/messages/:id", controllers.GetMessage)
		api.PUT("/messages/:id", controllers.EditMessage)
		api.DELETE("/messages/:id", controllers.DeleteMessage)
		api.PUT("/messages/:id/pin", controllers.PinMessage)

		// Delivery routes
		api.POST("/messages/:id/delivered", controllers.MarkDelivered)
		api.POST("/messages/:id/read", controllers.MarkRead)
		api.GET("/messages/:id/receipts", controllers.GetReceipts)

		// Reaction routes
		api.GET("/messages/:id/reactions", controllers.GetReactions)
		api.POST("/messages/:id/reactions", controllers.AddReaction)
		api.DELETE("/messages/:id/reactions/:emoji", controllers.RemoveReaction)
	}

	// WebSocket route
	router.GET("/ws", websocket.HandleConnection)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server running on port %s", port)
	log.Printf("Swagger documentation available at http://localhost:%s/swagger/index.html", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
