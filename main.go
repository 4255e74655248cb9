package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/controllers"
	"github.com/cadiz-tecnico/avisos-api/middleware"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
)

func main() {
	log.Println("Starting avisos API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(&models.User{}, &models.Aviso{}, &models.Photo{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	if err := seedBootstrapAdmin(); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	services.InitTelegramService(cfg)
	if _, err := services.InitPhotoStorage(cfg); err != nil {
		log.Fatalf("Failed to initialize photo storage: %v", err)
	}

	scheduler, err := services.StartScheduler(cfg)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := setupRouter(cfg)

	addr := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// seedBootstrapAdmin creates the initial admin account when the user table is
// empty, so a fresh install is usable without touching the database by hand.
func seedBootstrapAdmin() error {
	db := config.GetDB()
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{
		Username:     models.BootstrapAdminUsername,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Println("Created bootstrap admin account (username: admin). Change its password.")
	return nil
}

func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	router.GET("/api/v1/health", healthCheck)

	// Unauthenticated surface: the customer intake form and the Telegram
	// webhook (guarded by its own secret header).
	public := router.Group("/api/public")
	{
		public.POST("/avisos", controllers.CreatePublicAviso)
	}
	router.POST("/api/telegram/webhook", controllers.TelegramWebhook)

	router.POST("/api/v1/auth/login", controllers.Login)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireAuth(cfg))
	{
		v1.GET("/auth/me", controllers.Me)

		v1.GET("/dashboard", controllers.GetDashboard)
		v1.GET("/hoy", controllers.GetTodayRoute)
		v1.GET("/material", controllers.GetAwaitingParts)
		v1.GET("/proximas", controllers.GetUpcoming)
		v1.GET("/finalizados", controllers.GetCompleted)

		v1.GET("/avisos", controllers.ListAvisos)
		v1.GET("/avisos/search", controllers.SearchAvisosQuick)
		v1.POST("/avisos", controllers.CreateAviso)
		v1.GET("/avisos/:id", controllers.GetAviso)
		v1.PUT("/avisos/:id", controllers.UpdateAviso)
		v1.DELETE("/avisos/:id", controllers.DeleteAviso)
		v1.POST("/avisos/:id/estado", controllers.ChangeAvisoStatus)
		v1.POST("/avisos/:id/cobro", controllers.ChangeAvisoCollectionStatus)
		v1.POST("/avisos/:id/duplicar", controllers.DuplicateAviso)
		v1.GET("/avisos/:id/historial", controllers.CustomerHistory)

		v1.GET("/avisos/:id/fotos", controllers.ListPhotos)
		v1.POST("/avisos/:id/fotos", controllers.UploadPhoto)
		v1.DELETE("/avisos/:id/fotos/:photoID", controllers.DeletePhoto)
		v1.GET("/uploads/:filename", controllers.GetUploadedPhoto)

		v1.GET("/stats/resumen", controllers.GetSummary)
		v1.GET("/stats/ingresos/:period", controllers.GetRevenue)
		v1.GET("/stats/electrodomesticos", controllers.GetTopAppliances)
		v1.GET("/stats/morosos", controllers.GetDelinquents)
		v1.GET("/stats/tecnicos", controllers.GetTechnicianPerformance)

		v1.GET("/telegram/diagnostico", controllers.DiagnoseTelegram)
		v1.POST("/telegram/test", controllers.TestTelegram)
		v1.POST("/telegram/resumen", controllers.SendDailySummary)
		v1.POST("/telegram/material", controllers.SendPartsReminder)

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/usuarios", controllers.ListUsers)
			admin.POST("/usuarios", controllers.CreateUser)
			admin.PUT("/usuarios/:id", controllers.UpdateUser)
			admin.POST("/usuarios/:id/toggle", controllers.ToggleUser)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Avisos API is running",
	})
}
