package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/middleware"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
)

// GetDashboard handles GET /api/v1/dashboard - counters plus today's route
// and the most recent pending avisos
func GetDashboard(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	db := config.GetDB()
	today := models.DateOnly(time.Now())

	counts, err := services.CountsFor(db, user, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to compute counters"))
		return
	}
	todayList, err := services.TodayAppointments(db, user, today, "street")
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load today's route"))
		return
	}
	pending, err := services.PendingAvisos(db, user, 5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load pending avisos"))
		return
	}

	c.JSON(http.StatusOK, dataBody(gin.H{
		"counts":  counts,
		"today":   todayList,
		"pending": pending,
	}))
}

// listHandler wraps the common shape of the dashboard list endpoints.
func listHandler(load func(user *models.User) ([]models.Aviso, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetCurrentUser(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
			return
		}
		avisos, err := load(user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load avisos"))
			return
		}
		c.JSON(http.StatusOK, dataBody(avisos))
	}
}

// GetTodayRoute handles GET /api/v1/hoy - today's appointments ordered for the
// driving route (by street); ?orden=cliente switches to customer order.
func GetTodayRoute(c *gin.Context) {
	orderBy := "street"
	if c.Query("orden") == "cliente" {
		orderBy = "customer_name"
	}
	listHandler(func(user *models.User) ([]models.Aviso, error) {
		return services.TodayAppointments(config.GetDB(), user, models.DateOnly(time.Now()), orderBy)
	})(c)
}

// GetAwaitingParts handles GET /api/v1/material
func GetAwaitingParts(c *gin.Context) {
	listHandler(func(user *models.User) ([]models.Aviso, error) {
		return services.AwaitingPartsAvisos(config.GetDB(), user)
	})(c)
}

// GetUpcoming handles GET /api/v1/proximas - appointments in the next 7 days
func GetUpcoming(c *gin.Context) {
	listHandler(func(user *models.User) ([]models.Aviso, error) {
		return services.UpcomingAppointments(config.GetDB(), user, models.DateOnly(time.Now()))
	})(c)
}

// GetCompleted handles GET /api/v1/finalizados - most recently closed avisos
func GetCompleted(c *gin.Context) {
	listHandler(func(user *models.User) ([]models.Aviso, error) {
		return services.CompletedAvisos(config.GetDB(), user, 100)
	})(c)
}

// DiagnoseTelegram handles GET /api/v1/telegram/diagnostico
func DiagnoseTelegram(c *gin.Context) {
	c.JSON(http.StatusOK, dataBody(services.GetTelegramService().Diagnose()))
}

// TestTelegram handles POST /api/v1/telegram/test - sends a probe message to
// the operations chat
func TestTelegram(c *gin.Context) {
	sent := services.GetTelegramService().SendMessage("✅ Mensaje de prueba del panel de avisos")
	if !sent {
		c.JSON(http.StatusBadGateway, errorBody("TELEGRAM_ERROR", "Telegram did not accept the message"))
		return
	}
	c.JSON(http.StatusOK, dataBody(gin.H{"sent": true}))
}

// SendDailySummary handles POST /api/v1/telegram/resumen - pushes today's
// route to the operations chat on demand
func SendDailySummary(c *gin.Context) {
	avisos, err := services.TodayAppointments(config.GetDB(), nil, models.DateOnly(time.Now()), "street")
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load today's route"))
		return
	}
	if !services.NotifyDailySummary(avisos) {
		c.JSON(http.StatusBadGateway, errorBody("TELEGRAM_ERROR", "Telegram did not accept the message"))
		return
	}
	c.JSON(http.StatusOK, dataBody(gin.H{"sent": true, "count": len(avisos)}))
}

// SendPartsReminder handles POST /api/v1/telegram/material - pushes the
// awaiting-parts list to the operations chat
func SendPartsReminder(c *gin.Context) {
	avisos, err := services.AwaitingPartsAvisos(config.GetDB(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load avisos"))
		return
	}
	if len(avisos) == 0 {
		c.JSON(http.StatusOK, dataBody(gin.H{"sent": false, "count": 0}))
		return
	}
	if !services.NotifyPartsPending(avisos) {
		c.JSON(http.StatusBadGateway, errorBody("TELEGRAM_ERROR", "Telegram did not accept the message"))
		return
	}
	c.JSON(http.StatusOK, dataBody(gin.H{"sent": true, "count": len(avisos)}))
}
