package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/middleware"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
)

// GetSummary handles GET /api/v1/stats/resumen - current month totals
func GetSummary(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	summary, err := services.SummaryFor(config.GetDB(), user, models.DateOnly(time.Now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to compute summary"))
		return
	}
	c.JSON(http.StatusOK, dataBody(summary))
}

// GetRevenue handles GET /api/v1/stats/ingresos/:period with period one of
// dia, semana, mes
func GetRevenue(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	period := c.Param("period")
	switch period {
	case services.PeriodDay, services.PeriodWeek, services.PeriodMonth:
	default:
		c.JSON(http.StatusBadRequest, errorBody("INVALID_PERIOD", "Period must be dia, semana or mes"))
		return
	}

	buckets, err := services.RevenueByPeriod(config.GetDB(), user, period, models.DateOnly(time.Now()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to compute revenue"))
		return
	}
	c.JSON(http.StatusOK, dataBody(buckets))
}

// GetTopAppliances handles GET /api/v1/stats/electrodomesticos
func GetTopAppliances(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	counts, err := services.TopAppliances(config.GetDB(), user, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to compute appliance stats"))
		return
	}
	c.JSON(http.StatusOK, dataBody(counts))
}

// GetDelinquents handles GET /api/v1/stats/morosos
func GetDelinquents(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	entries, err := services.DelinquentList(config.GetDB(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load delinquent accounts"))
		return
	}
	c.JSON(http.StatusOK, dataBody(entries))
}

// GetTechnicianPerformance handles GET /api/v1/stats/tecnicos (admin only)
func GetTechnicianPerformance(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	rows, err := services.TechnicianPerformanceAll(config.GetDB(), user)
	if err != nil {
		if errors.Is(err, services.ErrForbidden) {
			c.JSON(http.StatusForbidden, errorBody("FORBIDDEN", "Admin access required"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to compute technician stats"))
		return
	}
	c.JSON(http.StatusOK, dataBody(rows))
}
