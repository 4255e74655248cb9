package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
)

// PublicIntakeRequest is the body for the unauthenticated web form.
type PublicIntakeRequest struct {
	CustomerName string `json:"customer_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Street       string `json:"street"`
	City         string `json:"city"`
	Appliance    string `json:"appliance"`
	Brand        string `json:"brand"`
	Description  string `json:"description"`
}

// CreatePublicAviso handles POST /api/public/avisos - the customer-facing
// intake form. No authentication; the aviso always starts as a pending
// request dated today.
func CreatePublicAviso(c *gin.Context) {
	var req PublicIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Customer name and phone are required"))
		return
	}

	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Customer name and phone are required"))
		return
	}

	aviso := models.Aviso{
		CustomerName:     name,
		Phone:            phone,
		Street:           strings.TrimSpace(req.Street),
		City:             strings.TrimSpace(req.City),
		Appliance:        req.Appliance,
		Brand:            strings.TrimSpace(req.Brand),
		Description:      req.Description,
		Status:           models.StatusPending,
		CollectionStatus: models.CollectionPending,
		RequestDate:      models.DateOnly(time.Now()),
	}

	if err := config.GetDB().Create(&aviso).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to register the request"))
		return
	}

	go services.NotifyAvisoCreated(&aviso)

	c.JSON(http.StatusCreated, dataBody(gin.H{
		"id":      aviso.ID,
		"message": "Hemos recibido tu aviso. Te llamaremos para concretar la visita.",
	}))
}
