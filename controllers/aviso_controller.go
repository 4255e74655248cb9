package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/middleware"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
)

const avisosPerPage = 25

// AvisoRequest represents the request body for creating or updating an aviso.
// Dates travel as "YYYY-MM-DD" strings.
type AvisoRequest struct {
	CustomerName    string   `json:"customer_name" binding:"required"`
	Phone           string   `json:"phone" binding:"required"`
	Street          string   `json:"street"`
	City            string   `json:"city"`
	Appliance       string   `json:"appliance"`
	Brand           string   `json:"brand"`
	Description     string   `json:"description"`
	Notes           string   `json:"notes"`
	RequestDate     string   `json:"request_date"`
	AppointmentDate *string  `json:"appointment_date"`
	Status          string   `json:"status"`
	LaborPrice      *float64 `json:"labor_price"`
	MaterialsCost   *float64 `json:"materials_cost"`
	MaterialsDesc   *string  `json:"materials_desc"`
	Discount        *float64 `json:"discount"`
	ExtraCharges    *float64 `json:"extra_charges"`
	ExtraChargesDesc *string `json:"extra_charges_desc"`
	CollectionStatus string  `json:"collection_status"`
	AssignedToID    *uint    `json:"assigned_to_id"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// loadVisibleAviso fetches an aviso by path id, enforcing the caller's
// visibility scope. Writes the error response itself on failure.
func loadVisibleAviso(c *gin.Context, preload bool) (*models.Aviso, *models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return nil, nil, false
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ID", "Aviso ID must be a number"))
		return nil, nil, false
	}

	db := config.GetDB().Scopes(services.VisibleTo(user))
	if preload {
		db = db.Preload("CreatedBy").Preload("AssignedTo").Preload("Photos")
	}

	var aviso models.Aviso
	if err := db.First(&aviso, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Aviso not found"))
		} else {
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load aviso"))
		}
		return nil, nil, false
	}
	return &aviso, user, true
}

// ListAvisos handles GET /api/v1/avisos - paginated list with optional filters
func ListAvisos(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	db := config.GetDB().Model(&models.Aviso{}).Scopes(services.VisibleTo(user))

	if estado := c.Query("estado"); estado != "" {
		if !models.ValidStatus(estado) {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_STATUS", "Unknown status filter"))
			return
		}
		db = db.Where("status = ?", estado)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where(
			"LOWER(customer_name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(street) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to count avisos"))
		return
	}

	var avisos []models.Aviso
	err = db.Preload("AssignedTo").
		Order("request_date DESC, id DESC").
		Limit(avisosPerPage).
		Offset((page - 1) * avisosPerPage).
		Find(&avisos).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load avisos"))
		return
	}

	pages := int((total + avisosPerPage - 1) / avisosPerPage)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    avisos,
		"meta": gin.H{
			"page":  page,
			"pages": pages,
			"total": total,
		},
	})
}

// SearchAvisosQuick handles GET /api/v1/avisos/search - typeahead lookup
func SearchAvisosQuick(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	term := strings.TrimSpace(c.Query("q"))
	if len([]rune(term)) < 2 {
		c.JSON(http.StatusOK, dataBody([]models.Aviso{}))
		return
	}

	avisos, err := services.SearchAvisos(config.GetDB(), user, term, 10, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Search failed"))
		return
	}
	c.JSON(http.StatusOK, dataBody(avisos))
}

// GetAviso handles GET /api/v1/avisos/:id
func GetAviso(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dataBody(aviso))
}

// CreateAviso handles POST /api/v1/avisos
func CreateAviso(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}

	var req AvisoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Customer name and phone are required"))
		return
	}

	aviso, errResp := avisoFromRequest(&req)
	if errResp != nil {
		c.JSON(http.StatusBadRequest, errResp)
		return
	}
	aviso.CreatedByID = &user.ID
	if aviso.Status == "" {
		aviso.Status = models.StatusPending
	}
	if aviso.CollectionStatus == "" {
		aviso.CollectionStatus = models.CollectionPending
	}

	db := config.GetDB()
	if err := db.Create(aviso).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to create aviso"))
		return
	}
	if err := db.Preload("CreatedBy").Preload("AssignedTo").First(aviso, aviso.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load aviso"))
		return
	}

	go services.NotifyAvisoCreated(aviso)

	c.JSON(http.StatusCreated, dataBody(aviso))
}

// UpdateAviso handles PUT /api/v1/avisos/:id
func UpdateAviso(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	var req AvisoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Customer name and phone are required"))
		return
	}

	updated, errResp := avisoFromRequest(&req)
	if errResp != nil {
		c.JSON(http.StatusBadRequest, errResp)
		return
	}

	aviso.CustomerName = updated.CustomerName
	aviso.Phone = updated.Phone
	aviso.Street = updated.Street
	aviso.City = updated.City
	aviso.Appliance = updated.Appliance
	aviso.Brand = updated.Brand
	aviso.Description = updated.Description
	aviso.Notes = updated.Notes
	if !updated.RequestDate.IsZero() {
		aviso.RequestDate = updated.RequestDate
	}
	aviso.AppointmentDate = updated.AppointmentDate
	if updated.Status != "" {
		aviso.Status = updated.Status
	}
	if updated.CollectionStatus != "" {
		aviso.CollectionStatus = updated.CollectionStatus
	}
	aviso.LaborPrice = updated.LaborPrice
	aviso.MaterialsCost = updated.MaterialsCost
	aviso.MaterialsDesc = updated.MaterialsDesc
	aviso.Discount = updated.Discount
	aviso.ExtraCharges = updated.ExtraCharges
	aviso.ExtraChargesDesc = updated.ExtraChargesDesc
	aviso.AssignedToID = updated.AssignedToID

	db := config.GetDB()
	if err := db.Save(aviso).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to update aviso"))
		return
	}
	if err := db.Preload("CreatedBy").Preload("AssignedTo").First(aviso, aviso.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load aviso"))
		return
	}

	c.JSON(http.StatusOK, dataBody(aviso))
}

// ChangeStatusRequest is the body for status and collection-status changes.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeAvisoStatus handles POST /api/v1/avisos/:id/estado
func ChangeAvisoStatus(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Status is required"))
		return
	}

	updated, err := services.ChangeStatus(config.GetDB(), aviso.ID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, errorBody("INVALID_STATUS", "Unknown status"))
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Aviso not found"))
		default:
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to change status"))
		}
		return
	}
	c.JSON(http.StatusOK, dataBody(updated))
}

// ChangeAvisoCollectionStatus handles POST /api/v1/avisos/:id/cobro
func ChangeAvisoCollectionStatus(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Status is required"))
		return
	}

	updated, err := services.ChangeCollectionStatus(config.GetDB(), aviso.ID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCollectionStatus):
			c.JSON(http.StatusBadRequest, errorBody("INVALID_STATUS", "Unknown collection status"))
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Aviso not found"))
		default:
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to change collection status"))
		}
		return
	}
	c.JSON(http.StatusOK, dataBody(updated))
}

// DuplicateAviso handles POST /api/v1/avisos/:id/duplicar - opens a second visit
func DuplicateAviso(c *gin.Context) {
	aviso, user, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	copy, err := services.Duplicate(config.GetDB(), aviso.ID, &user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Aviso not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to duplicate aviso"))
		return
	}
	c.JSON(http.StatusCreated, dataBody(copy))
}

// DeleteAviso handles DELETE /api/v1/avisos/:id - removes the aviso, its photo
// records and the stored files. Database rows go first inside a transaction;
// file removal failures are logged but do not fail the request.
func DeleteAviso(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	db := config.GetDB()
	var photos []models.Photo
	if err := db.Where("aviso_id = ?", aviso.ID).Find(&photos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load photos"))
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("aviso_id = ?", aviso.ID).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Aviso{}, aviso.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to delete aviso"))
		return
	}

	storage := services.GetPhotoStorage()
	for _, photo := range photos {
		if err := storage.DeleteFile(photo.Filename); err != nil {
			log.Printf("STORAGE_INCONSISTENCY: aviso %d deleted but file %s remains: %v",
				aviso.ID, photo.Filename, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"deleted": aviso.ID}})
}

// CustomerHistory handles GET /api/v1/avisos/:id/historial - other avisos for
// the same phone number
func CustomerHistory(c *gin.Context) {
	aviso, user, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	var history []models.Aviso
	err := config.GetDB().Scopes(services.VisibleTo(user)).
		Where("phone = ? AND id <> ?", aviso.Phone, aviso.ID).
		Order("request_date DESC").
		Find(&history).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load history"))
		return
	}
	c.JSON(http.StatusOK, dataBody(history))
}

// avisoFromRequest maps a validated request body onto a model, parsing dates
// and checking enum values. Returns an error envelope on bad input.
func avisoFromRequest(req *AvisoRequest) (*models.Aviso, gin.H) {
	aviso := &models.Aviso{
		CustomerName:     strings.TrimSpace(req.CustomerName),
		Phone:            strings.TrimSpace(req.Phone),
		Street:           strings.TrimSpace(req.Street),
		City:             strings.TrimSpace(req.City),
		Appliance:        req.Appliance,
		Brand:            strings.TrimSpace(req.Brand),
		Description:      req.Description,
		Notes:            req.Notes,
		Status:           req.Status,
		CollectionStatus: req.CollectionStatus,
		LaborPrice:       req.LaborPrice,
		MaterialsCost:    req.MaterialsCost,
		MaterialsDesc:    req.MaterialsDesc,
		Discount:         req.Discount,
		ExtraCharges:     req.ExtraCharges,
		ExtraChargesDesc: req.ExtraChargesDesc,
		AssignedToID:     req.AssignedToID,
	}

	if aviso.CustomerName == "" || aviso.Phone == "" {
		return nil, errorBody("VALIDATION_ERROR", "Customer name and phone are required")
	}
	if aviso.Status != "" && !models.ValidStatus(aviso.Status) {
		return nil, errorBody("INVALID_STATUS", "Unknown status")
	}
	if aviso.CollectionStatus != "" && !models.ValidCollectionStatus(aviso.CollectionStatus) {
		return nil, errorBody("INVALID_STATUS", "Unknown collection status")
	}

	if req.RequestDate != "" {
		d, err := parseDate(req.RequestDate)
		if err != nil {
			return nil, errorBody("INVALID_DATE", "request_date must be YYYY-MM-DD")
		}
		aviso.RequestDate = d
	} else {
		aviso.RequestDate = models.DateOnly(time.Now())
	}
	if req.AppointmentDate != nil && *req.AppointmentDate != "" {
		d, err := parseDate(*req.AppointmentDate)
		if err != nil {
			return nil, errorBody("INVALID_DATE", "appointment_date must be YYYY-MM-DD")
		}
		aviso.AppointmentDate = &d
	}

	return aviso, nil
}
