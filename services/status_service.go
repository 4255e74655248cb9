package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/models"
)

// ChangeStatus applies a lifecycle status change. Any state may move to
// any other state, including its own (manual correction is a feature of
// the domain). After the write commits, the change is announced on the
// operations chat; a failed notification is logged and never rolls back
// or fails the transition.
func ChangeStatus(db *gorm.DB, id uint, newStatus string) (*models.Aviso, error) {
	if !models.ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	var aviso models.Aviso
	if err := db.Preload("AssignedTo").First(&aviso, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	previousStatus := aviso.Status
	aviso.Status = newStatus
	aviso.UpdatedAt = time.Now()
	if err := db.Save(&aviso).Error; err != nil {
		return nil, fmt.Errorf("failed to persist status change: %w", err)
	}

	// Fire and forget: the mutation is already committed
	if !NotifyStatusChange(&aviso, previousStatus) {
		log.Printf("Aviso #%d status change %s → %s saved, notification skipped or failed",
			aviso.ID, previousStatus, newStatus)
	}

	return &aviso, nil
}

// ChangeCollectionStatus updates the billing-recovery state. It is
// orthogonal to the lifecycle status and has no notification hook.
func ChangeCollectionStatus(db *gorm.DB, id uint, newStatus string) (*models.Aviso, error) {
	if !models.ValidCollectionStatus(newStatus) {
		return nil, ErrInvalidCollectionStatus
	}

	var aviso models.Aviso
	if err := db.First(&aviso, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	aviso.CollectionStatus = newStatus
	aviso.UpdatedAt = time.Now()
	if err := db.Save(&aviso).Error; err != nil {
		return nil, fmt.Errorf("failed to persist collection status change: %w", err)
	}

	return &aviso, nil
}

// Duplicate creates a second-visit aviso from an existing one. Customer
// and appliance data carry over; billing, appointment and photos do not.
func Duplicate(db *gorm.DB, id uint, createdByID *uint) (*models.Aviso, error) {
	var original models.Aviso
	if err := db.First(&original, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	duplicate := models.Aviso{
		CustomerName:    original.CustomerName,
		Phone:           original.Phone,
		Street:          original.Street,
		City:            original.City,
		Appliance:       original.Appliance,
		Brand:           original.Brand,
		Description:     original.Description,
		Notes:           fmt.Sprintf("Segunda visita. Aviso original: #%d", original.ID),
		Status:          models.StatusSecondVisit,
		RequestDate:     models.DateOnly(time.Now()),
		AppointmentDate: nil,
		CreatedByID:     createdByID,
		AssignedToID:    original.AssignedToID,
	}

	if err := db.Create(&duplicate).Error; err != nil {
		return nil, fmt.Errorf("failed to create duplicate aviso: %w", err)
	}
	return &duplicate, nil
}
