package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Aviso lifecycle statuses (closed set, any state may move to any other)
const (
	StatusPending       = "pendiente"
	StatusToday         = "hoy"
	StatusAwaitingParts = "esperando_material"
	StatusSecondVisit   = "segunda_visita"
	StatusCompleted     = "finalizado"
)

// Collection statuses, orthogonal to the lifecycle status
const (
	CollectionPending    = "pendiente"
	CollectionPaid       = "pagado"
	CollectionDelinquent = "moroso"
)

// Statuses lists the valid lifecycle statuses in display order
var Statuses = []string{
	StatusPending,
	StatusToday,
	StatusAwaitingParts,
	StatusSecondVisit,
	StatusCompleted,
}

// CollectionStatuses lists the valid collection statuses
var CollectionStatuses = []string{
	CollectionPending,
	CollectionPaid,
	CollectionDelinquent,
}

var statusLabels = map[string]string{
	StatusPending:       "Pendiente",
	StatusToday:         "Hoy",
	StatusAwaitingParts: "Esperando material",
	StatusSecondVisit:   "Segunda visita",
	StatusCompleted:     "Finalizado",
}

var statusBadgeClasses = map[string]string{
	StatusPending:       "bg-warning text-dark",
	StatusToday:         "bg-danger",
	StatusAwaitingParts: "bg-info text-dark",
	StatusSecondVisit:   "bg-primary",
	StatusCompleted:     "bg-success",
}

var collectionLabels = map[string]string{
	CollectionPending:    "Pendiente de cobro",
	CollectionPaid:       "Pagado",
	CollectionDelinquent: "Moroso",
}

var collectionBadgeClasses = map[string]string{
	CollectionPaid:       "bg-success",
	CollectionPending:    "bg-warning text-dark",
	CollectionDelinquent: "bg-danger",
}

// Appliances is the open vocabulary offered in the intake forms
var Appliances = []string{
	"Lavadora", "Secadora", "Lavavajillas", "Frigorífico", "Congelador",
	"Horno", "Microondas", "Vitrocerámica", "Cocina gas", "Campana extractora",
	"Aire acondicionado", "Caldera", "Calentador", "Termo eléctrico",
	"Televisión", "Lava-secadora", "Otro",
}

// ValidStatus returns true when s is a member of the lifecycle status set
func ValidStatus(s string) bool {
	_, ok := statusLabels[s]
	return ok
}

// ValidCollectionStatus returns true when s is a member of the collection status set
func ValidCollectionStatus(s string) bool {
	_, ok := collectionLabels[s]
	return ok
}

// Aviso represents a service request from intake to closure
type Aviso struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Customer
	CustomerName string `gorm:"not null" json:"customer_name"`
	Phone        string `gorm:"not null;index" json:"phone"` // loose customer key
	Street       string `json:"street"`
	City         string `json:"city"`

	// Appliance
	Appliance   string `json:"appliance"`
	Brand       string `json:"brand"`
	Description string `gorm:"type:text" json:"description"`
	Notes       string `gorm:"type:text" json:"notes"`

	// Scheduling
	RequestDate     time.Time  `gorm:"type:date;not null" json:"request_date"`
	AppointmentDate *time.Time `gorm:"type:date" json:"appointment_date"`

	// Status
	Status string `gorm:"not null;default:'pendiente';index" json:"status"`

	// Billing (internal costs are never shown to the customer)
	LaborPrice       *float64 `json:"labor_price"`
	MaterialsCost    *float64 `json:"materials_cost"`
	MaterialsDesc    *string  `json:"materials_desc"`
	Discount         *float64 `json:"discount"`
	ExtraCharges     *float64 `json:"extra_charges"`
	ExtraChargesDesc *string  `json:"extra_charges_desc"`
	CollectionStatus string   `gorm:"default:'pendiente'" json:"collection_status"`

	// Assignment and audit
	CreatedByID  *uint `gorm:"index" json:"created_by_id"`
	CreatedBy    *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	AssignedToID *uint `gorm:"index" json:"assigned_to_id"`
	AssignedTo   *User `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`

	Photos []Photo `gorm:"foreignKey:AvisoID;constraint:OnDelete:CASCADE" json:"photos,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Aviso model
func (Aviso) TableName() string {
	return "avisos"
}

// AmountDue is the total charged to the customer:
// labor + extra charges - discount, clamped at zero. Never stored,
// always recomputed so edits are reflected everywhere immediately.
func (a *Aviso) AmountDue() float64 {
	base := floatOrZero(a.LaborPrice) + floatOrZero(a.ExtraCharges)
	due := Round2(base - floatOrZero(a.Discount))
	if due < 0 {
		return 0
	}
	return due
}

// Profit is the net result after materials: amount due - materials cost
func (a *Aviso) Profit() float64 {
	return Round2(a.AmountDue() - floatOrZero(a.MaterialsCost))
}

// HasFinancialData returns true when any economic field has been entered
func (a *Aviso) HasFinancialData() bool {
	return a.LaborPrice != nil || a.MaterialsCost != nil || a.ExtraCharges != nil
}

// StatusLabel returns the display label for the current status
func (a *Aviso) StatusLabel() string {
	if label, ok := statusLabels[a.Status]; ok {
		return label
	}
	return a.Status
}

// StatusBadgeClass returns the badge class consumed by the panel renderers
func (a *Aviso) StatusBadgeClass() string {
	if class, ok := statusBadgeClasses[a.Status]; ok {
		return class
	}
	return "bg-secondary"
}

// CollectionLabel returns the display label for the collection status
func (a *Aviso) CollectionLabel() string {
	if label, ok := collectionLabels[a.CollectionStatus]; ok {
		return label
	}
	return collectionLabels[CollectionPending]
}

// CollectionBadgeClass returns the badge class for the collection status
func (a *Aviso) CollectionBadgeClass() string {
	if class, ok := collectionBadgeClasses[a.CollectionStatus]; ok {
		return class
	}
	return "bg-secondary"
}

// FullAddress joins street and city for display
func (a *Aviso) FullAddress() string {
	if a.Street == "" {
		return a.City
	}
	if a.City == "" {
		return a.Street
	}
	return a.Street + ", " + a.City
}

// MarshalJSON includes the derived billing values and display labels so
// every consumer (detail view, exports, chat) sees the same figures.
func (a Aviso) MarshalJSON() ([]byte, error) {
	type alias Aviso
	return json.Marshal(struct {
		alias
		AmountDue        float64 `json:"amount_due"`
		Profit           float64 `json:"profit"`
		HasFinancialData bool    `json:"has_financial_data"`
		StatusLabel      string  `json:"status_label"`
		StatusClass      string  `json:"status_class"`
		CollectionLabel  string  `json:"collection_label"`
		CollectionClass  string  `json:"collection_class"`
	}{
		alias:            alias(a),
		AmountDue:        a.AmountDue(),
		Profit:           a.Profit(),
		HasFinancialData: a.HasFinancialData(),
		StatusLabel:      a.StatusLabel(),
		StatusClass:      a.StatusBadgeClass(),
		CollectionLabel:  a.CollectionLabel(),
		CollectionClass:  a.CollectionBadgeClass(),
	})
}

// DateOnly truncates a timestamp to its calendar day in UTC, the form
// request/appointment dates are stored in.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BeforeSave keeps the date columns normalized to day precision
func (a *Aviso) BeforeSave(tx *gorm.DB) error {
	if !a.RequestDate.IsZero() {
		a.RequestDate = DateOnly(a.RequestDate)
	}
	if a.AppointmentDate != nil {
		d := DateOnly(*a.AppointmentDate)
		a.AppointmentDate = &d
	}
	return nil
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
