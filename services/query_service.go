package services

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/models"
)

// Billing expressions evaluated at the SQL level so list aggregations do
// not load every row. They must agree with Aviso.AmountDue/Profit; the
// Go side rounds every figure through models.Round2.
const (
	sqlDueRaw     = "(COALESCE(labor_price,0) + COALESCE(extra_charges,0) - COALESCE(discount,0))"
	sqlDueClamped = "CASE WHEN " + sqlDueRaw + " > 0 THEN " + sqlDueRaw + " ELSE 0 END"
	sqlProfit     = "(" + sqlDueClamped + ") - COALESCE(materials_cost,0)"
)

// VisibleTo is the single authorization gate for read access to avisos.
// Admins (and internal callers passing nil, e.g. the chat channel) see
// everything; technicians only see what they created or were assigned.
func VisibleTo(user *models.User) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if user == nil || user.IsAdmin() {
			return db
		}
		return db.Where("assigned_to_id = ? OR created_by_id = ?", user.ID, user.ID)
	}
}

// Counts are the dashboard counters
type Counts struct {
	Today         int64 `json:"today"`
	AwaitingParts int64 `json:"awaiting_parts"`
	Pending       int64 `json:"pending"`
	Upcoming      int64 `json:"upcoming"`
	SecondVisit   int64 `json:"second_visit"`
	TotalActive   int64 `json:"total_active"`
}

// CountsFor computes the dashboard counters for one actor
func CountsFor(db *gorm.DB, user *models.User, today time.Time) (Counts, error) {
	today = models.DateOnly(today)
	weekAhead := today.AddDate(0, 0, 7)

	var counts Counts
	queries := []struct {
		dest  *int64
		build func(*gorm.DB) *gorm.DB
	}{
		{&counts.Today, func(q *gorm.DB) *gorm.DB {
			return q.Where("appointment_date = ? AND status <> ?", today, models.StatusCompleted)
		}},
		{&counts.AwaitingParts, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", models.StatusAwaitingParts)
		}},
		{&counts.Pending, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", models.StatusPending)
		}},
		{&counts.Upcoming, func(q *gorm.DB) *gorm.DB {
			return q.Where("appointment_date > ? AND appointment_date <= ? AND status <> ?",
				today, weekAhead, models.StatusCompleted)
		}},
		{&counts.SecondVisit, func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", models.StatusSecondVisit)
		}},
		{&counts.TotalActive, func(q *gorm.DB) *gorm.DB {
			return q.Where("status <> ?", models.StatusCompleted)
		}},
	}

	for _, query := range queries {
		base := db.Model(&models.Aviso{}).Scopes(VisibleTo(user))
		if err := query.build(base).Count(query.dest).Error; err != nil {
			return Counts{}, err
		}
	}
	return counts, nil
}

// SearchAvisos does a case-insensitive substring match over customer
// name, phone and street, newest request first. limit <= 0 means no limit.
func SearchAvisos(db *gorm.DB, user *models.User, term string, limit int, includeCompleted bool) ([]models.Aviso, error) {
	like := "%" + term + "%"
	query := db.Scopes(VisibleTo(user)).
		Where("LOWER(customer_name) LIKE LOWER(?) OR LOWER(phone) LIKE LOWER(?) OR LOWER(street) LIKE LOWER(?)",
			like, like, like).
		Order("request_date DESC")
	if !includeCompleted {
		query = query.Where("status <> ?", models.StatusCompleted)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var avisos []models.Aviso
	err := query.Find(&avisos).Error
	return avisos, err
}

// TodayAppointments lists today's non-completed appointments.
// orderBy "street" gives the route ordering for in-person visits.
func TodayAppointments(db *gorm.DB, user *models.User, today time.Time, orderBy string) ([]models.Aviso, error) {
	if orderBy != "street" && orderBy != "customer_name" {
		orderBy = "street"
	}
	var avisos []models.Aviso
	err := db.Scopes(VisibleTo(user)).
		Where("appointment_date = ? AND status <> ?", models.DateOnly(today), models.StatusCompleted).
		Order(orderBy).
		Find(&avisos).Error
	return avisos, err
}

// UpcomingAppointments lists non-completed appointments in the next 7 days
func UpcomingAppointments(db *gorm.DB, user *models.User, today time.Time) ([]models.Aviso, error) {
	today = models.DateOnly(today)
	var avisos []models.Aviso
	err := db.Scopes(VisibleTo(user)).
		Where("appointment_date > ? AND appointment_date <= ? AND status <> ?",
			today, today.AddDate(0, 0, 7), models.StatusCompleted).
		Order("appointment_date").
		Find(&avisos).Error
	return avisos, err
}

// PendingAvisos lists pending and second-visit avisos, newest request first
func PendingAvisos(db *gorm.DB, user *models.User, limit int) ([]models.Aviso, error) {
	query := db.Scopes(VisibleTo(user)).
		Where("status IN ?", []string{models.StatusPending, models.StatusSecondVisit}).
		Order("request_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var avisos []models.Aviso
	err := query.Find(&avisos).Error
	return avisos, err
}

// AwaitingPartsAvisos lists avisos waiting for material, oldest update first
func AwaitingPartsAvisos(db *gorm.DB, user *models.User) ([]models.Aviso, error) {
	var avisos []models.Aviso
	err := db.Scopes(VisibleTo(user)).
		Where("status = ?", models.StatusAwaitingParts).
		Order("updated_at").
		Find(&avisos).Error
	return avisos, err
}

// CompletedAvisos lists the most recently completed avisos
func CompletedAvisos(db *gorm.DB, user *models.User, limit int) ([]models.Aviso, error) {
	query := db.Scopes(VisibleTo(user)).
		Where("status = ?", models.StatusCompleted).
		Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var avisos []models.Aviso
	err := query.Find(&avisos).Error
	return avisos, err
}

// DelinquentAvisos lists all avisos with a delinquent collection status
func DelinquentAvisos(db *gorm.DB, user *models.User) ([]models.Aviso, error) {
	var avisos []models.Aviso
	err := db.Scopes(VisibleTo(user)).
		Where("collection_status = ?", models.CollectionDelinquent).
		Order("updated_at DESC").
		Find(&avisos).Error
	return avisos, err
}

// DelinquentEntry is one line of the delinquent customers report
type DelinquentEntry struct {
	ID          uint    `json:"id"`
	Customer    string  `json:"customer"`
	Phone       string  `json:"phone"`
	AmountDue   float64 `json:"amount_due"`
	RequestDate string  `json:"request_date"`
	Appliance   string  `json:"appliance"`
}

// DelinquentList projects the delinquent avisos into report entries
func DelinquentList(db *gorm.DB, user *models.User) ([]DelinquentEntry, error) {
	avisos, err := DelinquentAvisos(db, user)
	if err != nil {
		return nil, err
	}
	entries := make([]DelinquentEntry, 0, len(avisos))
	for i := range avisos {
		av := &avisos[i]
		entries = append(entries, DelinquentEntry{
			ID:          av.ID,
			Customer:    av.CustomerName,
			Phone:       av.Phone,
			AmountDue:   av.AmountDue(),
			RequestDate: av.RequestDate.Format("02/01/2006"),
			Appliance:   av.Appliance,
		})
	}
	return entries, nil
}

// RevenueBucket is one aggregation bucket. Buckets with no completed
// avisos report zero, never go missing from the series.
type RevenueBucket struct {
	Label  string  `json:"label"`
	Total  float64 `json:"total"`
	Profit float64 `json:"profit"`
	Count  int     `json:"count"`
}

// Valid revenue aggregation periods
const (
	PeriodDay   = "dia"
	PeriodWeek  = "semana"
	PeriodMonth = "mes"
)

var monthNames = []string{"Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

type revenueRow struct {
	UpdatedAt time.Time
	Due       float64
	Profit    float64
}

// RevenueByPeriod groups completed avisos by day (30), ISO week (8) or
// month (12) on their update timestamp, summing amount due and profit.
// Per-row values come from the SQL billing expression; bucketing happens
// in Go so SQLite and PostgreSQL agree.
func RevenueByPeriod(db *gorm.DB, user *models.User, period string, today time.Time) ([]RevenueBucket, error) {
	today = models.DateOnly(today)

	var start time.Time
	switch period {
	case PeriodDay:
		start = today.AddDate(0, 0, -29)
	case PeriodWeek:
		start = startOfISOWeek(today).AddDate(0, 0, -7*7)
	case PeriodMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	default:
		return nil, fmt.Errorf("unknown revenue period %q", period)
	}

	var rows []revenueRow
	err := db.Model(&models.Aviso{}).
		Scopes(VisibleTo(user)).
		Select("updated_at, "+sqlDueClamped+" AS due, "+sqlProfit+" AS profit").
		Where("status = ? AND updated_at >= ?", models.StatusCompleted, start).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	switch period {
	case PeriodDay:
		return bucketize(rows, 30, func(i int) (string, string) {
			d := start.AddDate(0, 0, i)
			return d.Format("2006-01-02"), d.Format("02/01")
		}, func(t time.Time) string {
			return models.DateOnly(t).Format("2006-01-02")
		}), nil
	case PeriodWeek:
		return bucketize(rows, 8, func(i int) (string, string) {
			d := start.AddDate(0, 0, 7*i)
			year, week := d.ISOWeek()
			return fmt.Sprintf("%d-%02d", year, week), fmt.Sprintf("Sem %d", week)
		}, func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-%02d", year, week)
		}), nil
	default: // PeriodMonth
		return bucketize(rows, 12, func(i int) (string, string) {
			d := start.AddDate(0, i, 0)
			return d.Format("2006-01"), fmt.Sprintf("%s %d", monthNames[int(d.Month())-1], d.Year())
		}, func(t time.Time) string {
			return t.Format("2006-01")
		}), nil
	}
}

// bucketize distributes rows over n consecutive zero-filled buckets.
// bucketAt yields the key and label of bucket i; keyOf maps a row
// timestamp to its bucket key. Rows outside the window are dropped.
func bucketize(rows []revenueRow, n int, bucketAt func(int) (string, string), keyOf func(time.Time) string) []RevenueBucket {
	buckets := make([]RevenueBucket, n)
	index := make(map[string]int, n)
	for i := 0; i < n; i++ {
		key, label := bucketAt(i)
		buckets[i] = RevenueBucket{Label: label}
		index[key] = i
	}

	for _, row := range rows {
		i, ok := index[keyOf(row.UpdatedAt)]
		if !ok {
			continue
		}
		buckets[i].Total += models.Round2(row.Due)
		buckets[i].Profit += models.Round2(row.Profit)
		buckets[i].Count++
	}

	for i := range buckets {
		buckets[i].Total = models.Round2(buckets[i].Total)
		buckets[i].Profit = models.Round2(buckets[i].Profit)
	}
	return buckets
}

// startOfISOWeek returns the Monday of the week containing d
func startOfISOWeek(d time.Time) time.Time {
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return models.DateOnly(d).AddDate(0, 0, 1-weekday)
}

// ApplianceCount is one entry of the most-repaired appliances ranking
type ApplianceCount struct {
	Appliance string `json:"appliance"`
	Total     int    `json:"total"`
}

// TopAppliances ranks appliance types by frequency over non-empty values
func TopAppliances(db *gorm.DB, user *models.User, n int) ([]ApplianceCount, error) {
	if n <= 0 {
		n = 10
	}
	var rows []ApplianceCount
	err := db.Model(&models.Aviso{}).
		Scopes(VisibleTo(user)).
		Select("appliance, COUNT(id) AS total").
		Where("appliance IS NOT NULL AND appliance <> ''").
		Group("appliance").
		Order("total DESC").
		Limit(n).
		Scan(&rows).Error
	return rows, err
}

// Summary holds the headline figures for the statistics page
type Summary struct {
	TotalActive       int64   `json:"total_active"`
	TotalDelinquent   int64   `json:"total_delinquent"`
	Completed         int64   `json:"completed"`
	BilledMonth       float64 `json:"billed_month"`
	ProfitMonth       float64 `json:"profit_month"`
	PendingCollection float64 `json:"pending_collection"`
}

// SummaryFor computes the headline statistics for one actor, with the
// billing figures restricted to the current calendar month.
func SummaryFor(db *gorm.DB, user *models.User, today time.Time) (Summary, error) {
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var summary Summary
	base := func() *gorm.DB { return db.Model(&models.Aviso{}).Scopes(VisibleTo(user)) }

	if err := base().Where("status <> ?", models.StatusCompleted).Count(&summary.TotalActive).Error; err != nil {
		return Summary{}, err
	}
	if err := base().Where("collection_status = ?", models.CollectionDelinquent).Count(&summary.TotalDelinquent).Error; err != nil {
		return Summary{}, err
	}
	if err := base().Where("status = ?", models.StatusCompleted).Count(&summary.Completed).Error; err != nil {
		return Summary{}, err
	}

	var billed, profit, pending float64
	err := base().
		Select("COALESCE(SUM("+sqlDueClamped+"),0)").
		Where("status = ? AND updated_at >= ? AND updated_at < ?", models.StatusCompleted, monthStart, nextMonth).
		Scan(&billed).Error
	if err != nil {
		return Summary{}, err
	}
	err = base().
		Select("COALESCE(SUM("+sqlProfit+"),0)").
		Where("status = ? AND updated_at >= ? AND updated_at < ?", models.StatusCompleted, monthStart, nextMonth).
		Scan(&profit).Error
	if err != nil {
		return Summary{}, err
	}
	err = base().
		Select("COALESCE(SUM("+sqlDueClamped+"),0)").
		Where("status = ? AND collection_status = ?", models.StatusCompleted, models.CollectionPending).
		Scan(&pending).Error
	if err != nil {
		return Summary{}, err
	}

	summary.BilledMonth = models.Round2(billed)
	summary.ProfitMonth = models.Round2(profit)
	summary.PendingCollection = models.Round2(pending)
	return summary, nil
}

// TechnicianPerformance is one technician's row of the admin report
type TechnicianPerformance struct {
	Name       string  `json:"name"`
	Active     int64   `json:"active"`
	Completed  int64   `json:"completed"`
	Delinquent int64   `json:"delinquent"`
	Billed     float64 `json:"billed"`
}

// TechnicianPerformanceAll builds the per-technician report, sorted by
// billed sum descending. Admin only: non-admin callers get ErrForbidden
// before any query runs.
func TechnicianPerformanceAll(db *gorm.DB, requester *models.User) ([]TechnicianPerformance, error) {
	if requester == nil || !requester.IsAdmin() {
		return nil, ErrForbidden
	}

	var technicians []models.User
	if err := db.Where("is_active = ?", true).Order("role, username").Find(&technicians).Error; err != nil {
		return nil, err
	}

	report := make([]TechnicianPerformance, 0, len(technicians))
	for i := range technicians {
		tech := &technicians[i]
		row := TechnicianPerformance{Name: tech.DisplayName()}

		assigned := func() *gorm.DB {
			return db.Model(&models.Aviso{}).Where("assigned_to_id = ?", tech.ID)
		}
		if err := assigned().Where("status <> ?", models.StatusCompleted).Count(&row.Active).Error; err != nil {
			return nil, err
		}
		if err := assigned().Where("status = ?", models.StatusCompleted).Count(&row.Completed).Error; err != nil {
			return nil, err
		}
		if err := assigned().Where("collection_status = ?", models.CollectionDelinquent).Count(&row.Delinquent).Error; err != nil {
			return nil, err
		}

		var billed float64
		err := assigned().
			Select("COALESCE(SUM("+sqlDueClamped+"),0)").
			Where("status = ?", models.StatusCompleted).
			Scan(&billed).Error
		if err != nil {
			return nil, err
		}
		row.Billed = models.Round2(billed)

		report = append(report, row)
	}

	// Highest billed first
	sort.SliceStable(report, func(i, j int) bool {
		return report[i].Billed > report[j].Billed
	})
	return report, nil
}
