package services

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/cadiz-tecnico/avisos-api/config"
)

// SchedulerService runs the recurring morning notifications: the daily
// appointment summary and, when any exist, the parts-pending reminder.
type SchedulerService struct {
	scheduler *gocron.Scheduler
}

// StartScheduler registers and starts the daily jobs at the configured hour
func StartScheduler(cfg *config.Config) (*SchedulerService, error) {
	scheduler := gocron.NewScheduler(time.Local)

	at := fmt.Sprintf("%02d:00", cfg.DailySummaryHour)
	if _, err := scheduler.Every(1).Day().At(at).Do(RunMorningDigest); err != nil {
		return nil, fmt.Errorf("failed to schedule morning digest: %w", err)
	}

	scheduler.StartAsync()
	log.Printf("Scheduler started, morning digest at %s", at)
	return &SchedulerService{scheduler: scheduler}, nil
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *SchedulerService) Stop() {
	s.scheduler.Stop()
}

// RunMorningDigest sends the daily summary and the parts reminder to the
// operations chat. Each failure is logged independently; nothing retries.
func RunMorningDigest() {
	db := config.GetDB()
	if db == nil {
		log.Printf("Morning digest skipped: database not connected")
		return
	}

	today := time.Now()
	avisos, err := TodayAppointments(db, nil, today, "street")
	if err != nil {
		log.Printf("Morning digest: failed to load today's appointments: %v", err)
	} else if !NotifyDailySummary(avisos) {
		log.Printf("Morning digest: daily summary was not delivered")
	}

	parts, err := AwaitingPartsAvisos(db, nil)
	if err != nil {
		log.Printf("Morning digest: failed to load awaiting-parts avisos: %v", err)
		return
	}
	if len(parts) > 0 && !NotifyPartsPending(parts) {
		log.Printf("Morning digest: parts reminder was not delivered")
	}
}
