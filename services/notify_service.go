package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cadiz-tecnico/avisos-api/models"
)

// Free-text preview bounds per message kind, to keep chat messages small
const (
	previewCreated      = 300
	previewStatusChange = 150
	previewSummary      = 100
	previewBatch        = 80
)

var statusIcons = map[string]string{
	models.StatusPending:       "⏳",
	models.StatusToday:         "📅",
	models.StatusAwaitingParts: "📦",
	models.StatusSecondVisit:   "🔁",
	models.StatusCompleted:     "✅",
}

// NotifyAvisoCreated announces a new aviso on the operations chat and,
// when the assigned technician has a distinct personal chat, there too.
// Delivery failure is logged and never surfaced to the caller.
func NotifyAvisoCreated(aviso *models.Aviso) bool {
	tg := GetTelegramService()
	if tg == nil {
		return false
	}

	origin := "👨‍🔧 <i>vía panel</i>"
	if aviso.CreatedByID == nil {
		origin = "🌐 <i>vía formulario web</i>"
	}

	lines := []string{
		fmt.Sprintf("🔔 <b>Nuevo aviso #%d</b>  %s", aviso.ID, origin),
		"",
		fmt.Sprintf("👤 <b>%s</b>", aviso.CustomerName),
		fmt.Sprintf("📞 %s", aviso.Phone),
	}
	if addr := aviso.FullAddress(); addr != "" {
		lines = append(lines, fmt.Sprintf("📍 %s", addr))
	}
	if aviso.Appliance != "" {
		appliance := aviso.Appliance
		if aviso.Brand != "" {
			appliance += " · " + aviso.Brand
		}
		lines = append(lines, fmt.Sprintf("🔧 %s", appliance))
	}
	if aviso.Description != "" {
		lines = append(lines, fmt.Sprintf("📝 %s", truncate(aviso.Description, previewCreated)))
	}

	text := strings.Join(lines, "\n")
	ok := tg.SendMessage(text)
	if !ok {
		log.Printf("Notification for aviso #%d creation was not delivered", aviso.ID)
	}

	// Also notify the assigned technician on their own chat
	if aviso.AssignedTo != nil && aviso.AssignedTo.TelegramChatID != nil {
		techChat := strings.TrimSpace(*aviso.AssignedTo.TelegramChatID)
		if techChat != "" && techChat != tg.OperationsChatID() {
			personal := text + fmt.Sprintf("\n\n📌 <i>Asignado a ti: %s</i>", aviso.AssignedTo.DisplayName())
			if !tg.SendMessageTo(techChat, personal) {
				log.Printf("Notification for aviso #%d to technician chat %s was not delivered", aviso.ID, techChat)
			}
		}
	}

	return ok
}

// NotifyStatusChange announces a status transition on the operations chat
func NotifyStatusChange(aviso *models.Aviso, previousStatus string) bool {
	tg := GetTelegramService()
	if tg == nil {
		return false
	}

	icon, ok := statusIcons[aviso.Status]
	if !ok {
		icon = "🔄"
	}
	previousLabel := statusLabelFor(previousStatus)

	lines := []string{
		fmt.Sprintf("%s <b>Aviso #%d → %s</b>", icon, aviso.ID, aviso.StatusLabel()),
		fmt.Sprintf("👤 %s  📞 %s", aviso.CustomerName, aviso.Phone),
		fmt.Sprintf("<i>%s → %s</i>", previousLabel, aviso.StatusLabel()),
	}
	if aviso.Status == models.StatusCompleted {
		lines = append(lines, "🎉 ¡Reparación completada!")
	}
	if aviso.Notes != "" {
		lines = append(lines, fmt.Sprintf("📝 %s", truncate(aviso.Notes, previewStatusChange)))
	}

	delivered := tg.SendMessage(strings.Join(lines, "\n"))
	if !delivered {
		log.Printf("Status change notification for aviso #%d was not delivered", aviso.ID)
	}
	return delivered
}

// NotifyDailySummary sends today's appointments ordered as the route
func NotifyDailySummary(avisos []models.Aviso) bool {
	tg := GetTelegramService()
	if tg == nil {
		return false
	}

	todayStr := time.Now().Format("02/01/2006")
	if len(avisos) == 0 {
		return tg.SendMessage(fmt.Sprintf(
			"📅 <b>Resumen del día — %s</b>\n\n✅ No tienes citas programadas para hoy.", todayStr))
	}

	lines := []string{fmt.Sprintf("📅 <b>Citas de hoy — %s (%d avisos)</b>", todayStr, len(avisos)), ""}
	for i, av := range avisos {
		lines = append(lines, fmt.Sprintf("<b>%d. %s</b>", i+1, av.CustomerName))
		lines = append(lines, fmt.Sprintf("   📞 %s", av.Phone))
		if addr := av.FullAddress(); addr != "" {
			lines = append(lines, fmt.Sprintf("   📍 %s", addr))
		}
		if av.Appliance != "" {
			lines = append(lines, fmt.Sprintf("   🔧 %s", av.Appliance))
		}
		if av.Notes != "" {
			lines = append(lines, fmt.Sprintf("   📝 %s", truncate(av.Notes, previewSummary)))
		}
		lines = append(lines, "")
	}

	return tg.SendMessage(strings.Join(lines, "\n"))
}

// NotifyPartsPending reminds about avisos that keep waiting for material,
// with the days elapsed since their last update. No message when empty.
func NotifyPartsPending(avisos []models.Aviso) bool {
	tg := GetTelegramService()
	if tg == nil || len(avisos) == 0 {
		return false
	}

	lines := []string{fmt.Sprintf("📦 <b>Esperando material (%d avisos)</b>", len(avisos)), ""}
	for _, av := range avisos {
		appliance := av.Appliance
		if appliance == "" {
			appliance = "electro"
		}
		lines = append(lines, fmt.Sprintf("• <b>%s</b> — %s", av.CustomerName, appliance))
		lines = append(lines, fmt.Sprintf("  📞 %s  ·  %d día(s) esperando", av.Phone, daysWaiting(av.UpdatedAt)))
		if av.Notes != "" {
			lines = append(lines, fmt.Sprintf("  📝 %s", truncate(av.Notes, previewBatch)))
		}
		lines = append(lines, "")
	}

	return tg.SendMessage(strings.Join(lines, "\n"))
}

// statusLabelFor resolves a display label for a raw status value
func statusLabelFor(status string) string {
	probe := models.Aviso{Status: status}
	return probe.StatusLabel()
}

// daysWaiting computes whole days elapsed since the given timestamp
func daysWaiting(since time.Time) int {
	if since.IsZero() {
		return 0
	}
	days := int(time.Since(since).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// truncate bounds a free-text preview without splitting runes
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
