package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/models"
)

// TelegramUpdate is the inbound webhook payload. Anything without a
// message (channel posts, callbacks, member updates) is ignored.
type TelegramUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *TelegramMessage `json:"message"`
	EditedMessage *TelegramMessage `json:"edited_message"`
}

// TelegramMessage carries the parts of a chat message the dispatcher needs
type TelegramMessage struct {
	Text string       `json:"text"`
	Chat TelegramChat `json:"chat"`
	From *TelegramUserRef `json:"from"`
}

// TelegramChat identifies the chat a message arrived from
type TelegramChat struct {
	ID int64 `json:"id"`
}

// TelegramUserRef identifies the sender of a message
type TelegramUserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ProcessUpdate dispatches an inbound chat command. It runs with full
// privilege: the webhook shared secret is the trust boundary, not the
// sender. Every reply goes to the operations chat, which acts as a
// single shared feed. Returns true when the update carried a command.
func ProcessUpdate(db *gorm.DB, update *TelegramUpdate) bool {
	message := update.Message
	if message == nil {
		message = update.EditedMessage
	}
	if message == nil {
		return false
	}

	text := strings.TrimSpace(message.Text)
	if !strings.HasPrefix(text, "/") {
		return false
	}

	command := text
	args := ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		command = text[:i]
		args = strings.TrimSpace(text[i:])
	}
	command = strings.ToLower(command)
	// "/comando@BotName" → "/comando"
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}

	switch command {
	case "/hoy":
		cmdToday(db)
	case "/pendientes":
		cmdPending(db)
	case "/material":
		cmdAwaitingParts(db)
	case "/morosos":
		cmdDelinquents(db)
	case "/buscar":
		cmdSearch(db, args)
	case "/aviso":
		cmdDetail(db, args)
	case "/stats":
		cmdStats(db)
	case "/ayuda", "/help", "/start":
		cmdHelp()
	default:
		GetTelegramService().SendMessage(fmt.Sprintf(
			"❓ Comando desconocido: <code>%s</code>\nEscribe /ayuda para ver los disponibles.", command))
	}

	return true
}

// formatAvisoLine renders one aviso for a chat listing. idx 0 omits numbering.
func formatAvisoLine(av *models.Aviso, idx int) string {
	prefix := ""
	if idx > 0 {
		prefix = fmt.Sprintf("%d. ", idx)
	}
	lines := []string{
		fmt.Sprintf("%s<b>%s</b>  <code>#%d</code>", prefix, av.CustomerName, av.ID),
		fmt.Sprintf("   📞 %s", av.Phone),
	}
	if addr := av.FullAddress(); addr != "" {
		lines = append(lines, fmt.Sprintf("   📍 %s", addr))
	}
	if av.Appliance != "" {
		appliance := av.Appliance
		if av.Brand != "" {
			appliance += " · " + av.Brand
		}
		lines = append(lines, fmt.Sprintf("   🔧 %s", appliance))
	}
	if av.Notes != "" {
		lines = append(lines, fmt.Sprintf("   📝 %s", truncate(av.Notes, previewBatch)))
	}
	return strings.Join(lines, "\n")
}

func cmdToday(db *gorm.DB) {
	today := time.Now()
	avisos, err := TodayAppointments(db, nil, today, "street")
	if err != nil {
		replyQueryError(err)
		return
	}

	todayStr := today.Format("02/01/2006")
	if len(avisos) == 0 {
		GetTelegramService().SendMessage(fmt.Sprintf("📅 <b>Hoy %s</b>\n\n✅ Sin citas para hoy.", todayStr))
		return
	}

	lines := []string{fmt.Sprintf("📅 <b>Citas de hoy — %s (%d)</b>", todayStr, len(avisos)), ""}
	for i := range avisos {
		lines = append(lines, formatAvisoLine(&avisos[i], i+1), "")
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdPending(db *gorm.DB) {
	avisos, err := PendingAvisos(db, nil, 10)
	if err != nil {
		replyQueryError(err)
		return
	}

	if len(avisos) == 0 {
		GetTelegramService().SendMessage("⏳ <b>Pendientes</b>\n\n✅ No hay avisos pendientes.")
		return
	}

	lines := []string{fmt.Sprintf("⏳ <b>Pendientes (%d)</b>", len(avisos)), ""}
	for i := range avisos {
		lines = append(lines, formatAvisoLine(&avisos[i], 0), "")
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdAwaitingParts(db *gorm.DB) {
	avisos, err := AwaitingPartsAvisos(db, nil)
	if err != nil {
		replyQueryError(err)
		return
	}

	if len(avisos) == 0 {
		GetTelegramService().SendMessage("📦 <b>Material</b>\n\n✅ Ningún aviso esperando material.")
		return
	}

	lines := []string{fmt.Sprintf("📦 <b>Esperando material (%d)</b>", len(avisos)), ""}
	for i := range avisos {
		lines = append(lines, formatAvisoLine(&avisos[i], 0))
		lines = append(lines, fmt.Sprintf("   ⏱ %d día(s) esperando", daysWaiting(avisos[i].UpdatedAt)), "")
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdDelinquents(db *gorm.DB) {
	avisos, err := DelinquentAvisos(db, nil)
	if err != nil {
		replyQueryError(err)
		return
	}

	if len(avisos) == 0 {
		GetTelegramService().SendMessage("💰 <b>Morosos</b>\n\n✅ Sin clientes morosos.")
		return
	}

	total := 0.0
	for i := range avisos {
		total += avisos[i].AmountDue()
	}
	total = models.Round2(total)

	lines := []string{fmt.Sprintf("⚠️ <b>Morosos (%d) — %.2f € pendientes</b>", len(avisos), total), ""}
	for i := range avisos {
		av := &avisos[i]
		lines = append(lines,
			fmt.Sprintf("<b>%s</b>  <code>#%d</code>", av.CustomerName, av.ID),
			fmt.Sprintf("   📞 %s", av.Phone),
			fmt.Sprintf("   💶 %.2f €", av.AmountDue()))
		if av.Appliance != "" {
			lines = append(lines, fmt.Sprintf("   🔧 %s", av.Appliance))
		}
		lines = append(lines, "")
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdSearch(db *gorm.DB, term string) {
	if term == "" {
		GetTelegramService().SendMessage("🔍 Uso: /buscar nombre o teléfono\nEjemplo: /buscar García")
		return
	}

	avisos, err := SearchAvisos(db, nil, term, 8, false)
	if err != nil {
		replyQueryError(err)
		return
	}

	if len(avisos) == 0 {
		GetTelegramService().SendMessage(fmt.Sprintf("🔍 Sin resultados para \"<b>%s</b>\"", term))
		return
	}

	lines := []string{fmt.Sprintf("🔍 <b>Búsqueda: \"%s\" (%d)</b>", term, len(avisos)), ""}
	for i := range avisos {
		lines = append(lines, formatAvisoLine(&avisos[i], 0))
		lines = append(lines, fmt.Sprintf("   📌 %s", avisos[i].StatusLabel()), "")
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdDetail(db *gorm.DB, arg string) {
	if !isDigits(arg) {
		GetTelegramService().SendMessage("❌ Uso: /aviso número\nEjemplo: /aviso 42")
		return
	}

	var aviso models.Aviso
	if err := db.First(&aviso, "id = ?", arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			GetTelegramService().SendMessage(fmt.Sprintf("❌ Aviso #%s no encontrado.", arg))
		} else {
			replyQueryError(err)
		}
		return
	}

	lines := []string{
		fmt.Sprintf("📋 <b>Aviso #%d</b>  —  %s", aviso.ID, aviso.StatusLabel()),
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
		lines = append(lines, fmt.Sprintf("📝 %s", aviso.Description))
	}
	if aviso.Notes != "" {
		lines = append(lines, fmt.Sprintf("🗒 Notas: %s", aviso.Notes))
	}
	if aviso.AppointmentDate != nil {
		lines = append(lines, fmt.Sprintf("🗓 Cita: %s", aviso.AppointmentDate.Format("02/01/2006")))
	}
	if aviso.HasFinancialData() {
		lines = append(lines, "")
		if aviso.LaborPrice != nil {
			lines = append(lines, fmt.Sprintf("💶 Mano de obra: %.2f €", *aviso.LaborPrice))
		}
		if aviso.MaterialsCost != nil {
			lines = append(lines, fmt.Sprintf("🔩 Materiales: %.2f €", *aviso.MaterialsCost))
		}
		lines = append(lines, fmt.Sprintf("💰 Beneficio: %.2f €", aviso.Profit()))
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdStats(db *gorm.DB) {
	today := time.Now()
	counts, err := CountsFor(db, nil, today)
	if err != nil {
		replyQueryError(err)
		return
	}
	summary, err := SummaryFor(db, nil, today)
	if err != nil {
		replyQueryError(err)
		return
	}

	var completedToday int64
	if err := db.Model(&models.Aviso{}).
		Where("status = ? AND updated_at >= ?", models.StatusCompleted, models.DateOnly(today)).
		Count(&completedToday).Error; err != nil {
		replyQueryError(err)
		return
	}

	lines := []string{
		fmt.Sprintf("📊 <b>Estadísticas — %s</b>", today.Format("02/01/2006")),
		"",
		fmt.Sprintf("📅 Citas hoy:        <b>%d</b>", counts.Today),
		fmt.Sprintf("⏳ Pendientes:       <b>%d</b>", counts.Pending),
		fmt.Sprintf("📦 Esperando mat.:   <b>%d</b>", counts.AwaitingParts),
		fmt.Sprintf("🔁 Segunda visita:   <b>%d</b>", counts.SecondVisit),
		fmt.Sprintf("✅ Finalizados hoy:  <b>%d</b>", completedToday),
		fmt.Sprintf("📂 Total activos:    <b>%d</b>", counts.TotalActive),
		"",
		fmt.Sprintf("💶 Facturado este mes: <b>%.2f €</b>", summary.BilledMonth),
		fmt.Sprintf("💰 Beneficio este mes: <b>%.2f €</b>", summary.ProfitMonth),
	}
	GetTelegramService().SendMessage(strings.Join(lines, "\n"))
}

func cmdHelp() {
	GetTelegramService().SendMessage(
		"🤖 <b>Comandos disponibles</b>\n\n" +
			"/hoy — Citas de hoy con dirección\n" +
			"/pendientes — Avisos sin asignar\n" +
			"/material — Esperando piezas\n" +
			"/morosos — Clientes morosos\n" +
			"/buscar <i>texto</i> — Busca por nombre/tel/calle\n" +
			"/aviso <i>número</i> — Detalle completo de un aviso\n" +
			"/stats — Resumen y facturación del mes\n" +
			"/ayuda — Esta ayuda\n")
}

func replyQueryError(err error) {
	GetTelegramService().SendMessage(fmt.Sprintf("❌ Error consultando la base de datos: %v", err))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
