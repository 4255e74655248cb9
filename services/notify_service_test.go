package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/tests/testutil"
)

func TestNotifyAvisoCreated(t *testing.T) {
	mock := NewMockTelegramService("-100555")
	mock.SetAsMockForTesting()

	creatorID := uint(3)

	t.Run("panel origin", func(t *testing.T) {
		mock.Clear()
		ok := NotifyAvisoCreated(&models.Aviso{
			ID:           10,
			CustomerName: "Ana García",
			Phone:        "600111222",
			CreatedByID:  &creatorID,
		})
		assert.True(t, ok)
		require.Len(t, mock.Sent(), 1)
		assert.Contains(t, mock.LastMessage().Text, "vía panel")
		assert.Contains(t, mock.LastMessage().Text, "Nuevo aviso #10")
	})

	t.Run("web form origin", func(t *testing.T) {
		mock.Clear()
		NotifyAvisoCreated(&models.Aviso{ID: 11, CustomerName: "Ana", Phone: "600111222"})
		assert.Contains(t, mock.LastMessage().Text, "vía formulario web")
	})

	t.Run("assigned technician with personal chat gets a copy", func(t *testing.T) {
		mock.Clear()
		NotifyAvisoCreated(&models.Aviso{
			ID:           12,
			CustomerName: "Ana",
			Phone:        "600111222",
			CreatedByID:  &creatorID,
			AssignedTo: &models.User{
				Username:       "paco",
				TelegramChatID: testutil.StrPtr("777888"),
			},
		})

		sent := mock.Sent()
		require.Len(t, sent, 2)
		assert.Equal(t, "-100555", sent[0].ChatID)
		assert.Equal(t, "777888", sent[1].ChatID)
		assert.Contains(t, sent[1].Text, "Asignado a ti: paco")
	})

	t.Run("technician on the operations chat is not notified twice", func(t *testing.T) {
		mock.Clear()
		NotifyAvisoCreated(&models.Aviso{
			ID:           13,
			CustomerName: "Ana",
			Phone:        "600111222",
			CreatedByID:  &creatorID,
			AssignedTo: &models.User{
				Username:       "paco",
				TelegramChatID: testutil.StrPtr("-100555"),
			},
		})
		assert.Len(t, mock.Sent(), 1)
	})

	t.Run("long description is truncated", func(t *testing.T) {
		mock.Clear()
		NotifyAvisoCreated(&models.Aviso{
			ID:           14,
			CustomerName: "Ana",
			Phone:        "600111222",
			Description:  strings.Repeat("ñ", 500),
		})
		// 300 runes of preview at most, never a broken rune
		assert.NotContains(t, mock.LastMessage().Text, strings.Repeat("ñ", 301))
		assert.Contains(t, mock.LastMessage().Text, strings.Repeat("ñ", 300))
	})
}

func TestNotifyStatusChange(t *testing.T) {
	mock := NewMockTelegramService("-100555")
	mock.SetAsMockForTesting()

	aviso := &models.Aviso{
		ID:           7,
		CustomerName: "Ana García",
		Phone:        "600111222",
		Status:       models.StatusCompleted,
	}

	ok := NotifyStatusChange(aviso, models.StatusToday)
	assert.True(t, ok)

	text := mock.LastMessage().Text
	assert.Contains(t, text, "Aviso #7")
	assert.Contains(t, text, "Hoy → Finalizado")
	assert.Contains(t, text, "¡Reparación completada!")

	// Delivery failures are reported as false, never as a panic or error
	mock.FailNext = true
	assert.False(t, NotifyStatusChange(aviso, models.StatusToday))
}

func TestNotifyDailySummary(t *testing.T) {
	mock := NewMockTelegramService("-100555")
	mock.SetAsMockForTesting()

	t.Run("empty day message", func(t *testing.T) {
		mock.Clear()
		assert.True(t, NotifyDailySummary(nil))
		assert.Contains(t, mock.LastMessage().Text, "No tienes citas programadas")
	})

	t.Run("numbered route", func(t *testing.T) {
		mock.Clear()
		avisos := []models.Aviso{
			{CustomerName: "Primero", Phone: "600000001", Street: "Calle A"},
			{CustomerName: "Segundo", Phone: "600000002", Street: "Calle B"},
		}
		assert.True(t, NotifyDailySummary(avisos))

		text := mock.LastMessage().Text
		assert.Contains(t, text, "1. Primero")
		assert.Contains(t, text, "2. Segundo")
		assert.Contains(t, text, "(2 avisos)")
	})
}

func TestNotifyPartsPending(t *testing.T) {
	mock := NewMockTelegramService("-100555")
	mock.SetAsMockForTesting()

	t.Run("empty list sends nothing", func(t *testing.T) {
		mock.Clear()
		assert.False(t, NotifyPartsPending(nil))
		assert.Empty(t, mock.Sent())
	})

	t.Run("reports days waiting", func(t *testing.T) {
		mock.Clear()
		avisos := []models.Aviso{{
			CustomerName: "Ana",
			Phone:        "600111222",
			Appliance:    "Lavadora",
			UpdatedAt:    time.Now().AddDate(0, 0, -3),
		}}
		assert.True(t, NotifyPartsPending(avisos))

		text := mock.LastMessage().Text
		assert.Contains(t, text, "Esperando material")
		assert.Contains(t, text, "3 día(s) esperando")
	})
}

func TestDaysWaiting(t *testing.T) {
	assert.Equal(t, 0, daysWaiting(time.Time{}))
	assert.Equal(t, 0, daysWaiting(time.Now()))
	assert.Equal(t, 2, daysWaiting(time.Now().Add(-49*time.Hour)))
	assert.Equal(t, 0, daysWaiting(time.Now().Add(time.Hour)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", 10))
	assert.Equal(t, "ááá", truncate("áááá", 3))
	assert.Equal(t, "", truncate("", 5))
}
