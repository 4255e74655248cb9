package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/tests/testutil"
)

func TestRunMorningDigest(t *testing.T) {
	db := testutil.OpenDB(t)
	config.SetDB(db)
	mock := NewMockTelegramService("-100555")
	mock.SetAsMockForTesting()

	t.Run("sends summary and parts reminder", func(t *testing.T) {
		mock.Clear()

		testutil.CreateAviso(t, db, func(a *models.Aviso) {
			a.CustomerName = "Pepa López"
			a.Status = models.StatusToday
			appointment := models.DateOnly(time.Now())
			a.AppointmentDate = &appointment
		})
		testutil.CreateAviso(t, db, func(a *models.Aviso) {
			a.CustomerName = "Luis Ortega"
			a.Status = models.StatusAwaitingParts
		})

		RunMorningDigest()

		sent := mock.Sent()
		require.Len(t, sent, 2)
		assert.Contains(t, sent[0].Text, "Citas de hoy")
		assert.Contains(t, sent[0].Text, "Pepa López")
		assert.Contains(t, sent[1].Text, "Esperando material")
		assert.Contains(t, sent[1].Text, "Luis Ortega")
	})

	t.Run("skips parts reminder when nothing is waiting", func(t *testing.T) {
		require.NoError(t, db.Where("status = ?", models.StatusAwaitingParts).
			Delete(&models.Aviso{}).Error)
		mock.Clear()

		RunMorningDigest()

		sent := mock.Sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Text, "Citas de hoy")
	})
}

func TestStartScheduler(t *testing.T) {
	db := testutil.OpenDB(t)
	config.SetDB(db)
	NewMockTelegramService("-100555").SetAsMockForTesting()

	svc, err := StartScheduler(&config.Config{DailySummaryHour: 8})
	require.NoError(t, err)
	require.NotNil(t, svc)
	svc.Stop()
}
