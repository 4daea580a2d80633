package repository

import (
	"strings"
	"testing"
	"time"

	"TravelFX/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRowsFlattensDays(t *testing.T) {
	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	run := &models.ForecastRun{
		ID:          "run-1",
		Pair:        models.CurrencyPair{Base: "USD", Quote: "JPY"},
		Path:        models.PathDirect,
		Model:       "trend",
		HorizonDays: 2,
		CreatedAt:   created,
		Daily: []models.DailyForecast{
			{Date: created.AddDate(0, 0, 1), P10: 1, P50: 2, P90: 3},
			{Date: created.AddDate(0, 0, 2), P10: 4, P50: 5, P90: 6},
		},
	}

	rows := runRows(run)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(strings.Split(rowColumns, ",")))
	assert.Equal(t, []interface{}{"run-1", created, "USD", "JPY", "direct", "trend", uint16(2),
		created.AddDate(0, 0, 2), 4.0, 5.0, 6.0}, rows[1])

	assert.Nil(t, runRows(nil))
	assert.Nil(t, runRows(&models.ForecastRun{}))
}

func TestForecastRunSchemaNamesTable(t *testing.T) {
	stmts := ForecastRunSchema("fx", "forecast_runs")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "fx.forecast_runs")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}
