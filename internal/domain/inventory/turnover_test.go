package inventory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var windowStart = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func window(days int) TurnoverWindow {
	return TurnoverWindow{From: windowStart, To: windowStart.AddDate(0, 0, days)}
}

func outAt(day int, qty int64) *entity.StockMovement {
	return &entity.StockMovement{
		Type:      entity.MovementTypeOut,
		Quantity:  qty,
		CreatedAt: windowStart.AddDate(0, 0, day),
	}
}

func TestEndpointTurnover(t *testing.T) {
	// inicio 100, salen 40 -> fin 60; promedio 80; rotación 0.5
	h := ProductHistory{ProductID: "p1", EndStock: 60, Movements: []*entity.StockMovement{outAt(1, 40)}}
	assert.Equal(t, int64(100), h.StartStock())

	rate := EndpointTurnover{}.Rate(window(10), []ProductHistory{h})
	assert.True(t, decimal.RequireFromString("0.5").Equal(rate), rate.String())
}

func TestTimeWeightedTurnover(t *testing.T) {
	// 100 durante 5 días y 60 durante 5 días -> promedio 80
	h := ProductHistory{ProductID: "p1", EndStock: 60, Movements: []*entity.StockMovement{outAt(5, 40)}}
	rate := TimeWeightedTurnover{}.Rate(window(10), []ProductHistory{h})
	assert.True(t, decimal.RequireFromString("0.5").Equal(rate), rate.String())

	// la misma salida al día 1 baja el promedio: 100*1 + 60*9 = 640 / 10 = 64
	early := ProductHistory{ProductID: "p1", EndStock: 60, Movements: []*entity.StockMovement{outAt(1, 40)}}
	rate = TimeWeightedTurnover{}.Rate(window(10), []ProductHistory{early})
	assert.True(t, decimal.RequireFromString("0.625").Equal(rate), rate.String())
}

func TestTurnover_PromedioNoPositivo(t *testing.T) {
	h := ProductHistory{ProductID: "p1", EndStock: 0}
	assert.True(t, EndpointTurnover{}.Rate(window(30), []ProductHistory{h}).IsZero())
	assert.True(t, TimeWeightedTurnover{}.Rate(window(30), []ProductHistory{h}).IsZero())
	assert.True(t, EndpointTurnover{}.Rate(window(30), nil).IsZero())
}

func TestTurnover_IgnoraAjustes(t *testing.T) {
	adj := &entity.StockMovement{
		Type:           entity.MovementTypeAdjustment,
		AdjustmentType: entity.AdjustmentDecrease,
		Quantity:       20,
		CreatedAt:      windowStart.AddDate(0, 0, 2),
	}
	h := ProductHistory{ProductID: "p1", EndStock: 80, Movements: []*entity.StockMovement{adj}}
	assert.True(t, EndpointTurnover{}.Rate(window(10), []ProductHistory{h}).IsZero())
}

func TestNewTurnoverCalculator(t *testing.T) {
	c, err := NewTurnoverCalculator("")
	require.NoError(t, err)
	assert.Equal(t, TurnoverEndpoint, c.Method())

	c, err = NewTurnoverCalculator(TurnoverTimeWeighted)
	require.NoError(t, err)
	assert.Equal(t, TurnoverTimeWeighted, c.Method())

	_, err = NewTurnoverCalculator("fifo")
	assert.Error(t, err)
}
