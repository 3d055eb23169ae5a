package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	inv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReplenishmentConfig parámetros de lectura del monitor.
type ReplenishmentConfig struct {
	TurnoverWindow      time.Duration   // ventana hacia atrás para la rotación
	ReorderTargetFactor decimal.Decimal // stock ideal = punto de reorden * factor
}

// DefaultReplenishmentConfig ventana de 30 días y factor 1.5.
func DefaultReplenishmentConfig() ReplenishmentConfig {
	return ReplenishmentConfig{
		TurnoverWindow:      30 * 24 * time.Hour,
		ReorderTargetFactor: decimal.NewFromFloat(1.5),
	}
}

// ReplenishmentMonitor agregaciones de solo lectura: stock bajo, resumen y lista de reposición.
// Se recalcula en cada llamada; no guarda caché.
type ReplenishmentMonitor struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	turnover  inv.TurnoverCalculator
	cfg       ReplenishmentConfig
	clock     Clock
}

// NewReplenishmentMonitor construye el monitor.
func NewReplenishmentMonitor(
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	turnover inv.TurnoverCalculator,
	cfg ReplenishmentConfig,
	clock Clock,
) *ReplenishmentMonitor {
	return &ReplenishmentMonitor{
		products:  products,
		movements: movements,
		turnover:  turnover,
		cfg:       cfg,
		clock:     clock,
	}
}

// NeedsReordering indica si el saldo está en o por debajo del punto de reorden.
func (m *ReplenishmentMonitor) NeedsReordering(ctx context.Context, productID string) (bool, error) {
	product, err := m.products.GetByID(ctx, productID)
	if err != nil {
		return false, err
	}
	if product == nil {
		return false, domain.ErrNotFound
	}
	return product.NeedsReordering(), nil
}

// LowStockProducts productos activos con saldo <= punto de reorden,
// por saldo ascendente y luego por ID.
func (m *ReplenishmentMonitor) LowStockProducts(ctx context.Context) ([]*entity.Product, error) {
	products, err := m.products.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []*entity.Product{}
	}
	return products, nil
}

// StockSummary resumen del inventario activo con la rotación de la ventana configurada.
func (m *ReplenishmentMonitor) StockSummary(ctx context.Context) (*dto.StockSummaryDTO, error) {
	return m.StockSummaryBetween(ctx, nil, nil)
}

// StockSummaryBetween igual que StockSummary pero con la rotación medida en [from, to].
// to nulo es ahora y from nulo es to menos la ventana configurada. Los conteos y el valor
// son siempre los actuales; to posterior a ahora se recorta a ahora.
func (m *ReplenishmentMonitor) StockSummaryBetween(ctx context.Context, from, to *time.Time) (*dto.StockSummaryDTO, error) {
	now := m.clock.Now()
	window := inv.TurnoverWindow{To: now}
	if to != nil && to.Before(now) {
		window.To = *to
	}
	window.From = window.To.Add(-m.cfg.TurnoverWindow)
	if from != nil {
		window.From = *from
	}
	if window.From.After(window.To) {
		return nil, fmt.Errorf("%w: la ventana empieza después de terminar", domain.ErrInvalidInput)
	}

	products, err := m.products.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	// Hasta ahora: los movimientos posteriores a To permiten deducir el saldo al cierre.
	movements, err := m.movements.ListBetween(ctx, window.From, now)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string][]*entity.StockMovement)
	afterWindow := make(map[string][]*entity.StockMovement)
	for _, mov := range movements {
		if mov.CreatedAt.After(window.To) {
			afterWindow[mov.ProductID] = append(afterWindow[mov.ProductID], mov)
			continue
		}
		byProduct[mov.ProductID] = append(byProduct[mov.ProductID], mov)
	}

	summary := &dto.StockSummaryDTO{
		TotalStockValue: decimal.Zero,
		TurnoverMethod:  m.turnover.Method(),
		WindowFrom:      window.From,
		WindowTo:        window.To,
	}
	histories := make([]inv.ProductHistory, 0, len(products))
	for _, p := range products {
		summary.TotalProducts++
		if p.NeedsReordering() {
			summary.LowStockCount++
		}
		if p.IsOutOfStock() {
			summary.OutOfStockCount++
		}
		summary.TotalStockValue = summary.TotalStockValue.Add(p.StockValue())
		histories = append(histories, inv.ProductHistory{
			ProductID: p.ID,
			EndStock:  p.CurrentStock - inv.NetDelta(afterWindow[p.ID]),
			Movements: byProduct[p.ID],
		})
	}
	summary.StockTurnoverRate = m.turnover.Rate(window, histories)
	return summary, nil
}

// ReplenishmentList devuelve los productos bajo punto de reorden con la cantidad sugerida
// de pedido, ordenados por mayor déficit primero.
func (m *ReplenishmentMonitor) ReplenishmentList(ctx context.Context) ([]dto.ReplenishmentSuggestionDTO, error) {
	low, err := m.products.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(low))
	for _, p := range low {
		idealStock := decimal.NewFromInt(p.ReorderLevel).Mul(m.cfg.ReorderTargetFactor)
		suggested := idealStock.Ceil().IntPart() - p.CurrentStock
		if suggested < 0 {
			suggested = 0
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:           p.ID,
			SKU:                 p.SKU,
			ProductName:         p.Name,
			CurrentStock:        p.CurrentStock,
			ReorderLevel:        p.ReorderLevel,
			IdealStock:          idealStock,
			SuggestedOrderQty:   suggested,
			UnitPrice:           p.Price,
			EstimatedOrderValue: decimal.NewFromInt(suggested).Mul(p.Price),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA := a.ReorderLevel - a.CurrentStock
		defB := b.ReorderLevel - b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		return a.ProductID < b.ProductID
	})
	// 1 = más urgente
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
