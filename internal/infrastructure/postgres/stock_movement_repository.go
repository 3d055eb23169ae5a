package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `
	id, seq, product_id, type, quantity, previous_stock, new_stock,
	COALESCE(reference_type, ''), COALESCE(reference_id, ''), COALESCE(note, ''),
	COALESCE(adjustment_type, ''), COALESCE(reservation_status, ''),
	created_at, COALESCE(created_by, '')`

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m                             entity.StockMovement
		typ, adjustmentType, resState string
	)
	err := row.Scan(&m.ID, &m.Sequence, &m.ProductID, &typ, &m.Quantity, &m.PreviousStock, &m.NewStock,
		&m.ReferenceType, &m.ReferenceID, &m.Note, &adjustmentType, &resState, &m.CreatedAt, &m.CreatedBy)
	if err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	m.AdjustmentType = entity.AdjustmentType(adjustmentType)
	m.ReservationStatus = entity.ReservationStatus(resState)
	return &m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create persiste un movimiento y devuelve la secuencia asignada.
func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, product_id, type, quantity, previous_stock, new_stock,
			reference_type, reference_id, note, adjustment_type, reservation_status, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		movement.ID, movement.ProductID, string(movement.Type), movement.Quantity,
		movement.PreviousStock, movement.NewStock,
		nullable(movement.ReferenceType), nullable(movement.ReferenceID), nullable(movement.Note),
		nullable(string(movement.AdjustmentType)), nullable(string(movement.ReservationStatus)),
		movement.CreatedAt, nullable(movement.CreatedBy),
	).Scan(&movement.Sequence)
	if err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return fmt.Errorf("create stock movement: %w", domain.ErrReservationExists)
		case codeCheckViolation:
			return fmt.Errorf("create stock movement: %w: %v", domain.ErrInvalidQuantity, err)
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByProduct lista movimientos de un producto con filtros, más reciente primero.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return []*entity.StockMovement{}, nil
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *filter.From)
		pos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *filter.To)
		pos++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", pos)
		args = append(args, string(filter.Type))
		pos++
	}
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Limit, filter.Offset)
	return r.list(ctx, "list by product", query, args...)
}

// ListForReplay todos los movimientos del producto en orden de creación.
func (r *StockMovementRepo) ListForReplay(ctx context.Context, productID string) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list for replay",
		`SELECT `+movementColumns+` FROM stock_movements WHERE product_id = $1 ORDER BY seq`, productID)
}

// ListBetween movimientos que no son reservas creados en [from, to], en orden de creación.
func (r *StockMovementRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list between", `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE type <> 'RESERVED' AND created_at >= $1 AND created_at <= $2
		ORDER BY seq`, from, to)
}

// FindActiveReservation reserva activa de (producto, referencia) o nil.
func (r *StockMovementRepo) FindActiveReservation(ctx context.Context, productID, referenceID string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `
		SELECT `+movementColumns+`
		FROM stock_movements
		WHERE product_id = $1 AND reference_id = $2 AND is_reserved`, productID, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active reservation: %w", err)
	}
	return m, nil
}

// SumActiveReserved suma las reservas activas del producto.
func (r *StockMovementRepo) SumActiveReserved(ctx context.Context, productID string) (int64, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return 0, nil
	}
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)::BIGINT
		FROM stock_movements
		WHERE product_id = $1 AND is_reserved`, productID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum active reserved: %w", err)
	}
	return total, nil
}

// UpdateReservationStatus transición condicional; 0 filas afectadas = estado distinto de from.
func (r *StockMovementRepo) UpdateReservationStatus(ctx context.Context, id string, from, to entity.ReservationStatus) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_movements SET reservation_status = $3
		WHERE id = $1 AND type = 'RESERVED' AND reservation_status = $2`, id, string(from), string(to))
	if err != nil {
		if pgCode(err) == codeRaiseException {
			return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
		}
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: movimiento %s no está en estado %s", domain.ErrInvalidTransition, id, from)
	}
	return nil
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
