package repository

import (
	"context"
	"time"

	"verdupos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CajaRepository is append-only: there is deliberately no Update or Delete.
type CajaRepository interface {
	// InsertarMovimiento writes m and sets m.ID / m.CreatedAt from the store.
	InsertarMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	// ListMovimientos returns movements since desde, oldest first.
	// uuid.Nil lists every cashier, here and in SumMovimientosPorTipo.
	ListMovimientos(ctx context.Context, usuarioID uuid.UUID, desde time.Time) ([]model.MovimientoCaja, error)
	// SumMovimientosPorTipo returns SUM(monto) grouped by tipo since desde.
	SumMovimientosPorTipo(ctx context.Context, usuarioID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) InsertarMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	if err := m.Validar(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, usuarioID uuid.UUID, desde time.Time) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Scopes(porUsuario(usuarioID)).
		Where("created_at >= ?", desde).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) SumMovimientosPorTipo(ctx context.Context, usuarioID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Tipo  string
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.MovimientoCaja{}).
		Select("tipo, COALESCE(SUM(monto), 0) AS total").
		Scopes(porUsuario(usuarioID)).
		Where("created_at >= ?", desde).
		Group("tipo").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Tipo] = row.Total
	}
	return sums, nil
}
