package repository

import (
	"context"
	"errors"
	"time"

	"verdupos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VentaRepository is the sale store. Header and lines are two independent
// statements; callers that want them atomic pass a transaction as tx.
// A nil tx runs the statement on the repository's own connection.
type VentaRepository interface {
	// InsertarCabecera writes the header only (never its Items) and sets v.ID.
	InsertarCabecera(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	// InsertarLineas writes all items in one batched statement. Rows whose id
	// already exists are skipped, so re-issuing a batch is harmless.
	InsertarLineas(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID, items []model.VentaItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	ContarLineas(ctx context.Context, ventaID uuid.UUID) (int64, error)
	// ListRecientes returns the latest headers, newest first, with the
	// cashier's name.
	ListRecientes(ctx context.Context, limite int) ([]VentaReciente, error)
	// SumVentasPorMetodo returns SUM(total) grouped by metodo_pago since desde.
	// uuid.Nil aggregates every cashier.
	SumVentasPorMetodo(ctx context.Context, usuarioID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

// VentaReciente is a header row as listed to operators.
type VentaReciente struct {
	ID            uuid.UUID
	UsuarioID     uuid.UUID
	UsuarioNombre string
	Total         decimal.Decimal
	MetodoPago    string
	Entregado     decimal.Decimal
	CreatedAt     time.Time
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

func (r *ventaRepo) InsertarCabecera(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	if err := v.Validar(); err != nil {
		return err
	}
	return r.conn(ctx, tx).Omit(clause.Associations).Create(v).Error
}

func (r *ventaRepo) InsertarLineas(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID, items []model.VentaItem) error {
	if ventaID == uuid.Nil {
		return errors.New("venta_id requerido")
	}
	if len(items) == 0 {
		return errors.New("lote de items vacio")
	}
	batch := make([]model.VentaItem, len(items))
	for i, it := range items {
		it.VentaID = ventaID
		it.ID = model.ItemID(ventaID, it.ProductoID)
		if err := it.Validar(); err != nil {
			return err
		}
		batch[i] = it
	}
	return r.conn(ctx, tx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&batch).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items").First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) ContarLineas(ctx context.Context, ventaID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.VentaItem{}).Where("venta_id = ?", ventaID).Count(&n).Error
	return n, err
}

func (r *ventaRepo) ListRecientes(ctx context.Context, limite int) ([]VentaReciente, error) {
	var rows []VentaReciente
	err := r.db.WithContext(ctx).
		Table("ventas").
		Select("ventas.id, ventas.usuario_id, COALESCE(usuarios.nombre, '') AS usuario_nombre, " +
			"ventas.total, ventas.metodo_pago, ventas.entregado, ventas.created_at").
		Joins("LEFT JOIN usuarios ON usuarios.id = ventas.usuario_id").
		Order("ventas.created_at DESC").
		Limit(limite).
		Scan(&rows).Error
	return rows, err
}

func (r *ventaRepo) SumVentasPorMetodo(ctx context.Context, usuarioID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	var rows []struct {
		MetodoPago string
		Total      decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Venta{}).
		Select("metodo_pago, COALESCE(SUM(total), 0) AS total").
		Scopes(porUsuario(usuarioID)).
		Where("created_at >= ?", desde).
		Group("metodo_pago").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.MetodoPago] = row.Total
	}
	return sums, nil
}

// porUsuario filters by cashier; uuid.Nil leaves the query unfiltered.
func porUsuario(usuarioID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if usuarioID == uuid.Nil {
			return db
		}
		return db.Where("usuario_id = ?", usuarioID)
	}
}
