package repository

import (
	"context"

	"verdupos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductoRepository is the read-only catalog contract. Services depend on
// this interface, not on the concrete GORM implementation.
type ProductoRepository interface {
	ListActivos(ctx context.Context) ([]model.Producto, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) ListActivos(ctx context.Context) ([]model.Producto, error) {
	var list []model.Producto
	err := r.db.WithContext(ctx).
		Preload("Categoria").
		Where("activo = true").
		Order("nombre asc").
		Find(&list).Error
	return list, err
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Preload("Categoria").First(&p, "id = ? AND activo = true", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}
