package repository

import (
	"context"

	"verdupos/internal/model"

	"gorm.io/gorm"
)

// CategoriaRepository lists the categories shown as filters on the register.
type CategoriaRepository interface {
	ListarActivas(ctx context.Context) ([]model.Categoria, error)
}

type categoriaRepository struct{ db *gorm.DB }

func NewCategoriaRepository(db *gorm.DB) CategoriaRepository {
	return &categoriaRepository{db: db}
}

func (r *categoriaRepository) ListarActivas(ctx context.Context) ([]model.Categoria, error) {
	var list []model.Categoria
	err := r.db.WithContext(ctx).Where("activo = true").Order("nombre asc").Find(&list).Error
	return list, err
}
