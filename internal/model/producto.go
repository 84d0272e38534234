package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unidades de medida soportadas por la balanza.
const (
	UnidadKg     = "kg"     // mass-based: quantity comes from the scale, 3 decimals
	UnidadUnidad = "unidad" // count-based: integral quantities
)

// Producto is read-only for the register; the catalog owns it.
type Producto struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Nombre      string          `gorm:"index;not null" json:"nombre"`
	Precio      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"precio"`
	Unidad      string          `gorm:"type:varchar(10);not null;default:'kg'" json:"unidad"`
	CategoriaID *uuid.UUID      `gorm:"type:uuid;index" json:"categoria_id,omitempty"`
	ImagenURL   *string         `json:"imagen_url,omitempty"`
	Activo      bool            `gorm:"not null;default:true" json:"activo"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`

	Categoria *Categoria `gorm:"foreignKey:CategoriaID" json:"categoria,omitempty"`
}

// EsPesable reports whether the quantity of this product is measured by weight.
func (p Producto) EsPesable() bool { return p.Unidad == UnidadKg }

// NombreCategoria returns the category label, "Varios" when uncategorised.
func (p Producto) NombreCategoria() string {
	if p.Categoria == nil || p.Categoria.Nombre == "" {
		return "Varios"
	}
	return p.Categoria.Nombre
}
