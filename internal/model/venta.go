package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Métodos de pago.
const (
	MetodoEfectivo  = "efectivo"
	MetodoBilletera = "billetera"
	MetodoTarjeta   = "tarjeta"
)

// Venta is the sale header. Immutable once created; the ID is assigned by
// the store on insert.
type Venta struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago string          `gorm:"type:varchar(20);not null"`
	// Entregado is the cash tendered; zero for non-cash methods.
	Entregado decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"index"`

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

// TableName overrides GORM's default pluralization.
func (Venta) TableName() string { return "ventas" }

// VentaItem is one sale line. PrecioUnitario is captured at sale time and
// never re-read from the catalog.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName overrides GORM's default pluralization.
func (VentaItem) TableName() string { return "venta_items" }

// itemNamespace seeds the deterministic line ids.
var itemNamespace = uuid.MustParse("6f1c2b9e-4c1e-4f0a-9a57-3e8d7c2a1b44")

// ItemID derives the line id from its header and product so that re-issuing
// the same batch against the same header addresses the same rows.
func ItemID(ventaID, productoID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(itemNamespace, append(ventaID[:], productoID[:]...))
}

// MetodoPagoValido reports whether m is one of the accepted payment methods.
func MetodoPagoValido(m string) bool {
	switch m {
	case MetodoEfectivo, MetodoBilletera, MetodoTarjeta:
		return true
	}
	return false
}

// Validar checks the header at the write boundary.
func (v *Venta) Validar() error {
	switch {
	case v.UsuarioID == uuid.Nil:
		return errors.New("venta sin usuario")
	case v.Total.IsNegative():
		return errors.New("total de venta negativo")
	case !MetodoPagoValido(v.MetodoPago):
		return fmt.Errorf("metodo de pago %q invalido", v.MetodoPago)
	case v.Entregado.IsNegative():
		return errors.New("monto entregado negativo")
	}
	return nil
}

// Validar checks a line at the write boundary.
func (i *VentaItem) Validar() error {
	switch {
	case i.VentaID == uuid.Nil:
		return errors.New("item sin venta")
	case i.ProductoID == uuid.Nil:
		return errors.New("item sin producto")
	case !i.Cantidad.IsPositive():
		return fmt.Errorf("cantidad %s invalida", i.Cantidad)
	case i.PrecioUnitario.IsNegative():
		return errors.New("precio unitario negativo")
	}
	return nil
}
