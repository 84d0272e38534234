package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de movimiento de caja.
const (
	MovimientoApertura = "apertura"
	MovimientoIngreso  = "ingreso"
	MovimientoSalida   = "salida"
)

// SesionCaja is the cashier's working context. It lives only in memory: the
// movement log is the one durable trace and there is no close record.
type SesionCaja struct {
	UsuarioID    uuid.UUID
	MontoInicial decimal.Decimal
	Nota         string
	Abierta      bool
	OpenedAt     time.Time
	// AperturaID references the "apertura" movement that opened the session.
	AperturaID uuid.UUID
}

// MovimientoCaja is an immutable event in the cash register ledger.
// Movements are NEVER modified or deleted. Monto is always stored as a
// non-negative magnitude; Tipo carries the direction.
type MovimientoCaja struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo      string          `gorm:"type:varchar(20);not null"`
	Monto     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Nota      *string
	CreatedAt time.Time `gorm:"index"`
}

// TableName keeps the table name aligned with the SQL schema.
func (MovimientoCaja) TableName() string { return "movimientos_caja" }

// Validar checks the movement at the write boundary.
func (m *MovimientoCaja) Validar() error {
	if m.UsuarioID == uuid.Nil {
		return errors.New("movimiento sin usuario")
	}
	switch m.Tipo {
	case MovimientoApertura:
		if m.Monto.IsNegative() {
			return errors.New("monto de apertura negativo")
		}
	case MovimientoIngreso, MovimientoSalida:
		if !m.Monto.IsPositive() {
			return errors.New("el monto debe ser mayor a cero")
		}
	default:
		return fmt.Errorf("tipo de movimiento %q invalido", m.Tipo)
	}
	return nil
}
