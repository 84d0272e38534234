package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial" validate:"min=0"`
	Nota         string          `json:"nota"          validate:"max=280"`
}

type MovimientoCajaRequest struct {
	Tipo  string          `json:"tipo"  validate:"required,oneof=ingreso salida"`
	Monto decimal.Decimal `json:"monto" validate:"gt=0"`
	Nota  string          `json:"nota"  validate:"max=280"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	UsuarioID    string          `json:"usuario_id"`
	MontoInicial decimal.Decimal `json:"monto_inicial"`
	Nota         string          `json:"nota"`
	Abierta      bool            `json:"abierta"`
	OpenedAt     time.Time       `json:"opened_at"`
	AperturaID   string          `json:"apertura_id"`
}

type MovimientoCajaResponse struct {
	ID        string          `json:"id"`
	Tipo      string          `json:"tipo"`
	Monto     decimal.Decimal `json:"monto"`
	Nota      *string         `json:"nota,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
