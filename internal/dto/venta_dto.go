package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AgregarItemRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
}

type ActualizarCantidadRequest struct {
	// Cantidad <= 0 removes the line.
	Cantidad decimal.Decimal `json:"cantidad"`
}

type SeleccionarMetodoRequest struct {
	Metodo string `json:"metodo" validate:"required,oneof=efectivo billetera tarjeta"`
}

type TeclaRequest struct {
	Tecla string `json:"tecla" validate:"required,oneof=0 1 2 3 4 5 6 7 8 9 . backspace"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineaCarritoResponse struct {
	ProductoID     string          `json:"producto_id"`
	Nombre         string          `json:"nombre"`
	Unidad         string          `json:"unidad"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type CarritoResponse struct {
	Lineas []LineaCarritoResponse `json:"lineas"`
	Total  decimal.Decimal        `json:"total"`
}

type CobroResponse struct {
	Estado         string          `json:"estado"`
	Metodo         string          `json:"metodo,omitempty"`
	Total          decimal.Decimal `json:"total"`
	MontoIngresado string          `json:"monto_ingresado"`
	Entregado      decimal.Decimal `json:"entregado"`
	Diferencia     decimal.Decimal `json:"diferencia"`
	Vuelto         decimal.Decimal `json:"vuelto"`
	PuedeConfirmar bool            `json:"puede_confirmar"`
	EnCurso        bool            `json:"en_curso"`
	VentaPendiente *string         `json:"venta_pendiente,omitempty"`
}

type VentaRegistradaResponse struct {
	VentaID string `json:"venta_id"`
}

type ItemHuerfanoResponse struct {
	ProductoID     string          `json:"producto_id"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type VentaHuerfanaResponse struct {
	VentaID      string                 `json:"venta_id"`
	UsuarioID    string                 `json:"usuario_id"`
	Total        decimal.Decimal        `json:"total"`
	MetodoPago   string                 `json:"metodo_pago"`
	Lineas       []ItemHuerfanoResponse `json:"lineas"`
	Motivo       string                 `json:"motivo"`
	RegistradaEn string                 `json:"registrada_en"` // RFC 3339
}

// VentaResponse is one row of the operator sales history. SinDetalle flags a
// header whose lines never landed.
type VentaResponse struct {
	ID         string          `json:"id"`
	UsuarioID  string          `json:"usuario_id"`
	Usuario    string          `json:"usuario"`
	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"metodo_pago"`
	Entregado  decimal.Decimal `json:"entregado"`
	Lineas     int64           `json:"lineas"`
	SinDetalle bool            `json:"sin_detalle"`
	CreatedAt  string          `json:"created_at"` // RFC 3339
}
