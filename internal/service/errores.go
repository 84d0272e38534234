package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ── Errores de dominio ────────────────────────────────────────────────────────
// The core never retries on its own; every failure below reaches the caller.

var (
	// ErrNoAutenticado: no actor at write time. The user must sign in again.
	ErrNoAutenticado = errors.New("no hay un usuario autenticado")
	// ErrCobroEnCurso: a commit for this terminal is already in flight.
	ErrCobroEnCurso = errors.New("hay un registro de venta en curso")
	// ErrCajaCerrada: the operation needs an opened register session.
	ErrCajaCerrada = errors.New("la caja no esta abierta")
	// ErrProductoNoEncontrado: the product is missing or inactive.
	ErrProductoNoEncontrado = errors.New("producto no encontrado")
	// ErrVentaNoEncontrada: addressed retry against an unknown header.
	ErrVentaNoEncontrada = errors.New("venta no encontrada")
)

// ValidationError is recoverable and no write was attempted.
type ValidationError struct {
	Campo   string
	Mensaje string
}

func (e *ValidationError) Error() string {
	if e.Campo == "" {
		return e.Mensaje
	}
	return e.Campo + ": " + e.Mensaje
}

func validacion(campo, msg string) error {
	return &ValidationError{Campo: campo, Mensaje: msg}
}

// ErrorPersistencia means nothing was written. The whole flow may be retried
// with the cart intact.
type ErrorPersistencia struct {
	Operacion string
	Err       error
}

func (e *ErrorPersistencia) Error() string {
	return fmt.Sprintf("error de persistencia en %s: %v", e.Operacion, e.Err)
}

func (e *ErrorPersistencia) Unwrap() error { return e.Err }

// CommitParcialError means the sale header VentaID exists without its lines.
// Repeating the whole flow would write a second header; recover with an
// addressed line retry or manual reconciliation.
type CommitParcialError struct {
	VentaID uuid.UUID
	Lineas  int
	Err     error
}

func (e *CommitParcialError) Error() string {
	return fmt.Sprintf("venta %s registrada sin sus %d lineas: %v", e.VentaID, e.Lineas, e.Err)
}

func (e *CommitParcialError) Unwrap() error { return e.Err }
