package service

import (
	"strings"

	"verdupos/internal/model"

	"github.com/shopspring/decimal"
)

// ── Cobro ─────────────────────────────────────────────────────────────────────
// Tender state machine:
//   seleccionando_metodo → ingresando_monto → listo_para_confirmar → confirmado
// Non-cash methods skip straight to listo_para_confirmar. Cash is ready only
// while the tendered amount covers the total.

type EstadoCobro string

const (
	EstadoSeleccionandoMetodo EstadoCobro = "seleccionando_metodo"
	EstadoIngresandoMonto     EstadoCobro = "ingresando_monto"
	EstadoListoParaConfirmar  EstadoCobro = "listo_para_confirmar"
	EstadoConfirmado          EstadoCobro = "confirmado"
)

// Keypad keys besides the digits.
const (
	TeclaPunto    = "."
	TeclaBorrar   = "backspace"
	maxLargoMonto = 12
)

// Snapshot is the immutable tuple handed to the commit protocol.
type Snapshot struct {
	Total     decimal.Decimal
	Metodo    string
	Entregado decimal.Decimal
	Lineas    []LineaCarrito
}

// Cobro reconciles the tender against the cart total. Like Carrito it relies
// on the owning Terminal for serialisation.
type Cobro struct {
	total      decimal.Decimal
	metodo     string
	entregado  string
	confirmado bool
}

func NewCobro() *Cobro { return &Cobro{} }

// SetTotal updates the amount due (already rounded to currency precision).
func (c *Cobro) SetTotal(total decimal.Decimal) { c.total = total }

func (c *Cobro) Total() decimal.Decimal { return c.total }

func (c *Cobro) Metodo() string { return c.metodo }

// MontoIngresado is the raw keypad string.
func (c *Cobro) MontoIngresado() string { return c.entregado }

func (c *Cobro) SeleccionarMetodo(metodo string) error {
	if c.confirmado {
		return validacion("metodo", "el cobro ya fue confirmado")
	}
	if !model.MetodoPagoValido(metodo) {
		return validacion("metodo", "metodo de pago invalido")
	}
	c.metodo = metodo
	if metodo != model.MetodoEfectivo {
		c.entregado = ""
	}
	return nil
}

// Teclear edits the cash tender string left to right.
func (c *Cobro) Teclear(tecla string) error {
	if c.confirmado {
		return validacion("tecla", "el cobro ya fue confirmado")
	}
	if c.metodo != model.MetodoEfectivo {
		return validacion("tecla", "el monto solo se ingresa para pagos en efectivo")
	}
	switch {
	case tecla == TeclaBorrar:
		if n := len(c.entregado); n > 0 {
			c.entregado = c.entregado[:n-1]
		}
	case tecla == TeclaPunto || (len(tecla) == 1 && tecla[0] >= '0' && tecla[0] <= '9'):
		if len(c.entregado) >= maxLargoMonto {
			return validacion("tecla", "monto demasiado largo")
		}
		c.entregado += tecla
	default:
		return validacion("tecla", "tecla invalida")
	}
	return nil
}

// Entregado parses the tender string. Malformed input counts as zero.
func (c *Cobro) Entregado() decimal.Decimal {
	if c.metodo != model.MetodoEfectivo {
		return decimal.Zero
	}
	return parseMonto(c.entregado)
}

// Diferencia is total - entregado; positive means the tender falls short.
func (c *Cobro) Diferencia() decimal.Decimal {
	return c.total.Sub(c.Entregado())
}

// Vuelto is the change to hand back, never negative.
func (c *Cobro) Vuelto() decimal.Decimal {
	if d := c.Diferencia(); d.IsNegative() {
		return d.Neg()
	}
	return decimal.Zero
}

func (c *Cobro) Estado() EstadoCobro {
	switch {
	case c.confirmado:
		return EstadoConfirmado
	case c.metodo == "":
		return EstadoSeleccionandoMetodo
	case c.metodo != model.MetodoEfectivo:
		return EstadoListoParaConfirmar
	case c.Entregado().IsPositive() && !c.Diferencia().IsPositive():
		return EstadoListoParaConfirmar
	default:
		return EstadoIngresandoMonto
	}
}

// PuedeConfirmar reports whether Confirmar would accept the current state for
// a non-empty cart.
func (c *Cobro) PuedeConfirmar() bool {
	return c.Estado() == EstadoListoParaConfirmar
}

// Confirmar freezes the tender into a Snapshot of lineas. On success the
// state becomes confirmado until Reabrir or Reiniciar.
func (c *Cobro) Confirmar(lineas []LineaCarrito) (Snapshot, error) {
	if c.confirmado {
		return Snapshot{}, validacion("cobro", "el cobro ya fue confirmado")
	}
	if len(lineas) == 0 {
		return Snapshot{}, validacion("carrito", "el carrito esta vacio")
	}
	if c.metodo == "" {
		return Snapshot{}, validacion("metodo", "seleccione un metodo de pago")
	}
	if c.metodo == model.MetodoEfectivo {
		if !c.Entregado().IsPositive() {
			return Snapshot{}, validacion("entregado", "ingrese el monto recibido")
		}
		if c.Diferencia().IsPositive() {
			return Snapshot{}, validacion("entregado", "el monto recibido no cubre el total")
		}
	}

	snap := Snapshot{
		Total:     c.total,
		Metodo:    c.metodo,
		Entregado: c.Entregado(),
		Lineas:    make([]LineaCarrito, len(lineas)),
	}
	copy(snap.Lineas, lineas)
	c.confirmado = true
	return snap, nil
}

// Reabrir undoes a confirmation after a commit that wrote nothing, keeping
// method and tender so the cashier can retry.
func (c *Cobro) Reabrir() { c.confirmado = false }

// Reiniciar returns to seleccionando_metodo.
func (c *Cobro) Reiniciar() {
	c.metodo = ""
	c.entregado = ""
	c.confirmado = false
}

func parseMonto(s string) decimal.Decimal {
	if s == "" || strings.Count(s, ".") > 1 {
		return decimal.Zero
	}
	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
