package service

import (
	"verdupos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pesaje is the live-weight source the cart reads on add. *infra.Balanza
// satisfies it.
type Pesaje interface {
	Lectura() decimal.Decimal
}

const (
	decimalesPeso   = 3
	decimalesMoneda = 2
)

// LineaCarrito is one product in the cart. Cantidad is always > 0.
type LineaCarrito struct {
	Producto model.Producto  `json:"producto"`
	Cantidad decimal.Decimal `json:"cantidad"`
}

// Subtotal is unrounded.
func (l LineaCarrito) Subtotal() decimal.Decimal {
	return l.Cantidad.Mul(l.Producto.Precio)
}

// Carrito is the in-progress, unpersisted sale. It is not safe for concurrent
// use; the owning Terminal serialises access.
type Carrito struct {
	lineas  []LineaCarrito
	balanza Pesaje
}

// NewCarrito creates an empty cart reading weights from p (may be nil).
func NewCarrito(p Pesaje) *Carrito {
	return &Carrito{balanza: p}
}

// Agregar adds producto. Weighed products take the current scale reading when
// it is positive; anything else adds one unit. The scale is not reset.
func (c *Carrito) Agregar(p model.Producto) LineaCarrito {
	cantidad := decimal.NewFromInt(1)
	if p.EsPesable() && c.balanza != nil {
		if peso := c.balanza.Lectura(); peso.IsPositive() {
			cantidad = peso.Round(decimalesPeso)
		}
	}

	if i := c.indice(p.ID); i >= 0 {
		c.lineas[i].Cantidad = c.lineas[i].Cantidad.Add(cantidad)
		return c.lineas[i]
	}
	l := LineaCarrito{Producto: p, Cantidad: cantidad}
	c.lineas = append(c.lineas, l)
	return l
}

// ActualizarCantidad overwrites the quantity of productoID. q <= 0 removes
// the line, as does a count quantity that rounds to zero. Absent products are
// ignored.
func (c *Carrito) ActualizarCantidad(productoID uuid.UUID, q decimal.Decimal) {
	i := c.indice(productoID)
	if i < 0 {
		return
	}
	if c.lineas[i].Producto.EsPesable() {
		q = q.Round(decimalesPeso)
	} else {
		q = q.Round(0)
	}
	if !q.IsPositive() {
		c.Quitar(productoID)
		return
	}
	c.lineas[i].Cantidad = q
}

// Quitar removes productoID; no-op when absent.
func (c *Carrito) Quitar(productoID uuid.UUID) {
	if i := c.indice(productoID); i >= 0 {
		c.lineas = append(c.lineas[:i], c.lineas[i+1:]...)
	}
}

func (c *Carrito) Vaciar() { c.lineas = nil }

func (c *Carrito) Vacio() bool { return len(c.lineas) == 0 }

// Total is recomputed from the lines on every call and never rounded.
func (c *Carrito) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lineas {
		total = total.Add(l.Subtotal())
	}
	return total
}

// TotalRedondeado is the total at currency precision, for display and commit.
func (c *Carrito) TotalRedondeado() decimal.Decimal {
	return c.Total().Round(decimalesMoneda)
}

// Lineas returns a copy in insertion order.
func (c *Carrito) Lineas() []LineaCarrito {
	out := make([]LineaCarrito, len(c.lineas))
	copy(out, c.lineas)
	return out
}

func (c *Carrito) indice(productoID uuid.UUID) int {
	for i := range c.lineas {
		if c.lineas[i].Producto.ID == productoID {
			return i
		}
	}
	return -1
}
