package service_test

import (
	"math/rand/v2"
	"testing"

	"verdupos/internal/model"
	"verdupos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgregar_AcumulaPesoEnUnaLinea(t *testing.T) {
	balanza := &pesoFijo{v: dec("0.300")}
	c := service.NewCarrito(balanza)
	tomate := productoKg("Tomate", "4.00")

	c.Agregar(tomate)
	balanza.v = dec("0.200")
	c.Agregar(tomate)

	lineas := c.Lineas()
	require.Len(t, lineas, 1)
	assert.Equal(t, "0.500", lineas[0].Cantidad.StringFixed(3))
}

func TestAgregar_SinPesoSumaUnaUnidad(t *testing.T) {
	c := service.NewCarrito(&pesoFijo{v: decimal.Zero})
	tomate := productoKg("Tomate", "4.00")

	l := c.Agregar(tomate)
	assert.Equal(t, "1", l.Cantidad.String())
}

func TestAgregar_ProductoPorUnidadIgnoraBalanza(t *testing.T) {
	c := service.NewCarrito(&pesoFijo{v: dec("0.750")})
	palta := productoUnidad("Palta", "1.20")

	c.Agregar(palta)
	l := c.Agregar(palta)
	assert.Equal(t, "2", l.Cantidad.String())
}

func TestAgregar_NoReseteaLaBalanza(t *testing.T) {
	balanza := &pesoFijo{v: dec("1.250")}
	c := service.NewCarrito(balanza)
	c.Agregar(productoKg("Papa", "1.80"))
	assert.Equal(t, "1.250", balanza.Lectura().StringFixed(3))
}

func TestActualizarCantidad_CeroONegativoQuita(t *testing.T) {
	for _, q := range []string{"0", "-1", "-0.001"} {
		t.Run(q, func(t *testing.T) {
			c := service.NewCarrito(nil)
			a := productoUnidad("Lechuga", "2.50")
			b := productoUnidad("Palta", "1.20")
			c.Agregar(a)
			c.Agregar(b)

			c.ActualizarCantidad(a.ID, dec(q))

			expected := service.NewCarrito(nil)
			expected.Agregar(b)
			assert.Equal(t, expected.Lineas(), c.Lineas())
			assert.True(t, expected.Total().Equal(c.Total()))
		})
	}
}

func TestActualizarCantidad_RedondeaSegunUnidad(t *testing.T) {
	c := service.NewCarrito(nil)
	kg := productoKg("Uva", "6.00")
	un := productoUnidad("Sandia", "9.00")
	c.Agregar(kg)
	c.Agregar(un)

	c.ActualizarCantidad(kg.ID, dec("0.12345"))
	c.ActualizarCantidad(un.ID, dec("2.6"))

	lineas := c.Lineas()
	assert.Equal(t, "0.123", lineas[0].Cantidad.StringFixed(3))
	assert.Equal(t, "3", lineas[1].Cantidad.String())

	// A count quantity that rounds to zero removes the line.
	c.ActualizarCantidad(un.ID, dec("0.4"))
	assert.Len(t, c.Lineas(), 1)
}

func TestQuitar_AusenteEsNoOp(t *testing.T) {
	c := service.NewCarrito(nil)
	c.Agregar(productoUnidad("Palta", "1.20"))
	c.Quitar(uuid.New())
	assert.Len(t, c.Lineas(), 1)
}

func TestVaciar(t *testing.T) {
	c := service.NewCarrito(nil)
	c.Agregar(productoUnidad("Palta", "1.20"))
	c.Vaciar()
	assert.True(t, c.Vacio())
	assert.True(t, c.Total().IsZero())
}

func TestLineas_DevuelveCopia(t *testing.T) {
	c := service.NewCarrito(nil)
	c.Agregar(productoUnidad("Palta", "1.20"))
	lineas := c.Lineas()
	lineas[0].Cantidad = dec("99")
	assert.Equal(t, "1", c.Lineas()[0].Cantidad.String())
}

func TestTotal_SinRedondeoIntermedio(t *testing.T) {
	balanza := &pesoFijo{}
	c := service.NewCarrito(balanza)
	// 0.333 kg @ 1.99 = 0.66267, three times = 1.98801
	p := productoKg("Cebolla", "1.99")
	balanza.v = dec("0.333")
	c.Agregar(p)
	q := productoKg("Ajo", "1.99")
	c.Agregar(q)
	r := productoKg("Puerro", "1.99")
	c.Agregar(r)

	assert.Equal(t, "1.98801", c.Total().String())
	assert.Equal(t, "1.99", c.TotalRedondeado().StringFixed(2))
}

// Random mutation sequences never desynchronise the total from the lines.
func TestTotal_SinDerivaTrasMutaciones(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 11))
	balanza := &pesoFijo{}
	c := service.NewCarrito(balanza)
	productos := []model.Producto{
		productoKg("Manzana", "3.50"),
		productoKg("Pera", "4.25"),
		productoUnidad("Palta", "1.20"),
		productoUnidad("Coco", "5.99"),
	}

	for i := 0; i < 500; i++ {
		p := productos[rnd.IntN(len(productos))]
		switch rnd.IntN(4) {
		case 0, 1:
			balanza.v = decimal.NewFromInt(int64(rnd.IntN(3000))).Div(decimal.NewFromInt(1000))
			c.Agregar(p)
		case 2:
			c.ActualizarCantidad(p.ID, decimal.NewFromInt(int64(rnd.IntN(5000)-1000)).Div(decimal.NewFromInt(1000)))
		case 3:
			c.Quitar(p.ID)
		}

		esperado := decimal.Zero
		vistos := map[uuid.UUID]bool{}
		for _, l := range c.Lineas() {
			require.True(t, l.Cantidad.IsPositive(), "line with non-positive quantity")
			require.False(t, vistos[l.Producto.ID], "duplicate line")
			vistos[l.Producto.ID] = true
			esperado = esperado.Add(l.Cantidad.Mul(l.Producto.Precio))
		}
		require.True(t, esperado.Equal(c.Total()), "step %d: %s != %s", i, esperado, c.Total())
	}
}
