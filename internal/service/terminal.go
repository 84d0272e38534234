package service

import (
	"context"
	"errors"
	"sync"

	"verdupos/internal/infra"
	"verdupos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ── Terminal ──────────────────────────────────────────────────────────────────
// One per signed-in cashier. It owns the register session, the scale, the
// cart and the tender, and is the single logical thread of control over
// them: every mutation takes mu. A sale commit runs with mu released and
// enCurso set, so a second submit or any cart/tender edit during the commit
// is rejected with ErrCobroEnCurso instead of queueing behind it.

// VentaPendiente is a header committed without its lines. It blocks new
// sales until the lines are retried or the sale is cancelled.
type VentaPendiente struct {
	VentaID  uuid.UUID
	Snapshot Snapshot
}

// VistaTerminal is a consistent read of the terminal state.
type VistaTerminal struct {
	Caja       *model.SesionCaja
	Lineas     []LineaCarrito
	Total      decimal.Decimal
	Estado     EstadoCobro
	Metodo     string
	Monto      string
	Entregado  decimal.Decimal
	Diferencia decimal.Decimal
	Vuelto     decimal.Decimal
	EnCurso    bool
	Pendiente  *VentaPendiente
}

type Terminal struct {
	actor    *model.Actor
	balanza  *infra.Balanza
	ventas   VentaService
	caja     CajaService
	catalogo CatalogoService

	mu        sync.Mutex
	carrito   *Carrito
	cobro     *Cobro
	sesion    *model.SesionCaja
	enCurso   bool
	pendiente *VentaPendiente
	cerrada   bool
}

func newTerminal(actor *model.Actor, b *infra.Balanza, ventas VentaService, caja CajaService, catalogo CatalogoService) *Terminal {
	return &Terminal{
		actor:    actor,
		balanza:  b,
		ventas:   ventas,
		caja:     caja,
		catalogo: catalogo,
		carrito:  NewCarrito(b),
		cobro:    NewCobro(),
	}
}

func (t *Terminal) Actor() *model.Actor { return t.actor }

// Balanza is safe for concurrent use and needs no terminal lock.
func (t *Terminal) Balanza() *infra.Balanza { return t.balanza }

func (t *Terminal) Vista() VistaTerminal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vistaLocked()
}

func (t *Terminal) vistaLocked() VistaTerminal {
	v := VistaTerminal{
		Lineas:     t.carrito.Lineas(),
		Total:      t.carrito.TotalRedondeado(),
		Estado:     t.cobro.Estado(),
		Metodo:     t.cobro.Metodo(),
		Monto:      t.cobro.MontoIngresado(),
		Entregado:  t.cobro.Entregado(),
		Diferencia: t.cobro.Diferencia(),
		Vuelto:     t.cobro.Vuelto(),
		EnCurso:    t.enCurso,
	}
	if t.sesion != nil {
		s := *t.sesion
		v.Caja = &s
	}
	if t.pendiente != nil {
		p := *t.pendiente
		v.Pendiente = &p
	}
	return v
}

// ── Caja ──────────────────────────────────────────────────────────────────────

func (t *Terminal) AbrirCaja(ctx context.Context, monto decimal.Decimal, nota string) (*model.SesionCaja, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.vigenteLocked(); err != nil {
		return nil, err
	}
	if t.sesion != nil && t.sesion.Abierta {
		return nil, validacion("caja", "la caja ya esta abierta")
	}
	sesion, err := t.caja.Abrir(ctx, t.actor, monto, nota)
	if err != nil {
		return nil, err
	}
	t.sesion = sesion
	s := *sesion
	return &s, nil
}

func (t *Terminal) RegistrarMovimiento(ctx context.Context, tipo string, monto decimal.Decimal, nota string) (*model.MovimientoCaja, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.vigenteLocked(); err != nil {
		return nil, err
	}
	return t.caja.RegistrarMovimiento(ctx, t.actor, t.sesion, tipo, monto, nota)
}

func (t *Terminal) ResumenCaja(ctx context.Context) (*ResumenCaja, error) {
	t.mu.Lock()
	sesion := t.sesion
	t.mu.Unlock()
	return t.caja.Resumen(ctx, t.actor, sesion)
}

func (t *Terminal) MovimientosCaja(ctx context.Context) ([]model.MovimientoCaja, error) {
	t.mu.Lock()
	sesion := t.sesion
	t.mu.Unlock()
	return t.caja.Movimientos(ctx, t.actor, sesion)
}

// ── Carrito ───────────────────────────────────────────────────────────────────

// AgregarProducto adds productoID using the current scale reading.
func (t *Terminal) AgregarProducto(ctx context.Context, productoID uuid.UUID) (LineaCarrito, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked(); err != nil {
		return LineaCarrito{}, err
	}
	p, err := t.catalogo.ObtenerProducto(ctx, productoID)
	if err != nil {
		return LineaCarrito{}, err
	}
	l := t.carrito.Agregar(*p)
	t.cobro.SetTotal(t.carrito.TotalRedondeado())
	return l, nil
}

func (t *Terminal) ActualizarCantidad(productoID uuid.UUID, cantidad decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked(); err != nil {
		return err
	}
	t.carrito.ActualizarCantidad(productoID, cantidad)
	t.cobro.SetTotal(t.carrito.TotalRedondeado())
	return nil
}

func (t *Terminal) QuitarProducto(productoID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked(); err != nil {
		return err
	}
	t.carrito.Quitar(productoID)
	t.cobro.SetTotal(t.carrito.TotalRedondeado())
	return nil
}

func (t *Terminal) VaciarCarrito() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked(); err != nil {
		return err
	}
	t.carrito.Vaciar()
	t.cobro.SetTotal(decimal.Zero)
	return nil
}

// ── Cobro ─────────────────────────────────────────────────────────────────────

func (t *Terminal) SeleccionarMetodo(metodo string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked(); err != nil {
		return err
	}
	return t.cobro.SeleccionarMetodo(metodo)
}

func (t *Terminal) Teclear(tecla string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.editableLocked(); err != nil {
		return err
	}
	return t.cobro.Teclear(tecla)
}

// Confirmar freezes the tender and runs the commit protocol once. The cart
// is cleared only when the sale is fully written.
func (t *Terminal) Confirmar(ctx context.Context) (uuid.UUID, error) {
	t.mu.Lock()
	if err := t.editableLocked(); err != nil {
		t.mu.Unlock()
		return uuid.Nil, err
	}
	t.cobro.SetTotal(t.carrito.TotalRedondeado())
	snap, err := t.cobro.Confirmar(t.carrito.Lineas())
	if err != nil {
		t.mu.Unlock()
		return uuid.Nil, err
	}
	t.enCurso = true
	t.mu.Unlock()

	ventaID, err := t.ventas.RegistrarVenta(ctx, t.actor, snap)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.enCurso = false

	var parcial *CommitParcialError
	switch {
	case err == nil:
		t.reiniciarVentaLocked()
		return ventaID, nil
	case errors.As(err, &parcial):
		t.pendiente = &VentaPendiente{VentaID: parcial.VentaID, Snapshot: snap}
		return uuid.Nil, err
	default:
		t.cobro.Reabrir()
		return uuid.Nil, err
	}
}

// ReintentarLineas retries the line batch of the pending sale.
func (t *Terminal) ReintentarLineas(ctx context.Context) (uuid.UUID, error) {
	t.mu.Lock()
	if err := t.vigenteLocked(); err != nil {
		t.mu.Unlock()
		return uuid.Nil, err
	}
	if t.enCurso {
		t.mu.Unlock()
		return uuid.Nil, ErrCobroEnCurso
	}
	if t.pendiente == nil {
		t.mu.Unlock()
		return uuid.Nil, validacion("venta", "no hay una venta pendiente de detalle")
	}
	p := *t.pendiente
	t.enCurso = true
	t.mu.Unlock()

	err := t.ventas.ReintentarLineas(ctx, t.actor, p.VentaID, p.Snapshot.Lineas)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.enCurso = false
	if err != nil {
		return uuid.Nil, err
	}
	t.reiniciarVentaLocked()
	return p.VentaID, nil
}

// Cancelar discards the sale in progress. A pending orphan stays in the
// ledger for the operator.
func (t *Terminal) Cancelar() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enCurso {
		return ErrCobroEnCurso
	}
	if t.pendiente != nil {
		log.Warn().Str("venta_id", t.pendiente.VentaID.String()).Msg("terminal: venta pendiente cancelada sin detalle")
	}
	t.reiniciarVentaLocked()
	return nil
}

// Salir discards session, cart and tender and releases the scale. There is no
// close record; the movement log is the only durable trace.
func (t *Terminal) Salir() error {
	t.mu.Lock()
	if t.enCurso {
		t.mu.Unlock()
		return ErrCobroEnCurso
	}
	t.reiniciarVentaLocked()
	t.sesion = nil
	t.cerrada = true
	t.mu.Unlock()

	t.balanza.Close()
	return nil
}

func (t *Terminal) reiniciarVentaLocked() {
	t.carrito.Vaciar()
	t.cobro.Reiniciar()
	t.cobro.SetTotal(decimal.Zero)
	t.pendiente = nil
}

func (t *Terminal) vigenteLocked() error {
	if t.cerrada || t.actor == nil {
		return ErrNoAutenticado
	}
	return nil
}

// editableLocked gates cart and tender edits.
func (t *Terminal) editableLocked() error {
	if err := t.vigenteLocked(); err != nil {
		return err
	}
	if t.sesion == nil || !t.sesion.Abierta {
		return ErrCajaCerrada
	}
	if t.enCurso {
		return ErrCobroEnCurso
	}
	if t.pendiente != nil {
		return validacion("venta", "hay una venta pendiente de detalle; reintente o cancele")
	}
	return nil
}

// ── Terminales ────────────────────────────────────────────────────────────────

// TerminalConfig holds what every new terminal is built with.
type TerminalConfig struct {
	Balanza infra.BalanzaConfig
}

// Terminales keeps one Terminal per signed-in cashier.
type Terminales struct {
	cfg      TerminalConfig
	ventas   VentaService
	caja     CajaService
	catalogo CatalogoService

	mu    sync.Mutex
	porID map[uuid.UUID]*Terminal
}

func NewTerminales(cfg TerminalConfig, ventas VentaService, caja CajaService, catalogo CatalogoService) *Terminales {
	return &Terminales{
		cfg:      cfg,
		ventas:   ventas,
		caja:     caja,
		catalogo: catalogo,
		porID:    make(map[uuid.UUID]*Terminal),
	}
}

// Obtener returns the actor's terminal, creating it on first use.
func (r *Terminales) Obtener(actor *model.Actor) (*Terminal, error) {
	if actor == nil || actor.ID == uuid.Nil {
		return nil, ErrNoAutenticado
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.porID[actor.ID]; ok {
		return t, nil
	}
	b, err := infra.NewBalanza(r.cfg.Balanza)
	if err != nil {
		return nil, err
	}
	t := newTerminal(actor, b, r.ventas, r.caja, r.catalogo)
	r.porID[actor.ID] = t
	log.Info().Str("usuario_id", actor.ID.String()).Str("balanza", string(b.Modo())).Msg("terminal creada")
	return t, nil
}

// Salir logs the actor out of its terminal. A missing terminal is a no-op.
// The registry lock is held throughout so Obtener never hands out a terminal
// that is being closed.
func (r *Terminales) Salir(actorID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.porID[actorID]
	if !ok {
		return nil
	}
	if err := t.Salir(); err != nil {
		return err
	}
	delete(r.porID, actorID)
	return nil
}

// Cerrar releases every terminal's scale on shutdown.
func (r *Terminales) Cerrar() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.porID {
		t.balanza.Close()
		delete(r.porID, id)
	}
}
