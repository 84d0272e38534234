package service

import (
	"context"
	"errors"
	"time"

	"verdupos/internal/infra"
	"verdupos/internal/model"
	"verdupos/internal/repository"
	"verdupos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Publicador receives committed sales. *worker.Dispatcher satisfies it.
type Publicador interface {
	PublicarVentaRegistrada(ctx context.Context, ev worker.VentaRegistrada) error
}

// LibroHuerfanas tracks headers left without lines. *worker.RegistroHuerfanas
// satisfies it.
type LibroHuerfanas interface {
	Registrar(ctx context.Context, h worker.VentaHuerfana) error
	Listar(ctx context.Context) ([]worker.VentaHuerfana, error)
	Obtener(ctx context.Context, ventaID uuid.UUID) (*worker.VentaHuerfana, error)
	Remover(ctx context.Context, ventaID uuid.UUID) error
}

type VentaService interface {
	// RegistrarVenta persists snap as a header plus its lines.
	RegistrarVenta(ctx context.Context, actor *model.Actor, snap Snapshot) (uuid.UUID, error)
	// ReintentarLineas re-issues the line batch against an existing header.
	ReintentarLineas(ctx context.Context, actor *model.Actor, ventaID uuid.UUID, lineas []LineaCarrito) error
	ListarHuerfanas(ctx context.Context) ([]worker.VentaHuerfana, error)
	// ListarVentas returns the latest headers with their stored line count.
	ListarVentas(ctx context.Context, limite int) ([]VentaListada, error)
	// Conciliar replays the lines stored in the orphan ledger for ventaID.
	Conciliar(ctx context.Context, actor *model.Actor, ventaID uuid.UUID) error
}

// VentaListada is a header as seen from the store. Lineas == 0 marks a header
// whose detail never landed.
type VentaListada struct {
	repository.VentaReciente
	Lineas int64
}

const (
	limiteVentasDefault = 50
	limiteVentasMaximo  = 200
)

// VentaConfig tunes the commit protocol.
type VentaConfig struct {
	// Atomico runs header and lines in one transaction. A line failure then
	// rolls back the header and no orphan can exist.
	Atomico bool
}

type ventaService struct {
	repo       repository.VentaRepository
	huerfanas  LibroHuerfanas
	publicador Publicador
	metrics    *infra.Metrics
	cfg        VentaConfig
	now        func() time.Time
}

// NewVentaService wires the commit protocol. huerfanas, publicador and
// metrics may be nil.
func NewVentaService(
	repo repository.VentaRepository,
	huerfanas LibroHuerfanas,
	publicador Publicador,
	metrics *infra.Metrics,
	cfg VentaConfig,
) VentaService {
	return &ventaService{
		repo:       repo,
		huerfanas:  huerfanas,
		publicador: publicador,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
//   1. actor required
//   2. snapshot validated, nothing written on failure
//   3. INSERT header; failure aborts with ErrorPersistencia
//   4. INSERT lines in one batch addressed at the header id; failure leaves
//      an orphaned header and returns CommitParcialError (no compensating delete)
//   5. publish venta_registrada (best effort)
// In atomic mode 3 and 4 share one transaction.

func (s *ventaService) RegistrarVenta(ctx context.Context, actor *model.Actor, snap Snapshot) (uuid.UUID, error) {
	if actor == nil || actor.ID == uuid.Nil {
		s.contar(infra.ResultadoNoAutenticado)
		return uuid.Nil, ErrNoAutenticado
	}
	if err := validarSnapshot(snap); err != nil {
		s.contar(infra.ResultadoValidacion)
		return uuid.Nil, err
	}

	venta := &model.Venta{
		UsuarioID:  actor.ID,
		Total:      snap.Total.Round(decimalesMoneda),
		MetodoPago: snap.Metodo,
		Entregado:  snap.Entregado.Round(decimalesMoneda),
		CreatedAt:  s.now(),
	}
	items := itemsDesdeLineas(snap.Lineas)

	if s.cfg.Atomico {
		err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			if err := s.insertarCabecera(ctx, tx, venta); err != nil {
				return err
			}
			return s.insertarLineas(ctx, tx, venta.ID, items)
		})
		if err != nil {
			s.contar(infra.ResultadoPersistencia)
			log.Error().Err(err).Str("usuario_id", actor.ID.String()).Msg("venta: transaccion revertida")
			return uuid.Nil, &ErrorPersistencia{Operacion: "venta", Err: err}
		}
	} else {
		if err := s.insertarCabecera(ctx, nil, venta); err != nil {
			s.contar(infra.ResultadoPersistencia)
			log.Error().Err(err).Str("usuario_id", actor.ID.String()).Msg("venta: fallo la cabecera")
			return uuid.Nil, &ErrorPersistencia{Operacion: "cabecera", Err: err}
		}
		if err := s.insertarLineas(ctx, nil, venta.ID, items); err != nil {
			s.contar(infra.ResultadoParcial)
			log.Error().Err(err).
				Str("venta_id", venta.ID.String()).
				Int("lineas", len(items)).
				Msg("venta: cabecera huerfana, fallo el detalle")
			s.registrarHuerfana(ctx, venta, items, err)
			return venta.ID, &CommitParcialError{VentaID: venta.ID, Lineas: len(items), Err: err}
		}
	}

	s.contar(infra.ResultadoOK)
	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("total", venta.Total.StringFixed(decimalesMoneda)).
		Str("metodo_pago", venta.MetodoPago).
		Int("lineas", len(items)).
		Msg("venta registrada")
	s.publicar(ctx, venta, items)
	return venta.ID, nil
}

func (s *ventaService) insertarCabecera(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	defer s.medir("cabecera", time.Now())
	return s.repo.InsertarCabecera(ctx, tx, v)
}

func (s *ventaService) insertarLineas(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID, items []model.VentaItem) error {
	defer s.medir("lineas", time.Now())
	return s.repo.InsertarLineas(ctx, tx, ventaID, items)
}

// ── ReintentarLineas ──────────────────────────────────────────────────────────
// Addressed retry of step 4. Line ids derive from (venta, producto) and the
// store skips existing ids, so repeating it never duplicates rows.

func (s *ventaService) ReintentarLineas(ctx context.Context, actor *model.Actor, ventaID uuid.UUID, lineas []LineaCarrito) error {
	if actor == nil || actor.ID == uuid.Nil {
		return ErrNoAutenticado
	}
	if err := validarLineas(lineas); err != nil {
		return err
	}
	return s.reintentar(ctx, actor, ventaID, itemsDesdeLineas(lineas))
}

// ── Conciliar ─────────────────────────────────────────────────────────────────

func (s *ventaService) Conciliar(ctx context.Context, actor *model.Actor, ventaID uuid.UUID) error {
	if actor == nil || actor.ID == uuid.Nil {
		return ErrNoAutenticado
	}
	if s.huerfanas == nil {
		return ErrVentaNoEncontrada
	}
	h, err := s.huerfanas.Obtener(ctx, ventaID)
	if errors.Is(err, worker.ErrHuerfanaNoEncontrada) {
		return ErrVentaNoEncontrada
	}
	if err != nil {
		return &ErrorPersistencia{Operacion: "libro de huerfanas", Err: err}
	}
	if len(h.Lineas) == 0 {
		return validacion("lineas", "la venta huerfana no tiene detalle registrado")
	}
	items := make([]model.VentaItem, len(h.Lineas))
	for i, l := range h.Lineas {
		items[i] = model.VentaItem{
			ProductoID:     l.ProductoID,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
		}
	}
	return s.reintentar(ctx, actor, ventaID, items)
}

func (s *ventaService) reintentar(ctx context.Context, actor *model.Actor, ventaID uuid.UUID, items []model.VentaItem) error {
	venta, err := s.repo.FindByID(ctx, ventaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrVentaNoEncontrada
	}
	if err != nil {
		return &ErrorPersistencia{Operacion: "cabecera", Err: err}
	}
	if venta.UsuarioID != actor.ID && actor.Rol == model.RolCajero {
		return ErrVentaNoEncontrada
	}

	if err := s.insertarLineas(ctx, nil, ventaID, items); err != nil {
		s.contarReintento(infra.ResultadoParcial)
		log.Error().Err(err).Str("venta_id", ventaID.String()).Msg("venta: reintento de detalle fallido")
		return &CommitParcialError{VentaID: ventaID, Lineas: len(items), Err: err}
	}
	s.contarReintento(infra.ResultadoOK)

	if s.huerfanas != nil {
		if err := s.huerfanas.Remover(ctx, ventaID); err != nil {
			log.Warn().Err(err).Str("venta_id", ventaID.String()).Msg("venta: no se pudo quitar del libro de huerfanas")
		}
	}
	log.Info().Str("venta_id", ventaID.String()).Int("lineas", len(items)).Msg("venta: detalle completado")
	venta.Items = items
	s.publicar(ctx, venta, items)
	return nil
}

// ── ListarHuerfanas ───────────────────────────────────────────────────────────

func (s *ventaService) ListarHuerfanas(ctx context.Context) ([]worker.VentaHuerfana, error) {
	if s.huerfanas == nil {
		return []worker.VentaHuerfana{}, nil
	}
	list, err := s.huerfanas.Listar(ctx)
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "libro de huerfanas", Err: err}
	}
	return list, nil
}

// ── ListarVentas ──────────────────────────────────────────────────────────────

func (s *ventaService) ListarVentas(ctx context.Context, limite int) ([]VentaListada, error) {
	switch {
	case limite <= 0:
		limite = limiteVentasDefault
	case limite > limiteVentasMaximo:
		limite = limiteVentasMaximo
	}
	rows, err := s.repo.ListRecientes(ctx, limite)
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "historial de ventas", Err: err}
	}
	out := make([]VentaListada, len(rows))
	for i, row := range rows {
		n, err := s.repo.ContarLineas(ctx, row.ID)
		if err != nil {
			return nil, &ErrorPersistencia{Operacion: "historial de ventas", Err: err}
		}
		out[i] = VentaListada{VentaReciente: row, Lineas: n}
	}
	return out, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func validarSnapshot(snap Snapshot) error {
	if !model.MetodoPagoValido(snap.Metodo) {
		return validacion("metodo", "metodo de pago invalido")
	}
	if snap.Total.IsNegative() {
		return validacion("total", "el total no puede ser negativo")
	}
	if snap.Entregado.IsNegative() {
		return validacion("entregado", "el monto entregado no puede ser negativo")
	}
	if snap.Metodo == model.MetodoEfectivo && !snap.Entregado.IsPositive() {
		return validacion("entregado", "ingrese el monto recibido")
	}
	return validarLineas(snap.Lineas)
}

func validarLineas(lineas []LineaCarrito) error {
	if len(lineas) == 0 {
		return validacion("carrito", "el carrito esta vacio")
	}
	vistos := make(map[uuid.UUID]bool, len(lineas))
	for _, l := range lineas {
		switch {
		case l.Producto.ID == uuid.Nil:
			return validacion("producto_id", "producto sin identificador")
		case vistos[l.Producto.ID]:
			return validacion("producto_id", "producto repetido en el detalle")
		case !l.Cantidad.IsPositive():
			return validacion("cantidad", "la cantidad debe ser mayor a cero")
		case l.Producto.Precio.IsNegative():
			return validacion("precio", "precio negativo")
		}
		vistos[l.Producto.ID] = true
	}
	return nil
}

// itemsDesdeLineas captures price and subtotal at sale time.
func itemsDesdeLineas(lineas []LineaCarrito) []model.VentaItem {
	items := make([]model.VentaItem, len(lineas))
	for i, l := range lineas {
		items[i] = model.VentaItem{
			ProductoID:     l.Producto.ID,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.Producto.Precio,
			Subtotal:       l.Subtotal().Round(decimalesMoneda),
		}
	}
	return items
}

func itemsVendidos(items []model.VentaItem) []worker.ItemVendido {
	out := make([]worker.ItemVendido, len(items))
	for i, it := range items {
		out[i] = worker.ItemVendido{
			ProductoID:     it.ProductoID,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
		}
	}
	return out
}

func (s *ventaService) registrarHuerfana(ctx context.Context, v *model.Venta, items []model.VentaItem, causa error) {
	if s.huerfanas == nil {
		return
	}
	h := worker.VentaHuerfana{
		VentaID:    v.ID,
		UsuarioID:  v.UsuarioID,
		Total:      v.Total,
		MetodoPago: v.MetodoPago,
		Lineas:     itemsVendidos(items),
		Motivo:     causa.Error(),
	}
	if err := s.huerfanas.Registrar(ctx, h); err != nil {
		log.Error().Err(err).Str("venta_id", v.ID.String()).Msg("venta: no se pudo registrar la huerfana")
	}
}

// publicar is best effort; the sale is already committed.
func (s *ventaService) publicar(ctx context.Context, v *model.Venta, items []model.VentaItem) {
	if s.publicador == nil {
		return
	}
	ev := worker.VentaRegistrada{
		VentaID:    v.ID,
		UsuarioID:  v.UsuarioID,
		Total:      v.Total,
		MetodoPago: v.MetodoPago,
		Items:      itemsVendidos(items),
		CreatedAt:  v.CreatedAt,
	}
	if err := s.publicador.PublicarVentaRegistrada(ctx, ev); err != nil {
		log.Warn().Err(err).Str("venta_id", v.ID.String()).Msg("venta: no se pudo publicar venta_registrada")
	}
}

func (s *ventaService) contar(resultado string) {
	if s.metrics != nil {
		s.metrics.Ventas.WithLabelValues(resultado).Inc()
	}
}

func (s *ventaService) contarReintento(resultado string) {
	if s.metrics != nil {
		s.metrics.ReintentosLineas.WithLabelValues(resultado).Inc()
	}
}

func (s *ventaService) medir(paso string, inicio time.Time) {
	if s.metrics != nil {
		s.metrics.VentaDuracionMS.WithLabelValues(paso).Observe(float64(time.Since(inicio).Milliseconds()))
	}
}
