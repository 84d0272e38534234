package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"verdupos/internal/model"
	"verdupos/internal/repository"
	"verdupos/internal/service"
	"verdupos/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var errStore = errors.New("connection reset by peer")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cajero() *model.Actor {
	return &model.Actor{ID: uuid.New(), Nombre: "Cajero Test", Rol: model.RolCajero}
}

func productoKg(nombre, precio string) model.Producto {
	return model.Producto{ID: uuid.New(), Nombre: nombre, Precio: dec(precio), Unidad: model.UnidadKg, Activo: true}
}

func productoUnidad(nombre, precio string) model.Producto {
	return model.Producto{ID: uuid.New(), Nombre: nombre, Precio: dec(precio), Unidad: model.UnidadUnidad, Activo: true}
}

// ── Pesaje ────────────────────────────────────────────────────────────────────

type pesoFijo struct{ v decimal.Decimal }

func (p *pesoFijo) Lectura() decimal.Decimal { return p.v }

// ── VentaRepository ───────────────────────────────────────────────────────────

type stubVentaRepo struct {
	mu          sync.Mutex
	ventas      map[uuid.UUID]*model.Venta
	items       map[uuid.UUID]model.VentaItem // keyed by line id
	lineCalls   int
	errCabecera error
	// failLineas makes the next N InsertarLineas calls fail.
	failLineas int

	// entered / release let a test hold InsertarCabecera mid-flight.
	entered chan struct{}
	release chan struct{}
}

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{
		ventas: make(map[uuid.UUID]*model.Venta),
		items:  make(map[uuid.UUID]model.VentaItem),
	}
}

func (r *stubVentaRepo) InsertarCabecera(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errCabecera != nil {
		return r.errCabecera
	}
	if err := v.Validar(); err != nil {
		return err
	}
	v.ID = uuid.New()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := *v
	cp.Items = nil
	r.ventas[v.ID] = &cp
	return nil
}

func (r *stubVentaRepo) InsertarLineas(_ context.Context, _ *gorm.DB, ventaID uuid.UUID, items []model.VentaItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineCalls++
	if r.failLineas > 0 {
		r.failLineas--
		return errStore
	}
	for _, it := range items {
		it.VentaID = ventaID
		it.ID = model.ItemID(ventaID, it.ProductoID)
		if _, ok := r.items[it.ID]; ok {
			continue // ON CONFLICT DO NOTHING
		}
		r.items[it.ID] = it
	}
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVentaRepo) ContarLineas(_ context.Context, ventaID uuid.UUID) (int64, error) {
	return int64(len(r.lineasDe(ventaID))), nil
}

func (r *stubVentaRepo) ListRecientes(_ context.Context, limite int) ([]repository.VentaReciente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.VentaReciente, 0, len(r.ventas))
	for _, v := range r.ventas {
		out = append(out, repository.VentaReciente{
			ID:         v.ID,
			UsuarioID:  v.UsuarioID,
			Total:      v.Total,
			MetodoPago: v.MetodoPago,
			Entregado:  v.Entregado,
			CreatedAt:  v.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limite {
		out = out[:limite]
	}
	return out, nil
}

func (r *stubVentaRepo) SumVentasPorMetodo(_ context.Context, usuarioID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := make(map[string]decimal.Decimal)
	for _, v := range r.ventas {
		if (usuarioID == uuid.Nil || v.UsuarioID == usuarioID) && !v.CreatedAt.Before(desde) {
			sums[v.MetodoPago] = sums[v.MetodoPago].Add(v.Total)
		}
	}
	return sums, nil
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

func (r *stubVentaRepo) lineasDe(ventaID uuid.UUID) []model.VentaItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VentaItem
	for _, it := range r.items {
		if it.VentaID == ventaID {
			out = append(out, it)
		}
	}
	return out
}

func (r *stubVentaRepo) cantidadVentas() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ventas)
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

// ── CajaRepository ────────────────────────────────────────────────────────────

type stubCajaRepo struct {
	mu          sync.Mutex
	movimientos []model.MovimientoCaja
	err         error
}

func (r *stubCajaRepo) InsertarMovimiento(_ context.Context, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := m.Validar(); err != nil {
		return err
	}
	m.ID = uuid.New()
	// Strictly increasing timestamps keep "since opening" queries deterministic.
	m.CreatedAt = time.Now().Add(time.Duration(len(r.movimientos)) * time.Microsecond)
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubCajaRepo) ListMovimientos(_ context.Context, usuarioID uuid.UUID, desde time.Time) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if (usuarioID == uuid.Nil || m.UsuarioID == usuarioID) && !m.CreatedAt.Before(desde) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubCajaRepo) SumMovimientosPorTipo(ctx context.Context, usuarioID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	movs, _ := r.ListMovimientos(ctx, usuarioID, desde)
	sums := make(map[string]decimal.Decimal)
	for _, m := range movs {
		sums[m.Tipo] = sums[m.Tipo].Add(m.Monto)
	}
	return sums, nil
}

var _ repository.CajaRepository = (*stubCajaRepo)(nil)

// ── Catalog repositories ──────────────────────────────────────────────────────

type stubProductoRepo struct {
	mu        sync.Mutex
	productos []model.Producto
	err       error
	calls     int
	findCalls int
}

func (r *stubProductoRepo) ListActivos(_ context.Context) ([]model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	out := make([]model.Producto, len(r.productos))
	copy(out, r.productos)
	return out, nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.productos {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

type stubCategoriaRepo struct{ categorias []model.Categoria }

func (r *stubCategoriaRepo) ListarActivas(_ context.Context) ([]model.Categoria, error) {
	return r.categorias, nil
}

var _ repository.CategoriaRepository = (*stubCategoriaRepo)(nil)

type stubUsuarioRepo struct {
	usuarios map[uuid.UUID]model.Usuario
	err      error
}

func (r *stubUsuarioRepo) FindActivoByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.usuarios[id]
	if !ok || !u.Activo {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

// ── Orphan ledger / publisher ─────────────────────────────────────────────────

type stubLibro struct {
	mu      sync.Mutex
	entries map[uuid.UUID]worker.VentaHuerfana
}

func newStubLibro() *stubLibro {
	return &stubLibro{entries: make(map[uuid.UUID]worker.VentaHuerfana)}
}

func (l *stubLibro) Registrar(_ context.Context, h worker.VentaHuerfana) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[h.VentaID] = h
	return nil
}

func (l *stubLibro) Listar(_ context.Context) ([]worker.VentaHuerfana, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]worker.VentaHuerfana, 0, len(l.entries))
	for _, h := range l.entries {
		out = append(out, h)
	}
	return out, nil
}

func (l *stubLibro) Obtener(_ context.Context, id uuid.UUID) (*worker.VentaHuerfana, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.entries[id]
	if !ok {
		return nil, worker.ErrHuerfanaNoEncontrada
	}
	return &h, nil
}

func (l *stubLibro) Remover(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, id)
	return nil
}

var _ service.LibroHuerfanas = (*stubLibro)(nil)

type stubPublicador struct {
	mu      sync.Mutex
	eventos []worker.VentaRegistrada
}

func (p *stubPublicador) PublicarVentaRegistrada(_ context.Context, ev worker.VentaRegistrada) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventos = append(p.eventos, ev)
	return nil
}

var _ service.Publicador = (*stubPublicador)(nil)
