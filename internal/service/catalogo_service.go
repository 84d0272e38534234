package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"verdupos/internal/infra"
	"verdupos/internal/model"
	"verdupos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	keyCatalogoProductos  = "catalogo:productos"
	keyCatalogoCategorias = "catalogo:categorias"
	// keyCatalogoRespaldo has no TTL; it is served only while the store is down.
	keyCatalogoRespaldo = "catalogo:productos:respaldo"

	defaultCatalogoTTL = 10 * time.Minute
)

// Origen label values for the catalog read counter.
const (
	origenCache    = "cache"
	origenStore    = "store"
	origenRespaldo = "respaldo"
)

// CatalogoService is the read-only catalog gateway consumed at cart-build time.
type CatalogoService interface {
	ListarProductos(ctx context.Context) ([]model.Producto, error)
	ObtenerProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	ListarCategorias(ctx context.Context) ([]model.Categoria, error)
}

type catalogoService struct {
	productos  repository.ProductoRepository
	categorias repository.CategoriaRepository
	rdb        *redis.Client
	ttl        time.Duration
	cb         *infra.CircuitBreaker
	metrics    *infra.Metrics
}

// NewCatalogoService reads through Redis when rdb is non-nil. Store reads go
// through cb so a failing database falls back to the last good catalog.
func NewCatalogoService(
	productos repository.ProductoRepository,
	categorias repository.CategoriaRepository,
	rdb *redis.Client,
	ttl time.Duration,
	cb *infra.CircuitBreaker,
	metrics *infra.Metrics,
) CatalogoService {
	if ttl <= 0 {
		ttl = defaultCatalogoTTL
	}
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig())
	}
	return &catalogoService{
		productos:  productos,
		categorias: categorias,
		rdb:        rdb,
		ttl:        ttl,
		cb:         cb,
		metrics:    metrics,
	}
}

// ── ListarProductos ───────────────────────────────────────────────────────────
//   1. Redis cache
//   2. store through the circuit breaker, refreshing cache and backup copy
//   3. on store failure, the backup copy if there is one

func (s *catalogoService) ListarProductos(ctx context.Context) ([]model.Producto, error) {
	var list []model.Producto
	if s.leerCache(ctx, keyCatalogoProductos, &list) {
		s.contar(origenCache)
		return list, nil
	}

	err := s.cb.Execute(func() error {
		var err error
		list, err = s.productos.ListActivos(ctx)
		return err
	})
	if err != nil {
		var respaldo []model.Producto
		if s.leerCache(ctx, keyCatalogoRespaldo, &respaldo) {
			log.Warn().Err(err).Str("breaker", s.cb.State().String()).Msg("catalogo: sirviendo copia de respaldo")
			s.contar(origenRespaldo)
			return respaldo, nil
		}
		return nil, &ErrorPersistencia{Operacion: "catalogo", Err: err}
	}

	s.contar(origenStore)
	s.escribirCache(keyCatalogoProductos, list, s.ttl)
	s.escribirCache(keyCatalogoRespaldo, list, 0)
	return list, nil
}

// ObtenerProducto resolves id against the cached catalog. On a cache miss it
// reads the single product instead of reloading the whole list; a product
// that does not exist is not a store failure and leaves the breaker alone.
func (s *catalogoService) ObtenerProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var list []model.Producto
	if s.leerCache(ctx, keyCatalogoProductos, &list) {
		s.contar(origenCache)
		return buscarProducto(list, id)
	}

	var p *model.Producto
	err := s.cb.Execute(func() error {
		var err error
		p, err = s.productos.FindByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = nil
			return nil
		}
		return err
	})
	if err != nil {
		var respaldo []model.Producto
		if s.leerCache(ctx, keyCatalogoRespaldo, &respaldo) {
			log.Warn().Err(err).Str("producto_id", id.String()).Msg("catalogo: producto desde copia de respaldo")
			s.contar(origenRespaldo)
			return buscarProducto(respaldo, id)
		}
		return nil, &ErrorPersistencia{Operacion: "catalogo", Err: err}
	}
	s.contar(origenStore)
	if p == nil {
		return nil, ErrProductoNoEncontrado
	}
	return p, nil
}

func buscarProducto(list []model.Producto, id uuid.UUID) (*model.Producto, error) {
	for i := range list {
		if list[i].ID == id {
			p := list[i]
			return &p, nil
		}
	}
	return nil, ErrProductoNoEncontrado
}

func (s *catalogoService) ListarCategorias(ctx context.Context) ([]model.Categoria, error) {
	var list []model.Categoria
	if s.leerCache(ctx, keyCatalogoCategorias, &list) {
		return list, nil
	}
	err := s.cb.Execute(func() error {
		var err error
		list, err = s.categorias.ListarActivas(ctx)
		return err
	})
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "categorias", Err: err}
	}
	s.escribirCache(keyCatalogoCategorias, list, s.ttl)
	return list, nil
}

func (s *catalogoService) leerCache(ctx context.Context, key string, dst interface{}) bool {
	if s.rdb == nil {
		return false
	}
	cached, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(cached, dst) == nil
}

// escribirCache is best effort; errors are ignored.
func (s *catalogoService) escribirCache(key string, v interface{}, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		_ = s.rdb.Set(context.Background(), key, b, ttl).Err()
	}
}

func (s *catalogoService) contar(origen string) {
	if s.metrics != nil {
		s.metrics.CatalogoCacheHits.WithLabelValues(origen).Inc()
	}
}
