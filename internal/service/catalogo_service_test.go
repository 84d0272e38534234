package service_test

import (
	"context"
	"testing"
	"time"

	"verdupos/internal/infra"
	"verdupos/internal/model"
	"verdupos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogo_ObtenerProducto(t *testing.T) {
	palta := productoUnidad("Palta", "1.20")
	repo := &stubProductoRepo{productos: []model.Producto{palta, productoKg("Papa", "1.80")}}
	svc := service.NewCatalogoService(repo, &stubCategoriaRepo{}, nil, 0, nil, nil)

	p, err := svc.ObtenerProducto(context.Background(), palta.ID)
	require.NoError(t, err)
	assert.Equal(t, palta.Nombre, p.Nombre)

	_, err = svc.ObtenerProducto(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrProductoNoEncontrado)
}

func TestCatalogo_ObtenerProductoSinCacheLeePorID(t *testing.T) {
	papa := productoKg("Papa", "1.80")
	repo := &stubProductoRepo{productos: []model.Producto{papa}}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})
	svc := service.NewCatalogoService(repo, &stubCategoriaRepo{}, nil, 0, cb, nil)
	ctx := context.Background()

	p, err := svc.ObtenerProducto(ctx, papa.ID)
	require.NoError(t, err)
	assert.Equal(t, papa.ID, p.ID)
	assert.Equal(t, 0, repo.calls, "the full list is not reloaded")
	assert.Equal(t, 1, repo.findCalls)

	for i := 0; i < 3; i++ {
		_, err = svc.ObtenerProducto(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrProductoNoEncontrado)
	}
	assert.Equal(t, infra.CBClosed, cb.State(), "unknown products do not trip the breaker")
}

func TestCatalogo_FallaStoreSinRespaldo(t *testing.T) {
	repo := &stubProductoRepo{err: errStore}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour})
	svc := service.NewCatalogoService(repo, &stubCategoriaRepo{}, nil, 0, cb, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.ListarProductos(ctx)
		var pe *service.ErrorPersistencia
		require.ErrorAs(t, err, &pe)
		assert.ErrorIs(t, err, errStore)
	}
	assert.Equal(t, infra.CBOpen, cb.State())

	// Open breaker: the store is not touched again.
	_, err := svc.ListarProductos(ctx)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Equal(t, 2, repo.calls)

	_, err = svc.ObtenerProducto(ctx, uuid.New())
	var pe *service.ErrorPersistencia
	assert.ErrorAs(t, err, &pe)
}

func TestCatalogo_ListarCategorias(t *testing.T) {
	cats := []model.Categoria{{ID: uuid.New(), Nombre: "Frutas", Activo: true}}
	svc := service.NewCatalogoService(&stubProductoRepo{}, &stubCategoriaRepo{categorias: cats}, nil, 0, nil, nil)

	list, err := svc.ListarCategorias(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cats, list)
}
