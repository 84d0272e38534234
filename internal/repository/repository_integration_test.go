//go:build integration

package repository_test

// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"testing"
	"time"

	"verdupos/internal/infra"
	"verdupos/internal/model"
	"verdupos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:15-alpine",
		tcPostgres.WithDatabase("verdupos_test"),
		tcPostgres.WithUsername("verdupos"),
		tcPostgres.WithPassword("verdupos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	// Re-running the schema is a no-op.
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVentaRepo_LineasIdempotentes(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewVentaRepository(db)
	ctx := context.Background()

	v := &model.Venta{UsuarioID: uuid.New(), Total: dec("12.00"), MetodoPago: model.MetodoTarjeta, CreatedAt: time.Now()}
	require.NoError(t, repo.InsertarCabecera(ctx, nil, v))
	require.NotEqual(t, uuid.Nil, v.ID)

	items := []model.VentaItem{
		{ProductoID: uuid.New(), Cantidad: dec("2"), PrecioUnitario: dec("3.00"), Subtotal: dec("6.00")},
		{ProductoID: uuid.New(), Cantidad: dec("1.5"), PrecioUnitario: dec("4.00"), Subtotal: dec("6.00")},
	}
	require.NoError(t, repo.InsertarLineas(ctx, nil, v.ID, items))
	require.NoError(t, repo.InsertarLineas(ctx, nil, v.ID, items))

	n, err := repo.ContarLineas(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "12.00", got.Total.StringFixed(2))
}

func TestVentaRepo_LineasSinCabeceraFallan(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewVentaRepository(db)

	err := repo.InsertarLineas(context.Background(), nil, uuid.New(), []model.VentaItem{
		{ProductoID: uuid.New(), Cantidad: dec("1"), PrecioUnitario: dec("1.00"), Subtotal: dec("1.00")},
	})
	assert.Error(t, err, "venta_items.venta_id references ventas")
}

func TestVentaRepo_TransaccionRevierteCabecera(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewVentaRepository(db)
	ctx := context.Background()
	v := &model.Venta{UsuarioID: uuid.New(), Total: dec("1.00"), MetodoPago: model.MetodoBilletera, CreatedAt: time.Now()}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.InsertarCabecera(ctx, tx, v); err != nil {
			return err
		}
		// Zero quantity violates the line check.
		return repo.InsertarLineas(ctx, tx, v.ID, []model.VentaItem{
			{ProductoID: uuid.New(), Cantidad: dec("0"), PrecioUnitario: dec("1.00"), Subtotal: dec("0")},
		})
	})
	require.Error(t, err)

	_, err = repo.FindByID(ctx, v.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVentaRepo_SumVentasPorMetodo(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewVentaRepository(db)
	ctx := context.Background()
	usuario := uuid.New()
	desde := time.Now().Add(-time.Minute)

	for _, v := range []*model.Venta{
		{UsuarioID: usuario, Total: dec("10.00"), MetodoPago: model.MetodoEfectivo, Entregado: dec("20.00"), CreatedAt: time.Now()},
		{UsuarioID: usuario, Total: dec("2.50"), MetodoPago: model.MetodoEfectivo, Entregado: dec("5.00"), CreatedAt: time.Now()},
		{UsuarioID: usuario, Total: dec("7.00"), MetodoPago: model.MetodoTarjeta, CreatedAt: time.Now()},
		{UsuarioID: usuario, Total: dec("99.00"), MetodoPago: model.MetodoTarjeta, CreatedAt: desde.Add(-time.Hour)},
		{UsuarioID: uuid.New(), Total: dec("50.00"), MetodoPago: model.MetodoEfectivo, CreatedAt: time.Now()},
	} {
		require.NoError(t, repo.InsertarCabecera(ctx, nil, v))
	}

	sums, err := repo.SumVentasPorMetodo(ctx, usuario, desde)
	require.NoError(t, err)
	assert.Equal(t, "12.50", sums[model.MetodoEfectivo].StringFixed(2))
	assert.Equal(t, "7.00", sums[model.MetodoTarjeta].StringFixed(2))
	_, ok := sums[model.MetodoBilletera]
	assert.False(t, ok)

	todos, err := repo.SumVentasPorMetodo(ctx, uuid.Nil, desde)
	require.NoError(t, err)
	assert.Equal(t, "62.50", todos[model.MetodoEfectivo].StringFixed(2))
}

func TestVentaRepo_ListRecientes(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewVentaRepository(db)
	ctx := context.Background()

	ana := model.Usuario{ID: uuid.New(), Nombre: "Ana", Rol: model.RolCajero, Activo: true}
	require.NoError(t, db.Create(&ana).Error)

	base := time.Now().Add(-time.Hour)
	vieja := &model.Venta{UsuarioID: ana.ID, Total: dec("3.00"), MetodoPago: model.MetodoTarjeta, CreatedAt: base}
	nueva := &model.Venta{UsuarioID: ana.ID, Total: dec("5.00"), MetodoPago: model.MetodoEfectivo, Entregado: dec("10.00"), CreatedAt: base.Add(time.Minute)}
	sinUsuario := &model.Venta{UsuarioID: uuid.New(), Total: dec("1.00"), MetodoPago: model.MetodoBilletera, CreatedAt: base.Add(2 * time.Minute)}
	for _, v := range []*model.Venta{vieja, nueva, sinUsuario} {
		require.NoError(t, repo.InsertarCabecera(ctx, nil, v))
	}
	require.NoError(t, repo.InsertarLineas(ctx, nil, nueva.ID, []model.VentaItem{
		{ProductoID: uuid.New(), Cantidad: dec("1"), PrecioUnitario: dec("5.00"), Subtotal: dec("5.00")},
	}))

	rows, err := repo.ListRecientes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, sinUsuario.ID, rows[0].ID)
	assert.Empty(t, rows[0].UsuarioNombre)
	assert.Equal(t, nueva.ID, rows[1].ID)
	assert.Equal(t, "Ana", rows[1].UsuarioNombre)
	assert.Equal(t, "10.00", rows[1].Entregado.StringFixed(2))

	n, err := repo.ContarLineas(ctx, nueva.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCajaRepo_Movimientos(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()
	usuario := uuid.New()

	apertura := &model.MovimientoCaja{UsuarioID: usuario, Tipo: model.MovimientoApertura, Monto: dec("100")}
	require.NoError(t, repo.InsertarMovimiento(ctx, apertura))
	require.False(t, apertura.CreatedAt.IsZero())

	for _, m := range []*model.MovimientoCaja{
		{UsuarioID: usuario, Tipo: model.MovimientoIngreso, Monto: dec("20")},
		{UsuarioID: usuario, Tipo: model.MovimientoSalida, Monto: dec("5.50")},
		{UsuarioID: usuario, Tipo: model.MovimientoSalida, Monto: dec("4.50")},
	} {
		require.NoError(t, repo.InsertarMovimiento(ctx, m))
	}
	assert.Error(t, repo.InsertarMovimiento(ctx, &model.MovimientoCaja{UsuarioID: usuario, Tipo: model.MovimientoSalida, Monto: dec("-1")}))

	movs, err := repo.ListMovimientos(ctx, usuario, apertura.CreatedAt)
	require.NoError(t, err)
	assert.Len(t, movs, 4)

	otro := &model.MovimientoCaja{UsuarioID: uuid.New(), Tipo: model.MovimientoApertura, Monto: dec("30")}
	require.NoError(t, repo.InsertarMovimiento(ctx, otro))
	todos, err := repo.ListMovimientos(ctx, uuid.Nil, apertura.CreatedAt)
	require.NoError(t, err)
	assert.Len(t, todos, 5)
	todasLasCajas, err := repo.SumMovimientosPorTipo(ctx, uuid.Nil, apertura.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, "130.00", todasLasCajas[model.MovimientoApertura].StringFixed(2))

	sums, err := repo.SumMovimientosPorTipo(ctx, usuario, apertura.CreatedAt)
	require.NoError(t, err)
	assert.Equal(t, "100.00", sums[model.MovimientoApertura].StringFixed(2))
	assert.Equal(t, "20.00", sums[model.MovimientoIngreso].StringFixed(2))
	assert.Equal(t, "10.00", sums[model.MovimientoSalida].StringFixed(2))
}

func TestProductoRepo_ListActivos(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	frutas := model.Categoria{ID: uuid.New(), Nombre: "Frutas", Activo: true}
	require.NoError(t, db.Create(&frutas).Error)
	require.NoError(t, db.Create(&[]model.Producto{
		{ID: uuid.New(), Nombre: "Pera", Precio: dec("4.25"), Unidad: model.UnidadKg, CategoriaID: &frutas.ID, Activo: true},
		{ID: uuid.New(), Nombre: "Banana", Precio: dec("2.10"), Unidad: model.UnidadKg, Activo: true},
	}).Error)
	inactivo := model.Producto{ID: uuid.New(), Nombre: "Kiwi", Precio: dec("6.00"), Unidad: model.UnidadUnidad, Activo: true}
	require.NoError(t, db.Create(&inactivo).Error)
	require.NoError(t, db.Model(&inactivo).Update("activo", false).Error)

	list, err := repository.NewProductoRepository(db).ListActivos(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Banana", list[0].Nombre)
	assert.Equal(t, "Frutas", list[1].NombreCategoria())

	_, err = repository.NewProductoRepository(db).FindByID(ctx, inactivo.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	cats, err := repository.NewCategoriaRepository(db).ListarActivas(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestUsuarioRepo_FindActivoByID(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	activo := model.Usuario{ID: uuid.New(), Nombre: "Ana", Rol: model.RolCajero, Activo: true}
	baja := model.Usuario{ID: uuid.New(), Nombre: "Luis", Rol: model.RolCajero, Activo: true}
	require.NoError(t, db.Create(&activo).Error)
	require.NoError(t, db.Create(&baja).Error)
	require.NoError(t, db.Model(&baja).Update("activo", false).Error)

	repo := repository.NewUsuarioRepository(db)
	u, err := repo.FindActivoByID(ctx, activo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Nombre)

	_, err = repo.FindActivoByID(ctx, baja.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
