package router

import (
	"context"
	"time"

	"verdupos/internal/config"
	"verdupos/internal/handler"
	"verdupos/internal/infra"
	"verdupos/internal/middleware"
	"verdupos/internal/model"
	"verdupos/internal/repository"
	"verdupos/internal/service"
	"verdupos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Handlers groups everything Mount needs.
type Handlers struct {
	Caja     *handler.CajaHandler
	Carrito  *handler.CarritoHandler
	Balanza  *handler.BalanzaHandler
	Cobro    *handler.CobroHandler
	Ventas   *handler.VentasHandler
	Catalogo *handler.CatalogoHandler
	Sesiones *handler.Sesiones
	Health   gin.HandlerFunc
}

// New wires all dependencies and returns a configured Gin engine plus the
// terminal registry, which the caller closes on shutdown.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, metrics *infra.Metrics) (*gin.Engine, *service.Terminales, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	modo, err := infra.ParseModoBalanza(cfg.ScaleMode)
	if err != nil {
		return nil, nil, err
	}

	// ── Infrastructure ───────────────────────────────────────────────────────
	catalogoCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	dispatcher := worker.NewDispatcher(rdb)
	huerfanas := worker.NewRegistroHuerfanas(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	categoriaRepo := repository.NewCategoriaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	actores := service.NewActorGateway(usuarioRepo)
	catalogoSvc := service.NewCatalogoService(productoRepo, categoriaRepo, rdb,
		time.Duration(cfg.CatalogCacheTTLMin)*time.Minute, catalogoCB, metrics)
	cajaSvc := service.NewCajaService(cajaRepo, ventaRepo, metrics)
	ventaSvc := service.NewVentaService(ventaRepo, huerfanas, dispatcher, metrics,
		service.VentaConfig{Atomico: cfg.SaleCommitAtomic})
	terminales := service.NewTerminales(service.TerminalConfig{
		Balanza: infra.BalanzaConfig{
			Modo: modo,
			Tick: time.Duration(cfg.ScaleTickMS) * time.Millisecond,
		},
	}, ventaSvc, cajaSvc, catalogoSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	sesiones := handler.NewSesiones(actores, terminales)
	h := Handlers{
		Caja:     handler.NewCajaHandler(sesiones),
		Carrito:  handler.NewCarritoHandler(sesiones),
		Balanza:  handler.NewBalanzaHandler(sesiones),
		Cobro:    handler.NewCobroHandler(sesiones),
		Ventas:   handler.NewVentasHandler(ventaSvc, sesiones),
		Catalogo: handler.NewCatalogoHandler(catalogoSvc),
		Sesiones: sesiones,
		Health:   handler.Health(db, rdb, catalogoCB),
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(ctx, cfg.RateLimitPerMin, time.Minute))

	r.GET("/metrics", gin.WrapH(infra.MetricsHandler()))
	Mount(r, cfg.JWTSecret, h)

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r, terminales, nil
}

// Mount registers the API routes on r.
func Mount(r *gin.Engine, jwtSecret string, h Handlers) {
	// Public
	if h.Health != nil {
		r.GET("/health", h.Health)
	}

	todos := middleware.RequireRole(model.RolCajero, model.RolSupervisor, model.RolAdministrador)
	operadores := middleware.RequireRole(model.RolSupervisor, model.RolAdministrador)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(jwtSecret), todos)
	{
		v1.GET("/productos", h.Catalogo.ListarProductos)
		v1.GET("/categorias", h.Catalogo.ListarCategorias)

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", h.Caja.Abrir)
			caja.POST("/movimiento", h.Caja.RegistrarMovimiento)
			caja.GET("/resumen", h.Caja.Resumen)
			caja.GET("/movimientos", h.Caja.Movimientos)
		}
		v1.POST("/terminal/salir", h.Caja.Salir)

		carrito := v1.Group("/carrito")
		{
			carrito.GET("", h.Carrito.Obtener)
			carrito.DELETE("", h.Carrito.Vaciar)
			carrito.POST("/items", h.Carrito.Agregar)
			carrito.PUT("/items/:id", h.Carrito.ActualizarCantidad)
			carrito.DELETE("/items/:id", h.Carrito.Quitar)
		}

		balanza := v1.Group("/balanza")
		{
			balanza.GET("", h.Balanza.Obtener)
			balanza.PUT("/modo", h.Balanza.SetModo)
			balanza.POST("/presentar", h.Balanza.PresentarArticulo)
			balanza.PUT("/lectura", h.Balanza.EstablecerLectura)
			balanza.POST("/feed", h.Balanza.Alimentar)
			balanza.POST("/tara", h.Balanza.Tara)
		}

		cobro := v1.Group("/cobro")
		{
			cobro.GET("", h.Cobro.Obtener)
			cobro.DELETE("", h.Cobro.Cancelar)
			cobro.POST("/metodo", h.Cobro.SeleccionarMetodo)
			cobro.POST("/tecla", h.Cobro.Teclear)
			cobro.POST("/confirmar", h.Cobro.Confirmar)
			cobro.POST("/reintentar-lineas", h.Cobro.ReintentarLineas)
		}

		// The token role is checked first; the stored role has the last word.
		ventas := v1.Group("/ventas", operadores, h.Sesiones.RequireRol(model.RolSupervisor, model.RolAdministrador))
		{
			ventas.GET("", h.Ventas.ListarVentas)
			ventas.GET("/huerfanas", h.Ventas.ListarHuerfanas)
			ventas.POST("/:id/lineas", h.Ventas.Conciliar)
		}
	}
}
