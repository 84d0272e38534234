package service

import (
	"context"
	"strings"
	"time"

	"verdupos/internal/infra"
	"verdupos/internal/model"
	"verdupos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Alcance values for ResumenCaja.
const (
	AlcanceCajero = "cajero"
	AlcanceTodos  = "todos"
)

// ResumenCaja is the register dashboard since the session opened. An
// administrador sees every cashier's totals; MontoInicial is then the sum of
// all openings in the window.
type ResumenCaja struct {
	Alcance       string          `json:"alcance"`
	Desde         time.Time       `json:"desde"`
	MontoInicial  decimal.Decimal `json:"monto_inicial"`
	TotalVendido  decimal.Decimal `json:"total_vendido"`
	TotalEfectivo decimal.Decimal `json:"total_efectivo"`
	TotalIngresos decimal.Decimal `json:"total_ingresos"`
	TotalSalidas  decimal.Decimal `json:"total_salidas"`
	SaldoCaja     decimal.Decimal `json:"saldo_caja"`
}

type CajaService interface {
	// Abrir writes the opening movement; the session exists only if it succeeds.
	Abrir(ctx context.Context, actor *model.Actor, monto decimal.Decimal, nota string) (*model.SesionCaja, error)
	RegistrarMovimiento(ctx context.Context, actor *model.Actor, sesion *model.SesionCaja, tipo string, monto decimal.Decimal, nota string) (*model.MovimientoCaja, error)
	Resumen(ctx context.Context, actor *model.Actor, sesion *model.SesionCaja) (*ResumenCaja, error)
	// Movimientos lists the actor's movements since the session opened.
	Movimientos(ctx context.Context, actor *model.Actor, sesion *model.SesionCaja) ([]model.MovimientoCaja, error)
}

type cajaService struct {
	repo    repository.CajaRepository
	ventas  repository.VentaRepository
	metrics *infra.Metrics
}

func NewCajaService(repo repository.CajaRepository, ventas repository.VentaRepository, metrics *infra.Metrics) CajaService {
	return &cajaService{repo: repo, ventas: ventas, metrics: metrics}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, actor *model.Actor, monto decimal.Decimal, nota string) (*model.SesionCaja, error) {
	if actor == nil || actor.ID == uuid.Nil {
		return nil, ErrNoAutenticado
	}
	if monto.IsNegative() {
		return nil, validacion("monto", "el monto inicial no puede ser negativo")
	}

	mov := &model.MovimientoCaja{
		UsuarioID: actor.ID,
		Tipo:      model.MovimientoApertura,
		Monto:     monto.Round(decimalesMoneda),
		Nota:      notaOpcional(nota),
	}
	if err := s.repo.InsertarMovimiento(ctx, mov); err != nil {
		log.Error().Err(err).Str("usuario_id", actor.ID.String()).Msg("caja: fallo la apertura")
		return nil, &ErrorPersistencia{Operacion: "apertura de caja", Err: err}
	}
	s.contar(mov.Tipo)

	opened := mov.CreatedAt
	if opened.IsZero() {
		opened = time.Now()
	}
	log.Info().
		Str("usuario_id", actor.ID.String()).
		Str("monto", mov.Monto.StringFixed(decimalesMoneda)).
		Msg("caja abierta")
	return &model.SesionCaja{
		UsuarioID:    actor.ID,
		MontoInicial: mov.Monto,
		Nota:         strings.TrimSpace(nota),
		Abierta:      true,
		OpenedAt:     opened,
		AperturaID:   mov.ID,
	}, nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Ingreso / salida manual. Movements are immutable: no Update/Delete.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, actor *model.Actor, sesion *model.SesionCaja, tipo string, monto decimal.Decimal, nota string) (*model.MovimientoCaja, error) {
	if actor == nil || actor.ID == uuid.Nil {
		return nil, ErrNoAutenticado
	}
	if sesion == nil || !sesion.Abierta || sesion.UsuarioID != actor.ID {
		return nil, ErrCajaCerrada
	}
	if tipo != model.MovimientoIngreso && tipo != model.MovimientoSalida {
		return nil, validacion("tipo", "el tipo debe ser ingreso o salida")
	}
	monto = monto.Round(decimalesMoneda)
	if !monto.IsPositive() {
		return nil, validacion("monto", "el monto debe ser mayor a cero")
	}

	mov := &model.MovimientoCaja{
		UsuarioID: actor.ID,
		Tipo:      tipo,
		Monto:     monto,
		Nota:      notaOpcional(nota),
	}
	if err := s.repo.InsertarMovimiento(ctx, mov); err != nil {
		log.Error().Err(err).Str("tipo", tipo).Msg("caja: fallo el movimiento")
		return nil, &ErrorPersistencia{Operacion: "movimiento de caja", Err: err}
	}
	s.contar(tipo)
	return mov, nil
}

// ── Resumen ───────────────────────────────────────────────────────────────────
// saldo_caja = monto_inicial + ventas en efectivo + ingresos - salidas

func (s *cajaService) Resumen(ctx context.Context, actor *model.Actor, sesion *model.SesionCaja) (*ResumenCaja, error) {
	if actor == nil || actor.ID == uuid.Nil {
		return nil, ErrNoAutenticado
	}
	if sesion == nil || !sesion.Abierta {
		return nil, ErrCajaCerrada
	}

	alcance, usuarioID := AlcanceCajero, actor.ID
	if actor.Rol == model.RolAdministrador {
		alcance, usuarioID = AlcanceTodos, uuid.Nil
	}

	movs, err := s.repo.SumMovimientosPorTipo(ctx, usuarioID, sesion.OpenedAt)
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "resumen de caja", Err: err}
	}
	ventas, err := s.ventas.SumVentasPorMetodo(ctx, usuarioID, sesion.OpenedAt)
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "resumen de caja", Err: err}
	}

	vendido := decimal.Zero
	for _, v := range ventas {
		vendido = vendido.Add(v)
	}
	r := &ResumenCaja{
		Alcance:       alcance,
		Desde:         sesion.OpenedAt,
		MontoInicial:  sesion.MontoInicial,
		TotalVendido:  vendido,
		TotalEfectivo: ventas[model.MetodoEfectivo],
		TotalIngresos: movs[model.MovimientoIngreso],
		TotalSalidas:  movs[model.MovimientoSalida],
	}
	if alcance == AlcanceTodos {
		r.MontoInicial = movs[model.MovimientoApertura]
	}
	r.SaldoCaja = r.MontoInicial.Add(r.TotalEfectivo).Add(r.TotalIngresos).Sub(r.TotalSalidas)
	return r, nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────

func (s *cajaService) Movimientos(ctx context.Context, actor *model.Actor, sesion *model.SesionCaja) ([]model.MovimientoCaja, error) {
	if actor == nil || actor.ID == uuid.Nil {
		return nil, ErrNoAutenticado
	}
	if sesion == nil || !sesion.Abierta || sesion.UsuarioID != actor.ID {
		return nil, ErrCajaCerrada
	}
	movs, err := s.repo.ListMovimientos(ctx, actor.ID, sesion.OpenedAt)
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "movimientos de caja", Err: err}
	}
	if movs == nil {
		movs = []model.MovimientoCaja{}
	}
	return movs, nil
}

func (s *cajaService) contar(tipo string) {
	if s.metrics != nil {
		s.metrics.MovimientosCaja.WithLabelValues(tipo).Inc()
	}
}

func notaOpcional(nota string) *string {
	nota = strings.TrimSpace(nota)
	if nota == "" {
		return nil
	}
	return &nota
}
