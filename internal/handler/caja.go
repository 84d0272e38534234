package handler

import (
	"net/http"

	"verdupos/internal/dto"
	"verdupos/internal/model"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ sesiones *Sesiones }

func NewCajaHandler(sesiones *Sesiones) *CajaHandler { return &CajaHandler{sesiones: sesiones} }

// Abrir godoc
// @Summary Abre la caja del cajero autenticado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Monto inicial y nota"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 422 {object} apierror.ValidationError
// @Failure 503 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	sesion, err := t.AbrirCaja(c.Request.Context(), req.MontoInicial, req.Nota)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sesionToResponse(sesion))
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o salida de efectivo
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoCajaRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	mov, err := t.RegistrarMovimiento(c.Request.Context(), req.Tipo, req.Monto, req.Nota)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movimientoToResponse(mov))
}

// Resumen godoc
// @Summary Resumen de la caja desde su apertura
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ResumenCaja
// @Router /v1/caja/resumen [get]
func (h *CajaHandler) Resumen(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	r, err := t.ResumenCaja(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Movimientos godoc
// @Summary Movimientos de la caja desde su apertura
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.MovimientoCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/movimientos [get]
func (h *CajaHandler) Movimientos(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	movs, err := t.MovimientosCaja(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.MovimientoCajaResponse, 0, len(movs))
	for i := range movs {
		resp = append(resp, movimientoToResponse(&movs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Salir discards the caller's terminal (session, cart, tender, scale).
func (h *CajaHandler) Salir(c *gin.Context) {
	a, ok := h.sesiones.actor(c)
	if !ok {
		return
	}
	if err := h.sesiones.terminales.Salir(a.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	return dto.SesionCajaResponse{
		UsuarioID:    s.UsuarioID.String(),
		MontoInicial: s.MontoInicial,
		Nota:         s.Nota,
		Abierta:      s.Abierta,
		OpenedAt:     s.OpenedAt,
		AperturaID:   s.AperturaID.String(),
	}
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoCajaResponse {
	return dto.MovimientoCajaResponse{
		ID:        m.ID.String(),
		Tipo:      m.Tipo,
		Monto:     m.Monto,
		Nota:      m.Nota,
		CreatedAt: m.CreatedAt,
	}
}
