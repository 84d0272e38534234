package handler

import (
	"net/http"

	"verdupos/internal/dto"
	"verdupos/internal/service"

	"github.com/gin-gonic/gin"
)

type CobroHandler struct{ sesiones *Sesiones }

func NewCobroHandler(sesiones *Sesiones) *CobroHandler { return &CobroHandler{sesiones: sesiones} }

func (h *CobroHandler) Obtener(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cobroToResponse(t.Vista()))
}

func (h *CobroHandler) SeleccionarMetodo(c *gin.Context) {
	var req dto.SeleccionarMetodoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	if err := t.SeleccionarMetodo(req.Metodo); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cobroToResponse(t.Vista()))
}

func (h *CobroHandler) Teclear(c *gin.Context) {
	var req dto.TeclaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	if err := t.Teclear(req.Tecla); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cobroToResponse(t.Vista()))
}

// Confirmar godoc
// @Summary Confirma el cobro y registra la venta
// @Tags cobro
// @Produce json
// @Security BearerAuth
// @Success 201 {object} dto.VentaRegistradaResponse
// @Failure 409 {object} apierror.PartialCommit "cabecera registrada sin detalle"
// @Failure 422 {object} apierror.ValidationError
// @Failure 503 {object} apierror.APIError
// @Router /v1/cobro/confirmar [post]
func (h *CobroHandler) Confirmar(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	ventaID, err := t.Confirmar(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.VentaRegistradaResponse{VentaID: ventaID.String()})
}

// ReintentarLineas re-issues the lines of the terminal's pending sale.
func (h *CobroHandler) ReintentarLineas(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	ventaID, err := t.ReintentarLineas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VentaRegistradaResponse{VentaID: ventaID.String()})
}

// Cancelar discards cart and tender.
func (h *CobroHandler) Cancelar(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	if err := t.Cancelar(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cobroToResponse(t.Vista()))
}

func cobroToResponse(v service.VistaTerminal) dto.CobroResponse {
	resp := dto.CobroResponse{
		Estado:         string(v.Estado),
		Metodo:         v.Metodo,
		Total:          v.Total,
		MontoIngresado: v.Monto,
		Entregado:      v.Entregado,
		Diferencia:     v.Diferencia,
		Vuelto:         v.Vuelto,
		PuedeConfirmar: v.Estado == service.EstadoListoParaConfirmar && len(v.Lineas) > 0 && !v.EnCurso,
		EnCurso:        v.EnCurso,
	}
	if v.Pendiente != nil {
		id := v.Pendiente.VentaID.String()
		resp.VentaPendiente = &id
	}
	return resp
}
