package handler

import (
	"net/http"
	"strconv"
	"time"

	"verdupos/internal/apierror"
	"verdupos/internal/dto"
	"verdupos/internal/service"
	"verdupos/internal/worker"

	"github.com/gin-gonic/gin"
)

// VentasHandler serves the operator side of orphaned headers.
type VentasHandler struct {
	svc      service.VentaService
	sesiones *Sesiones
}

func NewVentasHandler(svc service.VentaService, sesiones *Sesiones) *VentasHandler {
	return &VentasHandler{svc: svc, sesiones: sesiones}
}

// ListarVentas godoc
// @Summary Ultimas ventas registradas con su cantidad de lineas
// @Tags ventas
// @Produce json
// @Security BearerAuth
// @Param limite query int false "Cantidad de ventas (default 50, max 200)"
// @Success 200 {array} dto.VentaResponse
// @Router /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	limite := 0
	if q := c.Query("limite"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, apierror.New("limite invalido"))
			return
		}
		limite = n
	}
	list, err := h.svc.ListarVentas(c.Request.Context(), limite)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.VentaResponse, 0, len(list))
	for _, v := range list {
		resp = append(resp, dto.VentaResponse{
			ID:         v.ID.String(),
			UsuarioID:  v.UsuarioID.String(),
			Usuario:    v.UsuarioNombre,
			Total:      v.Total,
			MetodoPago: v.MetodoPago,
			Entregado:  v.Entregado,
			Lineas:     v.Lineas,
			SinDetalle: v.Lineas == 0,
			CreatedAt:  v.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ListarHuerfanas godoc
// @Summary Ventas registradas sin detalle
// @Tags ventas
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.VentaHuerfanaResponse
// @Router /v1/ventas/huerfanas [get]
func (h *VentasHandler) ListarHuerfanas(c *gin.Context) {
	list, err := h.svc.ListarHuerfanas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.VentaHuerfanaResponse, 0, len(list))
	for _, v := range list {
		resp = append(resp, huerfanaToResponse(v))
	}
	c.JSON(http.StatusOK, resp)
}

// Conciliar godoc
// @Summary Reintenta el detalle guardado de una venta huerfana
// @Tags ventas
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de venta"
// @Success 200 {object} dto.VentaRegistradaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.PartialCommit
// @Router /v1/ventas/{id}/lineas [post]
func (h *VentasHandler) Conciliar(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	a, ok := h.sesiones.actor(c)
	if !ok {
		return
	}
	if err := h.svc.Conciliar(c.Request.Context(), a, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.VentaRegistradaResponse{VentaID: id.String()})
}

func huerfanaToResponse(v worker.VentaHuerfana) dto.VentaHuerfanaResponse {
	resp := dto.VentaHuerfanaResponse{
		VentaID:      v.VentaID.String(),
		UsuarioID:    v.UsuarioID.String(),
		Total:        v.Total,
		MetodoPago:   v.MetodoPago,
		Lineas:       make([]dto.ItemHuerfanoResponse, 0, len(v.Lineas)),
		Motivo:       v.Motivo,
		RegistradaEn: v.RegistradaEn.UTC().Format(time.RFC3339),
	}
	for _, l := range v.Lineas {
		resp.Lineas = append(resp.Lineas, dto.ItemHuerfanoResponse{
			ProductoID:     l.ProductoID.String(),
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Subtotal:       l.Subtotal,
		})
	}
	return resp
}
