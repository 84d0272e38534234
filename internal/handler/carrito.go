package handler

import (
	"net/http"

	"verdupos/internal/dto"
	"verdupos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CarritoHandler struct{ sesiones *Sesiones }

func NewCarritoHandler(sesiones *Sesiones) *CarritoHandler {
	return &CarritoHandler{sesiones: sesiones}
}

func (h *CarritoHandler) Obtener(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, carritoToResponse(t.Vista()))
}

// Agregar godoc
// @Summary Agrega un producto con el peso actual de la balanza
// @Tags carrito
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AgregarItemRequest true "Producto"
// @Success 200 {object} dto.CarritoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/carrito/items [post]
func (h *CarritoHandler) Agregar(c *gin.Context) {
	var req dto.AgregarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	id, _ := uuid.Parse(req.ProductoID)
	if _, err := t.AgregarProducto(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, carritoToResponse(t.Vista()))
}

func (h *CarritoHandler) ActualizarCantidad(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarCantidadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	if err := t.ActualizarCantidad(id, req.Cantidad); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, carritoToResponse(t.Vista()))
}

func (h *CarritoHandler) Quitar(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	if err := t.QuitarProducto(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, carritoToResponse(t.Vista()))
}

func (h *CarritoHandler) Vaciar(c *gin.Context) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return
	}
	if err := t.VaciarCarrito(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, carritoToResponse(t.Vista()))
}

func carritoToResponse(v service.VistaTerminal) dto.CarritoResponse {
	resp := dto.CarritoResponse{
		Lineas: make([]dto.LineaCarritoResponse, 0, len(v.Lineas)),
		Total:  v.Total,
	}
	for _, l := range v.Lineas {
		resp.Lineas = append(resp.Lineas, dto.LineaCarritoResponse{
			ProductoID:     l.Producto.ID.String(),
			Nombre:         l.Producto.Nombre,
			Unidad:         l.Producto.Unidad,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.Producto.Precio,
			Subtotal:       l.Subtotal().Round(2),
		})
	}
	return resp
}
