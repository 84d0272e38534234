package handler

import (
	"net/http"

	"verdupos/internal/dto"
	"verdupos/internal/model"
	"verdupos/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogoHandler struct{ svc service.CatalogoService }

func NewCatalogoHandler(svc service.CatalogoService) *CatalogoHandler {
	return &CatalogoHandler{svc: svc}
}

// ListarProductos godoc
// @Summary Productos activos con su categoria
// @Tags catalogo
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ProductoResponse
// @Router /v1/productos [get]
func (h *CatalogoHandler) ListarProductos(c *gin.Context) {
	list, err := h.svc.ListarProductos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.ProductoResponse, 0, len(list))
	for _, p := range list {
		resp = append(resp, productoToResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatalogoHandler) ListarCategorias(c *gin.Context) {
	list, err := h.svc.ListarCategorias(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.CategoriaResponse, 0, len(list))
	for _, cat := range list {
		resp = append(resp, dto.CategoriaResponse{ID: cat.ID.String(), Nombre: cat.Nombre})
	}
	c.JSON(http.StatusOK, resp)
}

func productoToResponse(p model.Producto) dto.ProductoResponse {
	return dto.ProductoResponse{
		ID:        p.ID.String(),
		Nombre:    p.Nombre,
		Precio:    p.Precio,
		Unidad:    p.Unidad,
		Categoria: p.NombreCategoria(),
		ImagenURL: p.ImagenURL,
	}
}
