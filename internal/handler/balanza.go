package handler

import (
	"net/http"

	"verdupos/internal/dto"
	"verdupos/internal/infra"

	"github.com/gin-gonic/gin"
)

type BalanzaHandler struct{ sesiones *Sesiones }

func NewBalanzaHandler(sesiones *Sesiones) *BalanzaHandler {
	return &BalanzaHandler{sesiones: sesiones}
}

func (h *BalanzaHandler) Obtener(c *gin.Context) {
	b, ok := h.balanza(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, balanzaToResponse(b))
}

func (h *BalanzaHandler) SetModo(c *gin.Context) {
	var req dto.ModoBalanzaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	b, ok := h.balanza(c)
	if !ok {
		return
	}
	modo, err := infra.ParseModoBalanza(req.Modo)
	if err == nil {
		err = b.SetModo(modo)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanzaToResponse(b))
}

// PresentarArticulo simulates placing an item on the plate.
func (h *BalanzaHandler) PresentarArticulo(c *gin.Context) {
	b, ok := h.balanza(c)
	if !ok {
		return
	}
	if _, err := b.PresentarArticulo(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanzaToResponse(b))
}

// EstablecerLectura stores an operator-entered weight (manual mode).
func (h *BalanzaHandler) EstablecerLectura(c *gin.Context) {
	var req dto.LecturaBalanzaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	b, ok := h.balanza(c)
	if !ok {
		return
	}
	if err := b.EstablecerLectura(req.Peso); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanzaToResponse(b))
}

// Alimentar accepts a raw device feed (text/plain, one weight per line) from a
// serial bridge and leaves the last valid weight as the reading.
func (h *BalanzaHandler) Alimentar(c *gin.Context) {
	b, ok := h.balanza(c)
	if !ok {
		return
	}
	if b.Modo() != infra.ModoManual {
		respondError(c, infra.ErrSoloManual)
		return
	}
	if err := b.Alimentar(c.Request.Context(), c.Request.Body); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanzaToResponse(b))
}

func (h *BalanzaHandler) Tara(c *gin.Context) {
	b, ok := h.balanza(c)
	if !ok {
		return
	}
	b.Tara()
	c.JSON(http.StatusOK, balanzaToResponse(b))
}

func (h *BalanzaHandler) balanza(c *gin.Context) (*infra.Balanza, bool) {
	t, ok := h.sesiones.terminal(c)
	if !ok {
		return nil, false
	}
	return t.Balanza(), true
}

func balanzaToResponse(b *infra.Balanza) dto.BalanzaResponse {
	return dto.BalanzaResponse{Modo: string(b.Modo()), Lectura: b.Lectura()}
}
