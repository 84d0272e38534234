package handler

import (
	"errors"
	"net/http"
	"reflect"

	"verdupos/internal/apierror"
	"verdupos/internal/infra"
	"verdupos/internal/middleware"
	"verdupos/internal/model"
	"verdupos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				fields[fe.Field()] = fe.Tag()
			}
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors onto status codes. Internal causes are
// logged, never echoed to the client.
func respondError(c *gin.Context, err error) {
	var (
		ve  *service.ValidationError
		pe  *service.ErrorPersistencia
		cpe *service.CommitParcialError
	)
	switch {
	case errors.Is(err, service.ErrNoAutenticado):
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
	case errors.As(err, &cpe):
		c.JSON(http.StatusConflict, apierror.NewPartialCommit(cpe.VentaID.String()))
	case errors.Is(err, service.ErrCobroEnCurso):
		c.JSON(http.StatusConflict, apierror.New("Hay un registro de venta en curso"))
	case errors.Is(err, service.ErrCajaCerrada):
		c.JSON(http.StatusConflict, apierror.New("La caja no esta abierta"))
	case errors.Is(err, service.ErrProductoNoEncontrado), errors.Is(err, service.ErrVentaNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.As(err, &ve):
		campo := ve.Campo
		if campo == "" {
			campo = "detalle"
		}
		c.JSON(http.StatusUnprocessableEntity, &apierror.ValidationError{
			Detail: ve.Mensaje,
			Fields: map[string]string{campo: ve.Mensaje},
		})
	case errors.Is(err, infra.ErrSoloManual), errors.Is(err, infra.ErrSoloSimulacion),
		errors.Is(err, infra.ErrPesoNegativo), errors.Is(err, infra.ErrModoInvalido):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.Is(err, infra.ErrBalanzaCerrada):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.As(err, &pe):
		log.Error().Err(pe.Err).Str("request_id", c.GetString(middleware.RequestIDKey)).Str("operacion", pe.Operacion).Msg("persistencia")
		c.JSON(http.StatusServiceUnavailable, apierror.New("No se pudo guardar; reintente la operacion"))
	default:
		_ = c.Error(err)
	}
}

// Sesiones resolves the caller's actor and terminal from the JWT claims.
type Sesiones struct {
	actores    service.ActorGateway
	terminales *service.Terminales
}

func NewSesiones(actores service.ActorGateway, terminales *service.Terminales) *Sesiones {
	return &Sesiones{actores: actores, terminales: terminales}
}

const actorKey = "actor"

// actor writes the error response and returns false when there is none.
// The resolved actor is kept on the context for the rest of the request.
func (s *Sesiones) actor(c *gin.Context) (*model.Actor, bool) {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(*model.Actor); ok {
			return a, true
		}
	}
	claims := middleware.GetClaims(c)
	if claims == nil {
		respondError(c, service.ErrNoAutenticado)
		return nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		respondError(c, service.ErrNoAutenticado)
		return nil, false
	}
	a, err := s.actores.Resolver(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	c.Set(actorKey, a)
	return a, true
}

// RequireRol checks the role stored for the user, not the one in the token,
// so a token issued before a demotion loses its privileges at once.
func (s *Sesiones) RequireRol(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		a, ok := s.actor(c)
		if !ok {
			c.Abort()
			return
		}
		if !allowed[a.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

func (s *Sesiones) terminal(c *gin.Context) (*service.Terminal, bool) {
	a, ok := s.actor(c)
	if !ok {
		return nil, false
	}
	t, err := s.terminales.Obtener(a)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return t, true
}
