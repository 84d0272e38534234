package service

import (
	"context"
	"errors"

	"verdupos/internal/model"
	"verdupos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorGateway turns a verified token subject into the actor stamped on
// every write. Inactive or unknown users are not actors.
type ActorGateway interface {
	Resolver(ctx context.Context, usuarioID uuid.UUID) (*model.Actor, error)
}

type actorGateway struct {
	repo repository.UsuarioRepository
}

func NewActorGateway(repo repository.UsuarioRepository) ActorGateway {
	return &actorGateway{repo: repo}
}

func (g *actorGateway) Resolver(ctx context.Context, usuarioID uuid.UUID) (*model.Actor, error) {
	if usuarioID == uuid.Nil {
		return nil, ErrNoAutenticado
	}
	u, err := g.repo.FindActivoByID(ctx, usuarioID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoAutenticado
	}
	if err != nil {
		return nil, &ErrorPersistencia{Operacion: "usuario", Err: err}
	}
	return &model.Actor{ID: u.ID, Nombre: u.Nombre, Rol: u.Rol}, nil
}
