package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles conocidos.
const (
	RolCajero        = "cajero"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)

// Usuario is the persisted actor record. Credentials live with the identity
// provider; the register only reads id, role and status.
type Usuario struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"not null"`
	Rol       string    `gorm:"type:varchar(20);not null;default:'cajero'"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor is the resolved identity threaded through every write path.
type Actor struct {
	ID     uuid.UUID
	Nombre string
	Rol    string
}
