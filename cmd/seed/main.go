// cmd/seed/main.go — Carga un cajero, categorias y productos de demo e
// imprime un token de desarrollo firmado con JWT_SECRET.
// Uso: go run ./cmd/seed
package main

import (
	"fmt"
	"os"
	"time"

	"verdupos/internal/config"
	"verdupos/internal/infra"
	"verdupos/internal/middleware"
	"verdupos/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixed ids so re-running the seed is idempotent.
var (
	cajeroID   = uuid.MustParse("0b7f6c1e-2d7a-4f51-9c1b-7f3e2a9d5c10")
	frutasID   = uuid.MustParse("3f2a1c4e-8b6d-4e7f-a1b2-c3d4e5f60711")
	verdurasID = uuid.MustParse("3f2a1c4e-8b6d-4e7f-a1b2-c3d4e5f60712")
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	if err := seed(db); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	token, err := devToken(cfg.JWTSecret, cajeroID, "Cajero Demo", model.RolCajero)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to sign token")
	}
	fmt.Printf("Cajero %s listo. Token (12h):\n%s\n", cajeroID, token)
}

func seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})
		if err := upsert.Create(&model.Usuario{ID: cajeroID, Nombre: "Cajero Demo", Rol: model.RolCajero, Activo: true}).Error; err != nil {
			return err
		}
		cats := []model.Categoria{
			{ID: frutasID, Nombre: "Frutas", Activo: true},
			{ID: verdurasID, Nombre: "Verduras", Activo: true},
		}
		if err := upsert.Create(&cats).Error; err != nil {
			return err
		}
		prods := []model.Producto{
			producto("Manzana roja", "3.50", model.UnidadKg, frutasID),
			producto("Platano", "2.80", model.UnidadKg, frutasID),
			producto("Palta", "1.20", model.UnidadUnidad, frutasID),
			producto("Tomate", "4.00", model.UnidadKg, verdurasID),
			producto("Lechuga", "2.50", model.UnidadUnidad, verdurasID),
		}
		return upsert.Create(&prods).Error
	})
}

func producto(nombre, precio, unidad string, categoriaID uuid.UUID) model.Producto {
	return model.Producto{
		ID:          uuid.NewSHA1(categoriaID, []byte(nombre)),
		Nombre:      nombre,
		Precio:      decimal.RequireFromString(precio),
		Unidad:      unidad,
		CategoriaID: &categoriaID,
		Activo:      true,
	}
}

func devToken(secret string, id uuid.UUID, nombre, rol string) (string, error) {
	claims := middleware.JWTClaims{
		UserID: id.String(),
		Nombre: nombre,
		Rol:    rol,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
