package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and applies the
// idempotent schema statements below. AutoMigrate is not used: decimal
// precision and constraints are declared explicitly in SQL.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return db, nil
}

// schema is applied in order. Every statement is IF NOT EXISTS so re-running
// against an existing database is a no-op.
var schema = []struct{ descr, sql string }{
	{"pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto`},
	{"categorias", `
CREATE TABLE IF NOT EXISTS categorias (
  id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  nombre     TEXT NOT NULL UNIQUE,
  activo     BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"productos", `
CREATE TABLE IF NOT EXISTS productos (
  id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  nombre       TEXT NOT NULL,
  precio       DECIMAL(10,2) NOT NULL CHECK (precio >= 0),
  unidad       VARCHAR(10) NOT NULL DEFAULT 'kg' CHECK (unidad IN ('kg','unidad')),
  categoria_id UUID REFERENCES categorias(id),
  imagen_url   TEXT,
  activo       BOOLEAN NOT NULL DEFAULT TRUE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"usuarios", `
CREATE TABLE IF NOT EXISTS usuarios (
  id         UUID PRIMARY KEY,
  nombre     TEXT NOT NULL,
  rol        VARCHAR(20) NOT NULL DEFAULT 'cajero',
  activo     BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"movimientos_caja", `
CREATE TABLE IF NOT EXISTS movimientos_caja (
  id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  usuario_id UUID NOT NULL,
  tipo       VARCHAR(20) NOT NULL CHECK (tipo IN ('apertura','ingreso','salida')),
  monto      DECIMAL(12,2) NOT NULL CHECK (monto >= 0),
  nota       TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_movimientos_caja_usuario", `
CREATE INDEX IF NOT EXISTS idx_movimientos_caja_usuario ON movimientos_caja (usuario_id, created_at)`},
	{"ventas", `
CREATE TABLE IF NOT EXISTS ventas (
  id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  usuario_id  UUID NOT NULL,
  total       DECIMAL(12,2) NOT NULL,
  metodo_pago VARCHAR(20) NOT NULL,
  entregado   DECIMAL(12,2) NOT NULL DEFAULT 0,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
	{"idx_ventas_usuario", `
CREATE INDEX IF NOT EXISTS idx_ventas_usuario ON ventas (usuario_id, created_at)`},
	{"venta_items", `
CREATE TABLE IF NOT EXISTS venta_items (
  id              UUID PRIMARY KEY,
  venta_id        UUID NOT NULL REFERENCES ventas(id),
  producto_id     UUID NOT NULL,
  cantidad        DECIMAL(12,3) NOT NULL CHECK (cantidad > 0),
  precio_unitario DECIMAL(10,2) NOT NULL,
  subtotal        DECIMAL(12,2) NOT NULL
)`},
	{"idx_venta_items_venta", `
CREATE INDEX IF NOT EXISTS idx_venta_items_venta ON venta_items (venta_id)`},
}

// RunMigrations applies the schema. Also used by the integration tests.
func RunMigrations(db *gorm.DB) error {
	for _, s := range schema {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("schema %q: %w", s.descr, err)
		}
	}
	return nil
}
