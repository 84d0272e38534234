package worker

// huerfanas.go — orphaned sale ledger
// A sale header whose line batch failed is recorded here, with the lines it
// should have had, until an operator retries the lines or reconciles by hand.
// One Redis hash keyed by venta_id so entries can be removed individually.

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const KeyVentasHuerfanas = "ventas:huerfanas"

// ErrHuerfanaNoEncontrada is returned by Obtener for unknown ids.
var ErrHuerfanaNoEncontrada = errors.New("venta huerfana no registrada")

// VentaHuerfana is one ledger entry.
type VentaHuerfana struct {
	VentaID      uuid.UUID       `json:"venta_id"`
	UsuarioID    uuid.UUID       `json:"usuario_id"`
	Total        decimal.Decimal `json:"total"`
	MetodoPago   string          `json:"metodo_pago"`
	Lineas       []ItemVendido   `json:"lineas"`
	Motivo       string          `json:"motivo"`
	RegistradaEn time.Time       `json:"registrada_en"`
}

// RegistroHuerfanas stores the ledger in Redis.
type RegistroHuerfanas struct {
	rdb *redis.Client
}

func NewRegistroHuerfanas(rdb *redis.Client) *RegistroHuerfanas {
	return &RegistroHuerfanas{rdb: rdb}
}

// Registrar adds or replaces the entry for h.VentaID.
func (r *RegistroHuerfanas) Registrar(ctx context.Context, h VentaHuerfana) error {
	if h.RegistradaEn.IsZero() {
		h.RegistradaEn = time.Now().UTC()
	}
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, KeyVentasHuerfanas, h.VentaID.String(), data).Err(); err != nil {
		return err
	}
	log.Warn().
		Str("venta_id", h.VentaID.String()).
		Str("motivo", h.Motivo).
		Int("lineas", len(h.Lineas)).
		Msg("huerfanas: cabecera sin detalle registrada")
	return nil
}

// Listar returns all entries, oldest first.
func (r *RegistroHuerfanas) Listar(ctx context.Context) ([]VentaHuerfana, error) {
	raw, err := r.rdb.HGetAll(ctx, KeyVentasHuerfanas).Result()
	if err != nil {
		return nil, err
	}
	out := make([]VentaHuerfana, 0, len(raw))
	for id, v := range raw {
		var h VentaHuerfana
		if err := json.Unmarshal([]byte(v), &h); err != nil {
			log.Error().Err(err).Str("venta_id", id).Msg("huerfanas: entrada ilegible")
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistradaEn.Before(out[j].RegistradaEn) })
	return out, nil
}

func (r *RegistroHuerfanas) Obtener(ctx context.Context, ventaID uuid.UUID) (*VentaHuerfana, error) {
	v, err := r.rdb.HGet(ctx, KeyVentasHuerfanas, ventaID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHuerfanaNoEncontrada
	}
	if err != nil {
		return nil, err
	}
	var h VentaHuerfana
	if err := json.Unmarshal([]byte(v), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Remover deletes the entry once the header has its lines.
func (r *RegistroHuerfanas) Remover(ctx context.Context, ventaID uuid.UUID) error {
	return r.rdb.HDel(ctx, KeyVentasHuerfanas, ventaID.String()).Err()
}

// Cantidad returns the number of pending orphans for the health endpoint.
func (r *RegistroHuerfanas) Cantidad(ctx context.Context) (int64, error) {
	return r.rdb.HLen(ctx, KeyVentasHuerfanas).Result()
}
