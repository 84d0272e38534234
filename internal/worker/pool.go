package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	QueueVentas = "jobs:ventas"

	JobVentaRegistrada = "venta_registrada"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ItemVendido is one committed line as carried by jobs and the orphan ledger.
type ItemVendido struct {
	ProductoID     uuid.UUID       `json:"producto_id"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// VentaRegistrada is published once a sale is fully committed. Stock
// decrement and receipt printing consume it outside the register.
type VentaRegistrada struct {
	VentaID    uuid.UUID       `json:"venta_id"`
	UsuarioID  uuid.UUID       `json:"usuario_id"`
	Total      decimal.Decimal `json:"total"`
	MetodoPago string          `json:"metodo_pago"`
	Items      []ItemVendido   `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PublicarVentaRegistrada pushes a venta_registrada job to Redis.
func (d *Dispatcher) PublicarVentaRegistrada(ctx context.Context, ev VentaRegistrada) error {
	return d.enqueue(ctx, QueueVentas, JobVentaRegistrada, ev)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// Handler processes one job payload. A returned error moves the job to the
// dead letter queue; jobs are never re-run automatically.
type Handler func(ctx context.Context, payload json.RawMessage) error

// StartWorkerPool launches numWorkers goroutines consuming QueueVentas.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// backoffRedis is the pause after a BRPOP failure other than a timeout, so a
// worker does not spin while Redis is unreachable.
var backoffRedis = time.Second

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers map[string]Handler) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueVentas).Result()
			if err != nil {
				if !esperarTrasError(ctx, id, err) {
					log.Info().Msgf("worker %d shutting down", id)
					return
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, result[0], result[1], handlers)
		}
	}
}

// esperarTrasError classifies a BRPOP error. redis.Nil is an empty queue and
// returns at once; any other error pauses for backoffRedis. It reports false
// when ctx ended.
func esperarTrasError(ctx context.Context, id int, err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	log.Warn().Err(err).Int("worker", id).Dur("backoff", backoffRedis).Msg("worker: redis no disponible")
	t := time.NewTimer(backoffRedis)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func processJob(ctx context.Context, rdb *redis.Client, queue, raw string, handlers map[string]Handler) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "sin handler registrado", 0)
		return
	}
	if err := h(ctx, job.Payload); err != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), 1)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}

// LogVentaRegistrada is the default venta_registrada handler: it records the
// committed sale in the log for downstream stock and receipt processes.
func LogVentaRegistrada(_ context.Context, payload json.RawMessage) error {
	var ev VentaRegistrada
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	log.Info().
		Str("venta_id", ev.VentaID.String()).
		Str("usuario_id", ev.UsuarioID.String()).
		Str("total", ev.Total.StringFixed(2)).
		Str("metodo_pago", ev.MetodoPago).
		Int("items", len(ev.Items)).
		Msg("venta_registrada")
	return nil
}
