package infra

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ── Balanza ───────────────────────────────────────────────────────────────────
// Scale peripheral adapter. Two operating modes:
//   - manual:     the reading only changes through operator input or a device feed
//   - simulacion: an owned background sampler drifts the reading on every tick
//
// The sampler is the only goroutine the register runs on its own. It is created
// on entering simulacion and torn down (and waited for) on leaving it or on Close.

// ModoBalanza is the scale operating mode.
type ModoBalanza string

const (
	ModoManual     ModoBalanza = "manual"
	ModoSimulacion ModoBalanza = "simulacion"
)

const (
	balanzaDecimales   = 3
	defaultBalanzaTick = 500 * time.Millisecond
)

var (
	derivaMaxima = decimal.RequireFromString("0.005") // ±5 g per tick
	pesoMinimo   = decimal.RequireFromString("0.1")
	pesoMaximo   = decimal.RequireFromString("5.0")
)

var (
	ErrModoInvalido   = errors.New("modo de balanza invalido")
	ErrPesoNegativo   = errors.New("el peso no puede ser negativo")
	ErrSoloSimulacion = errors.New("operacion disponible solo en modo simulacion")
	ErrSoloManual     = errors.New("operacion disponible solo en modo manual")
	ErrBalanzaCerrada = errors.New("la balanza fue cerrada")
)

// ParseModoBalanza validates a mode name coming from config or the API.
func ParseModoBalanza(s string) (ModoBalanza, error) {
	switch ModoBalanza(strings.ToLower(strings.TrimSpace(s))) {
	case ModoManual:
		return ModoManual, nil
	case ModoSimulacion:
		return ModoSimulacion, nil
	default:
		return "", ErrModoInvalido
	}
}

// BalanzaConfig holds tunable parameters.
type BalanzaConfig struct {
	Modo ModoBalanza
	Tick time.Duration // sampling interval in simulacion (default: 500ms)
	Rand *rand.Rand    // random source; seeded from the runtime when nil
}

// muestreador is one run of the background sampler.
type muestreador struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (m *muestreador) stop() {
	m.cancel()
	<-m.done
}

// Balanza is safe for concurrent use.
type Balanza struct {
	// modoMu serialises mode transitions; it is never taken by the sampler,
	// so stopping a sampler while holding it cannot deadlock.
	modoMu sync.Mutex

	mu      sync.Mutex
	lectura decimal.Decimal
	modo    ModoBalanza
	rnd     *rand.Rand
	tick    time.Duration
	activo  *muestreador
	cerrada bool
}

// NewBalanza creates a scale in the configured mode, starting the sampler
// if that mode is simulacion.
func NewBalanza(cfg BalanzaConfig) (*Balanza, error) {
	if cfg.Modo == "" {
		cfg.Modo = ModoSimulacion
	}
	if _, err := ParseModoBalanza(string(cfg.Modo)); err != nil {
		return nil, err
	}
	if cfg.Tick <= 0 {
		cfg.Tick = defaultBalanzaTick
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	b := &Balanza{
		lectura: decimal.Zero,
		modo:    ModoManual,
		rnd:     cfg.Rand,
		tick:    cfg.Tick,
	}
	if err := b.SetModo(cfg.Modo); err != nil {
		return nil, err
	}
	return b, nil
}

// Lectura returns the current weight in kg (3 decimals, never negative).
func (b *Balanza) Lectura() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lectura
}

// Modo returns the current operating mode.
func (b *Balanza) Modo() ModoBalanza {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modo
}

// SetModo switches the operating mode. The previous sampler (if any) has fully
// exited before this returns, so no reading changes after a switch to manual.
func (b *Balanza) SetModo(modo ModoBalanza) error {
	if _, err := ParseModoBalanza(string(modo)); err != nil {
		return err
	}

	b.modoMu.Lock()
	defer b.modoMu.Unlock()

	b.mu.Lock()
	if b.cerrada {
		b.mu.Unlock()
		return ErrBalanzaCerrada
	}
	anterior := b.activo
	b.activo = nil
	b.mu.Unlock()

	if anterior != nil {
		anterior.stop()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.modo = modo
	if modo == ModoSimulacion {
		b.activo = b.iniciarMuestreo()
	}
	log.Debug().Str("modo", string(modo)).Msg("balanza: modo actualizado")
	return nil
}

// iniciarMuestreo must be called under b.mu.
func (b *Balanza) iniciarMuestreo() *muestreador {
	ctx, cancel := context.WithCancel(context.Background())
	m := &muestreador{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(m.done)
		t := time.NewTicker(b.tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				b.derivar(ctx)
			}
		}
	}()
	return m
}

// derivar applies one bounded random-walk step.
func (b *Balanza) derivar(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	delta := decimal.NewFromFloat((b.rnd.Float64() - 0.5) * 2).Mul(derivaMaxima)
	nuevo := b.lectura.Add(delta)
	if nuevo.IsNegative() {
		nuevo = decimal.Zero
	}
	b.lectura = nuevo.Round(balanzaDecimales)
}

// PresentarArticulo simulates placing a new item on the plate: the reading is
// replaced by a random weight between 0.100 and 5.000 kg.
func (b *Balanza) PresentarArticulo() (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cerrada {
		return decimal.Zero, ErrBalanzaCerrada
	}
	if b.modo != ModoSimulacion {
		return decimal.Zero, ErrSoloSimulacion
	}
	rango := pesoMaximo.Sub(pesoMinimo)
	peso := pesoMinimo.Add(rango.Mul(decimal.NewFromFloat(b.rnd.Float64()))).Round(balanzaDecimales)
	b.lectura = peso
	return peso, nil
}

// EstablecerLectura stores an operator-entered weight (manual mode only).
func (b *Balanza) EstablecerLectura(peso decimal.Decimal) error {
	if peso.IsNegative() {
		return ErrPesoNegativo
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cerrada {
		return ErrBalanzaCerrada
	}
	if b.modo != ModoManual {
		return ErrSoloManual
	}
	b.lectura = peso.Round(balanzaDecimales)
	return nil
}

// Tara zeroes the reading in either mode.
func (b *Balanza) Tara() {
	b.mu.Lock()
	b.lectura = decimal.Zero
	b.mu.Unlock()
}

// Alimentar consumes a line-oriented device feed: one weight in kg per line,
// optionally suffixed with "kg". Malformed or negative lines are skipped and
// lines arriving outside manual mode are ignored. It returns when r is
// exhausted or ctx is cancelled; a blocked Read is only released by closing r.
func (b *Balanza) Alimentar(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		peso, ok := parseLineaBalanza(sc.Text())
		if !ok {
			log.Debug().Str("linea", sc.Text()).Msg("balanza: linea descartada")
			continue
		}
		if err := b.EstablecerLectura(peso); err != nil {
			if errors.Is(err, ErrBalanzaCerrada) {
				return err
			}
			continue
		}
	}
	return sc.Err()
}

func parseLineaBalanza(linea string) (decimal.Decimal, bool) {
	s := strings.ToLower(strings.TrimSpace(linea))
	s = strings.TrimSpace(strings.TrimSuffix(s, "kg"))
	if s == "" {
		return decimal.Zero, false
	}
	peso, err := decimal.NewFromString(s)
	if err != nil || peso.IsNegative() {
		return decimal.Zero, false
	}
	return peso, true
}

// Close stops the sampler. Safe to call more than once.
func (b *Balanza) Close() {
	b.modoMu.Lock()
	defer b.modoMu.Unlock()

	b.mu.Lock()
	if b.cerrada {
		b.mu.Unlock()
		return
	}
	b.cerrada = true
	anterior := b.activo
	b.activo = nil
	b.mu.Unlock()

	if anterior != nil {
		anterior.stop()
	}
}
