// Package cart keeps the shopper's cart consistent across anonymous local
// state, authenticated server state and the login transition between them.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/inventory"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be positive")
	ErrNoIdentity      = errors.New("cart: login without identity")
)

type State int

const (
	Anonymous State = iota
	Merging
	Authenticated
	Error
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Merging:
		return "merging"
	case Authenticated:
		return "authenticated"
	case Error:
		return "error"
	}
	return "unknown"
}

// Engine owns the cart snapshot seen by the rest of the application.
//
// The mutex guards the snapshot only and is never held across a backend
// call. Two overlapping mutations both reach the backend and the later
// response overwrites the earlier one.
type Engine struct {
	local  Backend
	remote RemoteFactory
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	lines       []models.CartLine
	err         error
	inFlight    int
	epoch       uint64 // bumped on login and logout; stale responses are dropped
	localLoaded bool
	mergedFor   string // identity whose guest cart has been merged
}

func NewEngine(local Backend, remote RemoteFactory, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		local:  local,
		remote: remote,
		logger: logger,
		lines:  []models.CartLine{},
	}
}

// Start seeds the engine for the session present at startup.
func (e *Engine) Start(ctx context.Context, auth session.AuthState) error {
	if auth.Authenticated() {
		return e.HandleLogin(ctx, auth)
	}
	return e.loadLocalOnce(ctx)
}

func (e *Engine) loadLocalOnce(ctx context.Context) error {
	e.mu.Lock()
	if e.localLoaded {
		e.mu.Unlock()
		return nil
	}
	e.localLoaded = true
	epoch := e.epoch
	e.mu.Unlock()

	e.begin()
	defer e.end()
	lines, err := e.local.Load(ctx)
	return e.apply(epoch, Anonymous, lines, err)
}

// HandleLogin merges the guest cart into the account cart, once per identity.
func (e *Engine) HandleLogin(ctx context.Context, auth session.AuthState) error {
	if !auth.Authenticated() {
		return ErrNoIdentity
	}

	e.mu.Lock()
	if e.mergedFor == auth.Identity {
		e.mu.Unlock()
		return nil
	}
	e.mergedFor = auth.Identity
	e.epoch++
	epoch := e.epoch
	e.state = Merging
	e.mu.Unlock()

	e.begin()
	defer e.end()

	remote := e.remote(auth)
	if lines, err := remote.Load(ctx); err != nil {
		e.logger.Warn("Failed to fetch account cart before merge", "identity", auth.Identity, "error", err)
	} else {
		e.replace(epoch, lines)
	}

	guest, err := e.local.Load(ctx)
	if err != nil {
		e.logger.Warn("Failed to read guest cart", "error", err)
	}
	if len(guest) > 0 {
		merged := 0
		for _, line := range guest {
			if _, err := remote.Add(ctx, productFromLine(line), line.Quantity); err != nil {
				e.logger.Warn("Skipping guest cart line during merge",
					"identity", auth.Identity, "product_id", line.ProductID, "quantity", line.Quantity, "error", err)
				continue
			}
			merged++
		}
		if err := e.local.Clear(ctx); err != nil {
			e.logger.Error("Failed to clear guest cart after merge", "error", err)
		}
		e.logger.Info("Merged guest cart", "identity", auth.Identity, "lines", len(guest), "merged", merged)
	}

	lines, err := remote.Load(ctx)
	return e.apply(epoch, Authenticated, lines, err)
}

// HandleLogout drops every account projection before anything else happens,
// then reseeds from the local store.
func (e *Engine) HandleLogout(ctx context.Context) error {
	e.mu.Lock()
	e.epoch++
	e.lines = []models.CartLine{}
	e.state = Anonymous
	e.err = nil
	e.mergedFor = ""
	e.localLoaded = false
	e.mu.Unlock()

	return e.loadLocalOnce(ctx)
}

func (e *Engine) AddToCart(ctx context.Context, auth session.AuthState, product models.Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := inventory.Check(quantity, product.Inventory); err != nil {
		return err
	}
	return e.mutate(ctx, auth, func(b Backend) ([]models.CartLine, error) {
		return b.Add(ctx, product, quantity)
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, auth session.AuthState, itemID string, quantity int) error {
	if quantity <= 0 {
		return e.RemoveFromCart(ctx, auth, itemID)
	}

	line, ok := e.find(itemID)
	switch {
	case ok:
		if err := inventory.Check(quantity, line.Inventory); err != nil {
			return err
		}
	case !auth.Authenticated():
		return ErrLineNotFound
	}
	return e.mutate(ctx, auth, func(b Backend) ([]models.CartLine, error) {
		return b.Update(ctx, itemID, quantity)
	})
}

func (e *Engine) RemoveFromCart(ctx context.Context, auth session.AuthState, itemID string) error {
	return e.mutate(ctx, auth, func(b Backend) ([]models.CartLine, error) {
		return b.Remove(ctx, itemID)
	})
}

// ClearCart empties the cart without waiting for a re-fetch.
func (e *Engine) ClearCart(ctx context.Context, auth session.AuthState) error {
	return e.mutate(ctx, auth, func(b Backend) ([]models.CartLine, error) {
		if err := b.Clear(ctx); err != nil {
			return nil, err
		}
		return []models.CartLine{}, nil
	})
}

// Refresh reloads the snapshot from the backend for auth.
func (e *Engine) Refresh(ctx context.Context, auth session.AuthState) error {
	return e.mutate(ctx, auth, func(b Backend) ([]models.CartLine, error) {
		return b.Load(ctx)
	})
}

func (e *Engine) mutate(ctx context.Context, auth session.AuthState, op func(Backend) ([]models.CartLine, error)) error {
	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	backend := e.local
	next := Anonymous
	if auth.Authenticated() {
		backend = e.remote(auth)
		next = Authenticated
	}

	e.begin()
	defer e.end()
	lines, err := op(backend)
	return e.apply(epoch, next, lines, err)
}

// apply adopts a backend response. Responses issued before the last login or
// logout are discarded, and failures keep the previous snapshot.
func (e *Engine) apply(epoch uint64, next State, lines []models.CartLine, err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch {
		return nil
	}
	switch {
	case err == nil:
	case errors.Is(err, gateway.ErrUnauthenticated):
		e.logger.Warn("Cart request was not authenticated, ignoring", "error", err)
		return nil
	case errors.Is(err, ErrLineNotFound):
		return err
	default:
		e.state = Error
		e.err = err
		return err
	}

	if lines == nil {
		lines = []models.CartLine{}
	}
	e.lines = lines
	e.err = nil
	if e.state != Merging || next == Authenticated {
		e.state = next
	}
	return nil
}

func (e *Engine) replace(epoch uint64, lines []models.CartLine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch == e.epoch && lines != nil {
		e.lines = lines
	}
}

func (e *Engine) begin() {
	e.mu.Lock()
	e.inFlight++
	e.mu.Unlock()
}

func (e *Engine) end() {
	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()
}

func (e *Engine) find(itemID string) (models.CartLine, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := indexOf(e.lines, itemID); i >= 0 {
		return e.lines[i], true
	}
	return models.CartLine{}, false
}

// Lines returns a copy of the current snapshot. It is never nil.
func (e *Engine) Lines() []models.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CartLine{}, e.lines...)
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err is the failure that put the engine in the Error state, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight > 0
}

// CalculateTotal is Σ unit price × quantity over the snapshot.
func (e *Engine) CalculateTotal() decimal.Decimal {
	return Totals(e.Lines()).Subtotal
}

func (e *Engine) Totals() Summary {
	return Totals(e.Lines())
}

func (e *Engine) ValidateInventory() inventory.Report {
	return inventory.Classify(e.Lines())
}

func (e *Engine) CanIncreaseQuantity(itemID string) bool {
	line, ok := e.find(itemID)
	return ok && inventory.CanIncrease(line)
}

type Summary struct {
	Subtotal decimal.Decimal
	GST      decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Totals adds GST for lines that carry a percentage.
func Totals(lines []models.CartLine) Summary {
	s := Summary{Subtotal: decimal.Zero, GST: decimal.Zero}
	for _, l := range lines {
		sub := l.Subtotal()
		s.Subtotal = s.Subtotal.Add(sub)
		if l.GSTPercentage != nil {
			s.GST = s.GST.Add(sub.Mul(*l.GSTPercentage).Div(hundred))
		}
	}
	s.Total = s.Subtotal.Add(s.GST)
	return s
}
