// Package storefront wires the cart, address book and order engines to one
// session provider and exposes what UI collaborators read.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alextreichler/vendormarket/internal/addressbook"
	"github.com/alextreichler/vendormarket/internal/cart"
	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/inventory"
	"github.com/alextreichler/vendormarket/internal/localstore"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/orders"
	"github.com/alextreichler/vendormarket/internal/session"
)

type Storefront struct {
	Session   *session.Provider
	Cart      *cart.Engine
	Addresses *addressbook.Manager
	Orders    *orders.Aggregator

	logger *slog.Logger
}

// New subscribes the engines to provider's login and logout events.
func New(provider *session.Provider, c *cart.Engine, a *addressbook.Manager, o *orders.Aggregator, logger *slog.Logger) *Storefront {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Storefront{Session: provider, Cart: c, Addresses: a, Orders: o, logger: logger}
	provider.Subscribe(s.onSessionEvent)
	return s
}

// NewFromGateway builds every engine over a local key/value store and the
// remote service at client.
func NewFromGateway(provider *session.Provider, kv localstore.KV, client *gateway.Client, logger *slog.Logger) *Storefront {
	local := localstore.New(kv, logger)
	return New(provider,
		cart.NewEngine(cart.NewLocalBackend(local), cart.RemoteFactoryFor(client), logger),
		addressbook.NewManager(addressbook.NewLocalStore(local), addressbook.RemoteFactoryFor(client), logger),
		orders.NewAggregator(orders.GatewaySource(client), client, logger),
		logger,
	)
}

// Start seeds every engine for the session current at startup. A failing
// engine keeps its last snapshot and does not stop the others; the failures
// are returned joined.
func (s *Storefront) Start(ctx context.Context) error {
	auth := s.Session.Current()
	cartErr := s.Cart.Start(ctx, auth)
	if cartErr != nil {
		s.logger.Warn("Cart did not load at startup", "identity", auth.Identity, "error", cartErr)
	}
	addrErr := s.Addresses.Start(ctx, auth)
	if addrErr != nil {
		s.logger.Warn("Addresses did not load at startup", "identity", auth.Identity, "error", addrErr)
	}
	return errors.Join(cartErr, addrErr)
}

func (s *Storefront) onSessionEvent(ctx context.Context, ev session.Event) {
	switch ev.Kind {
	case session.LoggedIn:
		if err := s.Cart.HandleLogin(ctx, ev.State); err != nil {
			s.logger.Error("Cart reconciliation after login failed", "identity", ev.State.Identity, "error", err)
		}
		if err := s.Addresses.HandleLogin(ctx, ev.State); err != nil {
			s.logger.Error("Loading account addresses failed", "identity", ev.State.Identity, "error", err)
		}
		s.Orders.Reset()
	case session.LoggedOut:
		s.Orders.Reset()
		if err := s.Cart.HandleLogout(ctx); err != nil {
			s.logger.Error("Reseeding guest cart failed", "error", err)
		}
		if err := s.Addresses.HandleLogout(ctx); err != nil {
			s.logger.Error("Reseeding guest addresses failed", "error", err)
		}
	}
}

func (s *Storefront) auth() session.AuthState { return s.Session.Current() }

func (s *Storefront) AddToCart(ctx context.Context, p models.Product, qty int) error {
	return s.Cart.AddToCart(ctx, s.auth(), p, qty)
}

func (s *Storefront) UpdateQuantity(ctx context.Context, itemID string, qty int) error {
	return s.Cart.UpdateQuantity(ctx, s.auth(), itemID, qty)
}

func (s *Storefront) RemoveFromCart(ctx context.Context, itemID string) error {
	return s.Cart.RemoveFromCart(ctx, s.auth(), itemID)
}

func (s *Storefront) ClearCart(ctx context.Context) error {
	return s.Cart.ClearCart(ctx, s.auth())
}

func (s *Storefront) AddAddress(ctx context.Context, a models.Address) (models.Address, error) {
	return s.Addresses.Add(ctx, s.auth(), a)
}

func (s *Storefront) UpdateAddress(ctx context.Context, a models.Address) (models.Address, error) {
	return s.Addresses.Update(ctx, s.auth(), a)
}

func (s *Storefront) RemoveAddress(ctx context.Context, id string) error {
	return s.Addresses.Remove(ctx, s.auth(), id)
}

func (s *Storefront) SetDefaultAddress(ctx context.Context, id string) error {
	return s.Addresses.SetDefault(ctx, s.auth(), id)
}

func (s *Storefront) FetchOrders(ctx context.Context) ([]models.Order, error) {
	return s.Orders.FetchOrders(ctx, s.auth())
}

func (s *Storefront) GetOrderByID(ctx context.Context, id string) (models.Order, error) {
	return s.Orders.GetOrderByID(ctx, s.auth(), id)
}

// Snapshot is the read model handed to UI collaborators.
type Snapshot struct {
	Authenticated bool              `json:"authenticated"`
	State         string            `json:"state"`
	Cart          []models.CartLine `json:"cart"`
	Total         string            `json:"total"`
	Addresses     []models.Address  `json:"addresses"`
	Orders        []models.Order    `json:"orders"`
	Loading       bool              `json:"loading"`
}

func (s *Storefront) Snapshot() Snapshot {
	return Snapshot{
		Authenticated: s.auth().Authenticated(),
		State:         s.Cart.State().String(),
		Cart:          s.Cart.Lines(),
		Total:         s.Cart.CalculateTotal().StringFixed(2),
		Addresses:     s.Addresses.List(),
		Orders:        s.Orders.List(),
		Loading:       s.Loading(),
	}
}

// Loading reports whether any engine has a request in flight.
func (s *Storefront) Loading() bool {
	return s.Cart.Loading() || s.Addresses.Loading() || s.Orders.Loading()
}

// UserMessage renders err the way a shopper should see it. Unauthenticated
// failures are never shown; transport and server failures stay generic.
func UserMessage(err error) string {
	var exceeded *inventory.ExceededError
	var gwErr *gateway.Error
	switch {
	case err == nil, errors.Is(err, gateway.ErrUnauthenticated):
		return ""
	case errors.As(err, &exceeded):
		return fmt.Sprintf("Only %d left in stock.", exceeded.Available)
	case errors.Is(err, cart.ErrLineNotFound), errors.Is(err, addressbook.ErrAddressNotFound):
		return "That item is no longer in your list."
	case errors.As(err, &gwErr) && gwErr.Status < http.StatusInternalServerError && gwErr.Message != "":
		return gwErr.Message
	}
	return "Something went wrong. Please try again."
}
