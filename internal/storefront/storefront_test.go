package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/vendormarket/internal/addressbook"
	"github.com/alextreichler/vendormarket/internal/auth"
	"github.com/alextreichler/vendormarket/internal/cart"
	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/handlers"
	"github.com/alextreichler/vendormarket/internal/inventory"
	"github.com/alextreichler/vendormarket/internal/localstore"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/orders"
	"github.com/alextreichler/vendormarket/internal/session"
	"github.com/alextreichler/vendormarket/internal/store"
)

type fixture struct {
	db     *store.Store
	client *gateway.Client
	kv     *localstore.MemoryKV
	front  *Storefront
	mug    *models.Product
	sim    *models.Product
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	key := []byte(strings.Repeat("s", 32))

	db, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = db.CreateUser("alice", string(hash))
	require.NoError(t, err)

	stock, gst := 5, decimal.NewFromInt(18)
	mug := &models.Product{Name: "Mug", Price: decimal.NewFromInt(100), GSTPercentage: &gst, Inventory: &stock}
	require.NoError(t, db.CreateProduct(models.CatalogShop, mug))
	sim := &models.Product{Name: "Prepaid SIM", Price: decimal.NewFromInt(50)}
	require.NoError(t, db.CreateProduct(models.CatalogSim, sim))

	api := &handlers.APIHandler{Store: db, Auth: auth.NewService(key, time.Hour), SessionStore: sessions.NewCookieStore(key)}
	mux := http.NewServeMux()
	api.Register(mux, nil)
	srv := httptest.NewServer(handlers.CSRFExempt(csrf.Protect(key, csrf.Secure(false))(mux)))
	t.Cleanup(srv.Close)
	f.srv = srv

	client, err := gateway.New(srv.URL+"/api", srv.Client(), nil)
	require.NoError(t, err)

	f.db, f.client, f.kv, f.mug, f.sim = db, client, localstore.NewMemoryKV(), mug, sim
	f.front = NewFromGateway(session.NewProvider(session.Anonymous()), f.kv, client, nil)
	require.NoError(t, f.front.Start(context.Background()))
	return f
}

func (f *fixture) product(t *testing.T, c models.Catalog, id string) models.Product {
	t.Helper()
	lookup := f.client.Product
	if c == models.CatalogSim {
		lookup = f.client.SimProduct
	}
	p, err := lookup(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) login(t *testing.T) session.AuthState {
	t.Helper()
	st, err := f.client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	f.front.Session.Login(context.Background(), st)
	return st
}

func TestGuestToAccountJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mug := f.product(t, models.CatalogShop, f.mug.ID)
	sim := f.product(t, models.CatalogSim, f.sim.ID)

	// Guest shopping lands in the local store.
	require.NoError(t, f.front.AddToCart(ctx, mug, 2))
	require.NoError(t, f.front.AddToCart(ctx, mug, 1))
	require.NoError(t, f.front.AddToCart(ctx, sim, 1))
	err := f.front.AddToCart(ctx, mug, 6)
	assert.Equal(t, "Only 5 left in stock.", UserMessage(err))

	snap := f.front.Snapshot()
	assert.False(t, snap.Authenticated)
	require.Len(t, snap.Cart, 2)
	assert.Equal(t, 3, snap.Cart[0].Quantity)
	assert.Equal(t, "350.00", snap.Total, "subtotal before GST")

	_, err = f.front.AddAddress(ctx, models.Address{Label: "guest", Line1: "9 Side St", City: "Pune", PostalCode: "411001", Country: "IN"})
	require.NoError(t, err)

	// Login merges the guest cart into the account cart and empties the local one.
	st := f.login(t)
	assert.Equal(t, cart.Authenticated, f.front.Cart.State())
	lines := f.front.Cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, f.mug.ID, lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Empty(t, localstore.New(f.kv, nil).LoadCart())
	server, err := f.db.GetCart(st.Identity)
	require.NoError(t, err)
	assert.Len(t, server, 2)
	assert.Empty(t, f.front.Addresses.List(), "account addresses replace the guest book")

	// A repeated login event for the same identity does not merge twice.
	f.front.Session.Login(ctx, st)
	server, _ = f.db.GetCart(st.Identity)
	assert.Equal(t, 3, server[0].Quantity)

	// Account mutations adopt the server's cart.
	require.NoError(t, f.front.UpdateQuantity(ctx, lines[0].ID, 4))
	assert.Equal(t, 4, f.front.Cart.Lines()[0].Quantity)
	err = f.front.UpdateQuantity(ctx, lines[0].ID, 9)
	var exceeded *inventory.ExceededError
	require.ErrorAs(t, err, &exceeded)

	home, err := f.front.AddAddress(ctx, models.Address{Label: "home", Line1: "1 Main St", City: "Mumbai", PostalCode: "400001", Country: "IN"})
	require.NoError(t, err)
	assert.True(t, home.IsDefault)

	// Checkout happens outside the engines; the cart then reads back empty.
	order, err := f.client.WithToken(st.Token).PlaceOrder(ctx, home.ID)
	require.NoError(t, err)
	require.NoError(t, f.front.Cart.Refresh(ctx, st))
	assert.Empty(t, f.front.Cart.Lines())

	// Deleted products resolve to the sentinel name; other items keep theirs.
	require.NoError(t, f.db.DeleteProduct(models.CatalogShop, f.mug.ID))
	list, err := f.front.FetchOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, orders.UnavailableName, got.Items[0].ResolvedName)
	assert.Equal(t, "Prepaid SIM", got.Items[1].ResolvedName)
	require.NotNil(t, got.ShippingAddress)
	assert.Equal(t, "Mumbai", got.ShippingAddress.City)

	cached, err := f.front.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Items, cached.Items)

	// Logout forgets every account projection and restores the guest book.
	f.front.Session.Logout(ctx)
	snap = f.front.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Equal(t, cart.Anonymous.String(), snap.State)
	assert.Empty(t, snap.Cart)
	assert.Empty(t, snap.Orders)
	require.Len(t, snap.Addresses, 1)
	assert.Equal(t, "guest", snap.Addresses[0].Label)

	_, err = f.front.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, gateway.ErrUnauthenticated)
}

func TestExpiredTokenIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.front.Session.Login(ctx, session.AuthState{Identity: "ghost", Token: "expired"})
	assert.Empty(t, f.front.Cart.Lines())
	assert.NoError(t, f.front.Cart.Err())

	mug := f.product(t, models.CatalogShop, f.mug.ID)
	assert.NoError(t, f.front.AddToCart(ctx, mug, 1), "unauthenticated writes are not surfaced")
	assert.NoError(t, f.front.ClearCart(ctx))

	list, err := f.front.FetchOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStartWithServiceDownStillAllowsLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, err := f.client.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	// A later process starts with the remembered session and no service.
	f.srv.Close()

	front := NewFromGateway(session.NewProvider(st), f.kv, f.client, nil)
	err = front.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, cart.Error, front.Cart.State())
	assert.NotNil(t, front.Cart.Lines(), "the snapshot stays defined")
	assert.False(t, front.Loading())

	front.Session.Logout(ctx)
	snap := front.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Equal(t, cart.Anonymous.String(), snap.State)
	assert.Empty(t, snap.Orders)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unauthenticated", &gateway.Error{Status: http.StatusUnauthorized}, ""},
		{"stock", &inventory.ExceededError{Requested: 4, Available: 2}, "Only 2 left in stock."},
		{"missing line", cart.ErrLineNotFound, "That item is no longer in your list."},
		{"missing address", addressbook.ErrAddressNotFound, "That item is no longer in your list."},
		{"client error", &gateway.Error{Status: http.StatusConflict, Message: "only 1 left in stock (requested 3)"}, "only 1 left in stock (requested 3)"},
		{"server error", &gateway.Error{Status: http.StatusInternalServerError, Message: "db down"}, "Something went wrong. Please try again."},
		{"transport", errors.New("dial tcp: refused"), "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
