package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/vendormarket/internal/models"
)

type recorded struct {
	method  string
	path    string
	escaped string
	query   string
	header  http.Header
	body    map[string]any
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, escaped: r.URL.EscapedPath(), query: r.URL.RawQuery, header: r.Header.Clone()}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", srv.Client(), nil)
	require.NoError(t, err)
	return c, &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchCartUnauthenticatedIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})

	lines, err := c.WithToken("expired").FetchCart(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestRequestsCarryBearerAndNoCache(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.CartLine{{ID: "l1", ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(3)}})
	})

	lines, err := c.WithToken("tok").FetchCart(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 1)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/api/cart", call.path)
	assert.Equal(t, "Bearer tok", call.header.Get("Authorization"))
	assert.Contains(t, call.header.Get("Cache-Control"), "no-cache")
	assert.Equal(t, "no-cache", call.header.Get("Pragma"))

	_, err = c.FetchCart(context.Background())
	require.NoError(t, err)
	assert.Empty(t, (*calls)[1].header.Get("Authorization"), "anonymous client sends no credential")
}

func TestAddItemReturnsWholeCart(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.CartLine{
			{ID: "l1", ProductID: "p1", Quantity: 3},
			{ID: "l2", ProductID: "p2", Quantity: 1},
		})
	})

	lines, err := c.WithToken("tok").AddItem(context.Background(), "p2", 1)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "p2", call.body["product_id"])
	assert.EqualValues(t, 1, call.body["quantity"])
}

func TestUpdateItemNonPositiveRemoves(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.CartLine{})
	})

	_, err := c.WithToken("tok").UpdateItem(context.Background(), "l1", 0)
	require.NoError(t, err)

	call := (*calls)[0]
	assert.Equal(t, http.MethodDelete, call.method)
	assert.Equal(t, "id=l1", call.query)
}

func TestClearCartSendsFlag(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.WithToken("tok").ClearCart(context.Background()))
	call := (*calls)[0]
	assert.Equal(t, http.MethodDelete, call.method)
	assert.Equal(t, "clear=true", call.query)
}

func TestErrorsAreTyped(t *testing.T) {
	status := http.StatusUnauthorized
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, map[string]string{"error": "boom"})
	})
	ctx := context.Background()

	_, err := c.AddItem(ctx, "p1", 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	status = http.StatusNotFound
	_, err = c.Product(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthenticated)

	status = http.StatusInternalServerError
	_, err = c.FetchCart(ctx)
	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusInternalServerError, gwErr.Status)
	assert.Equal(t, "boom", gwErr.Message)
}

func TestOrderItemsQuery(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.OrderItem{{ID: "i1", OrderID: "o1", SimProductID: "s1", Quantity: 1}})
	})

	items, err := c.WithToken("tok").FetchOrderItems(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/api/order-items", (*calls)[0].path)
	assert.Equal(t, "order_id=o1", (*calls)[0].query)
}

func TestLogin(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "jwt", "identity": "u1"})
	})

	st, err := c.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", st.Identity)
	assert.Equal(t, "jwt", st.Token)
	assert.Equal(t, "ana", (*calls)[0].body["username"])
}

func TestIDsStayInTheirSegment(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "x"})
	})
	ctx := context.Background()

	_, err := c.Product(ctx, "../cart")
	require.NoError(t, err)
	_, err = c.SimProduct(ctx, "a?b#c")
	require.NoError(t, err)
	_, err = c.FetchOrder(ctx, "..")
	require.NoError(t, err)
	require.NoError(t, c.DeleteAddress(ctx, "home/1"))

	require.Len(t, *calls, 4)
	assert.Equal(t, "/api/products/..%2Fcart", (*calls)[0].escaped)
	assert.Equal(t, "/api/sim-products/a%3Fb%23c", (*calls)[1].escaped)
	assert.Empty(t, (*calls)[1].query)
	assert.Equal(t, "/api/orders/..", (*calls)[2].path)
	assert.Equal(t, "/api/addresses/home%2F1", (*calls)[3].escaped)
}
