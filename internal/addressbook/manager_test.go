package addressbook

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/localstore"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

// auditStore fails the test if any persisted state ever holds two defaults.
type auditStore struct {
	Store
	t   *testing.T
	err error

	createErr error  // fails Create only
	rejectID  string // fails Update of this address only
}

func (s *auditStore) check(ctx context.Context) {
	addrs, _ := s.Store.List(ctx)
	assert.LessOrEqual(s.t, countDefaults(addrs), 1, "persisted state has more than one default")
}

func (s *auditStore) Create(ctx context.Context, a models.Address) (models.Address, error) {
	if s.err != nil {
		return models.Address{}, s.err
	}
	if s.createErr != nil {
		return models.Address{}, s.createErr
	}
	out, err := s.Store.Create(ctx, a)
	s.check(ctx)
	return out, err
}

func (s *auditStore) Update(ctx context.Context, a models.Address) (models.Address, error) {
	if s.err != nil {
		return models.Address{}, s.err
	}
	if s.rejectID != "" && a.ID == s.rejectID {
		return models.Address{}, &gateway.Error{Status: 400, Message: "City is required."}
	}
	out, err := s.Store.Update(ctx, a)
	s.check(ctx)
	return out, err
}

var (
	guest = session.Anonymous()
	alice = session.AuthState{Identity: "alice", Token: "tok"}
)

func newManager(t *testing.T) (*Manager, *auditStore) {
	t.Helper()
	local := &auditStore{Store: NewLocalStore(localstore.New(localstore.NewMemoryKV(), nil)), t: t}
	remote := &auditStore{Store: NewLocalStore(localstore.New(localstore.NewMemoryKV(), nil)), t: t}
	m := NewManager(local, func(session.AuthState) Store { return remote }, nil)
	require.NoError(t, m.Start(context.Background(), guest))
	return m, remote
}

func addr(label string, def bool) models.Address {
	return models.Address{Label: label, Line1: "1 Main St", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN", IsDefault: def}
}

func TestFirstAddressBecomesDefault(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, err := m.Add(ctx, guest, addr("home", false))
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.True(t, a.IsDefault)

	def, ok := m.Default()
	require.True(t, ok)
	assert.Equal(t, a.ID, def.ID)
}

func TestAddDefaultClearsSiblings(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	first, err := m.Add(ctx, guest, addr("home", true))
	require.NoError(t, err)
	second, err := m.Add(ctx, guest, addr("work", true))
	require.NoError(t, err)

	addrs := m.List()
	require.Len(t, addrs, 2)
	assert.Equal(t, 1, countDefaults(addrs))
	def, _ := m.Default()
	assert.Equal(t, second.ID, def.ID)
	assert.NotEqual(t, first.ID, def.ID)
}

func TestRemoveDefaultPromotesSibling(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, _ := m.Add(ctx, guest, addr("a", false))
	b, _ := m.Add(ctx, guest, addr("b", false))
	c, _ := m.Add(ctx, guest, addr("c", false))
	require.Equal(t, a.ID, mustDefault(t, m).ID)

	require.NoError(t, m.Remove(ctx, guest, a.ID))
	addrs := m.List()
	require.Len(t, addrs, 2)
	assert.Equal(t, 1, countDefaults(addrs))
	assert.Equal(t, b.ID, mustDefault(t, m).ID)

	require.NoError(t, m.Remove(ctx, guest, c.ID))
	assert.Equal(t, b.ID, mustDefault(t, m).ID)

	require.NoError(t, m.Remove(ctx, guest, b.ID))
	assert.Empty(t, m.List())

	assert.ErrorIs(t, m.Remove(ctx, guest, "missing"), ErrAddressNotFound)
}

func TestUpdateAndSetDefault(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	a, _ := m.Add(ctx, guest, addr("a", false))
	b, _ := m.Add(ctx, guest, addr("b", false))

	require.NoError(t, m.SetDefault(ctx, guest, b.ID))
	assert.Equal(t, b.ID, mustDefault(t, m).ID)

	// Clearing the flag on the default hands it to the other address.
	b.IsDefault = false
	b.City = "Mumbai"
	_, err := m.Update(ctx, guest, b)
	require.NoError(t, err)
	assert.Equal(t, a.ID, mustDefault(t, m).ID)
	assert.Equal(t, 1, countDefaults(m.List()))

	_, err = m.Update(ctx, guest, models.Address{ID: "nope"})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestSingleDefaultUnderRandomOperations(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		addrs := m.List()
		pick := func() string { return addrs[r.Intn(len(addrs))].ID }
		switch op := r.Intn(4); {
		case op == 0 || len(addrs) == 0:
			_, err := m.Add(ctx, guest, addr("x", r.Intn(2) == 0))
			require.NoError(t, err)
		case op == 1:
			a := addrs[r.Intn(len(addrs))]
			a.IsDefault = r.Intn(2) == 0
			_, err := m.Update(ctx, guest, a)
			require.NoError(t, err)
		case op == 2:
			require.NoError(t, m.Remove(ctx, guest, pick()))
		default:
			require.NoError(t, m.SetDefault(ctx, guest, pick()))
		}

		if got := m.List(); len(got) > 0 {
			require.Equal(t, 1, countDefaults(got), "step %d", i)
		}
	}
}

func TestAuthenticatedUsesRemoteStore(t *testing.T) {
	m, remote := newManager(t)
	ctx := context.Background()
	_, err := m.Add(ctx, guest, addr("guest", false))
	require.NoError(t, err)

	require.NoError(t, m.HandleLogin(ctx, alice))
	assert.Empty(t, m.List(), "account book starts from the remote collection")

	_, err = m.Add(ctx, alice, addr("acct", false))
	require.NoError(t, err)
	remoteAddrs, _ := remote.List(ctx)
	assert.Len(t, remoteAddrs, 1)

	remote.err = &gateway.Error{Status: 401}
	_, err = m.Add(ctx, alice, addr("late", true))
	assert.NoError(t, err, "unauthenticated writes are not surfaced")
	remote.err = nil

	require.NoError(t, m.HandleLogout(ctx))
	got := m.List()
	require.Len(t, got, 1)
	assert.Equal(t, "guest", got[0].Label)
}

func TestResetDropsSnapshot(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	_, err := m.Add(ctx, guest, addr("home", false))
	require.NoError(t, err)

	m.Reset()
	assert.Empty(t, m.List())
	_, ok := m.Default()
	assert.False(t, ok)

	require.NoError(t, m.Start(ctx, guest))
	assert.Len(t, m.List(), 1, "guest book reloads after a reset")
}

func persisted(t *testing.T, s Store) []models.Address {
	t.Helper()
	addrs, err := s.List(context.Background())
	require.NoError(t, err)
	return addrs
}

func TestRejectedAddKeepsExistingDefault(t *testing.T) {
	m, remote := newManager(t)
	ctx := context.Background()
	require.NoError(t, m.HandleLogin(ctx, alice))
	home, err := m.Add(ctx, alice, addr("home", true))
	require.NoError(t, err)
	_, err = m.Add(ctx, alice, addr("work", false))
	require.NoError(t, err)

	remote.createErr = &gateway.Error{Status: 400, Message: "City is required."}
	bad := addr("new", true)
	bad.City = ""
	_, err = m.Add(ctx, alice, bad)
	require.Error(t, err)

	stored := persisted(t, remote)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, countDefaults(stored))
	assert.Equal(t, home.ID, mustDefault(t, m).ID)
}

func TestRejectedUpdateKeepsExistingDefault(t *testing.T) {
	m, remote := newManager(t)
	ctx := context.Background()
	require.NoError(t, m.HandleLogin(ctx, alice))
	home, _ := m.Add(ctx, alice, addr("home", true))
	work, _ := m.Add(ctx, alice, addr("work", false))

	remote.rejectID = work.ID
	work.IsDefault = true
	_, err := m.Update(ctx, alice, work)
	require.Error(t, err)
	assert.Equal(t, home.ID, mustDefault(t, m).ID)
	assert.Equal(t, 1, countDefaults(persisted(t, remote)))

	err = m.SetDefault(ctx, alice, work.ID)
	require.Error(t, err)
	assert.Equal(t, home.ID, mustDefault(t, m).ID)
	assert.Equal(t, 1, countDefaults(persisted(t, remote)))
}

func TestBookWithoutDefaultIsRepaired(t *testing.T) {
	m, remote := newManager(t)
	ctx := context.Background()
	// Written elsewhere with no default at all.
	for _, label := range []string{"a", "b"} {
		_, err := remote.Store.Create(ctx, addr(label, false))
		require.NoError(t, err)
	}
	require.NoError(t, m.HandleLogin(ctx, alice))
	require.Equal(t, 0, countDefaults(m.List()))

	c, err := m.Add(ctx, alice, addr("c", false))
	require.NoError(t, err)
	assert.True(t, c.IsDefault)
	assert.Equal(t, 1, countDefaults(persisted(t, remote)))
}

func TestLoadingFlag(t *testing.T) {
	m, _ := newManager(t)
	assert.False(t, m.Loading())
	m.begin()
	assert.True(t, m.Loading())
	m.end()
	assert.False(t, m.Loading())
}

func mustDefault(t *testing.T, m *Manager) models.Address {
	t.Helper()
	def, ok := m.Default()
	require.True(t, ok, "expected a default address")
	return def
}
