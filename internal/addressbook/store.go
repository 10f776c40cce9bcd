package addressbook

import (
	"context"

	"github.com/google/uuid"

	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/localstore"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

// Store persists one owner's address collection.
type Store interface {
	List(ctx context.Context) ([]models.Address, error)
	Create(ctx context.Context, a models.Address) (models.Address, error)
	Update(ctx context.Context, a models.Address) (models.Address, error)
	Delete(ctx context.Context, id string) error
}

type RemoteFactory func(auth session.AuthState) Store

// LocalStore keeps a guest's addresses in the local store. Every write is a
// read-modify-write of the whole list.
type LocalStore struct {
	store *localstore.Store
}

func NewLocalStore(store *localstore.Store) *LocalStore {
	return &LocalStore{store: store}
}

func (s *LocalStore) List(ctx context.Context) ([]models.Address, error) {
	return s.store.LoadAddresses(), nil
}

func (s *LocalStore) Create(ctx context.Context, a models.Address) (models.Address, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	addrs := append(s.store.LoadAddresses(), a)
	return a, s.store.SaveAddresses(addrs)
}

func (s *LocalStore) Update(ctx context.Context, a models.Address) (models.Address, error) {
	addrs := s.store.LoadAddresses()
	i := indexOf(addrs, a.ID)
	if i < 0 {
		return models.Address{}, ErrAddressNotFound
	}
	addrs[i] = a
	return a, s.store.SaveAddresses(addrs)
}

func (s *LocalStore) Delete(ctx context.Context, id string) error {
	addrs := s.store.LoadAddresses()
	i := indexOf(addrs, id)
	if i < 0 {
		return ErrAddressNotFound
	}
	return s.store.SaveAddresses(append(addrs[:i], addrs[i+1:]...))
}

// RemoteStore is the account's address collection behind the gateway.
type RemoteStore struct {
	client *gateway.Client
}

func RemoteFactoryFor(client *gateway.Client) RemoteFactory {
	return func(auth session.AuthState) Store {
		return &RemoteStore{client: client.WithToken(auth.Token)}
	}
}

func (s *RemoteStore) List(ctx context.Context) ([]models.Address, error) {
	return s.client.FetchAddresses(ctx)
}

func (s *RemoteStore) Create(ctx context.Context, a models.Address) (models.Address, error) {
	return s.client.CreateAddress(ctx, a)
}

func (s *RemoteStore) Update(ctx context.Context, a models.Address) (models.Address, error) {
	return s.client.UpdateAddress(ctx, a)
}

func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	return s.client.DeleteAddress(ctx, id)
}

func indexOf(addrs []models.Address, id string) int {
	for i, a := range addrs {
		if a.ID == id {
			return i
		}
	}
	return -1
}
