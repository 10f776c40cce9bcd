package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/localstore"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
)

var ErrLineNotFound = errors.New("cart: line not found")

// Backend is where a cart lives. Every mutation returns the complete cart
// after the change.
type Backend interface {
	Load(ctx context.Context) ([]models.CartLine, error)
	Add(ctx context.Context, product models.Product, quantity int) ([]models.CartLine, error)
	Update(ctx context.Context, itemID string, quantity int) ([]models.CartLine, error)
	Remove(ctx context.Context, itemID string) ([]models.CartLine, error)
	Clear(ctx context.Context) error
}

// RemoteFactory builds the authenticated backend for one session.
type RemoteFactory func(auth session.AuthState) Backend

// LocalBackend keeps a guest cart in the local store.
type LocalBackend struct {
	store *localstore.Store
}

func NewLocalBackend(store *localstore.Store) *LocalBackend {
	return &LocalBackend{store: store}
}

func (b *LocalBackend) Load(ctx context.Context) ([]models.CartLine, error) {
	return b.store.LoadCart(), nil
}

func (b *LocalBackend) Add(ctx context.Context, product models.Product, quantity int) ([]models.CartLine, error) {
	lines := b.store.LoadCart()
	found := false
	for i := range lines {
		if lines[i].ProductID == product.ID {
			lines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, LineFromProduct(uuid.NewString(), product, quantity))
	}
	if err := b.store.SaveCart(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (b *LocalBackend) Update(ctx context.Context, itemID string, quantity int) ([]models.CartLine, error) {
	if quantity <= 0 {
		return b.Remove(ctx, itemID)
	}
	lines := b.store.LoadCart()
	i := indexOf(lines, itemID)
	if i < 0 {
		return nil, ErrLineNotFound
	}
	lines[i].Quantity = quantity
	if err := b.store.SaveCart(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (b *LocalBackend) Remove(ctx context.Context, itemID string) ([]models.CartLine, error) {
	lines := b.store.LoadCart()
	kept := lines[:0]
	for _, l := range lines {
		if l.ID != itemID {
			kept = append(kept, l)
		}
	}
	if err := b.store.SaveCart(kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (b *LocalBackend) Clear(ctx context.Context) error {
	return b.store.ClearCart()
}

// RemoteBackend is the account cart behind the gateway.
type RemoteBackend struct {
	client *gateway.Client
}

func NewRemoteBackend(client *gateway.Client) *RemoteBackend {
	return &RemoteBackend{client: client}
}

// RemoteFactoryFor binds a gateway client to each session's bearer token.
func RemoteFactoryFor(client *gateway.Client) RemoteFactory {
	return func(auth session.AuthState) Backend {
		return NewRemoteBackend(client.WithToken(auth.Token))
	}
}

func (b *RemoteBackend) Load(ctx context.Context) ([]models.CartLine, error) {
	return b.client.FetchCart(ctx)
}

func (b *RemoteBackend) Add(ctx context.Context, product models.Product, quantity int) ([]models.CartLine, error) {
	return b.client.AddItem(ctx, product.ID, quantity)
}

func (b *RemoteBackend) Update(ctx context.Context, itemID string, quantity int) ([]models.CartLine, error) {
	return b.client.UpdateItem(ctx, itemID, quantity)
}

func (b *RemoteBackend) Remove(ctx context.Context, itemID string) ([]models.CartLine, error) {
	return b.client.RemoveItem(ctx, itemID)
}

func (b *RemoteBackend) Clear(ctx context.Context) error {
	return b.client.ClearCart(ctx)
}

func LineFromProduct(id string, p models.Product, quantity int) models.CartLine {
	return models.CartLine{
		ID:            id,
		ProductID:     p.ID,
		Quantity:      quantity,
		Name:          p.Name,
		UnitPrice:     p.Price,
		ImageURL:      p.ImageURL,
		GSTPercentage: p.GSTPercentage,
		Inventory:     p.Inventory,
	}
}

func productFromLine(l models.CartLine) models.Product {
	return models.Product{
		ID:            l.ProductID,
		Name:          l.Name,
		Price:         l.UnitPrice,
		ImageURL:      l.ImageURL,
		GSTPercentage: l.GSTPercentage,
		Inventory:     l.Inventory,
	}
}

func indexOf(lines []models.CartLine, itemID string) int {
	for i, l := range lines {
		if l.ID == itemID {
			return i
		}
	}
	return -1
}
