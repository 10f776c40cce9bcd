package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alextreichler/vendormarket/internal/config"
	"github.com/alextreichler/vendormarket/internal/gateway"
	"github.com/alextreichler/vendormarket/internal/localstore"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/session"
	"github.com/alextreichler/vendormarket/internal/storefront"
)

// shopper is one CLI invocation's view of the storefront.
type shopper struct {
	local  *localstore.Store
	client *gateway.Client
	front  *storefront.Storefront
}

func runShopper(cfg *config.Config, cmd string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	kv, err := localstore.OpenSQLiteKV(cfg.LocalDBPath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer kv.Close()

	client, err := gateway.New(cfg.APIURL, &http.Client{Timeout: 15 * time.Second}, nil)
	if err != nil {
		return err
	}
	local := localstore.New(kv, nil)
	provider := session.NewProvider(local.LoadSession())
	sh := &shopper{local: local, client: client, front: storefront.NewFromGateway(provider, kv, client, nil)}

	// Logout only touches local state and must work without the service.
	if cmd == "logout" {
		return sh.logout(ctx)
	}
	if err := sh.front.Start(ctx); err != nil {
		slog.Warn("Storefront started with stale state", "error", err)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "login":
		username := fs.String("username", "", "Account username")
		password := fs.String("password", "", "Account password")
		fs.Parse(args)
		return sh.login(ctx, *username, *password)

	case "products":
		products, err := sh.client.Products(ctx)
		if err != nil {
			return fail(err)
		}
		return sh.print(products)

	case "cart":
		return sh.print(sh.cartView())

	case "add":
		productID := fs.String("product", "", "Product id")
		qty := fs.Int("qty", 1, "Quantity to add")
		sim := fs.Bool("sim", false, "Look the product up in the sim catalog")
		fs.Parse(args)
		lookup := sh.client.Product
		if *sim {
			lookup = sh.client.SimProduct
		}
		p, err := lookup(ctx, *productID)
		if err != nil {
			return fail(err)
		}
		if err := sh.front.AddToCart(ctx, p, *qty); err != nil {
			return fail(err)
		}
		return sh.print(sh.cartView())

	case "update":
		item := fs.String("item", "", "Cart line id")
		qty := fs.Int("qty", 1, "New quantity; 0 removes the line")
		fs.Parse(args)
		if err := sh.front.UpdateQuantity(ctx, *item, *qty); err != nil {
			return fail(err)
		}
		return sh.print(sh.cartView())

	case "remove":
		item := fs.String("item", "", "Cart line id")
		fs.Parse(args)
		if err := sh.front.RemoveFromCart(ctx, *item); err != nil {
			return fail(err)
		}
		return sh.print(sh.cartView())

	case "clear":
		if err := sh.front.ClearCart(ctx); err != nil {
			return fail(err)
		}
		return sh.print(sh.cartView())

	case "addresses":
		return sh.print(sh.front.Addresses.List())

	case "add-address":
		var a models.Address
		fs.StringVar(&a.Label, "label", "", "Label, e.g. Home")
		fs.StringVar(&a.Line1, "line1", "", "Address line 1")
		fs.StringVar(&a.Line2, "line2", "", "Address line 2")
		fs.StringVar(&a.City, "city", "", "City")
		fs.StringVar(&a.State, "state", "", "State")
		fs.StringVar(&a.PostalCode, "postal", "", "Postal code")
		fs.StringVar(&a.Country, "country", "", "Country")
		fs.StringVar(&a.Phone, "phone", "", "Phone")
		fs.BoolVar(&a.IsDefault, "default", false, "Make this the default address")
		fs.Parse(args)
		if _, err := sh.front.AddAddress(ctx, a); err != nil {
			return fail(err)
		}
		return sh.print(sh.front.Addresses.List())

	case "set-default":
		id := fs.String("id", "", "Address id")
		fs.Parse(args)
		if err := sh.front.SetDefaultAddress(ctx, *id); err != nil {
			return fail(err)
		}
		return sh.print(sh.front.Addresses.List())

	case "remove-address":
		id := fs.String("id", "", "Address id")
		fs.Parse(args)
		if err := sh.front.RemoveAddress(ctx, *id); err != nil {
			return fail(err)
		}
		return sh.print(sh.front.Addresses.List())

	case "checkout":
		address := fs.String("address", "", "Shipping address id; defaults to the default address")
		fs.Parse(args)
		return sh.checkout(ctx, *address)

	case "orders":
		orders, err := sh.front.FetchOrders(ctx)
		if err != nil {
			return fail(err)
		}
		return sh.print(orders)

	case "order":
		id := fs.String("id", "", "Order id")
		fs.Parse(args)
		o, err := sh.front.GetOrderByID(ctx, *id)
		if err != nil {
			return fail(err)
		}
		return sh.print(o)
	}

	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

func (sh *shopper) login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	auth, err := sh.client.Login(ctx, username, password)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Message != "" {
			return errors.New(gwErr.Message)
		}
		return fail(err)
	}
	if err := sh.local.SaveSession(auth); err != nil {
		return err
	}
	sh.front.Session.Login(ctx, auth)
	return sh.print(sh.front.Snapshot())
}

// checkout places an order for the account cart, then refreshes the cart the
// server just emptied.
func (sh *shopper) checkout(ctx context.Context, addressID string) error {
	auth := sh.front.Session.Current()
	if !auth.Authenticated() {
		return errors.New("log in to check out")
	}
	if addressID == "" {
		def, ok := sh.front.Addresses.Default()
		if !ok {
			return errors.New("add a shipping address first")
		}
		addressID = def.ID
	}

	order, err := sh.client.WithToken(auth.Token).PlaceOrder(ctx, addressID)
	if err != nil {
		return fail(err)
	}
	if err := sh.front.Cart.Refresh(ctx, auth); err != nil {
		return fail(err)
	}
	sh.front.Orders.Reset()
	full, err := sh.front.GetOrderByID(ctx, order.ID)
	if err != nil {
		return fail(err)
	}
	return sh.print(full)
}

type cartView struct {
	Lines      []models.CartLine `json:"lines"`
	Subtotal   string            `json:"subtotal"`
	GST        string            `json:"gst"`
	Total      string            `json:"total"`
	OutOfStock []string          `json:"out_of_stock,omitempty"`
	LowStock   []string          `json:"low_stock,omitempty"`
}

func (sh *shopper) cartView() cartView {
	totals := sh.front.Cart.Totals()
	v := cartView{
		Lines:    sh.front.Cart.Lines(),
		Subtotal: totals.Subtotal.StringFixed(2),
		GST:      totals.GST.StringFixed(2),
		Total:    totals.Total.StringFixed(2),
	}
	report := sh.front.Cart.ValidateInventory()
	for _, l := range report.OutOfStock {
		v.OutOfStock = append(v.OutOfStock, l.Name)
	}
	for _, l := range report.LowStock {
		v.LowStock = append(v.LowStock, l.Name)
	}
	return v
}

func (sh *shopper) print(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail replaces err with what a shopper should read. Hidden errors become a
// quiet success.
func (sh *shopper) logout(ctx context.Context) error {
	if err := sh.local.ClearSession(); err != nil {
		return err
	}
	sh.front.Session.Logout(ctx)
	return sh.print(sh.front.Snapshot())
}

func fail(err error) error {
	msg := storefront.UserMessage(err)
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
