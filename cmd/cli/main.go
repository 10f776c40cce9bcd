package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/vendormarket/internal/config"
	"github.com/alextreichler/vendormarket/internal/models"
	"github.com/alextreichler/vendormarket/internal/store"
)

const usage = `usage: cli <command> [flags]

admin (direct database access):
  add-user      -username -password
  add-product   -name -price [-gst] [-stock] [-image] [-sim]
  set-status    -order -status

shopper (through the API):
  login         -username -password
  logout
  products
  cart
  add           -product [-qty] [-sim]
  update        -item -qty
  remove        -item
  clear
  addresses
  add-address   -line1 -city -postal -country [-label] [-line2] [-state] [-phone] [-default]
  set-default   -id
  remove-address -id
  checkout      [-address]
  orders
  order         -id`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	cfg := config.LoadClientConfig()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "add-user", "add-product", "set-status":
		runAdmin(cfg, cmd, args)
	default:
		if err := runShopper(cfg, cmd, args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func openStore(cfg *config.Config) *store.Store {
	// Migrations run here too so the CLI works before the server has started.
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return db
}

func runAdmin(cfg *config.Config, cmd string, args []string) {
	switch cmd {
	case "add-user":
		fs := flag.NewFlagSet("add-user", flag.ExitOnError)
		username := fs.String("username", "", "Username for the new user")
		password := fs.String("password", "", "Password for the new user")
		fs.Parse(args)
		if *username == "" || *password == "" {
			fmt.Println("username and password are required")
			fs.PrintDefaults()
			os.Exit(1)
		}
		createUser(cfg, *username, *password)

	case "add-product":
		fs := flag.NewFlagSet("add-product", flag.ExitOnError)
		name := fs.String("name", "", "Product name")
		price := fs.String("price", "", "Unit price, e.g. 249.50")
		gst := fs.String("gst", "", "GST percentage, e.g. 18")
		stock := fs.Int("stock", -1, "Units in stock; negative leaves stock untracked")
		image := fs.String("image", "", "Image URL")
		sim := fs.Bool("sim", false, "Add to the sim catalog instead of the shop")
		fs.Parse(args)
		if *name == "" || *price == "" {
			fmt.Println("name and price are required")
			fs.PrintDefaults()
			os.Exit(1)
		}
		createProduct(cfg, *name, *price, *gst, *stock, *image, *sim)

	case "set-status":
		fs := flag.NewFlagSet("set-status", flag.ExitOnError)
		orderID := fs.String("order", "", "Order id")
		status := fs.String("status", "", "One of pending, shipped, delivered, completed, cancelled")
		fs.Parse(args)
		db := openStore(cfg)
		defer db.Close()
		if err := db.UpdateOrderStatus(*orderID, models.OrderStatus(strings.ToLower(*status))); err != nil {
			log.Fatalf("Failed to update order: %v", err)
		}
		fmt.Printf("Order '%s' is now %s.\n", *orderID, *status)
	}
}

func createUser(cfg *config.Config, username, password string) {
	db := openStore(cfg)
	defer db.Close()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	if _, err := db.CreateUser(username, string(hashedPassword)); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User '%s' created successfully.\n", username)
}

func createProduct(cfg *config.Config, name, price, gst string, stock int, image string, sim bool) {
	p := &models.Product{Name: name, ImageURL: image}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil || !p.Price.IsPositive() {
		log.Fatalf("Invalid price %q", price)
	}
	if gst != "" {
		g, err := decimal.NewFromString(gst)
		if err != nil || g.IsNegative() {
			log.Fatalf("Invalid gst %q", gst)
		}
		p.GSTPercentage = &g
	}
	if stock >= 0 {
		p.Inventory = &stock
	}

	catalog := models.CatalogShop
	if sim {
		catalog = models.CatalogSim
	}

	db := openStore(cfg)
	defer db.Close()
	if err := db.CreateProduct(catalog, p); err != nil {
		log.Fatalf("Failed to create product: %v", err)
	}
	fmt.Printf("Product '%s' created in %s catalog with id %s.\n", p.Name, catalog, p.ID)
}
