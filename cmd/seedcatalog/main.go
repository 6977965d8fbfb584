// cmd/seedcatalog/main.go: loads a demo catalog (vendor, notebooks, pens and
// a starter kit set) and one student. Safe to re-run: existing names are skipped.
// Usage: go run ./cmd/seedcatalog
package main

import (
	"context"
	"errors"

	"stationery/internal/config"
	"stationery/internal/dto"
	"stationery/internal/infra"
	"stationery/internal/router"
	"stationery/internal/service"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	name  string
	price string
	stock int
}

var catalog = []seedProduct{
	{name: "Notebook A4 200p", price: "45.00", stock: 300},
	{name: "Blue Pen", price: "10.00", stock: 1000},
	{name: "Geometry Box", price: "120.00", stock: 80},
	{name: "Lab Record", price: "60.00", stock: 150},
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	svc := router.NewServices(cfg, db, nil, nil)

	if _, err := svc.Vendors.Create(ctx, dto.VendorRequest{Name: "City Stationers", Phone: "0000000000"}); err != nil {
		log.Warn().Err(err).Msg("vendor not created")
	}

	existing, err := svc.Products.List(ctx, dto.ProductFilter{Active: "all", Page: 1, Limit: 500})
	if err != nil {
		log.Fatal().Err(err).Msg("list products")
	}
	ids := make(map[string]string, len(existing.Data))
	for _, p := range existing.Data {
		ids[p.Name] = p.ID
	}

	for _, sp := range catalog {
		if _, ok := ids[sp.name]; ok {
			continue
		}
		p, err := svc.Products.Create(ctx, dto.CreateProductRequest{
			Name:  sp.name,
			Price: decimal.RequireFromString(sp.price),
			Stock: sp.stock,
		})
		if err != nil {
			log.Fatal().Err(err).Str("product", sp.name).Msg("create product")
		}
		ids[p.Name] = p.ID
		log.Info().Str("product", p.Name).Int("stock", p.Stock).Msg("product created")
	}

	if _, ok := ids["Starter Kit"]; !ok {
		kit, err := svc.Products.Create(ctx, dto.CreateProductRequest{
			Name:  "Starter Kit",
			Price: decimal.RequireFromString("150.00"),
			IsSet: true,
			SetItems: []dto.SetItemRequest{
				{ProductID: ids["Notebook A4 200p"], Quantity: 2},
				{ProductID: ids["Blue Pen"], Quantity: 1},
			},
		})
		if err != nil {
			log.Fatal().Err(err).Msg("create starter kit")
		}
		log.Info().Str("product", kit.Name).Int("sellable", kit.SellableQuantity).Msg("set created")
	}

	_, err = svc.Students.Create(ctx, dto.CreateStudentRequest{
		StudentID: "24001", Name: "Demo Student", Course: "B.Tech", Year: 1, Branch: "CSE",
	})
	if err != nil && !errors.Is(err, service.ErrConflict) {
		log.Fatal().Err(err).Msg("create student")
	}
	log.Info().Msg("catalog seeded")
}
