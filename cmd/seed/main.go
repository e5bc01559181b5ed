package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/anef-maroc/pdfcp-backend/internal/app"
)

func main() {
	var (
		adminEmail    string
		adminPassword string
		adminName     string
		skipTerritory bool
	)
	flag.StringVar(&adminEmail, "admin-email", "", "bootstrap admin email (optional)")
	flag.StringVar(&adminPassword, "admin-password", "", "bootstrap admin password")
	flag.StringVar(&adminName, "admin-name", "", "bootstrap admin full name")
	flag.BoolVar(&skipTerritory, "skip-territory", false, "do not upsert the territorial referential")
	flag.Parse()

	a, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	if !skipTerritory {
		counts, err := a.SeedTerritory(ctx)
		if err != nil {
			a.Log.Error("Territory seed failed", "error", err)
			a.Close()
			os.Exit(1)
		}
		fmt.Printf("territory: %d regions, %d dranef, %d dpanef, %d communes\n",
			counts.Regions, counts.Dranefs, counts.Dpanefs, counts.Communes)
	}

	if adminEmail == "" {
		return
	}
	u, created, err := a.Seeder().EnsureAdmin(ctx, adminEmail, adminPassword, adminName)
	if err != nil {
		a.Log.Error("Admin seed failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	if created {
		fmt.Printf("admin created: %s\n", u.ID)
	} else {
		fmt.Printf("admin already exists: %s\n", u.ID)
	}
}
