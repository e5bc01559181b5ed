package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

//go:embed territory.yaml
var embeddedTerritory []byte

type Referential struct {
	Regions []RegionSeed `yaml:"regions"`
}

type RegionSeed struct {
	Code    string       `yaml:"code"`
	Name    string       `yaml:"name"`
	Dranefs []DranefSeed `yaml:"dranefs"`
}

type DranefSeed struct {
	Code    string       `yaml:"code"`
	Name    string       `yaml:"name"`
	Dpanefs []DpanefSeed `yaml:"dpanefs"`
}

type DpanefSeed struct {
	Code     string        `yaml:"code"`
	Name     string        `yaml:"name"`
	Communes []CommuneSeed `yaml:"communes"`
}

type CommuneSeed struct {
	Code       string   `yaml:"code"`
	Name       string   `yaml:"name"`
	NameAr     string   `yaml:"name_ar"`
	Population *int     `yaml:"population"`
	AreaKm2    *float64 `yaml:"area_km2"`
	Latitude   *float64 `yaml:"latitude"`
	Longitude  *float64 `yaml:"longitude"`
}

type Counts struct {
	Regions  int `json:"regions"`
	Dranefs  int `json:"dranefs"`
	Dpanefs  int `json:"dpanefs"`
	Communes int `json:"communes"`
}

// Load reads the referential from path, or the embedded copy when path is empty.
func Load(path string) (*Referential, error) {
	raw := embeddedTerritory
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read territory seed %q: %w", path, err)
		}
		raw = b
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Referential, error) {
	var ref Referential
	if err := yaml.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("parse territory seed: %w", err)
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	return &ref, nil
}

// codes are unique per level and every node has a name
func (r *Referential) validate() error {
	seen := map[string]map[string]bool{"region": {}, "dranef": {}, "dpanef": {}, "commune": {}}
	check := func(level, code, name string) error {
		code = strings.TrimSpace(code)
		if code == "" || strings.TrimSpace(name) == "" {
			return fmt.Errorf("territory seed: %s with empty code or name (%q)", level, code)
		}
		if seen[level][code] {
			return fmt.Errorf("territory seed: duplicate %s code %q", level, code)
		}
		seen[level][code] = true
		return nil
	}
	for _, rg := range r.Regions {
		if err := check("region", rg.Code, rg.Name); err != nil {
			return err
		}
		for _, dr := range rg.Dranefs {
			if err := check("dranef", dr.Code, dr.Name); err != nil {
				return err
			}
			for _, dp := range dr.Dpanefs {
				if err := check("dpanef", dp.Code, dp.Name); err != nil {
					return err
				}
				for _, c := range dp.Communes {
					if err := check("commune", c.Code, c.Name); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

type Seeder struct {
	log       *logger.Logger
	territory repos.TerritoryRepo
	users     repos.UserRepo
	tx        repos.TxRunner
}

func NewSeeder(log *logger.Logger, territory repos.TerritoryRepo, users repos.UserRepo, tx repos.TxRunner) *Seeder {
	return &Seeder{
		log:       log.With("component", "Seeder"),
		territory: territory,
		users:     users,
		tx:        tx,
	}
}

// SeedTerritory upserts the whole referential in one transaction. Running it
// twice leaves the ids unchanged.
func (s *Seeder) SeedTerritory(ctx context.Context, ref *Referential) (Counts, error) {
	var out Counts
	if ref == nil {
		return out, nil
	}
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		for _, rg := range ref.Regions {
			region := &types.Region{Code: strings.TrimSpace(rg.Code), Name: rg.Name}
			if err := s.territory.UpsertRegion(dbc, region); err != nil {
				return fmt.Errorf("upsert region %s: %w", rg.Code, err)
			}
			out.Regions++
			for _, dr := range rg.Dranefs {
				dranef := &types.Dranef{Code: strings.TrimSpace(dr.Code), Name: dr.Name, RegionID: &region.ID}
				if err := s.territory.UpsertDranef(dbc, dranef); err != nil {
					return fmt.Errorf("upsert dranef %s: %w", dr.Code, err)
				}
				out.Dranefs++
				for _, dp := range dr.Dpanefs {
					dpanef := &types.Dpanef{Code: strings.TrimSpace(dp.Code), Name: dp.Name, DranefID: dranef.ID}
					if err := s.territory.UpsertDpanef(dbc, dpanef); err != nil {
						return fmt.Errorf("upsert dpanef %s: %w", dp.Code, err)
					}
					out.Dpanefs++
					for _, c := range dp.Communes {
						commune := &types.Commune{
							Code:       strings.TrimSpace(c.Code),
							Name:       c.Name,
							NameAr:     c.NameAr,
							DpanefID:   dpanef.ID,
							Population: c.Population,
							AreaKm2:    c.AreaKm2,
							Latitude:   c.Latitude,
							Longitude:  c.Longitude,
						}
						if err := s.territory.UpsertCommune(dbc, commune); err != nil {
							return fmt.Errorf("upsert commune %s: %w", c.Code, err)
						}
						out.Communes++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return Counts{}, err
	}
	s.log.Info("Territory seeded",
		"regions", out.Regions,
		"dranefs", out.Dranefs,
		"dpanefs", out.Dpanefs,
		"communes", out.Communes,
	)
	return out, nil
}

// EnsureAdmin creates an active admin account unless the email is already taken.
// created is false when the account existed.
func (s *Seeder) EnsureAdmin(ctx context.Context, email, password, fullName string) (*types.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, false, fmt.Errorf("admin email and password are required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.users.GetByEmail(dbc, email)
	if err != nil {
		return nil, false, fmt.Errorf("lookup admin: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash admin password: %w", err)
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = "Administrateur"
	}
	u := &types.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         "admin",
		IsActive:     true,
	}
	if _, err := s.users.Create(dbc, []*types.User{u}); err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("Bootstrap admin created", "user_id", u.ID)
	return u, true, nil
}
