package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/pointers"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

// Hierarchy is an in-memory snapshot of region > dranef > dpanef > commune.
// It implements rbac.Lookup and stats.Territory; a nil Hierarchy resolves nothing.
type Hierarchy struct {
	Regions  []*types.Region
	Dranefs  []*types.Dranef
	Dpanefs  []*types.Dpanef
	Communes []*types.Commune

	communeDpanef    map[uuid.UUID]uuid.UUID
	dpanefDranef     map[uuid.UUID]uuid.UUID
	dranefRegion     map[uuid.UUID]uuid.UUID
	communesByDpanef map[uuid.UUID][]uuid.UUID
	dpanefsByDranef  map[uuid.UUID][]uuid.UUID
	names            map[uuid.UUID]string
}

func NewHierarchy(regions []*types.Region, dranefs []*types.Dranef, dpanefs []*types.Dpanef, communes []*types.Commune) *Hierarchy {
	h := &Hierarchy{
		Regions:          regions,
		Dranefs:          dranefs,
		Dpanefs:          dpanefs,
		Communes:         communes,
		communeDpanef:    make(map[uuid.UUID]uuid.UUID, len(communes)),
		dpanefDranef:     make(map[uuid.UUID]uuid.UUID, len(dpanefs)),
		dranefRegion:     make(map[uuid.UUID]uuid.UUID, len(dranefs)),
		communesByDpanef: map[uuid.UUID][]uuid.UUID{},
		dpanefsByDranef:  map[uuid.UUID][]uuid.UUID{},
		names:            map[uuid.UUID]string{},
	}
	for _, r := range regions {
		h.names[r.ID] = r.Name
	}
	for _, d := range dranefs {
		h.names[d.ID] = d.Name
		if d.RegionID != nil {
			h.dranefRegion[d.ID] = *d.RegionID
		}
	}
	for _, d := range dpanefs {
		h.names[d.ID] = d.Name
		h.dpanefDranef[d.ID] = d.DranefID
		h.dpanefsByDranef[d.DranefID] = append(h.dpanefsByDranef[d.DranefID], d.ID)
	}
	for _, c := range communes {
		h.names[c.ID] = c.Name
		h.communeDpanef[c.ID] = c.DpanefID
		h.communesByDpanef[c.DpanefID] = append(h.communesByDpanef[c.DpanefID], c.ID)
	}
	return h
}

func (h *Hierarchy) DpanefOfCommune(communeID uuid.UUID) (uuid.UUID, bool) {
	if h == nil {
		return uuid.Nil, false
	}
	id, ok := h.communeDpanef[communeID]
	return id, ok
}

func (h *Hierarchy) DranefOfDpanef(dpanefID uuid.UUID) (uuid.UUID, bool) {
	if h == nil {
		return uuid.Nil, false
	}
	id, ok := h.dpanefDranef[dpanefID]
	return id, ok
}

func (h *Hierarchy) RegionOfDranef(dranefID uuid.UUID) (uuid.UUID, bool) {
	if h == nil {
		return uuid.Nil, false
	}
	id, ok := h.dranefRegion[dranefID]
	return id, ok
}

func (h *Hierarchy) CommunesOfDpanef(dpanefID uuid.UUID) []uuid.UUID {
	if h == nil {
		return nil
	}
	return h.communesByDpanef[dpanefID]
}

func (h *Hierarchy) CommunesOfDranef(dranefID uuid.UUID) []uuid.UUID {
	if h == nil {
		return nil
	}
	var out []uuid.UUID
	for _, dp := range h.dpanefsByDranef[dranefID] {
		out = append(out, h.communesByDpanef[dp]...)
	}
	return out
}

func (h *Hierarchy) HasCommune(id uuid.UUID) bool {
	_, ok := h.DpanefOfCommune(id)
	return ok
}

func (h *Hierarchy) HasDpanef(id uuid.UUID) bool {
	_, ok := h.DranefOfDpanef(id)
	return ok
}

func (h *Hierarchy) Name(id uuid.UUID) string {
	if h == nil {
		return ""
	}
	return h.names[id]
}

// Placement is the territorial position of a record, from the region down.
type Placement struct {
	RegionID  *uuid.UUID
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
}

// Complete derives every upper level from the lowest one given. A supplied
// upper level that disagrees with the derived one is refused.
func (h *Hierarchy) Complete(p Placement) (Placement, error) {
	var err error
	if p.CommuneID != nil {
		if p.DpanefID, err = settle("dpanef", p.DpanefID, h.DpanefOfCommune, *p.CommuneID); err != nil {
			return p, err
		}
	}
	if p.DpanefID != nil {
		if p.DranefID, err = settle("dranef", p.DranefID, h.DranefOfDpanef, *p.DpanefID); err != nil {
			return p, err
		}
	}
	if p.DranefID != nil {
		if p.RegionID, err = settle("region", p.RegionID, h.RegionOfDranef, *p.DranefID); err != nil {
			return p, err
		}
	}
	return p, nil
}

// settle returns the parent of child, keeping given when the tree has no link.
func settle(level string, given *uuid.UUID, parentOf func(uuid.UUID) (uuid.UUID, bool), child uuid.UUID) (*uuid.UUID, error) {
	parent, ok := parentOf(child)
	if !ok {
		return given, nil
	}
	if given != nil && *given != uuid.Nil && *given != parent {
		return given, invalid("invalid_placement", "%s %s does not contain %s", level, *given, child)
	}
	return pointers.UUID(parent), nil
}

type CommuneNode struct {
	*types.Commune
}

type DpanefNode struct {
	*types.Dpanef
	Communes []CommuneNode `json:"communes"`
}

type DranefNode struct {
	*types.Dranef
	Dpanefs []DpanefNode `json:"dpanefs"`
}

type RegionNode struct {
	*types.Region
	Dranefs []DranefNode `json:"dranefs"`
}

// Tree nests the snapshot, every level sorted by name.
func (h *Hierarchy) Tree() []RegionNode {
	if h == nil {
		return []RegionNode{}
	}
	communes := map[uuid.UUID][]CommuneNode{}
	for _, c := range h.Communes {
		communes[c.DpanefID] = append(communes[c.DpanefID], CommuneNode{c})
	}
	dpanefs := map[uuid.UUID][]DpanefNode{}
	for _, d := range h.Dpanefs {
		cs := communes[d.ID]
		sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
		dpanefs[d.DranefID] = append(dpanefs[d.DranefID], DpanefNode{Dpanef: d, Communes: nonNil(cs)})
	}
	dranefs := map[uuid.UUID][]DranefNode{}
	for _, d := range h.Dranefs {
		dps := dpanefs[d.ID]
		sort.Slice(dps, func(i, j int) bool { return dps[i].Name < dps[j].Name })
		var key uuid.UUID
		if d.RegionID != nil {
			key = *d.RegionID
		}
		dranefs[key] = append(dranefs[key], DranefNode{Dranef: d, Dpanefs: nonNil(dps)})
	}
	out := make([]RegionNode, 0, len(h.Regions))
	for _, r := range h.Regions {
		drs := dranefs[r.ID]
		sort.Slice(drs, func(i, j int) bool { return drs[i].Name < drs[j].Name })
		out = append(out, RegionNode{Region: r, Dranefs: nonNil(drs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type TerritoryService interface {
	// Hierarchy returns the cached snapshot, reloading it once the TTL expired.
	Hierarchy(dbc dbctx.Context) (*Hierarchy, error)
	Invalidate()
	Tree(dbc dbctx.Context) ([]RegionNode, error)
	ListDranef(dbc dbctx.Context, regionID *uuid.UUID) ([]*types.Dranef, error)
	ListDpanef(dbc dbctx.Context, dranefID *uuid.UUID) ([]*types.Dpanef, error)
	ListCommunes(dbc dbctx.Context, dpanefID *uuid.UUID) ([]*types.Commune, error)
}

type territoryService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.TerritoryRepo
	ttl  time.Duration

	mu       sync.RWMutex
	snapshot *Hierarchy
	loadedAt time.Time
	group    singleflight.Group
}

func NewTerritoryService(db *gorm.DB, baseLog *logger.Logger, repo repos.TerritoryRepo, ttl time.Duration) TerritoryService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &territoryService{
		db:   db,
		log:  baseLog.With("service", "TerritoryService"),
		repo: repo,
		ttl:  ttl,
	}
}

func (s *territoryService) Hierarchy(dbc dbctx.Context) (*Hierarchy, error) {
	s.mu.RLock()
	h, at := s.snapshot, s.loadedAt
	s.mu.RUnlock()
	if h != nil && time.Since(at) < s.ttl {
		return h, nil
	}
	// A caller inside a transaction reads through it; the pool may hold a single connection.
	if dbc.Tx != nil {
		return s.loadSequential(dbc)
	}
	v, err, _ := s.group.Do("hierarchy", func() (any, error) {
		return s.load(dbc.Ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Hierarchy), nil
}

func (s *territoryService) load(ctx context.Context) (*Hierarchy, error) {
	var (
		regions  []*types.Region
		dranefs  []*types.Dranef
		dpanefs  []*types.Dpanef
		communes []*types.Commune
	)
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() (err error) { regions, err = s.repo.ListRegions(dbc); return })
	g.Go(func() (err error) { dranefs, err = s.repo.ListDranef(dbc, nil); return })
	g.Go(func() (err error) { dpanefs, err = s.repo.ListDpanef(dbc, nil); return })
	g.Go(func() (err error) { communes, err = s.repo.ListCommunes(dbc, nil); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load territory: %w", err)
	}
	return s.store(NewHierarchy(regions, dranefs, dpanefs, communes)), nil
}

func (s *territoryService) loadSequential(dbc dbctx.Context) (*Hierarchy, error) {
	regions, err := s.repo.ListRegions(dbc)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	dranefs, err := s.repo.ListDranef(dbc, nil)
	if err != nil {
		return nil, fmt.Errorf("load dranef: %w", err)
	}
	dpanefs, err := s.repo.ListDpanef(dbc, nil)
	if err != nil {
		return nil, fmt.Errorf("load dpanef: %w", err)
	}
	communes, err := s.repo.ListCommunes(dbc, nil)
	if err != nil {
		return nil, fmt.Errorf("load communes: %w", err)
	}
	return s.store(NewHierarchy(regions, dranefs, dpanefs, communes)), nil
}

func (s *territoryService) store(h *Hierarchy) *Hierarchy {
	s.mu.Lock()
	s.snapshot = h
	s.loadedAt = time.Now()
	s.mu.Unlock()
	s.log.Debug("territory snapshot loaded",
		"regions", len(h.Regions), "dranefs", len(h.Dranefs), "dpanefs", len(h.Dpanefs), "communes", len(h.Communes))
	return h
}

func (s *territoryService) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

func (s *territoryService) Tree(dbc dbctx.Context) ([]RegionNode, error) {
	h, err := s.Hierarchy(dbc)
	if err != nil {
		return nil, err
	}
	return h.Tree(), nil
}

func (s *territoryService) ListDranef(dbc dbctx.Context, regionID *uuid.UUID) ([]*types.Dranef, error) {
	out, err := s.repo.ListDranef(dbc, regionID)
	if err != nil {
		return nil, fmt.Errorf("list dranef: %w", err)
	}
	return out, nil
}

func (s *territoryService) ListDpanef(dbc dbctx.Context, dranefID *uuid.UUID) ([]*types.Dpanef, error) {
	out, err := s.repo.ListDpanef(dbc, dranefID)
	if err != nil {
		return nil, fmt.Errorf("list dpanef: %w", err)
	}
	return out, nil
}

func (s *territoryService) ListCommunes(dbc dbctx.Context, dpanefID *uuid.UUID) ([]*types.Commune, error) {
	out, err := s.repo.ListCommunes(dbc, dpanefID)
	if err != nil {
		return nil, fmt.Errorf("list communes: %w", err)
	}
	return out, nil
}
