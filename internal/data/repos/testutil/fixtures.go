package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
)

// Territory is one region with two DRANEF, each holding one DPANEF and one commune.
type Territory struct {
	Region   *types.Region
	Dranefs  []*types.Dranef
	Dpanefs  []*types.Dpanef
	Communes []*types.Commune
}

func SeedTerritory(tb testing.TB, ctx context.Context, tx *gorm.DB) *Territory {
	tb.Helper()
	suffix := uuid.NewString()[:8]
	out := &Territory{Region: &types.Region{Code: "R-" + suffix, Name: "Region " + suffix}}
	if err := tx.WithContext(ctx).Create(out.Region).Error; err != nil {
		tb.Fatalf("seed region: %v", err)
	}
	for i, name := range []string{"Rif", "Atlas"} {
		dr := &types.Dranef{RegionID: &out.Region.ID, Code: fmt.Sprintf("DR%d-%s", i, suffix), Name: "DRANEF " + name}
		if err := tx.WithContext(ctx).Create(dr).Error; err != nil {
			tb.Fatalf("seed dranef: %v", err)
		}
		dp := &types.Dpanef{DranefID: dr.ID, Code: fmt.Sprintf("DP%d-%s", i, suffix), Name: "DPANEF " + name}
		if err := tx.WithContext(ctx).Create(dp).Error; err != nil {
			tb.Fatalf("seed dpanef: %v", err)
		}
		c := &types.Commune{DpanefID: dp.ID, Code: fmt.Sprintf("C%d-%s", i, suffix), Name: "Commune " + name}
		if err := tx.WithContext(ctx).Create(c).Error; err != nil {
			tb.Fatalf("seed commune: %v", err)
		}
		out.Dranefs = append(out.Dranefs, dr)
		out.Dpanefs = append(out.Dpanefs, dp)
		out.Communes = append(out.Communes, c)
	}
	return out
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, role string, mutate ...func(*types.User)) *types.User {
	tb.Helper()
	u := &types.User{
		Email:        email,
		PasswordHash: "x",
		FullName:     "User " + email,
		Role:         role,
		IsActive:     true,
	}
	for _, m := range mutate {
		m(u)
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProgram(tb testing.TB, ctx context.Context, tx *gorm.DB, communeID, dpanefID, dranefID uuid.UUID, status types.ValidationStatus) *types.Program {
	tb.Helper()
	p := &types.Program{
		Code:             "PDFCP-" + uuid.NewString()[:8],
		Title:            "Programme",
		StartYear:        2024,
		EndYear:          2028,
		CommuneID:        PtrUUID(communeID),
		DpanefID:         PtrUUID(dpanefID),
		DranefID:         PtrUUID(dranefID),
		ValidationStatus: status,
		Locked:           status == types.StatusVerrouille,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed program: %v", err)
	}
	return p
}

func SeedAction(tb testing.TB, ctx context.Context, tx *gorm.DB, pdfcpID uuid.UUID, etat types.Etat, year int, key string, physique, financier float64) *types.Action {
	tb.Helper()
	a := &types.Action{
		PdfcpID:   pdfcpID,
		Etat:      etat,
		Year:      year,
		ActionKey: key,
		Physique:  physique,
		Financier: financier,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed action: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
