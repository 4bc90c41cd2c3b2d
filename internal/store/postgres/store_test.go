package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/charbel-alt28/aura-retail-ai/internal/market"
)

func TestOpen_skipIfNoDatabaseURL(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres test")
	}
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	if err := st.UpsertProducts(ctx, market.SeedCatalog()); err != nil {
		t.Fatalf("UpsertProducts: %v", err)
	}
	products, err := st.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) < 8 {
		t.Fatalf("expected at least 8 products, got %d", len(products))
	}
}

func TestOpen_requiresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Open(""); err == nil {
		t.Fatal("expected error without DSN")
	}
}
