package checkout

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"shopforge/internal/tabular"
)

func writeCatalog(t *testing.T, rows int) string {
	t.Helper()
	table := &tabular.Table{Columns: []string{"Title", "Variant Price"}}
	for i := 0; i < rows; i++ {
		table.Rows = append(table.Rows, map[string]string{
			"Title":         fmt.Sprintf("Desk Mat %d", i+1),
			"Variant Price": "24.90",
		})
	}
	path := filepath.Join(t.TempDir(), "products_with_copy.csv")
	if err := table.WriteFile(path); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, 2))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("catalog = %d products", len(catalog))
	}
	p := catalog[0]
	if p.Handle != "desk-mat-1" || p.Title != "Desk Mat 1" {
		t.Fatalf("product = %+v", p)
	}
	if p.UnitAmount != 2490 {
		t.Fatalf("UnitAmount = %d, want 2490", p.UnitAmount)
	}
}

func TestLoadCatalogCapsAtEight(t *testing.T) {
	catalog, err := LoadCatalog(writeCatalog(t, 12))
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(catalog) != catalogLimit {
		t.Fatalf("catalog = %d products, want %d", len(catalog), catalogLimit)
	}
}

func TestLoadCatalogMissingArtifact(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.csv"))
	var missing *tabular.MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want *MissingArtifactError", err)
	}
}

func TestTruncateTitleCountsRunes(t *testing.T) {
	title := strings.Repeat("a", 69) + "é plus extra"
	got := truncateTitle(title)
	if !utf8.ValidString(got) {
		t.Fatalf("truncateTitle produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", 69)+"é" {
		t.Fatalf("truncateTitle = %q", got)
	}
	if short := truncateTitle("Desk Mat"); short != "Desk Mat" {
		t.Fatalf("short title changed: %q", short)
	}
}

func TestUnitAmount(t *testing.T) {
	if got := unitAmount("24.90"); got != 2490 {
		t.Fatalf("unitAmount = %d", got)
	}
	if got := unitAmount("19.999"); got != 2000 {
		t.Fatalf("unitAmount rounding = %d", got)
	}
	if got := unitAmount(""); got != fallbackUnitAmount {
		t.Fatalf("empty price = %d, want fallback", got)
	}
	if got := unitAmount("-4"); got != fallbackUnitAmount {
		t.Fatalf("negative price = %d, want fallback", got)
	}
}

func TestNewServerRequiresSecret(t *testing.T) {
	_, err := NewServer(Options{CatalogPath: writeCatalog(t, 1)})
	if err == nil {
		t.Fatal("missing secret key must fail")
	}
}

func TestHandlerIndex(t *testing.T) {
	srv, err := NewServer(Options{
		SecretKey:   "sk_test_xxx",
		StoreName:   "Aceru Studio",
		CatalogPath: writeCatalog(t, 2),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Desk Mat 1") || !strings.Contains(body, "Desk Mat 2") {
		t.Fatalf("index missing products: %s", body)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/create-checkout-session", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET create-session status = %d", rec.Code)
	}
}
