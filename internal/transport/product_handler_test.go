package transport

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"storefront/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// A term that occurs in exactly one product's name finds exactly that
// product, whatever its case in the query.
func TestProperty_SearchFindsTheOnlyMatchingProduct(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("unique term returns one product", prop.ForAll(
		func(token string, upper bool) bool {
			api := newTestAPI()
			api.seedProduct(t, "Plain mug", "Ceramic, 300ml", "8.00")
			want := api.seedProduct(t, "Lamp "+token, "Desk light", "30.00")
			api.seedProduct(t, "Kettle", "Steel kettle", "25.00")

			term := token
			if upper {
				term = strings.ToUpper(token)
			}

			rec := api.do(t, http.MethodGet, "/api/products/search?term="+term, nil, "")
			if rec.Code != http.StatusOK {
				t.Logf("FAIL: search returned %d", rec.Code)
				return false
			}

			found := decodeBody[[]domain.Product](t, rec)
			return len(found) == 1 && found[0].ID == want.ID
		},
		gen.RegexMatch(`zq[a-z]{6}`),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSearchTermHandling(t *testing.T) {
	api := newTestAPI()
	api.seedProduct(t, "Plain mug", "Ceramic", "8.00")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"no match is an empty list", "/api/products/search?term=teapot", http.StatusOK},
		{"missing term", "/api/products/search", http.StatusBadRequest},
		{"empty term", "/api/products/search?term=", http.StatusBadRequest},
		{"whitespace term", "/api/products/search?term=%20%20", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, tt.path, nil, "")
			expectStatus(t, rec, tt.want)
			if tt.want == http.StatusOK && rec.Body.String() != "[]\n" {
				t.Errorf("expected an empty JSON array, got %q", rec.Body.String())
			}
		})
	}
}

func TestProductListAndDetail(t *testing.T) {
	api := newTestAPI()
	mug := api.seedProduct(t, "Plain mug", "Ceramic", "8.00")
	api.seedProduct(t, "Kettle", "Steel", "25.00")

	rec := api.do(t, http.MethodGet, "/api/products", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]domain.Product](t, rec); len(list) != 2 || list[0].ID != mug.ID {
		t.Fatalf("expected both products ordered by id, got %+v", list)
	}

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/products/%d", mug.ID), nil, "")
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[domain.Product](t, rec); !got.Price.Equal(decimal.RequireFromString("8")) {
		t.Errorf("expected price 8.00, got %s", got.Price)
	}

	expectStatus(t, api.do(t, http.MethodGet, "/api/products/999", nil, ""), http.StatusNotFound)
	expectStatus(t, api.do(t, http.MethodGet, "/api/products/abc", nil, ""), http.StatusBadRequest)
}

func TestProductManagementRequiresAdmin(t *testing.T) {
	api := newTestAPI()
	_, buyerToken := api.seedUser(t, domain.RoleBuyer)
	body := map[string]interface{}{"name": "Teapot", "price": "19.90", "stock": 3, "sku": "TEA-1"}

	expectStatus(t, api.do(t, http.MethodPost, "/api/products", body, ""), http.StatusUnauthorized)
	expectStatus(t, api.do(t, http.MethodPost, "/api/products", body, buyerToken), http.StatusForbidden)
	expectStatus(t, api.do(t, http.MethodGet, "/api/products/export", nil, buyerToken), http.StatusForbidden)
}

func TestProductLifecycle(t *testing.T) {
	api := newTestAPI()
	_, adminToken := api.seedUser(t, domain.RoleAdmin)

	body := map[string]interface{}{
		"name":     "Teapot",
		"price":    19.999,
		"stock":    3,
		"sku":      "TEA-1",
		"family":   "kitchen",
		"imageUrl": "https://cdn.example.com/teapot.png",
	}

	rec := api.do(t, http.MethodPost, "/api/products", body, adminToken)
	expectStatus(t, rec, http.StatusCreated)
	created := decodeBody[domain.Product](t, rec)
	if created.ID == 0 || !created.Price.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("unexpected product: %+v", created)
	}

	expectStatus(t, api.do(t, http.MethodPost, "/api/products", body, adminToken), http.StatusConflict)

	invalid := []map[string]interface{}{
		{"name": "Teapot", "price": -1, "sku": "TEA-2"},
		{"name": "   ", "price": 1, "sku": "TEA-3"},
		{"name": "Teapot", "price": 1},
		{"name": "Teapot", "price": 1, "sku": "TEA-4", "imageUrl": "not a url"},
		{"name": "Teapot", "price": 100000000000, "sku": "TEA-5"},
		{"name": "Teapot", "price": 1, "stock": 3000000000, "sku": "TEA-6"},
		{"name": "Teapot", "price": 1, "sku": strings.Repeat("T", 65)},
	}
	for _, b := range invalid {
		expectStatus(t, api.do(t, http.MethodPost, "/api/products", b, adminToken), http.StatusBadRequest)
	}

	path := fmt.Sprintf("/api/products/%d", created.ID)
	body["stock"] = 7
	rec = api.do(t, http.MethodPut, path, body, adminToken)
	expectStatus(t, rec, http.StatusOK)
	if updated := decodeBody[domain.Product](t, rec); updated.Stock != 7 {
		t.Errorf("expected stock 7, got %d", updated.Stock)
	}

	expectStatus(t, api.do(t, http.MethodPut, "/api/products/999", body, adminToken), http.StatusNotFound)
	expectStatus(t, api.do(t, http.MethodDelete, path, nil, adminToken), http.StatusNoContent)
	expectStatus(t, api.do(t, http.MethodGet, path, nil, ""), http.StatusNotFound)
}

func TestProductDeleteBlockedByOrders(t *testing.T) {
	api := newTestAPI()
	buyer, buyerToken := api.seedUser(t, domain.RoleBuyer)
	_, adminToken := api.seedUser(t, domain.RoleAdmin)
	product := api.seedProduct(t, "Kettle", "Steel", "25.00")

	add := AddToCartRequest{UserID: buyer.ID, ProductID: product.ID, Quantity: 1}
	expectStatus(t, api.do(t, http.MethodPost, "/api/cart/add", add, buyerToken), http.StatusOK)
	expectStatus(t, api.do(t, http.MethodPost, fmt.Sprintf("/api/orders/%d", buyer.ID), nil, buyerToken), http.StatusCreated)

	rec := api.do(t, http.MethodDelete, fmt.Sprintf("/api/products/%d", product.ID), nil, adminToken)
	expectStatus(t, rec, http.StatusConflict)
}

func TestProductExport(t *testing.T) {
	api := newTestAPI()
	_, adminToken := api.seedUser(t, domain.RoleAdmin)
	api.seedProduct(t, "Plain mug", "Ceramic", "8.00")
	api.seedProduct(t, "Kettle", "Steel", "25.50")

	rec := api.do(t, http.MethodGet, "/api/products/export", nil, adminToken)
	expectStatus(t, rec, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="products.xlsx"` {
		t.Errorf("unexpected content disposition %q", cd)
	}

	file, err := xlsx.OpenBinary(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	sheet := file.Sheet["Products"]
	if sheet == nil {
		t.Fatal("expected a Products sheet")
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(sheet.Rows))
	}
	if got := sheet.Rows[2].Cells[3].String(); !strings.HasPrefix(got, "25.50") {
		t.Errorf("expected price cell 25.50, got %q", got)
	}
}
