package demo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tokoku/client/internal/domain"
	"tokoku/client/internal/logger"
)

type SeedUser struct {
	ID           string
	Username     string
	Name         string
	Role         string
	PasswordHash string
}

// SeedUsers builds the demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; without them the dev
// defaults are used and a warning is logged.
func SeedUsers(log *logger.Logger, cost int) ([]SeedUser, error) {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn(context.Background(), "demo backend is using default credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override", nil)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	users := make([]SeedUser, 0, 2)
	for _, u := range []struct {
		id       string
		username string
		name     string
		password string
		role     string
	}{
		{"usr-1", "admin", "Pemilik Toko", adminPwd, "ADMIN"},
		{"usr-2", "cashier", "Kasir Satu", cashierPwd, "KASIR"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash seed password for %s: %w", u.username, err)
		}
		users = append(users, SeedUser{ID: u.id, Username: u.username, Name: u.name, Role: u.role, PasswordHash: string(hash)})
	}
	return users, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type seedProduct struct {
	sku     string
	name    string
	price   int64
	stock   int
	pack    string
	packQty int
	barcode string
	dist    string
}

func rupiah(v int64) domain.Money { return decimal.NewFromInt(v) }

// newSeededData is the demo store: a small grocery with two distributors,
// a walk-in customer and two credit customers.
func newSeededData(now func() time.Time) *data {
	seeds := []seedProduct{
		{"SKU-MIE-01", "Mie Goreng Instan", 3500, 120, "dus", 40, "8991002100015", "dst-1"},
		{"SKU-TELUR-01", "Telur 10 Butir", 26500, 30, "", 0, "8991002100022", "dst-1"},
		{"SKU-SUSU-01", "Susu UHT 1L", 18900, 48, "karton", 12, "8991002100039", "dst-2"},
		{"SKU-ROTI-01", "Roti Tawar", 17800, 15, "", 0, "8991002100046", "dst-2"},
		{"SKU-KOPI-01", "Kopi Sachet", 2600, 200, "renceng", 10, "8991002100053", "dst-1"},
		{"SKU-GULA-01", "Gula 1kg", 17400, 60, "", 0, "8991002100060", "dst-1"},
		{"SKU-TEH-01", "Teh Celup", 9800, 40, "", 0, "8991002100077", "dst-2"},
		{"SKU-AIR-01", "Air Mineral 600ml", 3900, 96, "dus", 24, "8991002100084", "dst-2"},
		{"SKU-KERIPIK-01", "Keripik Singkong", 12800, 25, "", 0, "8991002100091", "dst-1"},
		{"SKU-COKLAT-01", "Coklat Batang", 8600, 0, "", 0, "8991002100107", "dst-2"},
		{"SKU-SABUN-01", "Sabun Mandi", 7400, 36, "pak", 6, "8991002100114", "dst-1"},
		{"SKU-SHAMPOO-01", "Shampoo Sachet", 3200, 120, "renceng", 12, "8991002100121", "dst-1"},
	}

	d := &data{
		now:            now,
		products:       make([]domain.Product, 0, len(seeds)),
		stockHistory:   map[string][]domain.StockCardEntry{},
		warehouseStock: map[string]map[string]int{"wh-2": {}},
		transactions:   map[string]domain.Transaction{},
		byIdempotency:  map[string]string{},
		purchaseOrders: []domain.PurchaseOrder{},
		returs:         map[string][]domain.Retur{},
		storeInfo: domain.StoreInfo{
			Name:    "Toko Sembako Berkah",
			Address: "Jl. Pasar Baru No. 12",
			Phone:   "0812-0000-1111",
			Footer:  "Terima kasih, selamat berbelanja kembali",
		},
		emailQuota: domain.EmailQuota{Limit: 100},
	}

	for i, s := range seeds {
		id := fmt.Sprintf("prd-%d", i+1)
		base := domain.Unit{ID: id + "-pcs", Name: "pcs", Conversion: 1, Price: rupiah(s.price)}
		units := []domain.Unit{base}
		barcodes := []domain.Barcode{{Barcode: s.barcode, UnitID: base.ID}}
		if s.pack != "" {
			pack := domain.Unit{
				ID:         id + "-" + s.pack,
				Name:       s.pack,
				Conversion: s.packQty,
				// Buying by the pack saves five percent.
				Price: rupiah(s.price * int64(s.packQty) * 95 / 100),
			}
			units = append(units, pack)
			barcodes = append(barcodes, domain.Barcode{Barcode: "1" + s.barcode, UnitID: pack.ID})
		}
		d.products = append(d.products, domain.Product{
			ID:       id,
			SKU:      s.sku,
			Name:     s.name,
			Stock:    s.stock,
			MinStock: 5,
			Units:    units,
			Distributors: []domain.ProductDistributor{
				{DistributorID: s.dist, IsDefault: true, Barcodes: barcodes},
			},
		})
		d.warehouseStock["wh-2"][id] = 0
	}

	canBon := true
	d.customers = []domain.Customer{
		{ID: "cus-1", Name: "Pelanggan Umum", Type: domain.Code("UMUM"), Debt: decimal.Zero},
		{ID: "cus-2", Name: "Bu Sari", Type: domain.Code("TETAP"), Debt: rupiah(15000), Phone: "0812-1111-2222", Email: "sari@example.com"},
		{ID: "cus-3", Name: "Warung Pak Budi", Type: domain.Lookup{Code: "RESELLER", Name: "Reseller", CanBon: &canBon}, Debt: decimal.Zero, Phone: "0813-3333-4444"},
	}
	d.distributors = []domain.Distributor{
		{ID: "dst-1", Name: "CV Sumber Rejeki", Phone: "021-555-0101", Debt: rupiah(250000)},
		{ID: "dst-2", Name: "PT Indo Grosir", Phone: "021-555-0202", Debt: decimal.Zero},
	}
	d.warehouses = []domain.Warehouse{
		{ID: "wh-1", Name: "Toko", IsDefault: true},
		{ID: "wh-2", Name: "Gudang Belakang"},
	}
	d.purchaseOrders = append(d.purchaseOrders, domain.PurchaseOrder{
		ID:            "po-1",
		Number:        "PO-0001",
		DistributorID: "dst-1",
		Status:        domain.POStatusPending,
		Items:         []domain.PurchaseOrderItem{{ProductID: "prd-1", UnitID: "prd-1-dus", Quantity: 2, Price: rupiah(126000)}},
		Total:         rupiah(252000),
		CreatedAt:     now().UTC(),
	})
	d.nextPO = 2
	return d
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
