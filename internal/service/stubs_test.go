package service_test

import (
	"context"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/cache"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/repository"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository stubs. Services run their transaction closures with
// a nil *gorm.DB against these, so writes apply immediately; tests that
// need rollback semantics live in the integration suite.

// ── Products ─────────────────────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, int64, error) {
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Locations ────────────────────────────────────────────────────────────────

type stubLocationRepo struct {
	locations map[uuid.UUID]*model.Location
}

func newStubLocationRepo() *stubLocationRepo {
	return &stubLocationRepo{locations: make(map[uuid.UUID]*model.Location)}
}

func (r *stubLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return l, nil
}

func (r *stubLocationRepo) List(_ context.Context) ([]model.Location, error) {
	out := make([]model.Location, 0, len(r.locations))
	for _, l := range r.locations {
		out = append(out, *l)
	}
	return out, nil
}

var _ repository.LocationRepository = (*stubLocationRepo)(nil)

// ── Stock levels ─────────────────────────────────────────────────────────────

type pairKey struct {
	product  uuid.UUID
	location uuid.UUID
}

type stubLevelRepo struct {
	byPair map[pairKey]*model.StockLevel
	byID   map[uuid.UUID]*model.StockLevel
}

func newStubLevelRepo() *stubLevelRepo {
	return &stubLevelRepo{
		byPair: make(map[pairKey]*model.StockLevel),
		byID:   make(map[uuid.UUID]*model.StockLevel),
	}
}

func (r *stubLevelRepo) DB() *gorm.DB { return nil }

func (r *stubLevelRepo) Get(_ context.Context, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	lvl, ok := r.byPair[pairKey{productID, locationID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return lvl, nil
}

func (r *stubLevelRepo) LockForUpdateTx(_ *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	return r.Get(context.Background(), productID, locationID)
}

func (r *stubLevelRepo) GetOrCreateLockedTx(_ *gorm.DB, productID, locationID uuid.UUID) (*model.StockLevel, error) {
	key := pairKey{productID, locationID}
	if lvl, ok := r.byPair[key]; ok {
		return lvl, nil
	}
	lvl := &model.StockLevel{ID: uuid.New(), ProductID: productID, LocationID: locationID}
	r.byPair[key] = lvl
	r.byID[lvl.ID] = lvl
	return lvl, nil
}

func (r *stubLevelRepo) UpdateQuantityTx(_ *gorm.DB, id uuid.UUID, quantity int) error {
	lvl, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	lvl.Quantity = quantity
	return nil
}

func (r *stubLevelRepo) UpdateReservedTx(_ *gorm.DB, id uuid.UUID, reserved int) error {
	lvl, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	lvl.Reserved = reserved
	return nil
}

var _ repository.StockLevelRepository = (*stubLevelRepo)(nil)

// seedLevel installs a level row with a known quantity.
func (r *stubLevelRepo) seedLevel(productID, locationID uuid.UUID, quantity int) *model.StockLevel {
	lvl, _ := r.GetOrCreateLockedTx(nil, productID, locationID)
	lvl.Quantity = quantity
	return lvl
}

// ── Stock movements ──────────────────────────────────────────────────────────

type stubMovementRepo struct {
	movements []model.StockMovement
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now().UTC()
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range r.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.LocationID != nil && m.LocationID != *filter.LocationID {
			continue
		}
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovementRepo) SumDeltas(_ context.Context, productID, locationID uuid.UUID) (int64, error) {
	var sum int64
	for _, m := range r.movements {
		if m.ProductID == productID && m.LocationID == locationID {
			sum += int64(m.Delta)
		}
	}
	return sum, nil
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

// ── Sales ────────────────────────────────────────────────────────────────────

type stubSaleRepo struct {
	sales     map[uuid.UUID]*model.Sale
	numberSeq int

	// findStale, when set, is what FindByID hands out instead of the
	// stored sale. Models a pre-flight read whose snapshot lags behind a
	// concurrently committed change; FindByIDTx always returns the truth,
	// like a locked read does.
	findStale *model.Sale
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

func (r *stubSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now().UTC()
	for i := range s.Lines {
		if s.Lines[i].ID == uuid.Nil {
			s.Lines[i].ID = uuid.New()
		}
		s.Lines[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	if r.findStale != nil && r.findStale.ID == id {
		return r.findStale, nil
	}
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) NextSaleNumberTx(_ *gorm.DB) (int, error) {
	r.numberSeq++
	return r.numberSeq, nil
}

func (r *stubSaleRepo) MarkVoidedTx(_ *gorm.DB, id uuid.UUID, actorID uuid.UUID, reason string, at time.Time) error {
	s, ok := r.sales[id]
	if !ok || s.Status != model.SaleCompleted {
		return gorm.ErrRecordNotFound
	}
	s.Status = model.SaleVoided
	s.VoidedBy = &actorID
	s.VoidReason = &reason
	s.VoidedAt = &at
	return nil
}

func (r *stubSaleRepo) RefundedQuantitiesTx(_ *gorm.DB, saleID uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int)
	for _, s := range r.sales {
		if s.RefundForID == nil || *s.RefundForID != saleID {
			continue
		}
		for _, line := range s.Lines {
			if line.RefundForLineID != nil {
				out[*line.RefundForLineID] += -line.Quantity
			}
		}
	}
	return out, nil
}

func (r *stubSaleRepo) SumByPaymentMethod(_ context.Context, locationID uuid.UUID, date time.Time) (map[string]decimal.Decimal, error) {
	day := date.Format("2006-01-02")
	sums := map[string]decimal.Decimal{
		model.PaymentCash:     decimal.Zero,
		model.PaymentCard:     decimal.Zero,
		model.PaymentTransfer: decimal.Zero,
	}
	for _, s := range r.sales {
		if s.LocationID != locationID || s.Status == model.SaleVoided {
			continue
		}
		if s.CreatedAt.UTC().Format("2006-01-02") != day {
			continue
		}
		sums[s.PaymentMethod] = sums[s.PaymentMethod].Add(s.Total)
	}
	return sums, nil
}

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// ── Till records ─────────────────────────────────────────────────────────────

type stubTillRepo struct {
	records map[string]*model.TillRecord
}

func newStubTillRepo() *stubTillRepo {
	return &stubTillRepo{records: make(map[string]*model.TillRecord)}
}

func tillKey(locationID uuid.UUID, date time.Time) string {
	return locationID.String() + "|" + date.Format("2006-01-02")
}

func (r *stubTillRepo) Create(_ context.Context, t *model.TillRecord) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.records[tillKey(t.LocationID, t.Date)] = t
	return nil
}

func (r *stubTillRepo) FindByLocationAndDate(_ context.Context, locationID uuid.UUID, date time.Time) (*model.TillRecord, error) {
	t, ok := r.records[tillKey(locationID, date)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *stubTillRepo) Update(_ context.Context, t *model.TillRecord) error {
	r.records[tillKey(t.LocationID, t.Date)] = t
	return nil
}

var _ repository.TillRepository = (*stubTillRepo)(nil)

// ── Fixture helpers ──────────────────────────────────────────────────────────

type fixtures struct {
	products  *stubProductRepo
	locations *stubLocationRepo
	levels    *stubLevelRepo
	movements *stubMovementRepo
	sales     *stubSaleRepo
	tills     *stubTillRepo

	stockSvc service.StockService
	saleSvc  service.SaleService
	tillSvc  service.TillService
}

func newFixtures() *fixtures {
	f := &fixtures{
		products:  newStubProductRepo(),
		locations: newStubLocationRepo(),
		levels:    newStubLevelRepo(),
		movements: &stubMovementRepo{},
		sales:     newStubSaleRepo(),
		tills:     newStubTillRepo(),
	}
	noop := cache.NewNoop()
	f.stockSvc = service.NewStockService(f.levels, f.movements, f.products, f.locations, noop)
	f.saleSvc = service.NewSaleService(f.sales, f.stockSvc, f.products, f.locations, f.levels, noop, decimal.NewFromInt(16))
	f.tillSvc = service.NewTillService(f.tills, f.sales, f.locations)
	return f
}

func (f *fixtures) seedProduct(name, sku string, salePrice float64, minStock int) *model.Product {
	p := &model.Product{
		ID:        uuid.New(),
		SKU:       sku,
		Name:      name,
		CostPrice: decimal.NewFromFloat(salePrice).Div(decimal.NewFromInt(2)).Round(2),
		SalePrice: decimal.NewFromFloat(salePrice),
		MinStock:  minStock,
		Active:    true,
	}
	f.products.products[p.ID] = p
	return p
}

func (f *fixtures) seedLocation(code string) *model.Location {
	l := &model.Location{ID: uuid.New(), Code: code, Name: "Branch " + code, Active: true}
	f.locations.locations[l.ID] = l
	return l
}
