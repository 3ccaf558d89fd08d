package service_test

import (
	"context"
	"testing"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/cache"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateSale_TotalsAndStock(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	a := f.seedProduct("Mug", "MG-001", 10.00, 0)
	b := f.seedProduct("Thermos", "TH-001", 20.00, 0)
	f.levels.seedLevel(a.ID, loc.ID, 50)
	f.levels.seedLevel(b.ID, loc.ID, 50)
	tendered := dec("50.00")

	resp, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID: loc.ID.String(),
		ActorID:    uuid.NewString(),
		Lines: []dto.SaleLineRequest{
			{ProductID: a.ID.String(), Quantity: 2},
			{ProductID: b.ID.String(), Quantity: 1},
		},
		PaymentMethod: model.PaymentCash,
		Tendered:      &tendered,
	})
	require.NoError(t, err)

	// 2×10 + 1×20 = 40; 16% tax = 6.40; total 46.40; change 3.60
	assert.Equal(t, "40", resp.Subtotal.String())
	assert.Equal(t, "6.4", resp.Tax.String())
	assert.Equal(t, "46.4", resp.Total.String())
	assert.Equal(t, "3.6", resp.Change.String())
	assert.Equal(t, model.SaleCompleted, resp.Status)
	assert.Equal(t, 1, resp.Number)

	// Stock consumed per line, each movement referencing the sale
	lvlA, _ := f.levels.Get(context.Background(), a.ID, loc.ID)
	lvlB, _ := f.levels.Get(context.Background(), b.ID, loc.ID)
	assert.Equal(t, 48, lvlA.Quantity)
	assert.Equal(t, 49, lvlB.Quantity)

	require.Len(t, f.movements.movements, 2)
	for _, m := range f.movements.movements {
		assert.Equal(t, model.MovementSale, m.Kind)
		require.NotNil(t, m.Reference)
		assert.Equal(t, resp.ID, *m.Reference)
	}

	// Price snapshotted on the line
	assert.Equal(t, "10", resp.Lines[0].UnitPrice.String())
}

func TestCreateSale_InsufficientSecondLine_NothingPersists(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	a := f.seedProduct("Plate", "PL-001", 5.00, 0)
	b := f.seedProduct("Glass", "GL-001", 3.00, 0)
	f.levels.seedLevel(a.ID, loc.ID, 5)
	// b has no stock at all

	_, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID: loc.ID.String(),
		ActorID:    uuid.NewString(),
		Lines: []dto.SaleLineRequest{
			{ProductID: a.ID.String(), Quantity: 1},
			{ProductID: b.ID.String(), Quantity: 1},
		},
		PaymentMethod: model.PaymentCard,
	})
	var insufficient *service.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, b.ID, insufficient.ProductID)

	// The failing line aborted the whole sale before any write
	assert.Empty(t, f.sales.sales)
	assert.Empty(t, f.movements.movements)
	lvlA, _ := f.levels.Get(context.Background(), a.ID, loc.ID)
	assert.Equal(t, 5, lvlA.Quantity)
}

func TestCreateSale_PercentDiscount(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Lamp", "LM-001", 50.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)
	pct := dec("10")

	resp, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:      loc.ID.String(),
		ActorID:         uuid.NewString(),
		Lines:           []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 2}},
		PaymentMethod:   model.PaymentTransfer,
		DiscountPercent: &pct,
	})
	require.NoError(t, err)

	// subtotal 100, discount 10, taxable 90, tax 14.40, total 104.40
	assert.Equal(t, "100", resp.Subtotal.String())
	assert.Equal(t, "10", resp.Discount.String())
	assert.Equal(t, "14.4", resp.Tax.String())
	assert.Equal(t, "104.4", resp.Total.String())
}

func TestCreateSale_DiscountsMutuallyExclusive(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Vase", "VS-001", 12.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)
	amt := dec("5")
	pct := dec("10")

	_, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:      loc.ID.String(),
		ActorID:         uuid.NewString(),
		Lines:           []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
		PaymentMethod:   model.PaymentCash,
		DiscountAmount:  &amt,
		DiscountPercent: &pct,
	})
	var invalid *service.InvalidOperationError
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateSale_InactiveProductRejected(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Discontinued", "DS-001", 9.99, 0)
	p.Active = false
	f.levels.seedLevel(p.ID, loc.ID, 10)

	_, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:    loc.ID.String(),
		ActorID:       uuid.NewString(),
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
		PaymentMethod: model.PaymentCash,
	})
	var invalid *service.InvalidOperationError
	assert.ErrorAs(t, err, &invalid)
}

func TestCreateSale_PriceOverride(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Clearance shirt", "SH-001", 30.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)
	override := dec("15.00")

	resp, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID: loc.ID.String(),
		ActorID:    uuid.NewString(),
		Lines: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Quantity: 1, PriceOverride: &override},
		},
		PaymentMethod: model.PaymentCard,
	})
	require.NoError(t, err)
	assert.Equal(t, "15", resp.Subtotal.String())
	assert.Equal(t, "15", resp.Lines[0].UnitPrice.String())
}

func TestVoidSale_RestoresStock(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Kettle", "KT-001", 25.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)

	created, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:    loc.ID.String(),
		ActorID:       uuid.NewString(),
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 3}},
		PaymentMethod: model.PaymentCash,
	})
	require.NoError(t, err)

	lvl, _ := f.levels.Get(context.Background(), p.ID, loc.ID)
	require.Equal(t, 7, lvl.Quantity)

	voided, err := f.saleSvc.VoidSale(context.Background(), uuid.MustParse(created.ID), dto.VoidSaleRequest{
		ActorID: uuid.NewString(),
		Reason:  "customer changed mind",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SaleVoided, voided.Status)

	lvl, _ = f.levels.Get(context.Background(), p.ID, loc.ID)
	assert.Equal(t, 10, lvl.Quantity)

	// One sale movement plus one return movement
	kinds := make(map[string]int)
	for _, m := range f.movements.movements {
		kinds[m.Kind]++
	}
	assert.Equal(t, 1, kinds[model.MovementSale])
	assert.Equal(t, 1, kinds[model.MovementReturn])

	// Voiding twice is rejected
	_, err = f.saleSvc.VoidSale(context.Background(), uuid.MustParse(created.ID), dto.VoidSaleRequest{
		ActorID: uuid.NewString(),
		Reason:  "duplicate attempt",
	})
	var invalid *service.InvalidOperationError
	assert.ErrorAs(t, err, &invalid)
}

func TestRefund_PartialWithCumulativeBound(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Blender", "BL-001", 10.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)

	created, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:    loc.ID.String(),
		ActorID:       uuid.NewString(),
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 3}},
		PaymentMethod: model.PaymentCash,
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(created.ID)
	lineID := created.Lines[0].ID

	// Refund 2 of 3
	refund, err := f.saleSvc.RefundLines(context.Background(), saleID, dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "damaged on arrival",
		Lines:   []dto.RefundLineRequest{{LineID: lineID, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.SaleRefunded, refund.Status)
	require.NotNil(t, refund.RefundForID)
	assert.Equal(t, created.ID, *refund.RefundForID)
	assert.Equal(t, -2, refund.Lines[0].Quantity)
	// -2 × 10 = -20; tax -3.20; total -23.20
	assert.Equal(t, "-20", refund.Subtotal.String())
	assert.Equal(t, "-3.2", refund.Tax.String())
	assert.Equal(t, "-23.2", refund.Total.String())

	lvl, _ := f.levels.Get(context.Background(), p.ID, loc.ID)
	assert.Equal(t, 9, lvl.Quantity) // 10 - 3 + 2

	// Only 1 unit remains refundable
	_, err = f.saleSvc.RefundLines(context.Background(), saleID, dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "second attempt too large",
		Lines:   []dto.RefundLineRequest{{LineID: lineID, Quantity: 2}},
	})
	var invalid *service.InvalidOperationError
	require.ErrorAs(t, err, &invalid)

	_, err = f.saleSvc.RefundLines(context.Background(), saleID, dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "remaining unit back",
		Lines:   []dto.RefundLineRequest{{LineID: lineID, Quantity: 1}},
	})
	require.NoError(t, err)

	lvl, _ = f.levels.Get(context.Background(), p.ID, loc.ID)
	assert.Equal(t, 10, lvl.Quantity)

	// A sale with refunds can no longer be voided
	_, err = f.saleSvc.VoidSale(context.Background(), saleID, dto.VoidSaleRequest{
		ActorID: uuid.NewString(),
		Reason:  "attempted void after refund",
	})
	assert.ErrorAs(t, err, &invalid)

	// The original stays completed throughout
	original, err := f.saleSvc.GetSale(context.Background(), saleID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCompleted, original.Status)
}

func TestRefund_RefundRecordIsTerminal(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Toaster", "TS-001", 18.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 5)

	created, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:    loc.ID.String(),
		ActorID:       uuid.NewString(),
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
		PaymentMethod: model.PaymentCard,
	})
	require.NoError(t, err)

	refund, err := f.saleSvc.RefundLines(context.Background(), uuid.MustParse(created.ID), dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "wrong color delivered",
		Lines:   []dto.RefundLineRequest{{LineID: created.Lines[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)
	refundID := uuid.MustParse(refund.ID)

	var invalid *service.InvalidOperationError
	_, err = f.saleSvc.VoidSale(context.Background(), refundID, dto.VoidSaleRequest{
		ActorID: uuid.NewString(), Reason: "cannot void a refund",
	})
	assert.ErrorAs(t, err, &invalid)

	_, err = f.saleSvc.RefundLines(context.Background(), refundID, dto.RefundRequest{
		ActorID: uuid.NewString(), Reason: "cannot refund a refund",
		Lines: []dto.RefundLineRequest{{LineID: refund.Lines[0].ID, Quantity: 1}},
	})
	assert.ErrorAs(t, err, &invalid)
}

func TestRefund_LineFromAnotherSaleRejected(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Scissors", "SC-001", 4.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 20)
	actor := uuid.NewString()

	first, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID: loc.ID.String(), ActorID: actor,
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
		PaymentMethod: model.PaymentCash,
	})
	require.NoError(t, err)
	second, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID: loc.ID.String(), ActorID: actor,
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 1}},
		PaymentMethod: model.PaymentCash,
	})
	require.NoError(t, err)

	var invalid *service.InvalidOperationError
	_, err = f.saleSvc.RefundLines(context.Background(), uuid.MustParse(first.ID), dto.RefundRequest{
		ActorID: actor,
		Reason:  "line belongs elsewhere",
		Lines:   []dto.RefundLineRequest{{LineID: second.Lines[0].ID, Quantity: 1}},
	})
	assert.ErrorAs(t, err, &invalid)
}

func TestVoidSale_StaleStatusReadRejected(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Heater", "HT-001", 40.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)

	created, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:    loc.ID.String(),
		ActorID:       uuid.NewString(),
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 3}},
		PaymentMethod: model.PaymentCash,
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(created.ID)

	// Snapshot taken while the sale is still completed, standing in for a
	// pre-flight read that raced a concurrent void.
	stale := *f.sales.sales[saleID]

	_, err = f.saleSvc.VoidSale(context.Background(), saleID, dto.VoidSaleRequest{
		ActorID: uuid.NewString(), Reason: "till operator mistake",
	})
	require.NoError(t, err)

	lvl, _ := f.levels.Get(context.Background(), p.ID, loc.ID)
	require.Equal(t, 10, lvl.Quantity)

	// The loser still sees the completed snapshot outside the transaction;
	// the locked re-check inside must reject it before any stock write.
	f.sales.findStale = &stale
	var invalid *service.InvalidOperationError
	_, err = f.saleSvc.VoidSale(context.Background(), saleID, dto.VoidSaleRequest{
		ActorID: uuid.NewString(), Reason: "duplicate void",
	})
	require.ErrorAs(t, err, &invalid)

	lvl, _ = f.levels.Get(context.Background(), p.ID, loc.ID)
	assert.Equal(t, 10, lvl.Quantity)

	returns := 0
	for _, m := range f.movements.movements {
		if m.Kind == model.MovementReturn {
			returns++
		}
	}
	assert.Equal(t, 1, returns)
}

func TestRefundLines_StaleStatusReadRejected(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Fan", "FN-001", 22.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)

	created, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:    loc.ID.String(),
		ActorID:       uuid.NewString(),
		Lines:         []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 2}},
		PaymentMethod: model.PaymentCash,
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(created.ID)

	stale := *f.sales.sales[saleID]

	_, err = f.saleSvc.VoidSale(context.Background(), saleID, dto.VoidSaleRequest{
		ActorID: uuid.NewString(), Reason: "voided before refund arrived",
	})
	require.NoError(t, err)

	f.sales.findStale = &stale
	var invalid *service.InvalidOperationError
	_, err = f.saleSvc.RefundLines(context.Background(), saleID, dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "refund raced the void",
		Lines:   []dto.RefundLineRequest{{LineID: created.Lines[0].ID, Quantity: 1}},
	})
	require.ErrorAs(t, err, &invalid)

	// No compensating sale and no extra stock restore slipped through.
	for _, s := range f.sales.sales {
		assert.Nil(t, s.RefundForID)
	}
	lvl, _ := f.levels.Get(context.Background(), p.ID, loc.ID)
	assert.Equal(t, 10, lvl.Quantity)
}

func TestRefund_HeaderDiscountProRata(t *testing.T) {
	f := newFixtures()
	loc := f.seedLocation("MAIN")
	p := f.seedProduct("Monitor", "MN-001", 50.00, 0)
	f.levels.seedLevel(p.ID, loc.ID, 10)
	amt := dec("20")

	created, err := f.saleSvc.CreateSale(context.Background(), dto.CreateSaleRequest{
		LocationID:     loc.ID.String(),
		ActorID:        uuid.NewString(),
		Lines:          []dto.SaleLineRequest{{ProductID: p.ID.String(), Quantity: 2}},
		PaymentMethod:  model.PaymentCard,
		DiscountAmount: &amt,
	})
	require.NoError(t, err)
	// subtotal 100, discount 20, tax 12.80, total 92.80
	require.Equal(t, "92.8", created.Total.String())
	saleID := uuid.MustParse(created.ID)
	lineID := created.Lines[0].ID

	// The configured rate moves on after the sale; refunds must stick to
	// what was actually charged.
	f.saleSvc = service.NewSaleService(
		f.sales, f.stockSvc, f.products, f.locations, f.levels,
		cache.NewNoop(), decimal.NewFromInt(21),
	)

	first, err := f.saleSvc.RefundLines(context.Background(), saleID, dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "one unit dead on arrival",
		Lines:   []dto.RefundLineRequest{{LineID: lineID, Quantity: 1}},
	})
	require.NoError(t, err)

	// Half the goods: half the discount and half the charged tax come back.
	assert.Equal(t, "-50", first.Subtotal.String())
	assert.Equal(t, "-10", first.Discount.String())
	assert.Equal(t, "-6.4", first.Tax.String())
	assert.Equal(t, "-46.4", first.Total.String())

	second, err := f.saleSvc.RefundLines(context.Background(), saleID, dto.RefundRequest{
		ActorID: uuid.NewString(),
		Reason:  "second unit returned later",
		Lines:   []dto.RefundLineRequest{{LineID: lineID, Quantity: 1}},
	})
	require.NoError(t, err)

	// Refunding everything returns exactly what was paid, no more.
	assert.True(t, first.Total.Add(second.Total).Equal(dec("-92.8")))
}
