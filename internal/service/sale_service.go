package service

import (
	"context"
	"errors"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/cache"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// SaleService composes stock adjustments and the sale header/line write
// into one all-or-nothing unit, and handles void/refund as compensating
// operations that append new records instead of mutating history.
type SaleService interface {
	CreateSale(ctx context.Context, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	VoidSale(ctx context.Context, saleID uuid.UUID, req dto.VoidSaleRequest) (*dto.SaleResponse, error)
	RefundLines(ctx context.Context, saleID uuid.UUID, req dto.RefundRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error)
}

type saleService struct {
	repo       repository.SaleRepository
	stock      StockService
	products   repository.ProductRepository
	locations  repository.LocationRepository
	levels     repository.StockLevelRepository
	levelCache cache.StockLevels
	// taxRatePct is the configured tax percentage applied on the
	// discounted subtotal.
	taxRatePct decimal.Decimal
}

func NewSaleService(
	repo repository.SaleRepository,
	stock StockService,
	products repository.ProductRepository,
	locations repository.LocationRepository,
	levels repository.StockLevelRepository,
	levelCache cache.StockLevels,
	taxRatePct decimal.Decimal,
) SaleService {
	return &saleService{
		repo:       repo,
		stock:      stock,
		products:   products,
		locations:  locations,
		levels:     levels,
		levelCache: levelCache,
		taxRatePct: taxRatePct,
	}
}

// ── CreateSale ───────────────────────────────────────────────────────────────
// One outer transaction per sale:
//   1. Pre-flight (outside tx): resolve products, snapshot prices, check
//      availability so InsufficientStock surfaces before any write.
//   2. BEGIN: next sale number, create header + lines, one stock
//      adjustment per line under the row lock (re-checked there).
//   3. COMMIT — any failing step rolls back every line and adjustment.

func (s *saleService) CreateSale(ctx context.Context, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, invalidOp("location_id invalid: %v", err)
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidOp("actor_id invalid: %v", err)
	}
	if len(req.Lines) == 0 {
		return nil, invalidOp("a sale needs at least one line")
	}
	if !model.KnownPaymentMethod(req.PaymentMethod) {
		return nil, invalidOp("unknown payment method %q", req.PaymentMethod)
	}
	if req.DiscountAmount != nil && req.DiscountPercent != nil {
		return nil, invalidOp("discount_amount and discount_percent are mutually exclusive")
	}

	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, notFoundOr(err, "location %s", locationID)
	}
	if !location.Active {
		return nil, invalidOp("location %s is inactive", location.Code)
	}

	// Pre-flight line resolution: snapshot unit price/cost now so later
	// catalog changes never alter this sale.
	type resolvedLine struct {
		productID uuid.UUID
		name      string
		unitPrice decimal.Decimal
		unitCost  decimal.Decimal
		quantity  int
		discount  decimal.Decimal
		subtotal  decimal.Decimal
	}
	resolved := make([]resolvedLine, 0, len(req.Lines))
	subtotal := decimal.Zero

	for _, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, invalidOp("line quantity must be positive")
		}
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, invalidOp("product_id invalid: %v", err)
		}
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, notFoundOr(err, "product %s", line.ProductID)
		}
		if !product.Active {
			return nil, invalidOp("product %s is inactive", product.SKU)
		}

		unitPrice := product.SalePrice
		if line.PriceOverride != nil {
			if line.PriceOverride.LessThanOrEqual(decimal.Zero) {
				return nil, invalidOp("price override must be positive")
			}
			unitPrice = *line.PriceOverride
		}

		gross := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		lineSubtotal := gross.Sub(line.Discount)
		if line.Discount.IsNegative() || lineSubtotal.IsNegative() {
			return nil, invalidOp("line discount for %s exceeds line amount", product.SKU)
		}

		if avail, err := s.availableQuantity(ctx, productID, locationID); err != nil {
			return nil, err
		} else if avail < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID:  productID,
				LocationID: locationID,
				Requested:  line.Quantity,
				Available:  avail,
			}
		}

		subtotal = subtotal.Add(lineSubtotal)
		resolved = append(resolved, resolvedLine{
			productID: productID,
			name:      product.Name,
			unitPrice: unitPrice,
			unitCost:  product.CostPrice,
			quantity:  line.Quantity,
			discount:  line.Discount,
			subtotal:  lineSubtotal,
		})
	}

	// Header totals are derived, never caller-set.
	discount := decimal.Zero
	if req.DiscountAmount != nil {
		discount = *req.DiscountAmount
	} else if req.DiscountPercent != nil {
		discount = subtotal.Mul(*req.DiscountPercent).Div(oneHundred).Round(2)
	}
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return nil, invalidOp("discount exceeds subtotal")
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(s.taxRatePct).Div(oneHundred).Round(2)
	total := taxable.Add(tax)

	change := decimal.Zero
	if req.PaymentMethod == model.PaymentCash && req.Tendered != nil {
		if diff := req.Tendered.Sub(total); diff.IsPositive() {
			change = diff
		}
	}

	var sale model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		number, err := s.repo.NextSaleNumberTx(tx)
		if err != nil {
			return err
		}

		sale = model.Sale{
			Number:        number,
			LocationID:    locationID,
			ActorID:       actorID,
			Subtotal:      subtotal,
			Discount:      discount,
			Tax:           tax,
			Total:         total,
			PaymentMethod: req.PaymentMethod,
			Status:        model.SaleCompleted,
		}
		for _, r := range resolved {
			sale.Lines = append(sale.Lines, model.SaleLine{
				ProductID: r.productID,
				Quantity:  r.quantity,
				UnitPrice: r.unitPrice,
				UnitCost:  r.unitCost,
				Discount:  r.discount,
				Subtotal:  r.subtotal,
			})
		}
		if err := s.repo.CreateTx(tx, &sale); err != nil {
			return err
		}

		ref := sale.ID.String()
		for _, r := range resolved {
			if _, err := s.stock.AdjustTx(tx, AdjustParams{
				ProductID:  r.productID,
				LocationID: locationID,
				Delta:      -r.quantity,
				Kind:       model.MovementSale,
				ActorID:    actorID,
				Reference:  &ref,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, r := range resolved {
		s.levelCache.Invalidate(ctx, r.productID.String(), locationID.String())
	}

	resp := saleToResponse(&sale)
	resp.Change = change
	for i, r := range resolved {
		resp.Lines[i].Product = r.name
	}
	return resp, nil
}

// ── VoidSale ─────────────────────────────────────────────────────────────────

// VoidSale restores stock for every line and marks the sale voided, in
// one transaction. Refund sales and sales that already have refunds
// against them cannot be voided.
func (s *saleService) VoidSale(ctx context.Context, saleID uuid.UUID, req dto.VoidSaleRequest) (*dto.SaleResponse, error) {
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidOp("actor_id invalid: %v", err)
	}

	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale %s", saleID)
	}
	switch sale.Status {
	case model.SaleVoided:
		return nil, invalidOp("sale %d is already voided", sale.Number)
	case model.SaleRefunded:
		return nil, invalidOp("refund records cannot be voided")
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Re-read under the row lock: the pre-flight read above may be
		// stale by the time this transaction starts, and concurrent voids
		// and refunds of the same sale must serialize on this row.
		locked, err := s.repo.FindByIDTx(tx, sale.ID)
		if err != nil {
			return notFoundOr(err, "sale %s", saleID)
		}
		if locked.Status != model.SaleCompleted {
			return invalidOp("sale %d is no longer voidable", locked.Number)
		}

		refunded, err := s.repo.RefundedQuantitiesTx(tx, locked.ID)
		if err != nil {
			return err
		}
		if len(refunded) > 0 {
			return invalidOp("sale %d has refunds; void is no longer possible", locked.Number)
		}

		ref := locked.ID.String()
		for _, line := range locked.Lines {
			if _, err := s.stock.AdjustTx(tx, AdjustParams{
				ProductID:  line.ProductID,
				LocationID: locked.LocationID,
				Delta:      line.Quantity,
				Kind:       model.MovementReturn,
				ActorID:    actorID,
				Reference:  &ref,
			}); err != nil {
				return err
			}
		}
		// Conditional on completed status, so even a repository without
		// real locking cannot void the same sale twice.
		if err := s.repo.MarkVoidedTx(tx, locked.ID, actorID, req.Reason, time.Now().UTC()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidOp("sale %d is no longer voidable", locked.Number)
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, line := range sale.Lines {
		s.levelCache.Invalidate(ctx, line.ProductID.String(), sale.LocationID.String())
	}

	sale.Status = model.SaleVoided
	sale.VoidReason = &req.Reason
	return saleToResponse(sale), nil
}

// ── RefundLines ──────────────────────────────────────────────────────────────

// RefundLines creates a compensating sale with negative quantities and
// totals for the refunded subset, restores stock, and leaves the original
// untouched except by reference. Cumulative refunds per line are bounded
// by the quantity originally sold.
func (s *saleService) RefundLines(ctx context.Context, saleID uuid.UUID, req dto.RefundRequest) (*dto.SaleResponse, error) {
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidOp("actor_id invalid: %v", err)
	}
	if len(req.Lines) == 0 {
		return nil, invalidOp("a refund needs at least one line")
	}

	original, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale %s", saleID)
	}
	switch original.Status {
	case model.SaleVoided:
		return nil, invalidOp("sale %d is voided; nothing to refund", original.Number)
	case model.SaleRefunded:
		return nil, invalidOp("refund records cannot be refunded")
	}

	var refund model.Sale
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Lock the original first: concurrent refunds of the same sale
		// serialize here, so the cumulative bound below is checked against
		// committed state, not a snapshot.
		locked, err := s.repo.FindByIDTx(tx, original.ID)
		if err != nil {
			return notFoundOr(err, "sale %s", saleID)
		}
		if locked.Status != model.SaleCompleted {
			return invalidOp("sale %d is no longer refundable", locked.Number)
		}

		linesByID := make(map[uuid.UUID]*model.SaleLine, len(locked.Lines))
		for i := range locked.Lines {
			linesByID[locked.Lines[i].ID] = &locked.Lines[i]
		}

		refundedSoFar, err := s.repo.RefundedQuantitiesTx(tx, locked.ID)
		if err != nil {
			return err
		}

		number, err := s.repo.NextSaleNumberTx(tx)
		if err != nil {
			return err
		}

		refund = model.Sale{
			Number:        number,
			LocationID:    locked.LocationID,
			ActorID:       actorID,
			PaymentMethod: locked.PaymentMethod,
			Status:        model.SaleRefunded,
			RefundForID:   &locked.ID,
		}

		subtotal := decimal.Zero
		seen := make(map[uuid.UUID]bool, len(req.Lines))
		for _, lr := range req.Lines {
			lineID, err := uuid.Parse(lr.LineID)
			if err != nil {
				return invalidOp("line_id invalid: %v", err)
			}
			if seen[lineID] {
				return invalidOp("line %s listed twice in refund", lr.LineID)
			}
			seen[lineID] = true

			origLine, ok := linesByID[lineID]
			if !ok {
				return invalidOp("line %s does not belong to sale %d", lr.LineID, locked.Number)
			}
			if lr.Quantity < 1 {
				return invalidOp("refund quantity must be positive")
			}
			if lr.Quantity+refundedSoFar[lineID] > origLine.Quantity {
				return invalidOp("refund of %d exceeds remaining quantity %d on line %s",
					lr.Quantity, origLine.Quantity-refundedSoFar[lineID], lr.LineID)
			}

			// Per-unit effective value includes the original line discount,
			// so partial refunds return what was actually paid.
			perUnit := origLine.Subtotal.Div(decimal.NewFromInt(int64(origLine.Quantity)))
			lineSubtotal := perUnit.Mul(decimal.NewFromInt(int64(lr.Quantity))).Neg().Round(2)
			subtotal = subtotal.Add(lineSubtotal)

			refund.Lines = append(refund.Lines, model.SaleLine{
				ProductID:       origLine.ProductID,
				Quantity:        -lr.Quantity,
				UnitPrice:       origLine.UnitPrice,
				UnitCost:        origLine.UnitCost,
				Discount:        decimal.Zero,
				Subtotal:        lineSubtotal,
				RefundForLineID: &origLine.ID,
			})
		}

		// Money comes pro rata from the original: the header discount and
		// the tax actually charged scale down to the refunded share, so a
		// refund can never return more than was paid and a later tax-rate
		// change does not alter it.
		refund.Subtotal = subtotal
		refund.Discount = decimal.Zero
		refund.Tax = decimal.Zero
		if locked.Discount.IsPositive() && locked.Subtotal.IsPositive() {
			refund.Discount = subtotal.Mul(locked.Discount).Div(locked.Subtotal).Round(2)
		}
		taxable := refund.Subtotal.Sub(refund.Discount)
		if origTaxable := locked.Subtotal.Sub(locked.Discount); origTaxable.IsPositive() {
			refund.Tax = taxable.Mul(locked.Tax).Div(origTaxable).Round(2)
		}
		refund.Total = taxable.Add(refund.Tax)

		if err := s.repo.CreateTx(tx, &refund); err != nil {
			return err
		}

		ref := refund.ID.String()
		for _, line := range refund.Lines {
			if _, err := s.stock.AdjustTx(tx, AdjustParams{
				ProductID:  line.ProductID,
				LocationID: locked.LocationID,
				Delta:      -line.Quantity, // refund lines carry negative quantity
				Kind:       model.MovementReturn,
				ActorID:    actorID,
				Reference:  &ref,
				Notes:      &req.Reason,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, line := range refund.Lines {
		s.levelCache.Invalidate(ctx, line.ProductID.String(), original.LocationID.String())
	}
	return saleToResponse(&refund), nil
}

// ── Read query ───────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, notFoundOr(err, "sale %s", saleID)
	}
	return saleToResponse(sale), nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// availableQuantity reads the current available stock without locking; an
// absent level row means the pair has no stock yet.
func (s *saleService) availableQuantity(ctx context.Context, productID, locationID uuid.UUID) (int, error) {
	lvl, err := s.levels.Get(ctx, productID, locationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return lvl.Available(), nil
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	lines := make([]dto.SaleLineResponse, 0, len(s.Lines))
	for _, line := range s.Lines {
		name := ""
		if line.Product != nil {
			name = line.Product.Name
		}
		lines = append(lines, dto.SaleLineResponse{
			ID:        line.ID.String(),
			ProductID: line.ProductID.String(),
			Product:   name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			UnitCost:  line.UnitCost,
			Discount:  line.Discount,
			Subtotal:  line.Subtotal,
		})
	}
	resp := &dto.SaleResponse{
		ID:            s.ID.String(),
		Number:        s.Number,
		LocationID:    s.LocationID.String(),
		ActorID:       s.ActorID.String(),
		Lines:         lines,
		Subtotal:      s.Subtotal,
		Discount:      s.Discount,
		Tax:           s.Tax,
		Total:         s.Total,
		PaymentMethod: s.PaymentMethod,
		Change:        decimal.Zero,
		Status:        s.Status,
		VoidReason:    s.VoidReason,
		CreatedAt:     s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.RefundForID != nil {
		id := s.RefundForID.String()
		resp.RefundForID = &id
	}
	return resp
}
