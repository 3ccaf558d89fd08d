package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/cache"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AdjustParams is the internal contract of the single stock mutation
// entry point. Sale, transfer, void and refund flows all funnel through
// AdjustTx with these parameters inside their own outer transaction.
type AdjustParams struct {
	ProductID             uuid.UUID
	LocationID            uuid.UUID
	Delta                 int
	Kind                  string
	ActorID               uuid.UUID
	Reference             *string
	Notes                 *string
	CounterpartLocationID *uuid.UUID
}

// StockService validates and applies quantity changes against the ledger
// store under a row-level pessimistic lock, and appends a movement record
// for every change.
type StockService interface {
	Adjust(ctx context.Context, req dto.AdjustRequest) (*dto.MovementResponse, error)
	// AdjustTx is the composition point for multi-step operations: it must
	// be called with the caller's live transaction so the level update and
	// movement append commit or roll back together.
	AdjustTx(tx *gorm.DB, p AdjustParams) (*model.StockMovement, error)
	Transfer(ctx context.Context, req dto.TransferRequest) (*dto.TransferResponse, error)
	Reserve(ctx context.Context, req dto.ReserveRequest) error
	Release(ctx context.Context, req dto.ReserveRequest) error
	ManualAdjustment(ctx context.Context, req dto.ManualAdjustmentRequest) (*dto.MovementResponse, error)
	GetLevel(ctx context.Context, productID, locationID uuid.UUID) (*dto.StockLevelResponse, error)
	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type stockService struct {
	levels    repository.StockLevelRepository
	movements repository.StockMovementRepository
	products  repository.ProductRepository
	locations repository.LocationRepository
	levelCache cache.StockLevels
}

func NewStockService(
	levels repository.StockLevelRepository,
	movements repository.StockMovementRepository,
	products repository.ProductRepository,
	locations repository.LocationRepository,
	levelCache cache.StockLevels,
) StockService {
	return &stockService{
		levels:     levels,
		movements:  movements,
		products:   products,
		locations:  locations,
		levelCache: levelCache,
	}
}

// ── Adjust ───────────────────────────────────────────────────────────────────

func (s *stockService) Adjust(ctx context.Context, req dto.AdjustRequest) (*dto.MovementResponse, error) {
	productID, locationID, actorID, err := parseTriple(req.ProductID, req.LocationID, req.ActorID)
	if err != nil {
		return nil, err
	}
	if req.Delta == 0 {
		return nil, invalidOp("delta must be non-zero")
	}
	if model.Inbound(req.Kind) && req.Delta < 0 {
		return nil, invalidOp("kind %s requires a positive delta", req.Kind)
	}
	if !model.Inbound(req.Kind) && req.Delta > 0 {
		return nil, invalidOp("kind %s requires a negative delta", req.Kind)
	}
	if err := s.checkPair(ctx, productID, locationID); err != nil {
		return nil, err
	}

	var mov *model.StockMovement
	err = runTx(ctx, s.levels.DB(), func(tx *gorm.DB) error {
		mov, err = s.AdjustTx(tx, AdjustParams{
			ProductID:  productID,
			LocationID: locationID,
			Delta:      req.Delta,
			Kind:       req.Kind,
			ActorID:    actorID,
			Reference:  req.Reference,
			Notes:      req.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.levelCache.Invalidate(ctx, productID.String(), locationID.String())
	return movementToResponse(mov), nil
}

// AdjustTx acquires the pair's row lock, applies the delta, and appends
// the movement with before/after values captured under that lock. The
// negative-available check happens before any write, so a failing call
// leaves no partial state.
func (s *stockService) AdjustTx(tx *gorm.DB, p AdjustParams) (*model.StockMovement, error) {
	if p.Delta == 0 {
		return nil, invalidOp("delta must be non-zero")
	}
	if !model.KnownMovementKind(p.Kind) {
		return nil, invalidOp("unknown movement kind %q", p.Kind)
	}

	lvl, err := s.levels.GetOrCreateLockedTx(tx, p.ProductID, p.LocationID)
	if err != nil {
		return nil, err
	}

	// Snapshot the before-value now: the repository may hand back a struct
	// that tracks live row state, so reading lvl.Quantity after the update
	// would observe the new quantity.
	previous := lvl.Quantity
	newQty := previous + p.Delta
	if p.Delta < 0 && newQty < lvl.Reserved {
		return nil, &InsufficientStockError{
			ProductID:  p.ProductID,
			LocationID: p.LocationID,
			Requested:  -p.Delta,
			Available:  lvl.Available(),
		}
	}

	if err := s.levels.UpdateQuantityTx(tx, lvl.ID, newQty); err != nil {
		return nil, err
	}

	mov := &model.StockMovement{
		ProductID:             p.ProductID,
		LocationID:            p.LocationID,
		Kind:                  p.Kind,
		Delta:                 p.Delta,
		PreviousQuantity:      previous,
		NewQuantity:           newQty,
		Reference:             p.Reference,
		CounterpartLocationID: p.CounterpartLocationID,
		ActorID:               p.ActorID,
		Notes:                 p.Notes,
	}
	if err := s.movements.CreateTx(tx, mov); err != nil {
		return nil, err
	}

	if mov.NewQuantity != mov.PreviousQuantity+mov.Delta || mov.NewQuantity < 0 {
		log.Error().
			Str("product_id", p.ProductID.String()).
			Str("location_id", p.LocationID.String()).
			Int("previous", mov.PreviousQuantity).
			Int("delta", mov.Delta).
			Int("new", mov.NewQuantity).
			Msg("stock movement failed consistency check")
		return nil, &ConsistencyError{Detail: fmt.Sprintf(
			"movement for product %s: new %d != previous %d + delta %d",
			p.ProductID, mov.NewQuantity, mov.PreviousQuantity, mov.Delta)}
	}
	return mov, nil
}

// ── Transfer ─────────────────────────────────────────────────────────────────

func (s *stockService) Transfer(ctx context.Context, req dto.TransferRequest) (*dto.TransferResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, invalidOp("product_id invalid: %v", err)
	}
	fromID, err := uuid.Parse(req.FromLocationID)
	if err != nil {
		return nil, invalidOp("from_location_id invalid: %v", err)
	}
	toID, err := uuid.Parse(req.ToLocationID)
	if err != nil {
		return nil, invalidOp("to_location_id invalid: %v", err)
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidOp("actor_id invalid: %v", err)
	}
	if req.Quantity < 1 {
		return nil, invalidOp("transfer quantity must be positive")
	}
	if fromID == toID {
		return nil, invalidOp("transfer source and destination must differ")
	}
	if err := s.checkPair(ctx, productID, fromID); err != nil {
		return nil, err
	}
	if _, err := s.locations.FindByID(ctx, toID); err != nil {
		return nil, notFoundOr(err, "location %s", toID)
	}

	var out, in *model.StockMovement
	txErr := runTx(ctx, s.levels.DB(), func(tx *gorm.DB) error {
		// Lock both endpoint rows up front in a global order (lowest
		// location id first) so two opposite transfers between the same
		// pair cannot deadlock. AdjustTx re-locks rows already held by
		// this transaction, which is a no-op.
		first, second := fromID, toID
		if second.String() < first.String() {
			first, second = second, first
		}
		if _, err := s.levels.GetOrCreateLockedTx(tx, productID, first); err != nil {
			return err
		}
		if _, err := s.levels.GetOrCreateLockedTx(tx, productID, second); err != nil {
			return err
		}

		var err error
		out, err = s.AdjustTx(tx, AdjustParams{
			ProductID:             productID,
			LocationID:            fromID,
			Delta:                 -req.Quantity,
			Kind:                  model.MovementTransferOut,
			ActorID:               actorID,
			CounterpartLocationID: &toID,
		})
		if err != nil {
			return err
		}
		in, err = s.AdjustTx(tx, AdjustParams{
			ProductID:             productID,
			LocationID:            toID,
			Delta:                 req.Quantity,
			Kind:                  model.MovementTransferIn,
			ActorID:               actorID,
			CounterpartLocationID: &fromID,
		})
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	s.levelCache.Invalidate(ctx, productID.String(), fromID.String())
	s.levelCache.Invalidate(ctx, productID.String(), toID.String())
	return &dto.TransferResponse{Out: *movementToResponse(out), In: *movementToResponse(in)}, nil
}

// ── Reserve / Release ────────────────────────────────────────────────────────

// Reserve holds quantity for a pending commitment. It only moves the
// reserved counter — no movement record, on-hand stays untouched.
func (s *stockService) Reserve(ctx context.Context, req dto.ReserveRequest) error {
	productID, locationID, err := parsePair(req.ProductID, req.LocationID)
	if err != nil {
		return err
	}
	if req.Quantity < 1 {
		return invalidOp("reserve quantity must be positive")
	}
	if err := s.checkPair(ctx, productID, locationID); err != nil {
		return err
	}

	err = runTx(ctx, s.levels.DB(), func(tx *gorm.DB) error {
		lvl, err := s.levels.GetOrCreateLockedTx(tx, productID, locationID)
		if err != nil {
			return err
		}
		if lvl.Reserved+req.Quantity > lvl.Quantity {
			return &InsufficientStockError{
				ProductID:  productID,
				LocationID: locationID,
				Requested:  req.Quantity,
				Available:  lvl.Available(),
			}
		}
		return s.levels.UpdateReservedTx(tx, lvl.ID, lvl.Reserved+req.Quantity)
	})
	if err != nil {
		return err
	}
	s.levelCache.Invalidate(ctx, productID.String(), locationID.String())
	return nil
}

func (s *stockService) Release(ctx context.Context, req dto.ReserveRequest) error {
	productID, locationID, err := parsePair(req.ProductID, req.LocationID)
	if err != nil {
		return err
	}
	if req.Quantity < 1 {
		return invalidOp("release quantity must be positive")
	}

	err = runTx(ctx, s.levels.DB(), func(tx *gorm.DB) error {
		lvl, err := s.levels.LockForUpdateTx(tx, productID, locationID)
		if err != nil {
			return notFoundOr(err, "stock level for product %s", productID)
		}
		if req.Quantity > lvl.Reserved {
			return invalidOp("release of %d exceeds reserved %d", req.Quantity, lvl.Reserved)
		}
		return s.levels.UpdateReservedTx(tx, lvl.ID, lvl.Reserved-req.Quantity)
	})
	if err != nil {
		return err
	}
	s.levelCache.Invalidate(ctx, productID.String(), locationID.String())
	return nil
}

// ── ManualAdjustment ─────────────────────────────────────────────────────────

// ManualAdjustment backs the stock-count tool. Mode "set" computes its
// delta from the current quantity under the same row lock, so the
// negative-stock guard applies uniformly to all three modes.
func (s *stockService) ManualAdjustment(ctx context.Context, req dto.ManualAdjustmentRequest) (*dto.MovementResponse, error) {
	productID, locationID, actorID, err := parseTriple(req.ProductID, req.LocationID, req.ActorID)
	if err != nil {
		return nil, err
	}
	if req.Mode != "set" && req.Quantity < 1 {
		return nil, invalidOp("quantity must be positive for mode %s", req.Mode)
	}
	if err := s.checkPair(ctx, productID, locationID); err != nil {
		return nil, err
	}

	var mov *model.StockMovement
	txErr := runTx(ctx, s.levels.DB(), func(tx *gorm.DB) error {
		params := AdjustParams{
			ProductID:  productID,
			LocationID: locationID,
			ActorID:    actorID,
			Notes:      &req.Reason,
		}
		switch req.Mode {
		case "add":
			params.Delta = req.Quantity
			params.Kind = model.MovementAdjustmentIn
		case "subtract":
			params.Delta = -req.Quantity
			params.Kind = model.MovementAdjustmentOut
		case "set":
			lvl, err := s.levels.GetOrCreateLockedTx(tx, productID, locationID)
			if err != nil {
				return err
			}
			delta := req.Quantity - lvl.Quantity
			if delta == 0 {
				return invalidOp("stock already at %d", req.Quantity)
			}
			params.Delta = delta
			if delta > 0 {
				params.Kind = model.MovementAdjustmentIn
			} else {
				params.Kind = model.MovementAdjustmentOut
			}
		default:
			return invalidOp("unknown adjustment mode %q", req.Mode)
		}

		var err error
		mov, err = s.AdjustTx(tx, params)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}
	s.levelCache.Invalidate(ctx, productID.String(), locationID.String())
	return movementToResponse(mov), nil
}

// ── Read queries ─────────────────────────────────────────────────────────────

func (s *stockService) GetLevel(ctx context.Context, productID, locationID uuid.UUID) (*dto.StockLevelResponse, error) {
	if cached, ok := s.levelCache.Get(ctx, productID.String(), locationID.String()); ok {
		return cached, nil
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product %s", productID)
	}

	resp := &dto.StockLevelResponse{
		ProductID:  productID.String(),
		SKU:        product.SKU,
		LocationID: locationID.String(),
	}
	lvl, err := s.levels.Get(ctx, productID, locationID)
	switch {
	case err == nil:
		resp.Quantity = lvl.Quantity
		resp.Reserved = lvl.Reserved
		resp.Available = lvl.Available()
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No movements yet for this pair — quantity is zero.
	default:
		return nil, err
	}
	resp.BelowMinimum = resp.Quantity <= product.MinStock

	s.levelCache.Set(ctx, resp)
	return resp, nil
}

func (s *stockService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	repoFilter, err := repository.FilterFromDTO(filter)
	if err != nil {
		return nil, invalidOp("movement filter invalid: %v", err)
	}
	movements, total, err := s.movements.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		items = append(items, *movementToResponse(&movements[i]))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return &dto.MovementListResponse{Data: items, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// checkPair resolves the consumed collaborators: product must exist in the
// catalog and the location in the branch registry.
func (s *stockService) checkPair(ctx context.Context, productID, locationID uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return notFoundOr(err, "product %s", productID)
	}
	if _, err := s.locations.FindByID(ctx, locationID); err != nil {
		return notFoundOr(err, "location %s", locationID)
	}
	return nil
}

// notFoundOr maps a gorm record-miss onto the caller-visible ErrNotFound,
// passing other database errors through untouched.
func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}

func parsePair(productID, locationID string) (uuid.UUID, uuid.UUID, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return uuid.Nil, uuid.Nil, invalidOp("product_id invalid: %v", err)
	}
	lid, err := uuid.Parse(locationID)
	if err != nil {
		return uuid.Nil, uuid.Nil, invalidOp("location_id invalid: %v", err)
	}
	return pid, lid, nil
}

func parseTriple(productID, locationID, actorID string) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	pid, lid, err := parsePair(productID, locationID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	aid, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, invalidOp("actor_id invalid: %v", err)
	}
	return pid, lid, aid, nil
}

func movementToResponse(m *model.StockMovement) *dto.MovementResponse {
	resp := &dto.MovementResponse{
		ID:               m.ID.String(),
		ProductID:        m.ProductID.String(),
		LocationID:       m.LocationID.String(),
		Kind:             m.Kind,
		Delta:            m.Delta,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reference:        m.Reference,
		ActorID:          m.ActorID.String(),
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if m.CounterpartLocationID != nil {
		cp := m.CounterpartLocationID.String()
		resp.CounterpartLocationID = &cp
	}
	return resp
}
