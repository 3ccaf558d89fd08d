package service

import (
	"context"
	"errors"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/model"
	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TillService keeps the daily cash-drawer records: opened once, closed
// once per (location, date). Closing derives expected totals by summing
// the day's sales. It never reads running counters and never touches the
// stock ledger.
type TillService interface {
	Open(ctx context.Context, req dto.OpenTillRequest) (*dto.TillResponse, error)
	Close(ctx context.Context, req dto.CloseTillRequest) (*dto.TillResponse, error)
	Get(ctx context.Context, locationID uuid.UUID, date time.Time) (*dto.TillResponse, error)
}

type tillService struct {
	repo      repository.TillRepository
	sales     repository.SaleRepository
	locations repository.LocationRepository
	// now is swapped in tests to pin the operating date.
	now func() time.Time
}

func NewTillService(repo repository.TillRepository, sales repository.SaleRepository, locations repository.LocationRepository) TillService {
	return &tillService{repo: repo, sales: sales, locations: locations, now: time.Now}
}

// operatingDate truncates to the UTC day the drawer belongs to.
func (s *tillService) operatingDate() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *tillService) Open(ctx context.Context, req dto.OpenTillRequest) (*dto.TillResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, invalidOp("location_id invalid: %v", err)
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidOp("actor_id invalid: %v", err)
	}
	if req.OpeningAmount.IsNegative() {
		return nil, invalidOp("opening amount cannot be negative")
	}
	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, notFoundOr(err, "location %s", locationID)
	}

	date := s.operatingDate()
	if existing, err := s.repo.FindByLocationAndDate(ctx, locationID, date); err == nil && existing != nil {
		return nil, invalidOp("till for %s on %s already exists", location.Code, date.Format("2006-01-02"))
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record := &model.TillRecord{
		LocationID:    locationID,
		Date:          date,
		OpenedBy:      actorID,
		OpeningAmount: req.OpeningAmount,
		OpenedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return tillToResponse(record), nil
}

// Close recomputes totals from the day's sales grouped by payment method
// rather than trusting any cached counter, then records the variance.
// Closing is terminal.
func (s *tillService) Close(ctx context.Context, req dto.CloseTillRequest) (*dto.TillResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, invalidOp("location_id invalid: %v", err)
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		return nil, invalidOp("actor_id invalid: %v", err)
	}
	if req.ClosingAmount.IsNegative() {
		return nil, invalidOp("closing amount cannot be negative")
	}

	date := s.operatingDate()
	record, err := s.repo.FindByLocationAndDate(ctx, locationID, date)
	if err != nil {
		return nil, notFoundOr(err, "till for location %s on %s", locationID, date.Format("2006-01-02"))
	}
	if record.Closed() {
		return nil, invalidOp("till for %s is already closed", date.Format("2006-01-02"))
	}

	sums, err := s.sales.SumByPaymentMethod(ctx, locationID, date)
	if err != nil {
		return nil, err
	}

	record.CashTotal = sums[model.PaymentCash]
	record.CardTotal = sums[model.PaymentCard]
	record.TransferTotal = sums[model.PaymentTransfer]

	expected := record.OpeningAmount.Add(record.CashTotal)
	difference := req.ClosingAmount.Sub(expected)
	closing := req.ClosingAmount
	now := s.now().UTC()

	record.ClosingAmount = &closing
	record.Expected = &expected
	record.Difference = &difference
	record.ClosedBy = &actorID
	record.ClosedAt = &now
	record.Notes = req.Notes

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return tillToResponse(record), nil
}

func (s *tillService) Get(ctx context.Context, locationID uuid.UUID, date time.Time) (*dto.TillResponse, error) {
	record, err := s.repo.FindByLocationAndDate(ctx, locationID, date)
	if err != nil {
		return nil, notFoundOr(err, "till for location %s on %s", locationID, date.Format("2006-01-02"))
	}
	return tillToResponse(record), nil
}

func tillToResponse(t *model.TillRecord) *dto.TillResponse {
	resp := &dto.TillResponse{
		ID:            t.ID.String(),
		LocationID:    t.LocationID.String(),
		Date:          t.Date.Format("2006-01-02"),
		OpeningAmount: t.OpeningAmount,
		ClosingAmount: t.ClosingAmount,
		CashTotal:     t.CashTotal,
		CardTotal:     t.CardTotal,
		TransferTotal: t.TransferTotal,
		Expected:      t.Expected,
		Difference:    t.Difference,
		Closed:        t.Closed(),
		Notes:         t.Notes,
		OpenedAt:      t.OpenedAt.Format("2006-01-02T15:04:05Z"),
	}
	if t.ClosedAt != nil {
		closedAt := t.ClosedAt.Format("2006-01-02T15:04:05Z")
		resp.ClosedAt = &closedAt
	}
	return resp
}
