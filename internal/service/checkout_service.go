package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkflow/internal/checkout"
	"parkflow/internal/domain"
	"parkflow/internal/fee"
	"parkflow/internal/logger"
	"parkflow/internal/repository"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"
)

var ErrVehicleAlreadyCheckedOut = errors.New("vehicle has already been checked out")
var ErrJournalDisabled = errors.New("receipt journal is not configured")

const journalTimeout = 5 * time.Second

// CheckoutDeps collects the collaborators of CheckoutService. Receipts, Publisher and
// Broadcaster are optional.
type CheckoutDeps struct {
	Rates       checkout.RateProvider
	Persister   checkout.Persister
	Vehicles    VehicleSource
	Receipts    repository.ReceiptRepository
	Publisher   EventPublisher
	Broadcaster Broadcaster
}

type CheckoutService struct {
	manager     *checkout.Manager
	vehicles    VehicleSource
	receipts    repository.ReceiptRepository
	publisher   EventPublisher
	broadcaster Broadcaster
	now         func() time.Time
}

func NewCheckoutService(deps CheckoutDeps, opts checkout.Options) *CheckoutService {
	s := &CheckoutService{
		vehicles:    deps.Vehicles,
		receipts:    deps.Receipts,
		publisher:   deps.Publisher,
		broadcaster: deps.Broadcaster,
		now:         opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	opts.OnChange = s.handleChange
	s.manager = checkout.NewManager(deps.Rates, deps.Persister, opts)
	return s
}

// Quote prices a stay without opening a session. An empty check-out time means now.
func (s *CheckoutService) Quote(dto domain.FeeQuoteDTO) (*fee.Result, error) {
	class, err := fee.ParseVehicleClass(dto.VehicleType)
	if err != nil {
		return nil, err
	}
	tier, err := dto.Rates.Tier("rates")
	if err != nil {
		return nil, err
	}
	checkOut := dto.CheckOutTime
	if checkOut == "" {
		checkOut = s.now().UTC().Format(time.RFC3339Nano)
	}
	return fee.CalculateRaw(dto.CheckInTime, checkOut, string(class), tier)
}

// OpenCheckout starts (or resumes) the checkout of a parked vehicle.
func (s *CheckoutService) OpenCheckout(ctx context.Context, actor domain.Actor, vehicleID string) (checkout.Snapshot, bool, error) {
	vehicle, err := s.vehicles.GetVehicle(ctx, actor, vehicleID)
	if err != nil {
		return checkout.Snapshot{}, false, fmt.Errorf("CheckoutService.OpenCheckout: %w", err)
	}
	if vehicle.CheckOutTime != "" {
		return checkout.Snapshot{}, false, ErrVehicleAlreadyCheckedOut
	}
	snap, created := s.manager.Open(ctx, actor, *vehicle)
	return snap, created, nil
}

func (s *CheckoutService) GetCheckout(actor domain.Actor, sessionID string) (checkout.Snapshot, error) {
	sess, err := s.session(actor, sessionID)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *CheckoutService) Recalculate(ctx context.Context, actor domain.Actor, sessionID string) (checkout.Snapshot, error) {
	return s.dispatch(ctx, actor, sessionID, checkout.RecalculateRequested{})
}

func (s *CheckoutService) SelectPaymentMethod(ctx context.Context, actor domain.Actor, sessionID, method string) (checkout.Snapshot, error) {
	return s.dispatch(ctx, actor, sessionID, checkout.PaymentMethodSelected{Method: method})
}

func (s *CheckoutService) Confirm(ctx context.Context, actor domain.Actor, sessionID string) (checkout.Snapshot, error) {
	return s.dispatch(ctx, actor, sessionID, checkout.ConfirmRequested{})
}

func (s *CheckoutService) Cancel(ctx context.Context, actor domain.Actor, sessionID string) (checkout.Snapshot, error) {
	return s.dispatch(ctx, actor, sessionID, checkout.CancelRequested{})
}

// GetReceipt returns a journaled receipt issued for the actor's contractor.
func (s *CheckoutService) GetReceipt(ctx context.Context, actor domain.Actor, receiptID string) (*domain.ReceiptRecord, error) {
	if s.receipts == nil {
		return nil, ErrJournalDisabled
	}
	rec, err := s.receipts.FindByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if rec.ContractorID != actor.ContractorID {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (s *CheckoutService) ListReceipts(ctx context.Context, actor domain.Actor, vehicleID string) ([]domain.ReceiptRecord, error) {
	if s.receipts == nil {
		return nil, ErrJournalDisabled
	}
	records, err := s.receipts.FindByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	visible := records[:0]
	for _, rec := range records {
		if rec.ContractorID == actor.ContractorID {
			visible = append(visible, rec)
		}
	}
	return visible, nil
}

// SweepIdleSessions closes sessions nobody has touched for ttl.
func (s *CheckoutService) SweepIdleSessions(ttl time.Duration) int {
	return s.manager.Sweep(ttl)
}

func (s *CheckoutService) OpenSessions() int {
	return s.manager.Len()
}

func (s *CheckoutService) Shutdown() {
	s.manager.CloseAll()
}

// session resolves a session visible to the actor. Sessions of other contractors are
// reported as not found.
func (s *CheckoutService) session(actor domain.Actor, sessionID string) (*checkout.Session, error) {
	sess, err := s.manager.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if snap := sess.Snapshot(); snap.ContractorID != actor.ContractorID {
		return nil, checkout.ErrSessionNotFound
	}
	return sess, nil
}

func (s *CheckoutService) dispatch(ctx context.Context, actor domain.Actor, sessionID string, ev checkout.Event) (checkout.Snapshot, error) {
	sess, err := s.session(actor, sessionID)
	if err != nil {
		return checkout.Snapshot{}, err
	}
	return sess.Dispatch(ctx, ev)
}

func (s *CheckoutService) handleChange(snap checkout.Snapshot) {
	eventType := domain.CheckoutEventUpdated
	if snap.State == checkout.StateClosed {
		eventType = domain.CheckoutEventClosed
	}
	s.broadcast(eventType, snap, snap)

	if snap.State != checkout.StateClosed || snap.Receipt == nil {
		return
	}
	s.journal(snap)
	s.broadcast(domain.CheckoutEventCheckedOut, snap, snap.Receipt)
	if s.publisher != nil {
		s.publisher.Publish(notification(domain.CheckoutEventCheckedOut, snap, snap.Receipt, s.now()))
	}
}

func (s *CheckoutService) broadcast(eventType domain.CheckoutEventType, snap checkout.Snapshot, payload any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(notification(eventType, snap, payload, s.now()))
}

// journal records an issued receipt. Failures are logged; the checkout itself already succeeded.
func (s *CheckoutService) journal(snap checkout.Snapshot) {
	if s.receipts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	rec := &domain.ReceiptRecord{
		Receipt:      *snap.Receipt,
		VehicleID:    snap.Vehicle.ID,
		ContractorID: snap.ContractorID,
		AttendantID:  null.NewString(snap.AttendantID, snap.AttendantID != ""),
		ServerIssued: snap.Receipt.ServerIssued,
	}
	if _, err := s.receipts.Create(ctx, rec); err != nil {
		logger.Error("Failed to journal receipt",
			zap.String("receipt_id", snap.Receipt.ReceiptID),
			zap.String("vehicle_id", snap.Vehicle.ID),
			zap.Error(err))
	}
}

func notification(eventType domain.CheckoutEventType, snap checkout.Snapshot, payload any, now time.Time) domain.CheckoutNotification {
	return domain.CheckoutNotification{
		EventType:    eventType,
		SessionID:    snap.ID,
		ContractorID: snap.ContractorID,
		VehicleID:    snap.Vehicle.ID,
		PlateNumber:  snap.Vehicle.PlateNumber,
		Timestamp:    now.UTC(),
		Payload:      payload,
	}
}
