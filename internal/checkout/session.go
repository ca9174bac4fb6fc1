package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/fee"
	"parkflow/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// isoLayout matches the millisecond ISO-8601 timestamps the backend stores.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Session is the checkout workflow for one vehicle. All methods are safe for concurrent use;
// events are applied one at a time and backend calls run without holding the lock.
type Session struct {
	mu        sync.Mutex
	id        string
	actor     domain.Actor
	vehicle   domain.Vehicle
	rates     RateProvider
	persister Persister
	opts      Options
	log       *zap.Logger

	state      State
	rateTable  *fee.RateTable
	method     domain.PaymentMethod
	last       *fee.Result
	lastAt     time.Time
	errMsg     string
	errKind    string
	confirmErr string
	receipt    *domain.Receipt

	openedAt  time.Time
	updatedAt time.Time
	touchedAt time.Time

	stop context.CancelFunc
	done chan struct{}
}

func NewSession(actor domain.Actor, vehicle domain.Vehicle, rates RateProvider, persister Persister, opts Options) *Session {
	opts = opts.withDefaults()
	now := opts.Now()
	id := uuid.NewString()
	return &Session{
		id:        id,
		actor:     actor,
		vehicle:   vehicle,
		rates:     rates,
		persister: persister,
		opts:      opts,
		log: logger.With(
			zap.String("session_id", id),
			zap.String("vehicle_id", vehicle.ID),
			zap.String("contractor_id", actor.ContractorID),
		),
		state:     StateIdle,
		method:    domain.PaymentCash,
		openedAt:  now,
		updatedAt: now,
		touchedAt: now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) VehicleID() string { return s.vehicle.ID }

// Open starts the refresher and resolves rates. Problems end up in the session state,
// never in a returned error.
func (s *Session) Open(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.state != StateIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.startRefresherLocked()
	s.mu.Unlock()

	s.log.Info("Checkout session opened", zap.String("plate_number", s.vehicle.PlateNumber))
	s.resolve(ctx)
	return s.Snapshot()
}

// Dispatch applies one event and returns the resulting snapshot.
func (s *Session) Dispatch(ctx context.Context, ev Event) (Snapshot, error) {
	switch e := ev.(type) {
	case RecalculateRequested:
		s.touch()
		return s.recalculate(ctx)
	case PaymentMethodSelected:
		s.touch()
		return s.selectMethod(e.Method)
	case ConfirmRequested:
		s.touch()
		return s.confirm(ctx)
	case CancelRequested:
		return s.cancel()
	case refreshTick:
		return s.refresh()
	}
	return s.Snapshot(), fmt.Errorf("unsupported checkout event %T", ev)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IdleFor reports how long ago an attendant last acted on the session.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.touchedAt)
}

// Close force-closes the session. A confirmation still in flight has its result ignored.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.waitRefresher()
	s.notify(snap)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touchedAt = s.opts.Now()
	s.mu.Unlock()
}

func (s *Session) resolve(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateResolvingRates)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	table, err := s.rates.GetRates(ctx, s.actor, s.actor.ContractorID)

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		s.log.Debug("Discarding rate lookup for closed session")
		return
	}
	switch {
	case fee.KindOf(err) == fee.InvalidRateTable:
		// A malformed table will not fix itself on retry.
		s.log.Warn("Contractor rate table is malformed", zap.Error(err))
		s.failLocked(StateRatesNotConfigured, fmt.Sprintf("parking rates are misconfigured: %v", err), string(fee.InvalidRateTable))
		if s.stop != nil {
			s.stop()
		}
	case err != nil:
		s.log.Warn("Rate lookup failed", zap.Error(err))
		kind := string(fee.KindOf(err))
		if kind == "" {
			kind = "rate_lookup_failed"
		}
		s.failLocked(StateCalculationError, fmt.Sprintf("unable to load parking rates: %v", err), kind)
	case table == nil:
		s.log.Warn("Contractor has no rates configured")
		s.failLocked(StateRatesNotConfigured, ErrRatesNotConfigured.Error(), "rates_not_configured")
		if s.stop != nil {
			s.stop()
		}
	default:
		s.rateTable = table
		s.warnOnRatesLocked()
		s.calculateLocked()
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) warnOnRatesLocked() {
	for _, c := range []struct {
		class fee.VehicleClass
		tier  fee.RateTier
	}{{fee.TwoWheeler, s.rateTable.TwoWheeler}, {fee.FourWheeler, s.rateTable.FourWheeler}} {
		if c.tier.IsZero() {
			s.log.Warn("All rates are zero; checkout will require the free payment method", zap.String("vehicle_class", string(c.class)))
		} else if !c.tier.IsAscending() {
			s.log.Warn("Rates are not ascending across duration brackets", zap.String("vehicle_class", string(c.class)), zap.Any("rates", c.tier))
		}
	}
}

func (s *Session) calculateLocked() {
	s.setStateLocked(StateCalculating)
	now := s.opts.Now()

	class, err := fee.ParseVehicleClass(s.vehicle.VehicleType)
	var res *fee.Result
	if err == nil {
		tier, _ := s.rateTable.ForClass(class)
		res, err = fee.CalculateRaw(s.vehicle.CheckInTime, now.UTC().Format(time.RFC3339Nano), string(class), tier)
	}
	if err != nil {
		s.last = nil
		s.log.Warn("Fee calculation failed", zap.Error(err), zap.String("kind", string(fee.KindOf(err))))
		s.failLocked(StateCalculationError, err.Error(), string(fee.KindOf(err)))
		return
	}

	s.last = res
	s.lastAt = now
	s.errMsg = ""
	s.errKind = ""
	s.setStateLocked(StateReady)
	s.log.Debug("Fee calculated",
		zap.Float64("amount", res.Amount),
		zap.String("tier", res.Tier),
		zap.String("duration", res.Duration.Formatted))
}

func (s *Session) recalculate(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrSessionClosed
	case StateConfirming:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConfirmInFlight
	case StateRatesNotConfigured:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrRatesNotConfigured
	case StateResolvingRates, StateCalculating:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	if s.rateTable == nil {
		s.mu.Unlock()
		s.resolve(ctx)
		return s.Snapshot(), nil
	}

	s.calculateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

func (s *Session) refresh() (Snapshot, error) {
	s.mu.Lock()
	if s.state != StateReady || s.opts.Now().Sub(s.lastAt) < s.opts.RefreshInterval {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	s.calculateLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

func (s *Session) selectMethod(raw string) (Snapshot, error) {
	method, parseErr := domain.ParsePaymentMethod(raw)

	s.mu.Lock()
	switch s.state {
	case StateClosed:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrSessionClosed
	case StateConfirming:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConfirmInFlight
	}
	if parseErr != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, fmt.Errorf("%w: %v", ErrInvalidPaymentMethod, parseErr)
	}

	s.method = method
	s.confirmErr = ""
	s.updatedAt = s.opts.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return snap, nil
}

// guardLocked returns the reason the current result cannot be confirmed, if any.
func (s *Session) guardLocked() error {
	if s.state != StateReady || s.last == nil {
		return ErrNoCalculation
	}
	if s.last.Amount < 0 {
		return ErrNegativeAmount
	}
	if s.last.Amount == 0 && s.method != domain.PaymentFree && !s.opts.AllowZeroAmount {
		return ErrZeroAmountNotFree
	}
	return nil
}

func (s *Session) confirm(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrSessionClosed
	case StateConfirming:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConfirmInFlight
	case StateRatesNotConfigured:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrRatesNotConfigured
	}

	if err := s.guardLocked(); err != nil {
		s.confirmErr = err.Error()
		s.updatedAt = s.opts.Now()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return snap, err
	}

	result := s.last
	method := s.method
	finalAmount := result.Amount
	if method == domain.PaymentFree {
		finalAmount = 0
	}
	req := domain.CheckoutRequest{
		CheckOutTime:  result.CheckOut.UTC().Format(isoLayout),
		PaymentAmount: finalAmount,
		PaymentMethod: method,
	}
	s.confirmErr = ""
	s.setStateLocked(StateConfirming)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.log.Info("Confirming checkout",
		zap.Float64("calculated_amount", result.Amount),
		zap.Float64("payment_amount", finalAmount),
		zap.String("payment_method", string(method)))
	resp, err := s.persister.Checkout(ctx, s.actor, s.vehicle.ID, req)

	s.mu.Lock()
	if s.state != StateConfirming {
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.log.Warn("Ignoring checkout result for a session closed while confirming", zap.Error(err))
		return snap, ErrSessionClosed
	}
	if err != nil {
		s.confirmErr = fmt.Sprintf("%s: %v", ErrPersistenceFailed.Error(), err)
		s.setStateLocked(StateReady)
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.log.Error("Checkout persistence failed", zap.Error(err))
		s.notify(snap)
		return snap, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	s.receipt = buildReceipt(s.vehicle, result, method, finalAmount, resp, s.opts.Now())
	s.closeLocked()
	snap = s.snapshotLocked()
	s.mu.Unlock()

	s.waitRefresher()
	s.log.Info("Checkout completed", zap.String("receipt_id", snap.Receipt.ReceiptID))
	s.notify(snap)
	return snap, nil
}

func (s *Session) cancel() (Snapshot, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrSessionClosed
	case StateConfirming:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrConfirmInFlight
	}

	s.closeLocked()
	s.rateTable = nil
	s.last = nil
	s.errMsg = ""
	s.errKind = ""
	s.confirmErr = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.waitRefresher()
	s.log.Info("Checkout session cancelled")
	s.notify(snap)
	return snap, nil
}

func (s *Session) failLocked(state State, msg, kind string) {
	s.errMsg = msg
	s.errKind = kind
	s.setStateLocked(state)
}

func (s *Session) setStateLocked(state State) {
	s.state = state
	s.updatedAt = s.opts.Now()
}

func (s *Session) closeLocked() {
	s.setStateLocked(StateClosed)
	if s.stop != nil {
		s.stop()
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		ContractorID:  s.actor.ContractorID,
		AttendantID:   s.actor.AttendantID,
		Vehicle:       s.vehicle,
		State:         s.state,
		PaymentMethod: s.method,
		Error:         s.errMsg,
		ErrorKind:     s.errKind,
		ConfirmError:  s.confirmErr,
		CanRetry:      s.state == StateReady || s.state == StateCalculationError,
		CanCancel:     s.state != StateConfirming && s.state != StateClosed,
		Receipt:       s.receipt,
		OpenedAt:      s.openedAt,
		UpdatedAt:     s.updatedAt,
	}
	if s.last != nil {
		res := *s.last
		at := s.lastAt
		snap.Calculation = &res
		snap.CalculatedAt = &at
		if s.method != domain.PaymentFree {
			snap.PayableAmount = res.Amount
		}
	}
	snap.CanConfirm = s.guardLocked() == nil
	return snap
}

func (s *Session) notify(snap Snapshot) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(snap)
	}
}
