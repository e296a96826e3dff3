package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/idempotency"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pricing"
	"github.com/nekogravitycat/hotel-booking-backend/internal/room"
)

type CreateRequest struct {
	RoomID          int64
	CheckIn         time.Time
	CheckOut        time.Time
	Adults          int
	Children        int
	Guest           Guest
	SpecialRequests string
	IdempotencyKey  string
}

// ModifyRequest carries optional changes; nil fields are left untouched.
type ModifyRequest struct {
	CheckIn         *time.Time
	CheckOut        *time.Time
	Adults          *int
	Children        *int
	SpecialRequests *string
}

type Service interface {
	Search(ctx context.Context, q Search) ([]AvailableRoom, error)
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Booking, error)
	Get(ctx context.Context, actor auth.Actor, id int64) (*Booking, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Booking, int, error)
	Modify(ctx context.Context, actor auth.Actor, id int64, req ModifyRequest) (*Booking, error)
	Cancel(ctx context.Context, actor auth.Actor, id int64) (*Booking, error)
	Confirm(ctx context.Context, actor auth.Actor, id int64) (*Booking, error)
	CheckIn(ctx context.Context, actor auth.Actor, id int64) (*Booking, error)
	CheckOut(ctx context.Context, actor auth.Actor, id int64) (*Booking, error)
}

// Options tunes booking policy.
type Options struct {
	// AllowStaffBackdating lets staff create bookings starting before today
	// (walk-in registration after midnight, late data entry).
	AllowStaffBackdating bool
	// Now defaults to time.Now.
	Now func() time.Time
}

type service struct {
	repo  Repository
	index *Index
	calc  *pricing.Calculator
	idem  idempotency.Store
	log   *zap.Logger
	opts  Options
}

func NewService(
	repo Repository,
	rooms RoomCatalog,
	calc *pricing.Calculator,
	idem idempotency.Store,
	log *zap.Logger,
	opts Options,
) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if idem == nil {
		idem = idempotency.NopStore{}
	}
	return &service{
		repo:  repo,
		index: NewIndex(repo, rooms, calc),
		calc:  calc,
		idem:  idem,
		log:   log,
		opts:  opts,
	}
}

func (s *service) today() time.Time {
	return calendar.Day(s.opts.Now())
}

func (s *service) Search(ctx context.Context, q Search) ([]AvailableRoom, error) {
	return s.index.FindAvailableRooms(ctx, q)
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (_ *Booking, err error) {
	if actor.UserID == "" {
		return nil, ErrNotAuthorized
	}

	// 1. Validate occupants and dates
	if req.Adults < 1 || req.Children < 0 {
		return nil, ErrInvalidOccupants
	}
	rng, err := calendar.NewRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, ErrInvalidRange
	}

	source := SourceGuest
	if actor.IsStaff() {
		source = SourceStaff
	}
	if err := s.checkNotPast(actor, rng.CheckIn); err != nil {
		return nil, err
	}

	// 2. Validate room and capacity
	rm, err := s.index.lookupRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !rm.Bookable() {
		return nil, ErrRoomUnavailable.Withf("room %s is not open for booking", rm.Name)
	}
	if !rm.Fits(req.Adults, req.Children) {
		return nil, capacityError(rm)
	}

	// 3. Resolve guest identity
	guest, err := resolveGuest(actor, source, req.Guest)
	if err != nil {
		return nil, err
	}

	// 4. Replayed request returns the booking it created the first time
	idemKey, fp := "", ""
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		scoped := actor.UserID + ":" + key
		fp = fingerprint(rm.ID, rng, req.Adults, req.Children)

		var prev *Booking
		var reserved bool
		if prev, reserved, err = s.claim(ctx, scoped, fp); err != nil {
			return nil, err
		}
		if prev != nil {
			return prev, nil
		}
		if reserved {
			idemKey = scoped
			// A failed create frees the key for the retry.
			defer func() {
				if err != nil {
					s.release(idemKey)
				}
			}()
		}
	}

	// 5. Fast fail on a read-time conflict
	found, err := s.index.Conflicts(ctx, rm.ID, rng, 0)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return nil, unavailable(found)
	}

	// 6. Price with the room's current rate, which becomes the booking's snapshot
	quote, err := s.calc.Quote(rm.NightlyRate, rng.Nights())
	if err != nil {
		return nil, ErrInvalidInput.Withf("cannot price room %s: %v", rm.Name, err)
	}

	status := StatusPending
	if source == SourceStaff {
		status = StatusConfirmed
	}

	b := &Booking{
		RoomID:          rm.ID,
		RoomName:        rm.Name,
		Guest:           guest,
		Adults:          req.Adults,
		Children:        req.Children,
		CheckIn:         rng.CheckIn,
		CheckOut:        rng.CheckOut,
		NightlyRate:     quote.NightlyRate,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		Total:           quote.Total,
		Status:          status,
		Source:          source,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
	}

	// 7. Re-check and insert under the room lock
	err = s.repo.InRoomTx(ctx, rm.ID, func(tx Repository) error {
		found, err := conflicts(ctx, tx, rm.ID, rng, 0)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			return unavailable(found)
		}
		return tx.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	if idemKey != "" {
		if err := s.idem.Complete(ctx, idemKey, fp, b.ID); err != nil {
			s.log.Warn("complete idempotency key failed", zap.String("reference", b.Reference()), zap.Error(err))
		}
	}

	s.log.Info("booking created",
		zap.String("reference", b.Reference()),
		zap.Int64("room_id", b.RoomID),
		zap.String("stay", rng.String()),
		zap.String("status", string(b.Status)),
		zap.String("source", string(b.Source)),
		zap.String("actor", actor.UserID),
	)
	return b, nil
}

// claim reserves key for this request. A key already bound to the same
// request returns the booking it produced; one bound to a different request,
// or still in flight, is an error. Store failures only disable deduplication
// for this request (reserved is false).
func (s *service) claim(ctx context.Context, key, fp string) (prev *Booking, reserved bool, err error) {
	existing, ok, err := s.idem.Reserve(ctx, key, fp)
	if err != nil {
		s.log.Warn("idempotency reserve failed", zap.Error(err))
		return nil, false, nil
	}
	if ok {
		return nil, true, nil
	}

	if existing.Fingerprint != fp {
		return nil, false, ErrIdempotencyMismatch
	}
	if existing.Pending() {
		return nil, false, ErrIdempotencyInProgress
	}

	b, err := s.repo.GetByID(ctx, existing.BookingID)
	if err != nil {
		return nil, false, err
	}
	return b, false, nil
}

// release frees a key whose request failed so the client can retry it.
// It runs on a fresh context: the request's may already be cancelled.
func (s *service) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.idem.Release(ctx, key); err != nil {
		s.log.Warn("release idempotency key failed", zap.Error(err))
	}
}

// fingerprint identifies what a create asked for, so a reused key with a
// different body is caught.
func fingerprint(roomID int64, rng calendar.Range, adults, children int) string {
	return fmt.Sprintf("room=%d;stay=%s;adults=%d;children=%d", roomID, rng, adults, children)
}

func (s *service) checkNotPast(actor auth.Actor, checkIn time.Time) error {
	if actor.IsStaff() && s.opts.AllowStaffBackdating {
		return nil
	}
	if checkIn.Before(s.today()) {
		return ErrCheckInPast
	}
	return nil
}

func resolveGuest(actor auth.Actor, source Source, in Guest) (Guest, error) {
	g := Guest{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}

	if source == SourceGuest {
		// Self-service bookings always belong to the caller.
		uid := actor.UserID
		g.UserID = &uid
		return g, nil
	}

	if g.Name == "" {
		return Guest{}, ErrGuestRequired
	}
	if in.UserID != nil && strings.TrimSpace(*in.UserID) != "" {
		uid := strings.TrimSpace(*in.UserID)
		g.UserID = &uid
	}
	return g, nil
}

func capacityError(rm *room.Room) error {
	return ErrCapacityExceeded.Withf("room %s holds at most %d adults and %d children", rm.Name, rm.MaxAdults, rm.MaxChildren)
}

func authorize(actor auth.Actor, b *Booking) error {
	if actor.IsStaff() || b.OwnedBy(actor) {
		return nil
	}
	return ErrNotAuthorized
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Booking, int, error) {
	if actor.UserID == "" {
		return nil, 0, ErrNotAuthorized
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidInput.Withf("unknown booking status %q", filter.Status)
	}
	// Guests only ever see their own bookings.
	if !actor.IsStaff() {
		filter.UserID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Modify(ctx context.Context, actor auth.Actor, id int64, req ModifyRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, b); err != nil {
		return nil, err
	}

	rm, err := s.index.lookupRoom(ctx, b.RoomID)
	if err != nil {
		return nil, err
	}

	var updated *Booking
	err = s.repo.InRoomTx(ctx, b.RoomID, func(tx Repository) error {
		// Re-read under the lock; the status may have moved since.
		cur, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := Transition(cur, EventModify, s.opts.Now()); err != nil {
			return err
		}

		if err := s.applyChanges(actor, rm, cur, req); err != nil {
			return err
		}

		found, err := conflicts(ctx, tx, cur.RoomID, cur.Range(), cur.ID)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			return unavailable(found)
		}

		if err := tx.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking modified",
		zap.String("reference", updated.Reference()),
		zap.String("stay", updated.Range().String()),
		zap.String("total", updated.Total.StringFixed(2)),
		zap.String("actor", actor.UserID),
	)
	return updated, nil
}

// applyChanges validates req against the room and writes it into b,
// repricing with the booking's snapshot rate when the stay length changes.
func (s *service) applyChanges(actor auth.Actor, rm *room.Room, b *Booking, req ModifyRequest) error {
	checkIn, checkOut := b.CheckIn, b.CheckOut
	if req.CheckIn != nil {
		checkIn = *req.CheckIn
	}
	if req.CheckOut != nil {
		checkOut = *req.CheckOut
	}
	rng, err := calendar.NewRange(checkIn, checkOut)
	if err != nil {
		return ErrInvalidRange
	}
	if !rng.CheckIn.Equal(b.CheckIn) {
		if err := s.checkNotPast(actor, rng.CheckIn); err != nil {
			return err
		}
	}

	adults, children := b.Adults, b.Children
	if req.Adults != nil {
		adults = *req.Adults
	}
	if req.Children != nil {
		children = *req.Children
	}
	if adults < 1 || children < 0 {
		return ErrInvalidOccupants
	}
	if !rm.Fits(adults, children) {
		return capacityError(rm)
	}

	if rng.Nights() != b.Nights() {
		quote, err := s.calc.Quote(b.NightlyRate, rng.Nights())
		if err != nil {
			return ErrInvalidInput.Withf("cannot reprice booking: %v", err)
		}
		b.Subtotal, b.Tax, b.Total = quote.Subtotal, quote.Tax, quote.Total
	}

	b.CheckIn, b.CheckOut = rng.CheckIn, rng.CheckOut
	b.Adults, b.Children = adults, children
	if req.SpecialRequests != nil {
		b.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id int64) (*Booking, error) {
	return s.transition(ctx, actor, id, EventCancel)
}

func (s *service) Confirm(ctx context.Context, actor auth.Actor, id int64) (*Booking, error) {
	return s.transition(ctx, actor, id, EventConfirm)
}

func (s *service) CheckIn(ctx context.Context, actor auth.Actor, id int64) (*Booking, error) {
	return s.transition(ctx, actor, id, EventCheckIn)
}

func (s *service) CheckOut(ctx context.Context, actor auth.Actor, id int64) (*Booking, error) {
	return s.transition(ctx, actor, id, EventCheckOut)
}

// transition drives the lifecycle under the room lock. Guests may only
// cancel their own bookings; every other event is a front-desk action.
func (s *service) transition(ctx context.Context, actor auth.Actor, id int64, e Event) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == EventCancel {
		err = authorize(actor, b)
	} else if !actor.IsStaff() {
		err = ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}

	var from Status
	var updated *Booking
	err = s.repo.InRoomTx(ctx, b.RoomID, func(tx Repository) error {
		cur, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		to, err := Transition(cur, e, s.opts.Now())
		if err != nil {
			return err
		}
		from = cur.Status
		cur.Status = to
		if err := tx.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.log.Debug("booking transition rejected",
				zap.Int64("booking_id", id),
				zap.String("event", string(e)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log.Info("booking transition",
		zap.String("reference", updated.Reference()),
		zap.String("event", string(e)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", actor.UserID),
	)
	return updated, nil
}
