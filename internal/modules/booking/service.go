// README: Booking synchronizer; create/read/update/cancel/quote against the remote dispatch platform.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taxisync/internal/events"
	"taxisync/internal/platform"
	"taxisync/internal/types"
)

// Platform is the remote dispatch platform's booking API.
type Platform interface {
	CreateBooking(ctx context.Context, b *Booking) (*Booking, error)
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	ModifyBooking(ctx context.Context, b *Booking, override bool) (*Booking, error)
	CancelBooking(ctx context.Context, id int64) error
	Quote(ctx context.Context, q platform.QuoteRequest) (*platform.Quote, error)
}

type AddressResolver interface {
	Resolve(ctx context.Context, text string) (types.Point, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.BookingEvent) error
}

type Options struct {
	// BulkConcurrency bounds in-flight remote calls of SubmitMany/CancelMany.
	BulkConcurrency int
	// Currency is assumed for quotes that do not name one.
	Currency string
}

type Service struct {
	remote   Platform
	resolver AddressResolver
	events   EventPublisher
	logger   *zap.Logger
	opts     Options
}

func NewService(remote Platform, resolver AddressResolver, publisher EventPublisher, logger *zap.Logger, opts Options) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = 4
	}
	if opts.Currency == "" {
		opts.Currency = "GBP"
	}
	return &Service{
		remote:   remote,
		resolver: resolver,
		events:   publisher,
		logger:   logger.Named("booking"),
		opts:     opts,
	}
}

// Create submits a new booking. Addresses are resolved before anything is sent;
// more than MaxGroupSize passengers become several bookings under one reference.
// The returned result lists every group's outcome even when err is non-nil.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	pricing, err := validateCreate(req)
	if err != nil {
		return nil, err
	}
	req, err = s.resolveRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, buildTemplate(req, pricing), req.Passengers, req.Luggage, req.Reference, "")
}

func (s *Service) Read(ctx context.Context, id types.ID) (*Booking, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.remote.GetBooking(ctx, n)
}

// Update reads the booking, applies ch to the full document and writes it back at
// the rowVersion it was read at. A rowVersion conflict is retried once with the
// override variant. If the booking has vanished upstream a replacement is created
// and flagged in the result. Update never cancels the existing booking.
func (s *Service) Update(ctx context.Context, id types.ID, ch Changes) (*UpdateResult, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if err := validateChanges(ch); err != nil {
		return nil, err
	}
	ch, err = s.resolveChanges(ctx, ch)
	if err != nil {
		return nil, err
	}

	current, err := s.remote.GetBooking(ctx, n)
	if errors.Is(err, ErrRemoteNotFound) {
		return s.replace(ctx, id, nil, ch)
	}
	if err != nil {
		return nil, err
	}

	merged := applyChanges(current, ch)
	updated, err := s.remote.ModifyBooking(ctx, merged, false)
	overridden := false
	if errors.Is(err, ErrRemoteConflict) {
		s.logger.Warn("row version conflict, retrying with override",
			zap.String("booking_id", string(id)), zap.String("row_version", merged.RowVersion))
		overridden = true
		updated, err = s.remote.ModifyBooking(ctx, merged, true)
	}
	if errors.Is(err, ErrRemoteNotFound) {
		return s.replace(ctx, id, merged, ch)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking updated", zap.String("booking_id", string(id)), zap.Bool("overridden", overridden))
	return &UpdateResult{Booking: updated, Overridden: overridden}, nil
}

// Cancel deletes the booking upstream. A booking that is already gone counts as cancelled.
func (s *Service) Cancel(ctx context.Context, id types.ID) (*CancelResult, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	err = s.remote.CancelBooking(ctx, n)
	if errors.Is(err, ErrRemoteNotFound) {
		s.logger.Info("booking already absent", zap.String("booking_id", string(id)))
		return &CancelResult{ID: id, AlreadyAbsent: true}, nil
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking cancelled", zap.String("booking_id", string(id)))
	s.publish(ctx, events.BookingEvent{Type: events.TypeBookingCancelled, BookingIDs: []string{string(id)}})
	return &CancelResult{ID: id}, nil
}

// Quote asks the platform for a price. It has no identity and changes nothing.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if req.Passengers < 1 {
		return nil, badRequest("passengers must be at least 1")
	}
	if req.Luggage < 0 {
		return nil, badRequest("luggage must not be negative")
	}
	if err := validateStop("pickup", req.Pickup); err != nil {
		return nil, err
	}

	pickup, err := s.resolveStop(ctx, "pickup", req.Pickup)
	if err != nil {
		return nil, err
	}
	q := platform.QuoteRequest{
		PickupDueTime: req.PickupTime,
		Pickup:        locationOf(pickup),
		Passengers:    req.Passengers,
		Luggage:       req.Luggage,
	}
	if req.Destination != nil {
		dest, err := s.resolveStop(ctx, "destination", *req.Destination)
		if err != nil {
			return nil, err
		}
		loc := locationOf(dest)
		q.Destination = &loc
	}
	vias, err := s.resolveVias(ctx, req.Vias)
	if err != nil {
		return nil, err
	}
	q.Vias = locationsOf(vias)

	quote, err := s.remote.Quote(ctx, q)
	if err != nil {
		return nil, err
	}
	currency := quote.Currency
	if currency == "" {
		currency = s.opts.Currency
	}
	return &QuoteResult{
		Price:      types.MoneyFromMajor(quote.Price, currency),
		DistanceKm: quote.DistanceKm,
		Minutes:    quote.Minutes,
	}, nil
}

// replace creates a new booking for one that vanished upstream. merged is the
// last known document with ch applied; when nil the replacement is built from ch alone.
func (s *Service) replace(ctx context.Context, previous types.ID, merged *Booking, ch Changes) (*UpdateResult, error) {
	s.logger.Warn("booking not found upstream, creating replacement", zap.String("booking_id", string(previous)))

	var (
		tmpl                *Booking
		passengers, luggage int
		reference           string
	)
	if merged != nil {
		tmpl = merged
		passengers, luggage = merged.Passengers, merged.Luggage
		reference = merged.YourReferences.YourReference1
	} else {
		req, pricing, err := changesAsCreate(ch)
		if err != nil {
			return nil, fmt.Errorf("booking %s not found upstream and the changes are not a complete booking: %w: %w",
				previous, ErrRemoteNotFound, err)
		}
		tmpl = buildTemplate(req, pricing)
		passengers, luggage, reference = req.Passengers, req.Luggage, req.Reference
	}

	created, err := s.submit(ctx, tmpl, passengers, luggage, reference, previous)
	res := &UpdateResult{Replaced: true, PreviousID: previous, Replacement: created}
	if created != nil {
		for _, g := range created.Groups {
			if g.OK() {
				res.Booking = g.Booking
				break
			}
		}
	}
	if err != nil {
		// the original is gone either way; keep that visible next to the create failure
		return res, fmt.Errorf("booking %s not found upstream; replacement failed: %w: %w", previous, ErrRemoteNotFound, err)
	}
	return res, nil
}

// submit creates one remote booking per passenger group. Groups are sent in order
// and a failed group does not stop the rest.
func (s *Service) submit(ctx context.Context, tmpl *Booking, passengers, luggage int, reference string, previous types.ID) (*CreateResult, error) {
	if reference == "" {
		reference = uuid.NewString()
	}
	sizes := SplitPassengers(passengers)
	bags := splitLuggage(luggage, len(sizes))

	res := &CreateResult{Reference: reference, Groups: make([]GroupOutcome, 0, len(sizes))}
	var errs []error
	for i, size := range sizes {
		b := tmpl.Clone()
		b.ID, b.RowVersion, b.Status = 0, "", ""
		b.Passengers = size
		b.Luggage = bags[i]
		b.YourReferences.YourReference1 = reference
		if len(sizes) > 1 {
			b.OurReference = fmt.Sprintf("%d/%d", i+1, len(sizes))
		}

		out := GroupOutcome{Index: i, Passengers: size, Luggage: bags[i]}
		created, err := s.remote.CreateBooking(ctx, b)
		if err != nil {
			out.Err, out.Error = err, err.Error()
			errs = append(errs, err)
			s.logger.Warn("booking group create failed",
				zap.String("reference", reference), zap.Int("group", i+1), zap.Int("groups", len(sizes)), zap.Error(err))
		} else {
			out.Booking = created
			s.logger.Info("booking created",
				zap.Int64("booking_id", created.ID), zap.String("reference", reference),
				zap.Int("group", i+1), zap.Int("groups", len(sizes)), zap.Int("passengers", size))
		}
		res.Groups = append(res.Groups, out)
	}

	if ids := res.IDs(); len(ids) > 0 {
		ev := events.BookingEvent{
			Type:       events.TypeBookingCreated,
			BookingIDs: idStrings(ids),
			Reference:  reference,
			Passengers: passengers,
		}
		if previous != "" {
			ev.Type = events.TypeBookingReplaced
			ev.PreviousID = string(previous)
		}
		s.publish(ctx, ev)
	}

	switch {
	case len(errs) == 0:
		return res, nil
	case len(sizes) == 1:
		return res, errs[0]
	default:
		return res, &BatchError{Succeeded: len(sizes) - len(errs), Failed: len(errs), Errs: errs}
	}
}

func (s *Service) publish(ctx context.Context, ev events.BookingEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish booking event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (s *Service) resolveRequest(ctx context.Context, req CreateRequest) (CreateRequest, error) {
	var err error
	if req.Pickup, err = s.resolveStop(ctx, "pickup", req.Pickup); err != nil {
		return req, err
	}
	if req.Destination != nil {
		dest, err := s.resolveStop(ctx, "destination", *req.Destination)
		if err != nil {
			return req, err
		}
		req.Destination = &dest
	}
	if req.Vias, err = s.resolveVias(ctx, req.Vias); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Service) resolveChanges(ctx context.Context, ch Changes) (Changes, error) {
	if ch.Pickup != nil {
		st, err := s.resolveStop(ctx, "pickup", *ch.Pickup)
		if err != nil {
			return ch, err
		}
		ch.Pickup = &st
	}
	if ch.Destination != nil {
		st, err := s.resolveStop(ctx, "destination", *ch.Destination)
		if err != nil {
			return ch, err
		}
		ch.Destination = &st
	}
	if ch.Vias != nil {
		vias, err := s.resolveVias(ctx, *ch.Vias)
		if err != nil {
			return ch, err
		}
		ch.Vias = &vias
	}
	return ch, nil
}

func (s *Service) resolveVias(ctx context.Context, vias []Stop) ([]Stop, error) {
	if vias == nil {
		return nil, nil
	}
	out := make([]Stop, len(vias))
	for i, v := range vias {
		st, err := s.resolveStop(ctx, fmt.Sprintf("via %d", i+1), v)
		if err != nil {
			return nil, err
		}
		out[i] = st
	}
	return out, nil
}

func (s *Service) resolveStop(ctx context.Context, role string, st Stop) (Stop, error) {
	if st.Point != nil {
		return st, nil
	}
	p, err := s.resolver.Resolve(ctx, st.Address)
	if err != nil {
		return st, fmt.Errorf("%w: %s %q: %v", ErrAddressResolutionFailed, role, st.Address, err)
	}
	st.Point = &p
	return st, nil
}

func validateCreate(req CreateRequest) (platform.Pricing, error) {
	if req.Passengers < 1 {
		return platform.Pricing{}, badRequest("passengers must be at least 1")
	}
	if req.Luggage < 0 {
		return platform.Pricing{}, badRequest("luggage must not be negative")
	}
	if err := validateStop("pickup", req.Pickup); err != nil {
		return platform.Pricing{}, err
	}
	if req.Destination != nil {
		if err := validateStop("destination", *req.Destination); err != nil {
			return platform.Pricing{}, err
		}
	}
	for i, v := range req.Vias {
		if err := validateStop(fmt.Sprintf("via %d", i+1), v); err != nil {
			return platform.Pricing{}, err
		}
	}
	if strings.TrimSpace(req.Price) == "" {
		return platform.Pricing{}, nil
	}
	return manualPricing(req.Price)
}

func validateChanges(ch Changes) error {
	if ch.Passengers != nil && (*ch.Passengers < 1 || *ch.Passengers > MaxGroupSize) {
		return badRequest("an existing booking holds 1 to %d passengers; submit a new booking to split a group", MaxGroupSize)
	}
	if ch.Luggage != nil && *ch.Luggage < 0 {
		return badRequest("luggage must not be negative")
	}
	if ch.Pickup != nil {
		if err := validateStop("pickup", *ch.Pickup); err != nil {
			return err
		}
	}
	if ch.Destination != nil {
		if err := validateStop("destination", *ch.Destination); err != nil {
			return err
		}
	}
	if ch.Vias != nil {
		for i, v := range *ch.Vias {
			if err := validateStop(fmt.Sprintf("via %d", i+1), v); err != nil {
				return err
			}
		}
	}
	if ch.Price != nil && strings.TrimSpace(*ch.Price) != "" {
		if _, err := manualPricing(*ch.Price); err != nil {
			return err
		}
	}
	return nil
}

func validateStop(role string, st Stop) error {
	if st.Point == nil && strings.TrimSpace(st.Address) == "" {
		return badRequest("%s address is required", role)
	}
	return nil
}

// changesAsCreate turns an edit into a standalone booking request.
func changesAsCreate(ch Changes) (CreateRequest, platform.Pricing, error) {
	if ch.Pickup == nil || ch.Passengers == nil {
		return CreateRequest{}, platform.Pricing{}, badRequest("pickup and passengers are required")
	}
	req := CreateRequest{
		PickupTime:  ch.PickupTime,
		Pickup:      *ch.Pickup,
		Destination: ch.Destination,
		Passengers:  *ch.Passengers,
	}
	if ch.Vias != nil {
		req.Vias = *ch.Vias
	}
	if ch.Luggage != nil {
		req.Luggage = *ch.Luggage
	}
	setString(&req.Price, ch.Price)
	setString(&req.Reference, ch.Reference)
	setString(&req.CustomerReference, ch.CustomerReference)
	setString(&req.Name, ch.Name)
	setString(&req.Phone, ch.Phone)
	setString(&req.Email, ch.Email)
	setString(&req.DriverNote, ch.DriverNote)

	pricing, err := validateCreate(req)
	return req, pricing, err
}

// buildTemplate renders a resolved request as a platform document, without passenger split.
func buildTemplate(req CreateRequest, pricing platform.Pricing) *Booking {
	b := &Booking{
		PickupDueTime: req.PickupTime,
		Pickup:        locationOf(req.Pickup),
		Vias:          locationsOf(req.Vias),
		Passengers:    req.Passengers,
		Luggage:       req.Luggage,
		Pricing:       pricing,
		YourReferences: platform.References{
			YourReference1: req.Reference,
			YourReference2: req.CustomerReference,
		},
		Name:            req.Name,
		TelephoneNumber: req.Phone,
		Email:           req.Email,
		DriverNote:      req.DriverNote,
	}
	if req.Destination != nil {
		loc := locationOf(*req.Destination)
		b.Destination = &loc
	}
	return b
}

// applyChanges returns a copy of current with ch applied. rowVersion, zone data of
// untouched stops and a locked price survive unless ch replaces them.
func applyChanges(current *Booking, ch Changes) *Booking {
	b := current.Clone()
	if ch.PickupTime != nil {
		t := *ch.PickupTime
		b.PickupDueTime = &t
	}
	if ch.Pickup != nil {
		b.Pickup = locationOf(*ch.Pickup)
	}
	if ch.Destination != nil {
		loc := locationOf(*ch.Destination)
		b.Destination = &loc
	}
	if ch.Vias != nil {
		b.Vias = locationsOf(*ch.Vias)
		if b.Vias == nil {
			b.Vias = []platform.Location{}
		}
	}
	if ch.Passengers != nil {
		b.Passengers = *ch.Passengers
	}
	if ch.Luggage != nil {
		b.Luggage = *ch.Luggage
	}
	if ch.Price != nil {
		if strings.TrimSpace(*ch.Price) == "" {
			b.Pricing.IsManual, b.Pricing.IsLocked = false, false
		} else {
			// validated by validateChanges
			p, _ := manualPricing(*ch.Price)
			p.Cost = b.Pricing.Cost
			b.Pricing = p
		}
	}
	setString(&b.YourReferences.YourReference1, ch.Reference)
	setString(&b.YourReferences.YourReference2, ch.CustomerReference)
	setString(&b.Name, ch.Name)
	setString(&b.TelephoneNumber, ch.Phone)
	setString(&b.Email, ch.Email)
	setString(&b.DriverNote, ch.DriverNote)
	return b
}

func locationOf(st Stop) platform.Location {
	loc := platform.Location{Address: platform.Address{Text: st.Address}, Note: st.Note}
	if st.Point != nil {
		loc.Address.Coordinate = platform.Coordinate{Latitude: st.Point.Lat, Longitude: st.Point.Lng}
	}
	return loc
}

func locationsOf(stops []Stop) []platform.Location {
	if len(stops) == 0 {
		return nil
	}
	out := make([]platform.Location, len(stops))
	for i, st := range stops {
		out[i] = locationOf(st)
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func idStrings(ids []types.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
