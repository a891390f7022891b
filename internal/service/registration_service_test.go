package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/arvelin/class-booking/internal/model"
	"github.com/arvelin/class-booking/internal/repository"
)

// memStore is an in-memory Store with the same transactional semantics as
// the MySQL-backed one: a single mutex stands in for the row locks, so
// every state-machine step is atomic with its counter mutation.
type memStore struct {
	mu      sync.Mutex
	nextID  uint64
	classes map[uint64]*model.ClassInstance
	regs    map[uint64]*model.Registration
	wait    map[uint64][]model.WaitlistCandidate
	emails  map[uint64]string
	names   map[uint64]string
}

func newMemStore() *memStore {
	return &memStore{
		nextID:  1,
		classes: make(map[uint64]*model.ClassInstance),
		regs:    make(map[uint64]*model.Registration),
		wait:    make(map[uint64][]model.WaitlistCandidate),
		emails:  make(map[uint64]string),
		names:   make(map[uint64]string),
	}
}

func (m *memStore) addClass(capacity uint32) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.classes[id] = &model.ClassInstance{
		ID:          id,
		TemplateID:  1,
		StartsAt:    time.Now().UTC().Add(48 * time.Hour),
		MaxCapacity: capacity,
		Status:      model.ClassUpcoming,
	}
	return id
}

func (m *memStore) GetClass(_ context.Context, classID uint64) (*model.ClassInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ci, ok := m.classes[classID]
	if !ok {
		return nil, repository.ErrClassNotFound
	}
	cp := *ci
	return &cp, nil
}

func (m *memStore) GetRegistration(_ context.Context, id uint64) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (m *memStore) CreateRegistration(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ci, ok := m.classes[reg.ClassID]
	if !ok {
		return repository.ErrClassNotFound
	}
	if ci.Status != model.ClassUpcoming {
		return repository.ErrClassNotBookable
	}
	if ci.CurrentBookings >= ci.MaxCapacity {
		return repository.ErrClassFull
	}
	reg.ID = m.nextID
	m.nextID++
	reg.CreatedAt = time.Now().UTC()
	cp := *reg
	m.regs[reg.ID] = &cp
	ci.CurrentBookings++
	return nil
}

func (m *memStore) ConfirmRegistration(_ context.Context, id uint64, now time.Time) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	if reg.Status != model.RegistrationReserved {
		return nil, repository.ErrConflict
	}
	if reg.ReservedUntil == nil || now.After(*reg.ReservedUntil) {
		return nil, repository.ErrReservationExpired
	}
	reg.Status = model.RegistrationConfirmed
	reg.UserConfirmedTransfer = true
	cp := *reg
	return &cp, nil
}

func (m *memStore) CancelRegistration(_ context.Context, id uint64, reason string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrRegistrationNotFound
	}
	if !reg.Live() {
		return nil, repository.ErrConflict
	}
	reg.Status = model.RegistrationCancelled
	reg.CancelReason = &reason
	if ci, ok := m.classes[reg.ClassID]; ok && ci.CurrentBookings > 0 {
		ci.CurrentBookings--
	}
	cp := *reg
	return &cp, nil
}

func (m *memStore) DeleteRegistration(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	if reg.Live() {
		if ci, ok := m.classes[reg.ClassID]; ok && ci.CurrentBookings > 0 {
			ci.CurrentBookings--
		}
	}
	delete(m.regs, id)
	return nil
}

func (m *memStore) ExpireHolds(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, reg := range m.regs {
		if reg.Status != model.RegistrationReserved {
			continue
		}
		if reg.ReservedUntil == nil || now.Before(*reg.ReservedUntil) {
			continue
		}
		reason := model.CancelHoldExpired
		reg.Status = model.RegistrationCancelled
		reg.CancelReason = &reason
		if ci, ok := m.classes[reg.ClassID]; ok && ci.CurrentBookings > 0 {
			ci.CurrentBookings--
		}
		count++
	}
	return count, nil
}

func (m *memStore) ExpirePaymentDeadlines(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, reg := range m.regs {
		if !reg.Live() || reg.AdminVerifiedPayment || now.Before(reg.PaymentDeadline) {
			continue
		}
		reason := model.CancelPaymentDeadline
		reg.Status = model.RegistrationCancelled
		reg.CancelReason = &reason
		if ci, ok := m.classes[reg.ClassID]; ok && ci.CurrentBookings > 0 {
			ci.CurrentBookings--
		}
		count++
	}
	return count, nil
}

func (m *memStore) ListRegistrationsByClass(_ context.Context, classID uint64) ([]model.RegistrationWithClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RegistrationWithClient
	for _, reg := range m.regs {
		if reg.ClassID == classID {
			out = append(out, model.RegistrationWithClient{
				Registration: *reg,
				ClientEmail:  m.emails[reg.ClientID],
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListRegistrationsByClient(_ context.Context, clientID uint64) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Registration
	for _, reg := range m.regs {
		if reg.ClientID == clientID {
			out = append(out, *reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) ReconcileAll(_ context.Context) ([]model.CounterFix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CounterFix
	for id := range m.classes {
		if fix := m.reconcileLocked(id); fix != nil {
			out = append(out, *fix)
		}
	}
	return out, nil
}

func (m *memStore) reconcileLocked(classID uint64) *model.CounterFix {
	ci, ok := m.classes[classID]
	if !ok {
		return nil
	}
	var confirmed uint32
	for _, reg := range m.regs {
		if reg.ClassID == classID && reg.Status == model.RegistrationConfirmed {
			confirmed++
		}
	}
	if ci.CurrentBookings == confirmed {
		return nil
	}
	fix := &model.CounterFix{ClassID: classID, OldCount: ci.CurrentBookings, NewCount: confirmed}
	ci.CurrentBookings = confirmed
	return fix
}

func (m *memStore) NextWaitlisted(_ context.Context, classID uint64) (*model.WaitlistCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.wait[classID]
	if len(q) == 0 {
		return nil, nil
	}
	cp := q[0]
	return &cp, nil
}

func (m *memStore) JoinWaitlist(_ context.Context, classID, clientID uint64) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cand := range m.wait[classID] {
		if cand.ClientID == clientID {
			return nil, repository.ErrAlreadyWaitlisted
		}
	}
	pos := uint32(len(m.wait[classID]) + 1)
	m.wait[classID] = append(m.wait[classID], model.WaitlistCandidate{
		ClientID: clientID,
		Email:    m.emails[clientID],
		Position: pos,
	})
	return &model.WaitlistEntry{ClassID: classID, ClientID: clientID, Position: pos}, nil
}

func (m *memStore) VerifyPayment(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	reg.AdminVerifiedPayment = true
	reg.PaymentStatus = model.PaymentPaid
	return nil
}

func (m *memStore) SetAttended(_ context.Context, id uint64, attended bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return repository.ErrRegistrationNotFound
	}
	reg.Attended = attended
	return nil
}

func (m *memStore) ClientEmail(_ context.Context, clientID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emails[clientID], nil
}

func (m *memStore) ClassName(_ context.Context, classID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names[classID], nil
}

func (m *memStore) bookings(classID uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classes[classID].CurrentBookings
}

func newTestService(store *memStore) *RegistrationService {
	return NewRegistrationService(store, nil, nil, 10*time.Minute, 24*time.Hour)
}

func TestReserveSeatNeverOversells(t *testing.T) {
	store := newMemStore()
	const capacity = 10
	classID := store.addClass(capacity)
	svc := newTestService(store)

	const attempts = capacity + 15
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ReserveSeat(context.Background(), classID, uint64(100+i), 2500, model.MethodBankTransfer)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	won, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrClassFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != capacity {
		t.Fatalf("won = %d, want %d", won, capacity)
	}
	if full != attempts-capacity {
		t.Fatalf("full = %d, want %d", full, attempts-capacity)
	}
	if got := store.bookings(classID); got != capacity {
		t.Fatalf("current_bookings = %d, want %d", got, capacity)
	}
}

func TestLastSeatRaceHasOneWinner(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(1)
	svc := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ReserveSeat(context.Background(), classID, uint64(1+i), 2500, "")
			errs[i] = err
		}(i)
	}
	wg.Wait()

	if (errs[0] == nil) == (errs[1] == nil) {
		t.Fatalf("want exactly one winner, got errs %v / %v", errs[0], errs[1])
	}
	if got := store.bookings(classID); got != 1 {
		t.Fatalf("current_bookings = %d, want 1", got)
	}
}

func TestReserveSeatValidation(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(5)
	svc := newTestService(store)

	if _, err := svc.ReserveSeat(context.Background(), classID, 1, 0, model.MethodBankTransfer); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.ReserveSeat(context.Background(), classID, 1, 2500, "crypto"); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("bad method: got %v, want ErrInvalidPaymentMethod", err)
	}
	if got := store.bookings(classID); got != 0 {
		t.Fatalf("current_bookings = %d after rejected reserves, want 0", got)
	}

	reg, err := svc.ReserveSeat(context.Background(), classID, 1, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if reg.PaymentMethod != model.MethodBankTransfer {
		t.Fatalf("method = %q, want default bank_transfer", reg.PaymentMethod)
	}
	if reg.Status != model.RegistrationReserved {
		t.Fatalf("status = %q, want reserved", reg.Status)
	}
	if reg.ReservedUntil == nil {
		t.Fatal("ReservedUntil not set")
	}
	if reg.PaymentReference == "" {
		t.Fatal("payment reference not assigned")
	}
}

func TestConfirmReservation(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(3)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	confirmed, err := svc.ConfirmReservation(context.Background(), reg.ID, 7)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != model.RegistrationConfirmed {
		t.Fatalf("status = %q, want confirmed", confirmed.Status)
	}
	if !confirmed.UserConfirmedTransfer {
		t.Fatal("UserConfirmedTransfer not set")
	}
	// Confirming does not double-count the seat.
	if got := store.bookings(classID); got != 1 {
		t.Fatalf("current_bookings = %d, want 1", got)
	}

	// A confirmed registration cannot be confirmed again.
	if _, err := svc.ConfirmReservation(context.Background(), reg.ID, 7); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("re-confirm: got %v, want ErrConflict", err)
	}
}

func TestConfirmByNonOwnerIsForbidden(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(3)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.ConfirmReservation(context.Background(), reg.ID, 8); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	got, _ := store.GetRegistration(context.Background(), reg.ID)
	if got.Status != model.RegistrationReserved {
		t.Fatalf("status = %q after forbidden confirm, want reserved", got.Status)
	}
}

func TestConfirmAfterHoldLapse(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(3)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	store.mu.Lock()
	store.regs[reg.ID].ReservedUntil = &past
	store.mu.Unlock()

	if _, err := svc.ConfirmReservation(context.Background(), reg.ID, 7); !errors.Is(err, repository.ErrReservationExpired) {
		t.Fatalf("got %v, want ErrReservationExpired", err)
	}
	// The row stays reserved for the reaper; confirm never cancels it.
	got, _ := store.GetRegistration(context.Background(), reg.ID)
	if got.Status != model.RegistrationReserved {
		t.Fatalf("status = %q, want reserved", got.Status)
	}
	if store.bookings(classID) != 1 {
		t.Fatal("seat released by a failed confirm")
	}
}

func TestCancelReleasesSeat(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	res, err := svc.CancelRegistration(context.Background(), reg.ID, 7, false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Registration.Status != model.RegistrationCancelled {
		t.Fatalf("status = %q, want cancelled", res.Registration.Status)
	}
	if res.Registration.CancelReason == nil || *res.Registration.CancelReason != model.CancelByClient {
		t.Fatalf("cancel reason = %v, want client_cancelled", res.Registration.CancelReason)
	}
	if got := store.bookings(classID); got != 0 {
		t.Fatalf("current_bookings = %d, want 0", got)
	}

	// Cancelling again is a conflict, not a second decrement.
	if _, err := svc.CancelRegistration(context.Background(), reg.ID, 7, false); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("re-cancel: got %v, want ErrConflict", err)
	}
	if got := store.bookings(classID); got != 0 {
		t.Fatalf("current_bookings = %d after re-cancel, want 0", got)
	}
}

func TestCancelByStrangerIsForbidden(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.CancelRegistration(context.Background(), reg.ID, 9, false); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if got := store.bookings(classID); got != 1 {
		t.Fatalf("current_bookings = %d after forbidden cancel, want 1", got)
	}
}

func TestAdminCancelRecordsReason(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	res, err := svc.CancelRegistration(context.Background(), reg.ID, 1, true)
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if res.Registration.CancelReason == nil || *res.Registration.CancelReason != model.CancelByAdmin {
		t.Fatalf("cancel reason = %v, want admin_cancelled", res.Registration.CancelReason)
	}
}

func TestCancelSurfacesNextWaitlisted(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(1)
	store.emails[42] = "waiting@example.com"
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.JoinWaitlist(context.Background(), classID, 42); err != nil {
		t.Fatalf("join waitlist: %v", err)
	}

	res, err := svc.CancelRegistration(context.Background(), reg.ID, 7, false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.NextWaitlisted == nil {
		t.Fatal("no waitlist candidate surfaced")
	}
	if res.NextWaitlisted.ClientID != 42 {
		t.Fatalf("candidate = %d, want 42", res.NextWaitlisted.ClientID)
	}
	// Surfacing is informational only; the seat stays free.
	if got := store.bookings(classID); got != 0 {
		t.Fatalf("current_bookings = %d, want 0", got)
	}
}

func TestJoinWaitlistRequiresFullClass(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	if _, err := svc.JoinWaitlist(context.Background(), classID, 42); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("join with free seats: got %v, want ErrConflict", err)
	}

	if _, err := svc.ReserveSeat(context.Background(), classID, 1, 2500, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReserveSeat(context.Background(), classID, 2, 2500, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.JoinWaitlist(context.Background(), classID, 42); err != nil {
		t.Fatalf("join full class: %v", err)
	}
	if _, err := svc.JoinWaitlist(context.Background(), classID, 42); !errors.Is(err, repository.ErrAlreadyWaitlisted) {
		t.Fatalf("double join: got %v, want ErrAlreadyWaitlisted", err)
	}
}

func TestRegisterDirect(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	reg, err := svc.RegisterDirect(context.Background(), classID, 7, DirectRegistration{AmountCents: 3000})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Status != model.RegistrationConfirmed {
		t.Fatalf("status = %q, want confirmed", reg.Status)
	}
	if reg.ReservedUntil != nil {
		t.Fatal("direct registration must not carry a hold window")
	}
	if got := store.bookings(classID); got != 1 {
		t.Fatalf("current_bookings = %d, want 1", got)
	}
}

func TestAdminDeleteReleasesLiveSeat(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	reg, err := svc.RegisterDirect(context.Background(), classID, 7, DirectRegistration{AmountCents: 3000})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AdminDeleteRegistration(context.Background(), reg.ID, false); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("non-admin delete: got %v, want ErrForbidden", err)
	}
	if err := svc.AdminDeleteRegistration(context.Background(), reg.ID, true); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if got := store.bookings(classID); got != 0 {
		t.Fatalf("current_bookings = %d, want 0", got)
	}
	if _, err := store.GetRegistration(context.Background(), reg.ID); !errors.Is(err, repository.ErrRegistrationNotFound) {
		t.Fatalf("row still present: %v", err)
	}
}

func TestSweepExpiredHolds(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(5)
	svc := newTestService(store)

	lapsed, err := svc.ReserveSeat(context.Background(), classID, 1, 2500, "")
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := svc.ReserveSeat(context.Background(), classID, 2, 2500, "")
	if err != nil {
		t.Fatal(err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	store.mu.Lock()
	store.regs[lapsed.ID].ReservedUntil = &past
	store.mu.Unlock()

	n, err := svc.SweepExpiredHolds(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed = %d, want 1", n)
	}
	got, _ := store.GetRegistration(context.Background(), lapsed.ID)
	if got.Status != model.RegistrationCancelled {
		t.Fatalf("lapsed status = %q, want cancelled", got.Status)
	}
	if got.CancelReason == nil || *got.CancelReason != model.CancelHoldExpired {
		t.Fatalf("cancel reason = %v, want hold_expired", got.CancelReason)
	}
	still, _ := store.GetRegistration(context.Background(), fresh.ID)
	if still.Status != model.RegistrationReserved {
		t.Fatalf("fresh status = %q, want reserved", still.Status)
	}
	if bookings := store.bookings(classID); bookings != 1 {
		t.Fatalf("current_bookings = %d, want 1", bookings)
	}

	// A second sweep finds nothing and releases nothing twice.
	n, err = svc.SweepExpiredHolds(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second sweep = (%d, %v), want (0, nil)", n, err)
	}
	if bookings := store.bookings(classID); bookings != 1 {
		t.Fatalf("current_bookings = %d after second sweep, want 1", bookings)
	}
}

func TestSweepPaymentDeadlines(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(5)
	svc := newTestService(store)

	unpaid, err := svc.RegisterDirect(context.Background(), classID, 1, DirectRegistration{AmountCents: 3000})
	if err != nil {
		t.Fatal(err)
	}
	paid, err := svc.RegisterDirect(context.Background(), classID, 2, DirectRegistration{AmountCents: 3000})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyPayment(context.Background(), paid.ID, true); err != nil {
		t.Fatal(err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	store.mu.Lock()
	store.regs[unpaid.ID].PaymentDeadline = past
	store.regs[paid.ID].PaymentDeadline = past
	store.mu.Unlock()

	n, err := svc.SweepPaymentDeadlines(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("reclaimed = %d, want 1", n)
	}
	gone, _ := store.GetRegistration(context.Background(), unpaid.ID)
	if gone.Status != model.RegistrationCancelled {
		t.Fatalf("unpaid status = %q, want cancelled", gone.Status)
	}
	kept, _ := store.GetRegistration(context.Background(), paid.ID)
	if kept.Status != model.RegistrationConfirmed {
		t.Fatalf("verified status = %q, want confirmed", kept.Status)
	}
	if bookings := store.bookings(classID); bookings != 1 {
		t.Fatalf("current_bookings = %d, want 1", bookings)
	}
}

func TestVerifyPaymentRequiresAdmin(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(2)
	svc := newTestService(store)

	reg, err := svc.RegisterDirect(context.Background(), classID, 7, DirectRegistration{AmountCents: 3000})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.VerifyPayment(context.Background(), reg.ID, false); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	verified, err := svc.VerifyPayment(context.Background(), reg.ID, true)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.AdminVerifiedPayment || verified.PaymentStatus != model.PaymentPaid {
		t.Fatalf("verify did not stick: %+v", verified)
	}
}

func TestReconcileCounters(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(10)
	svc := newTestService(store)

	reg, err := svc.ReserveSeat(context.Background(), classID, 7, 2500, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ConfirmReservation(context.Background(), reg.ID, 7); err != nil {
		t.Fatal(err)
	}
	// Simulate historical drift.
	store.mu.Lock()
	store.classes[classID].CurrentBookings = 5
	store.mu.Unlock()

	fixed, err := svc.ReconcileCounters(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(fixed) != 1 {
		t.Fatalf("repaired %d classes, want 1", len(fixed))
	}
	if fixed[0].OldCount != 5 || fixed[0].NewCount != 1 {
		t.Fatalf("fix = %+v, want 5 -> 1", fixed[0])
	}
	if got := store.bookings(classID); got != 1 {
		t.Fatalf("current_bookings = %d, want 1", got)
	}

	// Reconciling a consistent ledger is a no-op.
	fixed, err = svc.ReconcileCounters(context.Background())
	if err != nil || len(fixed) != 0 {
		t.Fatalf("second reconcile = (%v, %v), want no repairs", fixed, err)
	}
}

func TestReserveOnNonUpcomingClass(t *testing.T) {
	store := newMemStore()
	classID := store.addClass(5)
	store.mu.Lock()
	store.classes[classID].Status = model.ClassCancelled
	store.mu.Unlock()
	svc := newTestService(store)

	if _, err := svc.ReserveSeat(context.Background(), classID, 1, 2500, ""); !errors.Is(err, repository.ErrClassNotBookable) {
		t.Fatalf("got %v, want ErrClassNotBookable", err)
	}
}
