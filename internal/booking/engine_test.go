package booking

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cscoaching/slot-booking/internal/model"
	"github.com/cscoaching/slot-booking/internal/notify"
)

// memStore mimics the SQL store's guarded updates with a single mutex:
// inside the lock every check-then-write is atomic, exactly like the
// conditional UPDATEs inside one transaction.
type memStore struct {
	mu       sync.Mutex
	slots    map[uint64]*model.Slot
	members  map[uint64]*model.Member
	bookings map[uint64]*model.Booking
	nextID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		slots:    make(map[uint64]*model.Slot),
		members:  make(map[uint64]*model.Member),
		bookings: make(map[uint64]*model.Booking),
	}
}

func (s *memStore) addSlot(id uint64, start time.Time, booked bool) {
	s.slots[id] = &model.Slot{ID: id, StartAt: start, EndAt: start.Add(time.Hour), IsBooked: booked, Location: "Hull"}
}

func (s *memStore) addMember(id uint64, email string, credits int64) {
	s.members[id] = &model.Member{ID: id, Name: "Member", Email: email, Credits: credits}
}

func (s *memStore) SlotByID(_ context.Context, id uint64) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *sl
	return &cp, nil
}

func (s *memStore) MemberByEmail(_ context.Context, email string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, ErrNotMember
}

func (s *memStore) BookingByID(_ context.Context, id uint64) (*model.BookingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	det := model.BookingDetail{Booking: *b, Slot: *s.slots[b.SlotID], Member: *s.members[b.MemberID]}
	return &det, nil
}

func (s *memStore) CreateBooking(_ context.Context, slotID, memberID uint64, notes string) (uint64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same guard order as the SQL store: spend the credit first, claim
	// the slot second, and undo the spend when the claim loses.
	m := s.members[memberID]
	if m.Credits <= 0 {
		return 0, 0, ErrNoCredits
	}
	m.Credits--
	sl := s.slots[slotID]
	if sl.IsBooked {
		m.Credits++
		return 0, 0, ErrSlotTaken
	}
	sl.IsBooked = true
	s.nextID++
	s.bookings[s.nextID] = &model.Booking{ID: s.nextID, MemberID: memberID, SlotID: slotID, Notes: notes}
	return s.nextID, m.Credits, nil
}

func (s *memStore) CancelBooking(_ context.Context, bookingID uint64, refund bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return ErrNotFound
	}
	if b.CancelledAt != nil {
		return ErrAlreadyCancelled
	}
	now := time.Now()
	b.CancelledAt = &now
	b.Refunded = refund
	s.slots[b.SlotID].IsBooked = false
	if refund {
		s.members[b.MemberID].Credits++
	}
	return nil
}

func (s *memStore) MoveBooking(_ context.Context, bookingID, oldSlotID, newSlotID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.slots[newSlotID]
	if target.IsBooked {
		return ErrTargetBooked
	}
	b := s.bookings[bookingID]
	if b.CancelledAt != nil || b.SlotID != oldSlotID {
		return ErrAlreadyCancelled
	}
	target.IsBooked = true
	b.SlotID = newSlotID
	s.slots[oldSlotID].IsBooked = false
	return nil
}

// recordingNotifier counts events per kind.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) record(kind notify.Kind, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	ev.Kind = kind
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) AdminNewBooking(_ context.Context, ev notify.Event) error {
	return n.record(notify.KindAdminNewBooking, ev)
}
func (n *recordingNotifier) MemberConfirmation(_ context.Context, ev notify.Event) error {
	return n.record(notify.KindMemberConfirmation, ev)
}
func (n *recordingNotifier) ZeroCredits(_ context.Context, ev notify.Event) error {
	return n.record(notify.KindZeroCredits, ev)
}
func (n *recordingNotifier) Reschedule(_ context.Context, ev notify.Event) error {
	return n.record(notify.KindReschedule, ev)
}
func (n *recordingNotifier) Cancellation(_ context.Context, ev notify.Event) error {
	return n.record(notify.KindCancellation, ev)
}
func (n *recordingNotifier) MemberInvite(_ context.Context, ev notify.Event) error {
	return n.record(notify.KindMemberInvite, ev)
}

func (n *recordingNotifier) count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Kind == kind {
			c++
		}
	}
	return c
}

func newTestEngine(store *memStore) (*Engine, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewEngine(store, n), n
}

func TestBookSuccess(t *testing.T) {
	store := newMemStore()
	start := time.Now().Add(48 * time.Hour)
	store.addSlot(1, start, false)
	store.addMember(10, "jo@example.com", 3)
	e, n := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "first session")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Credits)
	assert.NotZero(t, res.BookingID)
	assert.True(t, store.slots[1].IsBooked)
	assert.Equal(t, int64(2), store.members[10].Credits)

	require.Eventually(t, func() bool {
		return n.count(notify.KindAdminNewBooking) == 1 && n.count(notify.KindMemberConfirmation) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, n.count(notify.KindZeroCredits))
}

func TestBookEmailCaseInsensitive(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addMember(10, "jo@example.com", 1)
	e, _ := newTestEngine(store)

	_, err := e.Book(context.Background(), 1, "  JO@Example.COM ", "")
	require.NoError(t, err)
}

func TestBookFailureModes(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addSlot(2, time.Now().Add(49*time.Hour), true)
	store.addMember(10, "jo@example.com", 1)
	store.addMember(11, "broke@example.com", 0)
	e, _ := newTestEngine(store)
	ctx := context.Background()

	_, err := e.Book(ctx, 99, "jo@example.com", "")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = e.Book(ctx, 2, "jo@example.com", "")
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = e.Book(ctx, 1, "stranger@example.com", "")
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = e.Book(ctx, 1, "broke@example.com", "")
	assert.ErrorIs(t, err, ErrNoCredits)

	// None of the failures may have side effects.
	assert.False(t, store.slots[1].IsBooked)
	assert.Equal(t, int64(1), store.members[10].Credits)
	assert.Equal(t, int64(0), store.members[11].Credits)
}

func TestBookZeroCreditsNotice(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addMember(10, "jo@example.com", 1)
	e, n := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Credits)

	require.Eventually(t, func() bool {
		return n.count(notify.KindZeroCredits) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBookConcurrentSameSlot(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	const workers = 16
	for i := uint64(0); i < workers; i++ {
		store.addMember(100+i, "m"+string(rune('a'+i))+"@example.com", 5)
	}
	e, _ := newTestEngine(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0
	for i := uint64(0); i < workers; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			_, err := e.Book(context.Background(), 1, "m"+string(rune('a'+i))+"@example.com", "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, ErrSlotTaken)
				losses++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, losses)

	// Exactly one credit was spent; every loser got theirs back.
	var total int64
	for _, m := range store.members {
		total += m.Credits
	}
	assert.Equal(t, int64(workers*5-1), total)
}

func TestBookConcurrentNoOverdraft(t *testing.T) {
	store := newMemStore()
	const slots = 8
	for i := uint64(1); i <= slots; i++ {
		store.addSlot(i, time.Now().Add(time.Duration(48+i)*time.Hour), false)
	}
	store.addMember(10, "jo@example.com", 1)
	e, _ := newTestEngine(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := uint64(1); i <= slots; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			if _, err := e.Book(context.Background(), i, "jo@example.com", ""); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(0), store.members[10].Credits)
}

func TestCancelByMemberRefundCutoff(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name       string
		startIn    time.Duration
		wantRefund bool
	}{
		{"well before cutoff", 25 * time.Hour, true},
		{"inside cutoff", 23 * time.Hour, false},
		{"exactly at cutoff", 24 * time.Hour, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.addSlot(1, now.Add(tc.startIn), false)
			store.addMember(10, "jo@example.com", 1)
			e, _ := newTestEngine(store)
			e.now = func() time.Time { return now }

			res, err := e.Book(context.Background(), 1, "jo@example.com", "")
			require.NoError(t, err)

			got, err := e.CancelByMember(context.Background(), res.BookingID, 10)
			require.NoError(t, err)
			assert.Equal(t, tc.wantRefund, got.Refunded)
			assert.False(t, store.slots[1].IsBooked)

			want := int64(0)
			if tc.wantRefund {
				want = 1
			}
			assert.Equal(t, want, store.members[10].Credits)
		})
	}
}

func TestCancelByMemberOwnership(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addMember(10, "jo@example.com", 1)
	store.addMember(11, "sam@example.com", 1)
	e, _ := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "")
	require.NoError(t, err)

	// Someone else's booking looks like it does not exist.
	_, err = e.CancelByMember(context.Background(), res.BookingID, 11)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.CancelByMember(context.Background(), 999, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelTwice(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addMember(10, "jo@example.com", 2)
	e, _ := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "")
	require.NoError(t, err)

	_, err = e.CancelByMember(context.Background(), res.BookingID, 10)
	require.NoError(t, err)

	_, err = e.CancelByMember(context.Background(), res.BookingID, 10)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	// The refund must not have been applied twice.
	assert.Equal(t, int64(2), store.members[10].Credits)
}

func TestCancelByAdmin(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(2*time.Hour), false) // inside the cutoff
	store.addMember(10, "jo@example.com", 1)
	e, n := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "")
	require.NoError(t, err)

	// The admin's explicit refund overrides the cutoff rule.
	got, err := e.CancelByAdmin(context.Background(), res.BookingID, true)
	require.NoError(t, err)
	assert.True(t, got.Refunded)
	assert.Equal(t, int64(1), store.members[10].Credits)
	assert.False(t, store.slots[1].IsBooked)

	require.Eventually(t, func() bool {
		return n.count(notify.KindCancellation) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCancelByAdminNoRefund(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(72*time.Hour), false)
	store.addMember(10, "jo@example.com", 1)
	e, _ := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "")
	require.NoError(t, err)

	got, err := e.CancelByAdmin(context.Background(), res.BookingID, false)
	require.NoError(t, err)
	assert.False(t, got.Refunded)
	assert.Equal(t, int64(0), store.members[10].Credits)
}

func TestMove(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addSlot(2, time.Now().Add(72*time.Hour), false)
	store.addMember(10, "jo@example.com", 1)
	e, n := newTestEngine(store)

	res, err := e.Book(context.Background(), 1, "jo@example.com", "")
	require.NoError(t, err)

	newSlot, err := e.Move(context.Background(), res.BookingID, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), newSlot)
	assert.False(t, store.slots[1].IsBooked)
	assert.True(t, store.slots[2].IsBooked)
	assert.Equal(t, uint64(2), store.bookings[res.BookingID].SlotID)
	// A move never touches the balance.
	assert.Equal(t, int64(0), store.members[10].Credits)

	require.Eventually(t, func() bool {
		return n.count(notify.KindReschedule) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCancelAfterMoveFreesCurrentSlot(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addSlot(2, time.Now().Add(72*time.Hour), false)
	store.addMember(10, "jo@example.com", 1)
	e, _ := newTestEngine(store)
	ctx := context.Background()

	res, err := e.Book(ctx, 1, "jo@example.com", "")
	require.NoError(t, err)
	_, err = e.Move(ctx, res.BookingID, 2)
	require.NoError(t, err)

	_, err = e.CancelByAdmin(ctx, res.BookingID, true)
	require.NoError(t, err)

	// The slot released is the one the booking held at cancel time,
	// not the one it was originally created against.
	assert.False(t, store.slots[1].IsBooked)
	assert.False(t, store.slots[2].IsBooked)
	assert.Equal(t, int64(1), store.members[10].Credits)
}

func TestMoveFailureModes(t *testing.T) {
	store := newMemStore()
	store.addSlot(1, time.Now().Add(48*time.Hour), false)
	store.addSlot(2, time.Now().Add(72*time.Hour), true)
	store.addSlot(3, time.Now().Add(-2*time.Hour), false)
	store.addMember(10, "jo@example.com", 2)
	e, _ := newTestEngine(store)
	ctx := context.Background()

	res, err := e.Book(ctx, 1, "jo@example.com", "")
	require.NoError(t, err)

	_, err = e.Move(ctx, res.BookingID, 99)
	assert.ErrorIs(t, err, ErrTargetNotFound)

	_, err = e.Move(ctx, res.BookingID, 2)
	assert.ErrorIs(t, err, ErrTargetBooked)

	_, err = e.Move(ctx, res.BookingID, 3)
	assert.ErrorIs(t, err, ErrTargetInPast)

	_, err = e.Move(ctx, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// A cancelled booking cannot be moved.
	_, err = e.CancelByMember(ctx, res.BookingID, 10)
	require.NoError(t, err)
	_, err = e.Move(ctx, res.BookingID, 1)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}
