package bookingengine_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/naksha/availability-core/internal/bookingengine"
	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/client"
	"github.com/naksha/availability-core/internal/coherence"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// mockNotifier records every SessionBooked call instead of reaching out over
// HTTP, mirroring the teacher's MockEventPublisher/MockNotificationClient
// pattern.
type mockNotifier struct {
	mu    sync.Mutex
	calls []string // session IDs notified
}

func (m *mockNotifier) SessionBooked(ctx context.Context, session *models.Session, cl *models.Client, consultantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, session.ID)
}

func (m *mockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockNotifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockProvisioner lets a test opt into a deterministic meeting link, or
// simulate a provisioner that is simply not configured (nil, nil).
type mockProvisioner struct {
	details *client.MeetingDetails
	err     error
}

func (m *mockProvisioner) Create(ctx context.Context, sessionID string) (*client.MeetingDetails, error) {
	return m.details, m.err
}

type BookingEngineTestSuite struct {
	suite.Suite
	DB       *gorm.DB
	Engine   *bookingengine.Engine
	Notifier *mockNotifier
	Clock    coreclock.Fixed
}

func (suite *BookingEngineTestSuite) SetupSuite() {
	dsn := "host=localhost user=postgres password=postgres dbname=availability_core_test port=5432 sslmode=disable"
	if envURL := os.Getenv("TEST_DATABASE_URL"); envURL != "" {
		dsn = envURL
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		suite.T().Fatalf("failed to connect to postgres: %v", err)
	}
	suite.DB = db

	err = suite.DB.AutoMigrate(&models.Consultant{}, &models.Client{}, &models.Session{}, &models.AvailabilitySlot{})
	assert.NoError(suite.T(), err)
}

func (suite *BookingEngineTestSuite) TearDownSuite() {
	sqlDB, _ := suite.DB.DB()
	sqlDB.Close()
}

func (suite *BookingEngineTestSuite) SetupTest() {
	suite.DB.Exec("DELETE FROM session")
	suite.DB.Exec("DELETE FROM client")
	suite.DB.Exec("DELETE FROM availability_slot")
	suite.DB.Exec("DELETE FROM consultants")

	suite.Notifier = &mockNotifier{}
	suite.Clock = coreclock.Fixed{At: time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)} // a Monday

	coreStore := store.New(suite.DB)
	coreCache := cache.New(nil, logger.New("debug")) // no Redis: lock is always-free, §9's fallback.
	coh := coherence.New(coreCache, nil, nil, suite.Clock, logger.New("debug"))
	suite.Engine = bookingengine.New(coreStore, coh, suite.Notifier, &mockProvisioner{}, suite.Clock, logger.New("debug"))
}

func (suite *BookingEngineTestSuite) seedConsultant(slug string) *models.Consultant {
	c := &models.Consultant{ID: uuid.New().String(), Slug: slug, IsActive: true}
	assert.NoError(suite.T(), suite.DB.Create(c).Error)
	return c
}

func (suite *BookingEngineTestSuite) seedSlot(consultantID string, sessionType models.SessionType, date time.Time, startTime string) {
	slot := models.AvailabilitySlot{
		ConsultantID: consultantID,
		SessionType:  sessionType,
		Date:         date,
		StartTime:    startTime,
		EndTime:      "10:00",
	}
	assert.NoError(suite.T(), suite.DB.Create(&slot).Error)
}

func (suite *BookingEngineTestSuite) TestBook_Success() {
	t := suite.T()
	ctx := context.Background()
	consultant := suite.seedConsultant("jane-doe")
	date := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC) // the day after the fixed clock
	suite.seedSlot(consultant.ID, models.SessionTypePersonal, date, "09:00")

	session, err := suite.Engine.Book(ctx, bookingengine.BookRequest{
		ConsultantSlug:  "jane-doe",
		SessionType:     models.SessionTypePersonal,
		Date:            "2026-08-11",
		Time:            "09:00",
		DurationMinutes: 60,
		ClientFullName:  "Alex Client",
		ClientEmail:     "alex@example.com",
		Amount:          50,
	})
	assert.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, models.SessionStatusPending, session.Status)

	var slot models.AvailabilitySlot
	assert.NoError(t, suite.DB.Where("consultant_id = ? AND start_time = ?", consultant.ID, "09:00").First(&slot).Error)
	assert.True(t, slot.IsBooked)
	assert.Equal(t, session.ID, *slot.SessionID)

	assert.Equal(t, 1, suite.Notifier.CallCount())

	var cl models.Client
	assert.NoError(t, suite.DB.Where("consultant_id = ? AND email = ?", consultant.ID, "alex@example.com").First(&cl).Error)
	assert.Equal(t, 1, cl.TotalSessions)
	assert.Equal(t, float64(50), cl.TotalAmountPaid)
}

func (suite *BookingEngineTestSuite) TestBook_SlotAlreadyBooked() {
	t := suite.T()
	ctx := context.Background()
	consultant := suite.seedConsultant("busy-bob")
	date := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)
	suite.seedSlot(consultant.ID, models.SessionTypePersonal, date, "09:00")

	req := bookingengine.BookRequest{
		ConsultantSlug:  "busy-bob",
		SessionType:     models.SessionTypePersonal,
		Date:            "2026-08-11",
		Time:            "09:00",
		DurationMinutes: 60,
		ClientEmail:     "first@example.com",
	}
	_, err := suite.Engine.Book(ctx, req)
	assert.NoError(t, err)

	req.ClientEmail = "second@example.com"
	_, err = suite.Engine.Book(ctx, req)
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.SlotTaken, ce.Kind)
}

func (suite *BookingEngineTestSuite) TestBook_NoSuchSlot() {
	t := suite.T()
	ctx := context.Background()
	suite.seedConsultant("no-slots")

	_, err := suite.Engine.Book(ctx, bookingengine.BookRequest{
		ConsultantSlug:  "no-slots",
		SessionType:     models.SessionTypePersonal,
		Date:            "2026-08-11",
		Time:            "09:00",
		DurationMinutes: 60,
		ClientEmail:     "alex@example.com",
	})
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.NotFound, ce.Kind)
}

func (suite *BookingEngineTestSuite) TestBook_RejectsPastTime() {
	t := suite.T()
	ctx := context.Background()
	consultant := suite.seedConsultant("past-timer")
	past := time.Date(2026, 8, 9, 0, 0, 0, 0, time.UTC) // before the fixed clock's date
	suite.seedSlot(consultant.ID, models.SessionTypePersonal, past, "09:00")

	_, err := suite.Engine.Book(ctx, bookingengine.BookRequest{
		ConsultantSlug:  "past-timer",
		SessionType:     models.SessionTypePersonal,
		Date:            "2026-08-09",
		Time:            "09:00",
		DurationMinutes: 60,
		ClientEmail:     "alex@example.com",
	})
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.BadInput, ce.Kind)
}

func (suite *BookingEngineTestSuite) TestBook_RejectsOverlongDuration() {
	t := suite.T()
	ctx := context.Background()
	suite.seedConsultant("too-long")

	_, err := suite.Engine.Book(ctx, bookingengine.BookRequest{
		ConsultantSlug:  "too-long",
		SessionType:     models.SessionTypePersonal,
		Date:            "2026-08-11",
		Time:            "09:00",
		DurationMinutes: 61,
		ClientEmail:     "alex@example.com",
	})
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.BadInput, ce.Kind)
}

func (suite *BookingEngineTestSuite) TestCancel_ReleasesSlotAndIsIdempotent() {
	t := suite.T()
	ctx := context.Background()
	consultant := suite.seedConsultant("cancel-me")
	date := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)
	suite.seedSlot(consultant.ID, models.SessionTypePersonal, date, "09:00")

	session, err := suite.Engine.Book(ctx, bookingengine.BookRequest{
		ConsultantSlug:  "cancel-me",
		SessionType:     models.SessionTypePersonal,
		Date:            "2026-08-11",
		Time:            "09:00",
		DurationMinutes: 60,
		ClientEmail:     "alex@example.com",
	})
	assert.NoError(t, err)

	assert.NoError(t, suite.Engine.Cancel(ctx, session.ID, "cancel-me"))

	var slot models.AvailabilitySlot
	assert.NoError(t, suite.DB.Where("consultant_id = ? AND start_time = ?", consultant.ID, "09:00").First(&slot).Error)
	assert.False(t, slot.IsBooked)
	assert.Nil(t, slot.SessionID)

	var sess models.Session
	assert.NoError(t, suite.DB.First(&sess, "id = ?", session.ID).Error)
	assert.Equal(t, models.SessionStatusCancelled, sess.Status)

	// Cancelling again is a no-op, not an error.
	assert.NoError(t, suite.Engine.Cancel(ctx, session.ID, "cancel-me"))
}

// TestBook_ConcurrentRequestsOnlyOneWins fires N goroutines at the same slot
// concurrently and asserts ClaimSlot's atomic conditional UPDATE admits
// exactly one of them, per SPEC_FULL.md's double-book race boundary (S4).
func (suite *BookingEngineTestSuite) TestBook_ConcurrentRequestsOnlyOneWins() {
	t := suite.T()
	consultant := suite.seedConsultant("race-condition")
	date := time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)
	suite.seedSlot(consultant.ID, models.SessionTypePersonal, date, "09:00")

	const attempts = 10
	var wg sync.WaitGroup
	var successes int32
	var failures int32

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := suite.Engine.Book(context.Background(), bookingengine.BookRequest{
				ConsultantSlug:  "race-condition",
				SessionType:     models.SessionTypePersonal,
				Date:            "2026-08-11",
				Time:            "09:00",
				DurationMinutes: 60,
				ClientEmail:     uuid.New().String() + "@example.com",
			})
			if err == nil {
				atomic.AddInt32(&successes, 1)
				return
			}
			ce, ok := coreerr.As(err)
			assert.True(t, ok)
			assert.Equal(t, coreerr.SlotTaken, ce.Kind)
			atomic.AddInt32(&failures, 1)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes)
	assert.EqualValues(t, attempts-1, failures)

	var sessionCount int64
	assert.NoError(t, suite.DB.Model(&models.Session{}).
		Where("consultant_id = ?", consultant.ID).Count(&sessionCount).Error)
	assert.EqualValues(t, 1, sessionCount)
}

func (suite *BookingEngineTestSuite) TestCancel_UnknownSession() {
	t := suite.T()
	err := suite.Engine.Cancel(context.Background(), uuid.New().String(), "")
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.NotFound, ce.Kind)
}

func TestBookingEngineTestSuite(t *testing.T) {
	suite.Run(t, new(BookingEngineTestSuite))
}
