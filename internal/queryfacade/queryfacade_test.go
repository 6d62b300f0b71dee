package queryfacade_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/queryfacade"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type QueryFacadeTestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Facade *queryfacade.Facade
	Clock  coreclock.Fixed
}

func (suite *QueryFacadeTestSuite) SetupSuite() {
	dsn := "host=localhost user=postgres password=postgres dbname=availability_core_test port=5432 sslmode=disable"
	if envURL := os.Getenv("TEST_DATABASE_URL"); envURL != "" {
		dsn = envURL
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		suite.T().Fatalf("failed to connect to postgres: %v", err)
	}
	suite.DB = db
	assert.NoError(suite.T(), suite.DB.AutoMigrate(&models.Consultant{}, &models.AvailabilitySlot{}))
}

func (suite *QueryFacadeTestSuite) TearDownSuite() {
	sqlDB, _ := suite.DB.DB()
	sqlDB.Close()
}

func (suite *QueryFacadeTestSuite) SetupTest() {
	suite.DB.Exec("DELETE FROM availability_slot")
	suite.DB.Exec("DELETE FROM consultants")
	suite.Clock = coreclock.Fixed{At: time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)}

	coreCache := cache.New(nil, logger.New("debug")) // cache miss every call: assertions hit the DB path directly.
	suite.Facade = queryfacade.New(store.New(suite.DB), coreCache, suite.Clock, 30, logger.New("debug"))
}

func (suite *QueryFacadeTestSuite) seedConsultantWithSlots(slug string, n int) string {
	id := uuid.New().String()
	assert.NoError(suite.T(), suite.DB.Create(&models.Consultant{ID: id, Slug: slug, IsActive: true}).Error)
	for i := 0; i < n; i++ {
		slot := models.AvailabilitySlot{
			ConsultantID: id,
			SessionType:  models.SessionTypePersonal,
			Date:         suite.Clock.At.AddDate(0, 0, i+1),
			StartTime:    "09:00",
			EndTime:      "10:00",
		}
		assert.NoError(suite.T(), suite.DB.Create(&slot).Error)
	}
	return id
}

func (suite *QueryFacadeTestSuite) TestListSlots_DefaultWindowAndPagination() {
	t := suite.T()
	suite.seedConsultantWithSlots("paged-consultant", 5)

	page, err := suite.Facade.ListSlots(context.Background(), queryfacade.ListParams{
		ConsultantSlug: "paged-consultant",
		Limit:          2,
	})
	assert.NoError(t, err)
	assert.Len(t, page.Slots, 2)
	assert.EqualValues(t, 5, page.Total)
	assert.True(t, page.HasMore)

	page2, err := suite.Facade.ListSlots(context.Background(), queryfacade.ListParams{
		ConsultantSlug: "paged-consultant",
		Limit:          2,
		Offset:         4,
	})
	assert.NoError(t, err)
	assert.Len(t, page2.Slots, 1)
	assert.False(t, page2.HasMore)
}

func (suite *QueryFacadeTestSuite) TestListSlots_ExcludesBookedAndBlocked() {
	t := suite.T()
	consultantID := suite.seedConsultantWithSlots("filtered-consultant", 0)
	date := suite.Clock.At.AddDate(0, 0, 1)
	bookable := models.AvailabilitySlot{ConsultantID: consultantID, SessionType: models.SessionTypePersonal, Date: date, StartTime: "09:00", EndTime: "10:00"}
	booked := models.AvailabilitySlot{ConsultantID: consultantID, SessionType: models.SessionTypePersonal, Date: date, StartTime: "10:00", EndTime: "11:00", IsBooked: true}
	blocked := models.AvailabilitySlot{ConsultantID: consultantID, SessionType: models.SessionTypePersonal, Date: date, StartTime: "11:00", EndTime: "12:00", IsBlocked: true}
	assert.NoError(t, suite.DB.Create(&bookable).Error)
	assert.NoError(t, suite.DB.Create(&booked).Error)
	assert.NoError(t, suite.DB.Create(&blocked).Error)

	page, err := suite.Facade.ListSlots(context.Background(), queryfacade.ListParams{ConsultantSlug: "filtered-consultant"})
	assert.NoError(t, err)
	assert.Len(t, page.Slots, 1)
	assert.Equal(t, "09:00", page.Slots[0].StartTime)
}

func (suite *QueryFacadeTestSuite) TestListSlots_RejectsLimitOverMax() {
	t := suite.T()
	_, err := suite.Facade.ListSlots(context.Background(), queryfacade.ListParams{ConsultantSlug: "whoever", Limit: 500})
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.BadInput, ce.Kind)
}

func (suite *QueryFacadeTestSuite) TestListSlots_UnknownConsultant() {
	t := suite.T()
	_, err := suite.Facade.ListSlots(context.Background(), queryfacade.ListParams{ConsultantSlug: "does-not-exist"})
	assert.Error(t, err)
	ce, ok := coreerr.As(err)
	assert.True(t, ok)
	assert.Equal(t, coreerr.NotFound, ce.Kind)
}

func TestQueryFacadeTestSuite(t *testing.T) {
	suite.Run(t, new(QueryFacadeTestSuite))
}
