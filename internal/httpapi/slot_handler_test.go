package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/httpapi"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/queryfacade"
	"github.com/naksha/availability-core/internal/slotgen"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type SlotHandlerTestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Router *gin.Engine
}

func (suite *SlotHandlerTestSuite) SetupSuite() {
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

	log := logger.New("debug")
	coreStore := store.New(suite.DB)
	coreCache := cache.New(nil, log)
	clock := coreclock.Fixed{At: time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)}
	facade := queryfacade.New(coreStore, coreCache, clock, 30, log)
	generator := slotgen.New(coreStore, 100)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	slotHandler := httpapi.NewSlotHandler(generator, facade, 90, log)
	router.GET("/api/v1/availability/slots/:slug", slotHandler.PublicSlots)
	suite.Router = router
}

func (suite *SlotHandlerTestSuite) TearDownSuite() {
	sqlDB, _ := suite.DB.DB()
	sqlDB.Close()
}

func (suite *SlotHandlerTestSuite) SetupTest() {
	suite.DB.Exec("DELETE FROM availability_slot")
	suite.DB.Exec("DELETE FROM consultants")
}

func (suite *SlotHandlerTestSuite) TestPublicSlots_ReturnsBookableSlots() {
	t := suite.T()
	consultantID := uuid.New().String()
	assert.NoError(t, suite.DB.Create(&models.Consultant{ID: consultantID, Slug: "public-jane", IsActive: true}).Error)
	assert.NoError(t, suite.DB.Create(&models.AvailabilitySlot{
		ConsultantID: consultantID, SessionType: models.SessionTypePersonal,
		Date: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "10:00",
	}).Error)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/availability/slots/public-jane", nil)
	rr := httptest.NewRecorder()
	suite.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Slots []models.AvailabilitySlot `json:"slots"`
			Total int64                     `json:"total"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 1, resp.Data.Total)
	assert.Len(t, resp.Data.Slots, 1)
}

func (suite *SlotHandlerTestSuite) TestPublicSlots_UnknownConsultantIsNotFound() {
	t := suite.T()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/availability/slots/ghost", nil)
	rr := httptest.NewRecorder()
	suite.Router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSlotHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SlotHandlerTestSuite))
}
