package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/naksha/availability-core/internal/bookingengine"
	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/client"
	"github.com/naksha/availability-core/internal/coherence"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/httpapi"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type SessionHandlerTestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Router *gin.Engine
}

func (suite *SessionHandlerTestSuite) SetupSuite() {
	dsn := "host=localhost user=postgres password=postgres dbname=availability_core_test port=5432 sslmode=disable"
	if envURL := os.Getenv("TEST_DATABASE_URL"); envURL != "" {
		dsn = envURL
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		suite.T().Fatalf("failed to connect to postgres: %v", err)
	}
	suite.DB = db
	assert.NoError(suite.T(), suite.DB.AutoMigrate(&models.Consultant{}, &models.Client{}, &models.Session{}, &models.AvailabilitySlot{}))

	log := logger.New("debug")
	coreStore := store.New(suite.DB)
	coreCache := cache.New(nil, log)
	clock := coreclock.Fixed{At: time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)}
	coh := coherence.New(coreCache, nil, nil, clock, log)
	engine := bookingengine.New(coreStore, coh, &noopNotifier{}, client.NoopMeetingProvisioner{}, clock, log)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	sessionHandler := httpapi.NewSessionHandler(engine, log)
	router.POST("/api/v1/sessions/book", sessionHandler.Book)
	suite.Router = router
}

func (suite *SessionHandlerTestSuite) TearDownSuite() {
	sqlDB, _ := suite.DB.DB()
	sqlDB.Close()
}

func (suite *SessionHandlerTestSuite) SetupTest() {
	suite.DB.Exec("DELETE FROM session")
	suite.DB.Exec("DELETE FROM client")
	suite.DB.Exec("DELETE FROM availability_slot")
	suite.DB.Exec("DELETE FROM consultants")
}

type noopNotifier struct{}

func (noopNotifier) SessionBooked(ctx context.Context, session *models.Session, cl *models.Client, consultantID string) {
}

func (suite *SessionHandlerTestSuite) TestBook_Success() {
	t := suite.T()
	consultantID := uuid.New().String()
	assert.NoError(t, suite.DB.Create(&models.Consultant{ID: consultantID, Slug: "api-jane", IsActive: true}).Error)
	assert.NoError(t, suite.DB.Create(&models.AvailabilitySlot{
		ConsultantID: consultantID, SessionType: models.SessionTypePersonal,
		Date: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "10:00",
	}).Error)

	payload := map[string]interface{}{
		"consultantSlug":  "api-jane",
		"sessionType":     "PERSONAL",
		"date":            "2026-08-11",
		"time":            "09:00",
		"durationMinutes": 60,
		"clientFullName":  "Alex Client",
		"clientEmail":     "alex@example.com",
	}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sessions/book", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	suite.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, "PENDING", resp.Data.Status)
}

func (suite *SessionHandlerTestSuite) TestBook_MissingFieldRejected() {
	t := suite.T()
	payload := map[string]interface{}{"consultantSlug": "api-jane"}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sessions/book", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	suite.Router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func (suite *SessionHandlerTestSuite) TestBook_SlotTakenReturnsConflict() {
	t := suite.T()
	consultantID := uuid.New().String()
	assert.NoError(t, suite.DB.Create(&models.Consultant{ID: consultantID, Slug: "api-busy", IsActive: true}).Error)
	assert.NoError(t, suite.DB.Create(&models.AvailabilitySlot{
		ConsultantID: consultantID, SessionType: models.SessionTypePersonal,
		Date: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), StartTime: "09:00", EndTime: "10:00", IsBooked: true,
	}).Error)

	payload := map[string]interface{}{
		"consultantSlug": "api-busy", "sessionType": "PERSONAL", "date": "2026-08-11", "time": "09:00",
		"durationMinutes": 60, "clientFullName": "Alex Client", "clientEmail": "alex@example.com",
	}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sessions/book", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	suite.Router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestSessionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SessionHandlerTestSuite))
}
