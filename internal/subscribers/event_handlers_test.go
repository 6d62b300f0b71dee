package subscribers_test

import (
	"encoding/json"
	"testing"

	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/internal/subscribers"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type EventHandlersTestSuite struct {
	suite.Suite
	DB       *gorm.DB
	Handlers *subscribers.NatsEventHandlers
}

func (suite *EventHandlersTestSuite) SetupSuite() {
	dsn := "host=localhost user=postgres password=postgres dbname=availability_core_test port=5432 sslmode=disable"
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		suite.T().Fatalf("failed to connect to postgres: %v", err)
	}
	suite.DB = db

	err = suite.DB.AutoMigrate(&models.Consultant{})
	assert.NoError(suite.T(), err)

	suite.Handlers = subscribers.NewNatsEventHandlers(store.New(suite.DB), logger.New("debug"))
}

func (suite *EventHandlersTestSuite) TearDownSuite() {
	sqlDB, _ := suite.DB.DB()
	sqlDB.Close()
}

func (suite *EventHandlersTestSuite) SetupTest() {
	suite.DB.Exec("DELETE FROM consultants")
}

func (suite *EventHandlersTestSuite) TestHandleConsultantLifecycle_Created() {
	t := suite.T()
	payload := subscribers.ConsultantLifecyclePayload{
		ConsultantID: "11111111-1111-1111-1111-111111111111",
		Slug:         "jane-doe",
	}
	eventData, _ := json.Marshal(payload)

	err := suite.Handlers.HandleConsultantLifecycle(eventData)
	assert.NoError(t, err)

	var c models.Consultant
	err = suite.DB.First(&c, "id = ?", "11111111-1111-1111-1111-111111111111").Error
	assert.NoError(t, err)
	assert.Equal(t, "jane-doe", c.Slug)
	assert.True(t, c.IsActive)
}

func (suite *EventHandlersTestSuite) TestHandleConsultantLifecycle_Deactivated() {
	t := suite.T()
	err := suite.DB.Create(&models.Consultant{ID: "22222222-2222-2222-2222-222222222222", Slug: "john-smith", IsActive: true}).Error
	assert.NoError(t, err)

	isActive := false
	payload := subscribers.ConsultantLifecyclePayload{
		ConsultantID: "22222222-2222-2222-2222-222222222222",
		Slug:         "john-smith",
		IsActive:     &isActive,
	}
	eventData, _ := json.Marshal(payload)

	err = suite.Handlers.HandleConsultantLifecycle(eventData)
	assert.NoError(t, err)

	var c models.Consultant
	err = suite.DB.First(&c, "id = ?", "22222222-2222-2222-2222-222222222222").Error
	assert.NoError(t, err)
	assert.False(t, c.IsActive)
}

func (suite *EventHandlersTestSuite) TestHandleConsultantLifecycle_MalformedPayload() {
	t := suite.T()
	err := suite.Handlers.HandleConsultantLifecycle([]byte("not json"))
	assert.Error(t, err)
}

func TestEventHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(EventHandlersTestSuite))
}
