package store

import (
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClientData carries the fields supplied on first contact; FindOrCreateClient
// is idempotent on (consultantId, email).
type ClientData struct {
	Name  string
	Phone string
}

// FindOrCreateClient upserts a client keyed on (consultantId, email). It must
// run inside the caller's transaction (tx) so the client row and the
// session it is about to be attached to commit atomically.
func (s *Store) FindOrCreateClient(tx *gorm.DB, consultantID, email string, data ClientData) (*models.Client, error) {
	var existing models.Client
	err := tx.Where("consultant_id = ? AND email = ?", consultantID, email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, coreerr.Wrap(coreerr.Infra, err, "looking up client")
	}
	c := &models.Client{
		ConsultantID: consultantID,
		Email:        email,
		Name:         data.Name,
		Phone:        data.Phone,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "consultant_id"}, {Name: "email"}},
		DoNothing: true,
	}).Create(c)
	if res.Error != nil {
		return nil, coreerr.Wrap(coreerr.Infra, res.Error, "creating client")
	}
	if res.RowsAffected == 0 {
		// Another transaction won the race; re-read the row it created.
		if err := tx.Where("consultant_id = ? AND email = ?", consultantID, email).First(c).Error; err != nil {
			return nil, coreerr.Wrap(coreerr.Infra, err, "re-reading client after conflict")
		}
	}
	return c, nil
}

// IncrementClientSessionCount bumps the session counter and running total
// paid, run inside the booking transaction.
func (s *Store) IncrementClientSessionCount(tx *gorm.DB, clientID string, amount float64) error {
	res := tx.Model(&models.Client{}).Where("id = ?", clientID).
		Updates(map[string]interface{}{
			"total_sessions":     gorm.Expr("total_sessions + 1"),
			"total_amount_paid":  gorm.Expr("total_amount_paid + ?", amount),
		})
	if res.Error != nil {
		return coreerr.Wrap(coreerr.Infra, res.Error, "incrementing client counters")
	}
	return nil
}
