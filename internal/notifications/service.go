// Package notifications serves the per-user notification feed.
package notifications

import (
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
)

type Service struct {
	st     *store.Store
	logger *zap.Logger
}

func NewService(st *store.Store, logger *zap.Logger) *Service {
	return &Service{st: st, logger: logger}
}

// Get returns the caller's 20 most recent notifications, newest first.
// Reading trims the stored feed to those 20; anything older is discarded.
func (s *Service) Get(uid int64) ([]models.Notification, error) {
	var out []models.Notification
	err := s.st.Update(func(d *store.Data) error {
		out = d.TakeNotifications(uid)
		return nil
	})
	return out, err
}
