// Package stats serves the analytics read side: per-user series with an
// involvement rate and workspace series with a utilization rate. Rates are
// derived at read time from the stored series and counts.
package stats

import (
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
)

// UserStats is one user's series plus their involvement rate.
type UserStats struct {
	ChannelsJoined  []models.ChannelsJoinedPoint `json:"channelsJoined"`
	DMsJoined       []models.DMsJoinedPoint      `json:"dmsJoined"`
	MessagesSent    []models.MessagesSentPoint   `json:"messagesSent"`
	InvolvementRate float64                      `json:"involvementRate"`
}

// WorkspaceStats is the workspace series plus the utilization rate.
type WorkspaceStats struct {
	ChannelsExist   []models.ChannelsExistPoint  `json:"channelsExist"`
	DMsExist        []models.DMsExistPoint       `json:"dmsExist"`
	MessagesExist   []models.MessagesExistPoint  `json:"messagesExist"`
	UtilizationRate float64                      `json:"utilizationRate"`
}

type Service struct {
	st     *store.Store
	logger *zap.Logger
}

func NewService(st *store.Store, logger *zap.Logger) *Service {
	return &Service{st: st, logger: logger}
}

// User returns the caller's series. Involvement is the caller's channels,
// DMs and sent messages over the workspace totals, zero when the workspace
// is empty and capped at 1: removal can shrink the denominator below a
// user's permanent sent credit.
func (s *Service) User(uid int64) (UserStats, error) {
	var out UserStats
	err := s.st.View(func(d *store.Data) error {
		st, ok := d.UserStats[uid]
		if !ok {
			return apperr.Input("user does not exist")
		}
		numerator := float64(st.NumChannelsJoined + st.NumDMsJoined + st.NumMessagesSent)
		denominator := float64(int64(len(d.Channels)) + int64(len(d.DMs)) + int64(len(d.Messages)))

		rate := 0.0
		if denominator > 0 {
			rate = numerator / denominator
		}
		if rate > 1 {
			rate = 1
		}
		out = UserStats{
			ChannelsJoined:  st.ChannelsJoined,
			DMsJoined:       st.DMsJoined,
			MessagesSent:    st.MessagesSent,
			InvolvementRate: rate,
		}
		return nil
	})
	return out, err
}

// Workspace returns the workspace series. Utilization is the share of all
// accounts, removed ones included, currently in at least one channel or DM.
func (s *Service) Workspace() (WorkspaceStats, error) {
	var out WorkspaceStats
	err := s.st.View(func(d *store.Data) error {
		rate := 0.0
		if len(d.Users) > 0 {
			rate = float64(len(d.Workspace.ActiveUserIDs)) / float64(len(d.Users))
		}
		out = WorkspaceStats{
			ChannelsExist:   d.Workspace.ChannelsExist,
			DMsExist:        d.Workspace.DMsExist,
			MessagesExist:   d.Workspace.MessagesExist,
			UtilizationRate: rate,
		}
		return nil
	})
	return out, err
}
