// Package standup implements per-channel standup periods: a member opens a
// window, messages sent into it are buffered instead of posted, and at
// expiry the buffer is flushed as one summary message from the starter.
package standup

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/scheduler"
	"github.com/unsw-memes/memes/internal/store"
)

// Status is the standup state of a channel. TimeFinish is nil while no
// standup is active.
type Status struct {
	IsActive   bool   `json:"isActive"`
	TimeFinish *int64 `json:"timeFinish"`
}

type Service struct {
	st     *store.Store
	sched  *scheduler.Scheduler
	logger *zap.Logger
	now    func() int64
}

func NewService(st *store.Store, sched *scheduler.Scheduler, logger *zap.Logger) *Service {
	return &Service{
		st:     st,
		sched:  sched,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Start opens a standup lasting length seconds and returns its finish time.
// One standup per channel at a time; the starter cannot leave the channel
// until it finishes.
func (s *Service) Start(uid, channelID int64, length int64) (int64, error) {
	var finish int64
	err := s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		if length < 0 {
			return apperr.Input("length cannot be negative")
		}
		if ch.Standup.Active {
			return apperr.Input("an active standup is already running")
		}
		finish = s.now() + length
		ch.Standup = models.Standup{
			Active:     true,
			CreatorID:  uid,
			TimeFinish: finish,
			Buffer:     []models.StandupEntry{},
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.sched.Schedule(time.Unix(finish, 0), func() {
		s.finish(channelID)
		s.st.Flush()
	})
	s.logger.Info("standup started", zap.Int64("channel", channelID), zap.Int64("finish", finish))
	return finish, nil
}

// Active reports whether a standup is running and when it finishes.
func (s *Service) Active(uid, channelID int64) (Status, error) {
	var status Status
	err := s.st.View(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		status.IsActive = ch.Standup.Active
		if ch.Standup.Active {
			finish := ch.Standup.TimeFinish
			status.TimeFinish = &finish
		}
		return nil
	})
	return status, err
}

// Send buffers one line into the active standup. Buffered lines are not
// messages: no ids, no tag notifications, no analytics until the flush.
func (s *Service) Send(uid, channelID int64, text string) error {
	if utf8.RuneCountInString(text) > 1000 {
		return apperr.Input("message must be at most 1000 characters")
	}
	return s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		if !ch.Standup.Active {
			return apperr.Input("no active standup in the channel")
		}
		u, _ := d.User(uid)
		ch.Standup.Buffer = append(ch.Standup.Buffer, models.StandupEntry{
			Handle: u.Handle,
			Text:   text,
		})
		return nil
	})
}

// finish resets the standup state and flushes the buffer as one summary
// message sent by the starter. The summary goes through the normal send
// path, so it is tag-scanned and counted like any other message. An empty
// buffer produces no message.
func (s *Service) finish(channelID int64) {
	err := s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return nil
		}
		creatorID := ch.Standup.CreatorID
		buffer := ch.Standup.Buffer
		ch.Standup = models.Standup{CreatorID: models.StandupCreatorNone}

		if len(buffer) == 0 {
			return nil
		}
		lines := make([]string, 0, len(buffer))
		for _, entry := range buffer {
			lines = append(lines, entry.Handle+": "+entry.Text)
		}
		d.SendChannelMessage(creatorID, ch, strings.Join(lines, "\n"), s.now())
		return nil
	})
	if err != nil {
		s.logger.Error("finish standup", zap.Error(err))
	}
}
