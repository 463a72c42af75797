// Package messages implements sending, editing, removing, reacting, pinning,
// sharing, deferred sends and search. A message lives in the global table
// and in exactly one channel's or DM's ordered list.
package messages

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/scheduler"
	"github.com/unsw-memes/memes/internal/store"
)

// ValidReactIDs is the set of recognised reactions.
var ValidReactIDs = map[int64]bool{1: true}

// NoTarget is the sentinel for the unused destination of a share.
const NoTarget int64 = -1

// timeAllowance is how far in the past a deferred send may be scheduled
// before it is rejected, absorbing request latency.
const timeAllowance = 500 * time.Millisecond

// Listener receives DM messages addressed to the personal assistant.
type Listener interface {
	Listen(callerID, dmID int64, text string)
}

type Service struct {
	st        *store.Store
	sched     *scheduler.Scheduler
	logger    *zap.Logger
	assistant Listener
	now       func() time.Time
}

func NewService(st *store.Store, sched *scheduler.Scheduler, logger *zap.Logger) *Service {
	return &Service{
		st:     st,
		sched:  sched,
		logger: logger,
		now:    time.Now,
	}
}

// SetAssistant binds the assistant that DM sends are forwarded to. Called
// once at wiring time.
func (s *Service) SetAssistant(l Listener) {
	s.assistant = l
}

// Send posts a message to a channel the caller is a member of.
func (s *Service) Send(uid, channelID int64, text string) (int64, error) {
	if n := utf8.RuneCountInString(text); n < 1 || n > 1000 {
		return 0, apperr.Input("message must be 1 to 1000 characters")
	}
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		id = d.SendChannelMessage(uid, ch, text, s.now().Unix()).ID
		return nil
	})
	return id, err
}

// SendDM posts a message to a DM the caller is a member of. A message into
// the caller's assistant DM is forwarded to the assistant after it is
// stored.
func (s *Service) SendDM(uid, dmID int64, text string) (int64, error) {
	if n := utf8.RuneCountInString(text); n < 1 || n > 1000 {
		return 0, apperr.Input("message must be 1 to 1000 characters")
	}
	var (
		id      int64
		forward bool
	)
	err := s.st.Update(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if !store.ContainsID(dm.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		id = d.SendDMMessage(uid, dm, text, s.now().Unix()).ID
		forward = d.AssistantDMs[uid] == dmID
		return nil
	})
	if err != nil {
		return 0, err
	}
	if forward && s.assistant != nil {
		s.assistant.Listen(uid, dmID, text)
	}
	return id, nil
}

// SendLater schedules a channel message for a future time. The message id
// is allocated now; the message appears, and tags fire, at timeSent. If the
// channel is gone by then the delivery is dropped silently.
func (s *Service) SendLater(uid, channelID int64, text string, timeSent int64) (int64, error) {
	if n := utf8.RuneCountInString(text); n < 1 || n > 1000 {
		return 0, apperr.Input("message must be 1 to 1000 characters")
	}
	if time.Unix(timeSent, 0).Add(timeAllowance).Before(s.now()) {
		return 0, apperr.Input("timeSent is in the past")
	}
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		id = d.NextMessageID
		d.NextMessageID++
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.sched.Schedule(time.Unix(timeSent, 0), func() {
		s.deliverChannel(id, uid, channelID, text, timeSent)
		s.st.Flush()
	})
	return id, nil
}

// SendLaterDM is SendLater for DMs. A delivery into a deleted DM is dropped.
func (s *Service) SendLaterDM(uid, dmID int64, text string, timeSent int64) (int64, error) {
	if n := utf8.RuneCountInString(text); n < 1 || n > 1000 {
		return 0, apperr.Input("message must be 1 to 1000 characters")
	}
	if time.Unix(timeSent, 0).Add(timeAllowance).Before(s.now()) {
		return 0, apperr.Input("timeSent is in the past")
	}
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if !store.ContainsID(dm.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		id = d.NextMessageID
		d.NextMessageID++
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.sched.Schedule(time.Unix(timeSent, 0), func() {
		s.deliverDM(id, uid, dmID, text, timeSent)
		s.st.Flush()
	})
	return id, nil
}

func (s *Service) deliverChannel(id, uid, channelID int64, text string, timeSent int64) {
	err := s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return nil
		}
		m := &models.Message{
			ID:       id,
			SenderID: uid,
			Text:     text,
			TimeSent: timeSent,
			Reacts:   []models.React{},
		}
		d.Messages[id] = m
		ch.MessageIDs = append([]int64{id}, ch.MessageIDs...)
		now := s.now().Unix()
		d.RecordMessagesExist(now)
		d.RecordMessageSent(uid, now)
		d.NotifyChannelTags(uid, ch, text)
		return nil
	})
	if err != nil {
		s.logger.Error("deliver scheduled channel message", zap.Error(err))
	}
}

func (s *Service) deliverDM(id, uid, dmID int64, text string, timeSent int64) {
	err := s.st.Update(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return nil
		}
		m := &models.Message{
			ID:       id,
			SenderID: uid,
			Text:     text,
			TimeSent: timeSent,
			Reacts:   []models.React{},
		}
		d.Messages[id] = m
		dm.MessageIDs = append([]int64{id}, dm.MessageIDs...)
		now := s.now().Unix()
		d.RecordMessagesExist(now)
		d.RecordMessageSent(uid, now)
		d.NotifyDMTags(uid, dm, text)
		return nil
	})
	if err != nil {
		s.logger.Error("deliver scheduled dm message", zap.Error(err))
	}
}

// Edit replaces a message's text. Editing to empty text removes the
// message. Tag notifications fire for the new text and are attributed to
// the original sender, whoever edits.
func (s *Service) Edit(uid, messageID int64, text string) error {
	if utf8.RuneCountInString(text) > 1000 {
		return apperr.Input("message must be at most 1000 characters")
	}
	return s.st.Update(func(d *store.Data) error {
		m, ch, dm, err := locateForCaller(d, uid, messageID)
		if err != nil {
			return err
		}
		if err := requireMessagePerms(d, uid, m, ch, dm); err != nil {
			return err
		}
		if text == "" {
			d.DeleteMessage(messageID)
			d.RecordMessagesExist(s.now().Unix())
			return nil
		}
		m.Text = text
		if ch != nil {
			d.NotifyChannelTags(m.SenderID, ch, text)
		} else {
			d.NotifyDMTags(m.SenderID, dm, text)
		}
		return nil
	})
}

// Remove deletes a message. The sender's sent count is a permanent credit
// and stays.
func (s *Service) Remove(uid, messageID int64) error {
	return s.st.Update(func(d *store.Data) error {
		m, ch, dm, err := locateForCaller(d, uid, messageID)
		if err != nil {
			return err
		}
		if err := requireMessagePerms(d, uid, m, ch, dm); err != nil {
			return err
		}
		d.DeleteMessage(messageID)
		d.RecordMessagesExist(s.now().Unix())
		return nil
	})
}

// React adds the caller's reaction to a message and notifies the sender,
// provided the sender is still in the conversation.
func (s *Service) React(uid, messageID, reactID int64) error {
	if !ValidReactIDs[reactID] {
		return apperr.Input("invalid reactId")
	}
	return s.st.Update(func(d *store.Data) error {
		m, ch, dm, err := locateForCaller(d, uid, messageID)
		if err != nil {
			return err
		}
		react := findReact(m, reactID)
		if react != nil && store.ContainsID(react.UIDs, uid) {
			return apperr.Input("user has already reacted")
		}
		if react == nil {
			m.Reacts = append(m.Reacts, models.React{ReactID: reactID, UIDs: []int64{}})
			react = &m.Reacts[len(m.Reacts)-1]
		}
		react.UIDs = append(react.UIDs, uid)

		reactor, _ := d.User(uid)
		if ch != nil && store.ContainsID(ch.MemberIDs, m.SenderID) {
			d.Notify(m.SenderID, models.Notification{
				ChannelID: ch.ID,
				DMID:      -1,
				Message:   fmt.Sprintf("%s reacted to your message in %s", reactor.Handle, ch.Name),
			})
		} else if dm != nil && store.ContainsID(dm.MemberIDs, m.SenderID) {
			d.Notify(m.SenderID, models.Notification{
				ChannelID: -1,
				DMID:      dm.ID,
				Message:   fmt.Sprintf("%s reacted to your message in %s", reactor.Handle, dm.Name),
			})
		}
		return nil
	})
}

// Unreact withdraws the caller's reaction. No notification.
func (s *Service) Unreact(uid, messageID, reactID int64) error {
	if !ValidReactIDs[reactID] {
		return apperr.Input("invalid reactId")
	}
	return s.st.Update(func(d *store.Data) error {
		m, _, _, err := locateForCaller(d, uid, messageID)
		if err != nil {
			return err
		}
		react := findReact(m, reactID)
		if react == nil || !store.ContainsID(react.UIDs, uid) {
			return apperr.Input("user has not reacted")
		}
		react.UIDs = store.RemoveID(react.UIDs, uid)
		return nil
	})
}

// Pin marks a message. Channel pins need channel owner permissions; DM pins
// are the creator's alone.
func (s *Service) Pin(uid, messageID int64) error {
	return s.st.Update(func(d *store.Data) error {
		m, ch, dm, err := locateForCaller(d, uid, messageID)
		if err != nil {
			return err
		}
		if err := requirePinPerms(d, uid, ch, dm); err != nil {
			return err
		}
		if m.Pinned {
			return apperr.Input("message is already pinned")
		}
		m.Pinned = true
		return nil
	})
}

// Unpin reverses Pin under the same permissions.
func (s *Service) Unpin(uid, messageID int64) error {
	return s.st.Update(func(d *store.Data) error {
		m, ch, dm, err := locateForCaller(d, uid, messageID)
		if err != nil {
			return err
		}
		if err := requirePinPerms(d, uid, ch, dm); err != nil {
			return err
		}
		if !m.Pinned {
			return apperr.Input("message is not pinned")
		}
		m.Pinned = false
		return nil
	})
}

// Share posts a copy of a message into exactly one other conversation, the
// original text with the optional comment appended. The copy is a fresh
// message; reactions and the pin flag do not carry over.
func (s *Service) Share(uid, ogMessageID int64, text string, channelID, dmID int64) (int64, error) {
	if utf8.RuneCountInString(text) > 1000 {
		return 0, apperr.Input("message must be at most 1000 characters")
	}
	if channelID != NoTarget && dmID != NoTarget {
		return 0, apperr.Input("only one destination may be given")
	}
	if channelID == NoTarget && dmID == NoTarget {
		return 0, apperr.Input("a destination is required")
	}
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		og, _, _, err := locateForCaller(d, uid, ogMessageID)
		if err != nil {
			return err
		}
		combined := og.Text + text
		now := s.now().Unix()

		if channelID != NoTarget {
			ch, ok := d.Channel(channelID)
			if !ok {
				return apperr.Input("channel does not exist")
			}
			if !store.ContainsID(ch.MemberIDs, uid) {
				return apperr.Forbidden("user is not a member of the channel")
			}
			id = d.SendChannelMessage(uid, ch, combined, now).ID
			return nil
		}
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if !store.ContainsID(dm.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		id = d.SendDMMessage(uid, dm, combined, now).ID
		return nil
	})
	return id, err
}

// Search returns every message containing the query, case-insensitively,
// across all conversations the caller belongs to.
func (s *Service) Search(uid int64, query string) ([]models.Message, error) {
	if n := utf8.RuneCountInString(query); n < 1 || n > 1000 {
		return nil, apperr.Input("query must be 1 to 1000 characters")
	}
	needle := strings.ToLower(query)
	out := []models.Message{}
	err := s.st.View(func(d *store.Data) error {
		collect := func(ids []int64) {
			for _, mid := range ids {
				if m, ok := d.Message(mid); ok && strings.Contains(strings.ToLower(m.Text), needle) {
					out = append(out, *m)
				}
			}
		}
		for _, id := range d.ChannelIDs() {
			ch, _ := d.Channel(id)
			if store.ContainsID(ch.MemberIDs, uid) {
				collect(ch.MessageIDs)
			}
		}
		for _, id := range d.DMIDs() {
			dm, _ := d.DM(id)
			if store.ContainsID(dm.MemberIDs, uid) {
				collect(dm.MessageIDs)
			}
		}
		return nil
	})
	return out, err
}

// locateForCaller finds a message and its container, requiring the caller
// to be a member of that container. Exactly one of the returned channel and
// DM is non-nil on success.
func locateForCaller(d *store.Data, uid, messageID int64) (*models.Message, *models.Channel, *models.DM, error) {
	m, ok := d.Message(messageID)
	if !ok {
		return nil, nil, nil, apperr.Input("message does not exist")
	}
	if ch, inCh := d.ChannelOfMessage(messageID); inCh {
		if !store.ContainsID(ch.MemberIDs, uid) {
			return nil, nil, nil, apperr.Input("message is not in a conversation the user has joined")
		}
		return m, ch, nil, nil
	}
	if dm, inDM := d.DMOfMessage(messageID); inDM {
		if !store.ContainsID(dm.MemberIDs, uid) {
			return nil, nil, nil, apperr.Input("message is not in a conversation the user has joined")
		}
		return m, nil, dm, nil
	}
	return nil, nil, nil, apperr.Input("message does not exist")
}

// requireMessagePerms checks edit and remove authority: the sender, a
// channel owner or global owner in a channel, the creator in a DM.
func requireMessagePerms(d *store.Data, uid int64, m *models.Message, ch *models.Channel, dm *models.DM) error {
	if uid == m.SenderID {
		return nil
	}
	if ch != nil {
		if store.ContainsID(ch.OwnerIDs, uid) || d.IsGlobalOwner(uid) {
			return nil
		}
	} else if dm != nil && dm.CreatorID == uid {
		return nil
	}
	return apperr.Forbidden("user cannot modify this message")
}

// requirePinPerms checks pin authority: channel owner or global owner in a
// channel, the creator in a DM.
func requirePinPerms(d *store.Data, uid int64, ch *models.Channel, dm *models.DM) error {
	if ch != nil {
		if store.ContainsID(ch.OwnerIDs, uid) || d.IsGlobalOwner(uid) {
			return nil
		}
	} else if dm != nil && dm.CreatorID == uid {
		return nil
	}
	return apperr.Forbidden("user cannot pin in this conversation")
}

func findReact(m *models.Message, reactID int64) *models.React {
	for i := range m.Reacts {
		if m.Reacts[i].ReactID == reactID {
			return &m.Reacts[i]
		}
	}
	return nil
}
