// Package channels implements channel lifecycle and membership: create,
// list, join, invite, owner management, leave and the paged message reader.
package channels

import (
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
)

// Summary is one row of a channel listing.
type Summary struct {
	ID   int64  `json:"channelId"`
	Name string `json:"name"`
}

// Details is the full membership view of a channel.
type Details struct {
	Name         string        `json:"name"`
	IsPublic     bool          `json:"isPublic"`
	OwnerMembers []models.User `json:"ownerMembers"`
	AllMembers   []models.User `json:"allMembers"`
}

// MessagesPage is one page of channel history, most recent first.
type MessagesPage struct {
	Messages []models.MessageView `json:"messages"`
	Start    int                  `json:"start"`
	End      int                  `json:"end"`
}

type Service struct {
	st     *store.Store
	logger *zap.Logger
	now    func() int64
}

func NewService(st *store.Store, logger *zap.Logger) *Service {
	return &Service{
		st:     st,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Create makes a channel with the caller as its only member and owner.
func (s *Service) Create(uid int64, name string, isPublic bool) (int64, error) {
	if n := utf8.RuneCountInString(name); n < 1 || n > 20 {
		return 0, apperr.Input("name must be 1 to 20 characters")
	}
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		ch := &models.Channel{
			Name:       name,
			IsPublic:   isPublic,
			OwnerIDs:   []int64{uid},
			MemberIDs:  []int64{uid},
			MessageIDs: []int64{},
			Standup:    models.Standup{CreatorID: models.StandupCreatorNone},
		}
		d.AddChannel(ch)
		id = ch.ID

		now := s.now()
		d.RecordChannelsExist(now)
		d.RecordChannelsJoined(uid, 1, now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("channel created", zap.Int64("channel", id), zap.Int64("uid", uid))
	return id, nil
}

// ListJoined lists the channels the caller is a member of.
func (s *Service) ListJoined(uid int64) ([]Summary, error) {
	out := []Summary{}
	err := s.st.View(func(d *store.Data) error {
		for _, id := range d.ChannelIDs() {
			ch, _ := d.Channel(id)
			if store.ContainsID(ch.MemberIDs, uid) {
				out = append(out, Summary{ID: ch.ID, Name: ch.Name})
			}
		}
		return nil
	})
	return out, err
}

// ListAll lists every channel, private ones included.
func (s *Service) ListAll(uid int64) ([]Summary, error) {
	out := []Summary{}
	err := s.st.View(func(d *store.Data) error {
		for _, id := range d.ChannelIDs() {
			ch, _ := d.Channel(id)
			out = append(out, Summary{ID: ch.ID, Name: ch.Name})
		}
		return nil
	})
	return out, err
}

// Details returns the channel's name, visibility and membership. Members
// only.
func (s *Service) Details(uid, channelID int64) (Details, error) {
	var det Details
	err := s.st.View(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		det = Details{
			Name:         ch.Name,
			IsPublic:     ch.IsPublic,
			OwnerMembers: usersOf(d, ch.OwnerIDs),
			AllMembers:   usersOf(d, ch.MemberIDs),
		}
		return nil
	})
	return det, err
}

// Join adds the caller to a channel. Private channels admit global owners
// only.
func (s *Service) Join(uid, channelID int64) error {
	return s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Input("user is already a member")
		}
		if !ch.IsPublic && !d.IsGlobalOwner(uid) {
			return apperr.Forbidden("channel is private")
		}
		ch.MemberIDs = append(ch.MemberIDs, uid)
		d.RecordChannelsJoined(uid, 1, s.now())
		return nil
	})
}

// Invite adds another user to the caller's channel and notifies them. Any
// member may invite; the invitee joins immediately.
func (s *Service) Invite(callerID, channelID, uid int64) error {
	return s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		invitee, ok := d.User(uid)
		if !ok || invitee.Removed() {
			return apperr.Input("user does not exist")
		}
		if store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Input("user is already a member")
		}
		if !store.ContainsID(ch.MemberIDs, callerID) {
			return apperr.Forbidden("user is not a member of the channel")
		}

		caller, _ := d.User(callerID)
		ch.MemberIDs = append(ch.MemberIDs, uid)
		d.Notify(uid, models.Notification{
			ChannelID: ch.ID,
			DMID:      -1,
			Message:   fmt.Sprintf("%s added you to %s", caller.Handle, ch.Name),
		})
		d.RecordChannelsJoined(uid, 1, s.now())
		return nil
	})
}

// AddOwner promotes a member to channel owner. The caller needs owner
// permissions in the channel.
func (s *Service) AddOwner(callerID, channelID, uid int64) error {
	return s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		target, ok := d.User(uid)
		if !ok || target.Removed() {
			return apperr.Input("user does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Input("user is not a member of the channel")
		}
		if store.ContainsID(ch.OwnerIDs, uid) {
			return apperr.Input("user is already an owner")
		}
		if err := requireOwnerPerms(d, ch, callerID); err != nil {
			return err
		}
		ch.OwnerIDs = append(ch.OwnerIDs, uid)
		return nil
	})
}

// RemoveOwner demotes a channel owner. The last owner cannot be demoted.
func (s *Service) RemoveOwner(callerID, channelID, uid int64) error {
	return s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		target, ok := d.User(uid)
		if !ok || target.Removed() {
			return apperr.Input("user does not exist")
		}
		if !store.ContainsID(ch.OwnerIDs, uid) {
			return apperr.Input("user is not an owner")
		}
		if len(ch.OwnerIDs) == 1 {
			return apperr.Input("cannot demote the only owner")
		}
		if err := requireOwnerPerms(d, ch, callerID); err != nil {
			return err
		}
		ch.OwnerIDs = store.RemoveID(ch.OwnerIDs, uid)
		return nil
	})
}

// Leave removes the caller from the channel. The creator of an active
// standup cannot leave until it finishes; their messages stay behind either
// way.
func (s *Service) Leave(uid, channelID int64) error {
	return s.st.Update(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		if ch.Standup.Active && ch.Standup.CreatorID == uid {
			return apperr.Input("user started an active standup in the channel")
		}
		ch.OwnerIDs = store.RemoveID(ch.OwnerIDs, uid)
		ch.MemberIDs = store.RemoveID(ch.MemberIDs, uid)
		d.RecordChannelsJoined(uid, -1, s.now())
		return nil
	})
}

// Messages returns one page of channel history starting at index start,
// most recent first.
func (s *Service) Messages(uid, channelID int64, start int) (MessagesPage, error) {
	var page MessagesPage
	err := s.st.View(func(d *store.Data) error {
		ch, ok := d.Channel(channelID)
		if !ok {
			return apperr.Input("channel does not exist")
		}
		if start < 0 || start > len(ch.MessageIDs) {
			return apperr.Input("start is beyond the most recent message")
		}
		if !store.ContainsID(ch.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the channel")
		}
		msgs, end := d.MessagePage(ch.MessageIDs, start, uid)
		page = MessagesPage{Messages: msgs, Start: start, End: end}
		return nil
	})
	return page, err
}

// requireOwnerPerms checks that uid may manage channel owners: a channel
// owner, or a global owner who is also a member.
func requireOwnerPerms(d *store.Data, ch *models.Channel, uid int64) error {
	if !store.ContainsID(ch.MemberIDs, uid) {
		return apperr.Forbidden("user is not a member of the channel")
	}
	if !store.ContainsID(ch.OwnerIDs, uid) && !d.IsGlobalOwner(uid) {
		return apperr.Forbidden("user does not have owner permissions")
	}
	return nil
}

func usersOf(d *store.Data, ids []int64) []models.User {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.User(id); ok {
			out = append(out, *u)
		}
	}
	return out
}
