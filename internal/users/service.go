// Package users implements profile reads and edits, the profile photo
// pipeline and workspace administration.
package users

import (
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/auth"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
)

// Workspace permission levels.
const (
	PermOwner  int64 = 1
	PermMember int64 = 2
)

type Service struct {
	st     *store.Store
	logger *zap.Logger
	now    func() int64

	// photo pipeline
	client   *http.Client
	photoDir string
	baseURL  string
}

func NewService(st *store.Store, photoDir, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		st:       st,
		logger:   logger,
		now:      func() int64 { return time.Now().Unix() },
		client:   &http.Client{Timeout: 10 * time.Second},
		photoDir: photoDir,
		baseURL:  baseURL,
	}
}

// Profile returns any user's profile by id, removed accounts included.
func (s *Service) Profile(uid int64) (models.User, error) {
	var out models.User
	err := s.st.View(func(d *store.Data) error {
		u, ok := d.User(uid)
		if !ok {
			return apperr.Input("user does not exist")
		}
		out = *u
		return nil
	})
	return out, err
}

// All lists every active user, ascending by id. Removed accounts are
// excluded.
func (s *Service) All() ([]models.User, error) {
	out := []models.User{}
	err := s.st.View(func(d *store.Data) error {
		for _, id := range d.UserIDs() {
			u, _ := d.User(id)
			if !u.Removed() {
				out = append(out, *u)
			}
		}
		return nil
	})
	return out, err
}

// SetName updates the caller's first and last name.
func (s *Service) SetName(uid int64, nameFirst, nameLast string) error {
	if n := utf8.RuneCountInString(nameFirst); n < 1 || n > 50 {
		return apperr.Input("nameFirst must be 1 to 50 characters")
	}
	if n := utf8.RuneCountInString(nameLast); n < 1 || n > 50 {
		return apperr.Input("nameLast must be 1 to 50 characters")
	}
	return s.st.Update(func(d *store.Data) error {
		u, ok := d.User(uid)
		if !ok {
			return apperr.Input("user does not exist")
		}
		u.NameFirst = nameFirst
		u.NameLast = nameLast
		return nil
	})
}

// SetEmail updates the caller's email. The address must not belong to
// another active account.
func (s *Service) SetEmail(uid int64, email string) error {
	if !auth.ValidEmail(email) {
		return apperr.Input("invalid email")
	}
	return s.st.Update(func(d *store.Data) error {
		if other, ok := d.UserByEmail(email); ok && other.ID != uid {
			return apperr.Input("email already in use")
		}
		u, ok := d.User(uid)
		if !ok {
			return apperr.Input("user does not exist")
		}
		u.Email = email
		return nil
	})
}

// SetHandle updates the caller's handle: 3 to 20 alphanumeric characters,
// unique across the workspace.
func (s *Service) SetHandle(uid int64, handle string) error {
	if len(handle) < 3 || len(handle) > 20 {
		return apperr.Input("handle must be 3 to 20 characters")
	}
	for _, r := range handle {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return apperr.Input("handle must be alphanumeric")
		}
	}
	return s.st.Update(func(d *store.Data) error {
		if other, ok := d.UserByHandle(handle); ok && other.ID != uid {
			return apperr.Input("handle already in use")
		}
		u, ok := d.User(uid)
		if !ok {
			return apperr.Input("user does not exist")
		}
		u.Handle = handle
		return nil
	})
}

// AdminRemove anonymizes an account and withdraws it from the workspace.
// Channels they were in keep running, even if that leaves a channel
// ownerless; DMs where they were the last member are deleted outright.
// Their remaining messages stay, with the text rewritten. Global owners
// only, and the last global owner cannot be removed.
func (s *Service) AdminRemove(callerID, uid int64) error {
	return s.st.Update(func(d *store.Data) error {
		if !d.IsGlobalOwner(callerID) {
			return apperr.Forbidden("user is not a global owner")
		}
		target, ok := d.User(uid)
		if !ok || target.Removed() {
			return apperr.Input("user does not exist")
		}
		if d.IsGlobalOwner(uid) && d.GlobalOwnerCount() == 1 {
			return apperr.Input("cannot remove the only global owner")
		}

		now := s.now()

		for _, id := range d.ChannelIDs() {
			ch, _ := d.Channel(id)
			ch.OwnerIDs = store.RemoveID(ch.OwnerIDs, uid)
			ch.MemberIDs = store.RemoveID(ch.MemberIDs, uid)
		}

		var dmsDeleted, messagesDeleted bool
		for _, id := range d.DMIDs() {
			dm, _ := d.DM(id)
			if !store.ContainsID(dm.MemberIDs, uid) {
				continue
			}
			if len(dm.MemberIDs) == 1 {
				for _, mid := range dm.MessageIDs {
					delete(d.Messages, mid)
					messagesDeleted = true
				}
				delete(d.DMs, dm.ID)
				dmsDeleted = true
			} else {
				dm.MemberIDs = store.RemoveID(dm.MemberIDs, uid)
			}
		}
		if dmsDeleted {
			d.RecordDMsExist(now)
		}
		if messagesDeleted {
			d.RecordMessagesExist(now)
		}

		for _, m := range d.Messages {
			if m.SenderID == uid {
				m.Text = "Removed user"
			}
		}

		d.DropUserSessions(uid)
		d.DropUserResetCodes(uid)
		delete(d.GlobalOwners, uid)
		delete(d.AssistantDMs, uid)

		target.NameFirst = "Removed"
		target.NameLast = "user"
		target.Email = ""
		target.Handle = ""

		if st, ok := d.UserStats[uid]; ok {
			st.NumChannelsJoined = 0
			st.ChannelsJoined = append(st.ChannelsJoined, models.ChannelsJoinedPoint{TimeStamp: now})
			st.NumDMsJoined = 0
			st.DMsJoined = append(st.DMsJoined, models.DMsJoinedPoint{TimeStamp: now})
		}
		d.DropFromActive(uid)

		s.logger.Info("user removed", zap.Int64("uid", uid), zap.Int64("by", callerID))
		return nil
	})
}

// AdminSetPermission changes a user's workspace permission level. Global
// owners only; the last global owner cannot demote themselves.
func (s *Service) AdminSetPermission(callerID, uid, permID int64) error {
	if permID != PermOwner && permID != PermMember {
		return apperr.Input("invalid permission id")
	}
	return s.st.Update(func(d *store.Data) error {
		if !d.IsGlobalOwner(callerID) {
			return apperr.Forbidden("user is not a global owner")
		}
		target, ok := d.User(uid)
		if !ok || target.Removed() {
			return apperr.Input("user does not exist")
		}
		if permID == PermMember && d.IsGlobalOwner(uid) && d.GlobalOwnerCount() == 1 {
			return apperr.Input("cannot demote the only global owner")
		}
		switch permID {
		case PermOwner:
			if d.IsGlobalOwner(uid) {
				return apperr.Input("user is already a global owner")
			}
			d.GlobalOwners[uid] = true
		case PermMember:
			if !d.IsGlobalOwner(uid) {
				return apperr.Input("user is already a member")
			}
			delete(d.GlobalOwners, uid)
		}
		return nil
	})
}
