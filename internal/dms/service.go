// Package dms implements direct-message groups. A DM's member list is fixed
// at creation except for leaving; its name is derived once from the founding
// members' handles and never changes.
package dms

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
)

// Summary is one row of a DM listing.
type Summary struct {
	ID   int64  `json:"dmId"`
	Name string `json:"name"`
}

// Details is the membership view of a DM.
type Details struct {
	Name    string        `json:"name"`
	Members []models.User `json:"members"`
}

// MessagesPage is one page of DM history, most recent first.
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

// Create opens a DM between the caller and uids. The caller must not appear
// in uids and uids must hold no duplicates. Every invitee is notified; the
// caller is not.
func (s *Service) Create(callerID int64, uids []int64) (int64, error) {
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		members := append(append([]int64{}, uids...), callerID)
		seen := make(map[int64]bool, len(members))
		for _, uid := range members {
			u, ok := d.User(uid)
			if !ok || u.Removed() {
				return apperr.Input("uIds contains an invalid user")
			}
			if seen[uid] {
				return apperr.Input("uIds contains duplicate user ids")
			}
			seen[uid] = true
		}

		handles := make([]string, 0, len(members))
		for _, uid := range members {
			u, _ := d.User(uid)
			handles = append(handles, u.Handle)
		}
		sort.Strings(handles)

		dm := &models.DM{
			Name:       strings.Join(handles, ", "),
			CreatorID:  callerID,
			MemberIDs:  members,
			MessageIDs: []int64{},
		}
		d.AddDM(dm)
		id = dm.ID

		caller, _ := d.User(callerID)
		now := s.now()
		for _, uid := range members {
			if uid != callerID {
				d.Notify(uid, models.Notification{
					ChannelID: -1,
					DMID:      dm.ID,
					Message:   fmt.Sprintf("%s added you to %s", caller.Handle, dm.Name),
				})
			}
			d.RecordDMsJoined(uid, 1, now)
		}
		d.RecordDMsExist(now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("dm created", zap.Int64("dm", id), zap.Int64("uid", callerID))
	return id, nil
}

// List lists the DMs the caller belongs to.
func (s *Service) List(uid int64) ([]Summary, error) {
	out := []Summary{}
	err := s.st.View(func(d *store.Data) error {
		for _, id := range d.DMIDs() {
			dm, _ := d.DM(id)
			if store.ContainsID(dm.MemberIDs, uid) {
				out = append(out, Summary{ID: dm.ID, Name: dm.Name})
			}
		}
		return nil
	})
	return out, err
}

// Details returns the DM's name and members. Members only.
func (s *Service) Details(uid, dmID int64) (Details, error) {
	var det Details
	err := s.st.View(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if !store.ContainsID(dm.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		det = Details{Name: dm.Name, Members: membersOf(d, dm.MemberIDs)}
		return nil
	})
	return det, err
}

// Leave removes the caller from the DM. The DM and its history survive even
// when the last member leaves; the creator's deletion authority survives
// their departure.
func (s *Service) Leave(uid, dmID int64) error {
	return s.st.Update(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if !store.ContainsID(dm.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		dm.MemberIDs = store.RemoveID(dm.MemberIDs, uid)
		d.RecordDMsJoined(uid, -1, s.now())
		return nil
	})
}

// Remove deletes the DM and all its messages. Creator only.
func (s *Service) Remove(callerID, dmID int64) error {
	return s.st.Update(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if !store.ContainsID(dm.MemberIDs, callerID) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		if dm.CreatorID != callerID {
			return apperr.Forbidden("user is not the creator of the dm")
		}

		now := s.now()
		for _, uid := range dm.MemberIDs {
			d.RecordDMsJoined(uid, -1, now)
		}
		for _, mid := range dm.MessageIDs {
			delete(d.Messages, mid)
		}
		delete(d.DMs, dm.ID)
		for uid, boundDM := range d.AssistantDMs {
			if boundDM == dm.ID {
				delete(d.AssistantDMs, uid)
			}
		}
		d.RecordDMsExist(now)
		d.RecordMessagesExist(now)
		return nil
	})
}

// Messages returns one page of DM history starting at index start, most
// recent first.
func (s *Service) Messages(uid, dmID int64, start int) (MessagesPage, error) {
	var page MessagesPage
	err := s.st.View(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return apperr.Input("dm does not exist")
		}
		if start < 0 || start > len(dm.MessageIDs) {
			return apperr.Input("start is beyond the most recent message")
		}
		if !store.ContainsID(dm.MemberIDs, uid) {
			return apperr.Forbidden("user is not a member of the dm")
		}
		msgs, end := d.MessagePage(dm.MessageIDs, start, uid)
		page = MessagesPage{Messages: msgs, Start: start, End: end}
		return nil
	})
	return page, err
}

func membersOf(d *store.Data, ids []int64) []models.User {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := d.User(id); ok {
			out = append(out, *u)
		}
	}
	return out
}
