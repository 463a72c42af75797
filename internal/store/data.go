package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/unsw-memes/memes/internal/models"
)

// PageSize is the number of messages returned per page, most recent first.
const PageSize = 50

// PageEnd marks a page that reaches the oldest message.
const PageEnd = -1

// Data is the whole object graph. All entities live in canonical id-keyed
// tables; channels and DMs reference members and messages by id only.
type Data struct {
	Users         map[int64]*models.User          `json:"users"`
	Sessions      map[string]int64                `json:"sessions"`
	Passwords     map[int64]string                `json:"passwords"`
	GlobalOwners  map[int64]bool                  `json:"globalOwners"`
	Channels      map[int64]*models.Channel       `json:"channels"`
	DMs           map[int64]*models.DM            `json:"dms"`
	Messages      map[int64]*models.Message       `json:"messages"`
	Notifications map[int64][]models.Notification `json:"notifications"`
	ResetCodes    map[string]int64                `json:"resetCodes"`
	UserStats     map[int64]*models.UserStats     `json:"userStats"`
	Workspace     models.WorkspaceStats           `json:"workspaceStats"`
	AssistantDMs  map[int64]int64                 `json:"assistantDms"`

	// AssistantBotID is the assistant bot's account id, 0 until the first
	// assistant DM is created. The bot is identified by this id, never by
	// its handle or email.
	AssistantBotID int64 `json:"assistantBotId"`

	NextUserID    int64 `json:"nextUserId"`
	NextChannelID int64 `json:"nextChannelId"`
	NextDMID      int64 `json:"nextDmId"`
	NextMessageID int64 `json:"nextMessageId"`
}

func NewData() *Data {
	return &Data{
		Users:         make(map[int64]*models.User),
		Sessions:      make(map[string]int64),
		Passwords:     make(map[int64]string),
		GlobalOwners:  make(map[int64]bool),
		Channels:      make(map[int64]*models.Channel),
		DMs:           make(map[int64]*models.DM),
		Messages:      make(map[int64]*models.Message),
		Notifications: make(map[int64][]models.Notification),
		ResetCodes:    make(map[string]int64),
		UserStats:     make(map[int64]*models.UserStats),
		AssistantDMs:  make(map[int64]int64),
		NextUserID:    1,
		NextChannelID: 1,
		NextDMID:      1,
		NextMessageID: 1,
	}
}

// Users

// AddUser assigns the next user id and inserts the user.
func (d *Data) AddUser(u *models.User) {
	u.ID = d.NextUserID
	d.NextUserID++
	d.Users[u.ID] = u
}

func (d *Data) User(id int64) (*models.User, bool) {
	u, ok := d.Users[id]
	return u, ok
}

// UserByEmail matches active users only; removed users free their email.
func (d *Data) UserByEmail(email string) (*models.User, bool) {
	for _, u := range d.Users {
		if !u.Removed() && u.Email == email {
			return u, true
		}
	}
	return nil, false
}

func (d *Data) UserByHandle(handle string) (*models.User, bool) {
	if handle == "" {
		return nil, false
	}
	for _, u := range d.Users {
		if u.Handle == handle {
			return u, true
		}
	}
	return nil, false
}

// UserIDs returns all user ids, removed accounts included, ascending.
func (d *Data) UserIDs() []int64 {
	ids := make([]int64, 0, len(d.Users))
	for id := range d.Users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *Data) IsGlobalOwner(uid int64) bool {
	return d.GlobalOwners[uid]
}

// GlobalOwnerCount is used to protect the last global owner from demotion
// and removal.
func (d *Data) GlobalOwnerCount() int {
	return len(d.GlobalOwners)
}

// Sessions

func (d *Data) PutSession(digest string, uid int64) {
	d.Sessions[digest] = uid
}

func (d *Data) SessionUser(digest string) (int64, bool) {
	uid, ok := d.Sessions[digest]
	return uid, ok
}

func (d *Data) DropSession(digest string) bool {
	if _, ok := d.Sessions[digest]; !ok {
		return false
	}
	delete(d.Sessions, digest)
	return true
}

// DropUserSessions invalidates every live token of one user.
func (d *Data) DropUserSessions(uid int64) {
	for digest, owner := range d.Sessions {
		if owner == uid {
			delete(d.Sessions, digest)
		}
	}
}

// DropUserResetCodes discards pending password reset codes for one user.
func (d *Data) DropUserResetCodes(uid int64) {
	for code, owner := range d.ResetCodes {
		if owner == uid {
			delete(d.ResetCodes, code)
		}
	}
}

// Channels and DMs

func (d *Data) AddChannel(ch *models.Channel) {
	ch.ID = d.NextChannelID
	d.NextChannelID++
	d.Channels[ch.ID] = ch
}

func (d *Data) Channel(id int64) (*models.Channel, bool) {
	ch, ok := d.Channels[id]
	return ch, ok
}

// ChannelIDs returns all channel ids ascending.
func (d *Data) ChannelIDs() []int64 {
	ids := make([]int64, 0, len(d.Channels))
	for id := range d.Channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *Data) AddDM(dm *models.DM) {
	dm.ID = d.NextDMID
	d.NextDMID++
	d.DMs[dm.ID] = dm
}

func (d *Data) DM(id int64) (*models.DM, bool) {
	dm, ok := d.DMs[id]
	return dm, ok
}

// DMIDs returns all dm ids ascending.
func (d *Data) DMIDs() []int64 {
	ids := make([]int64, 0, len(d.DMs))
	for id := range d.DMs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (d *Data) IsChannelMember(uid, channelID int64) bool {
	ch, ok := d.Channels[channelID]
	return ok && ContainsID(ch.MemberIDs, uid)
}

func (d *Data) IsChannelOwner(uid, channelID int64) bool {
	ch, ok := d.Channels[channelID]
	return ok && ContainsID(ch.OwnerIDs, uid)
}

func (d *Data) IsDMMember(uid, dmID int64) bool {
	dm, ok := d.DMs[dmID]
	return ok && ContainsID(dm.MemberIDs, uid)
}

// Messages

// NewMessage allocates an id and inserts the message into the global table.
// The caller links it into a channel or DM list.
func (d *Data) NewMessage(senderID int64, text string, now int64) *models.Message {
	m := &models.Message{
		ID:       d.NextMessageID,
		SenderID: senderID,
		Text:     text,
		TimeSent: now,
		Reacts:   []models.React{},
	}
	d.NextMessageID++
	d.Messages[m.ID] = m
	return m
}

func (d *Data) Message(id int64) (*models.Message, bool) {
	m, ok := d.Messages[id]
	return m, ok
}

// ChannelOfMessage finds the channel whose list holds the message.
func (d *Data) ChannelOfMessage(id int64) (*models.Channel, bool) {
	for _, chID := range d.ChannelIDs() {
		if ContainsID(d.Channels[chID].MessageIDs, id) {
			return d.Channels[chID], true
		}
	}
	return nil, false
}

// DMOfMessage finds the DM whose list holds the message.
func (d *Data) DMOfMessage(id int64) (*models.DM, bool) {
	for _, dmID := range d.DMIDs() {
		if ContainsID(d.DMs[dmID].MessageIDs, id) {
			return d.DMs[dmID], true
		}
	}
	return nil, false
}

// DeleteMessage drops the message from the global table and from its
// container's list.
func (d *Data) DeleteMessage(id int64) {
	if ch, ok := d.ChannelOfMessage(id); ok {
		ch.MessageIDs = RemoveID(ch.MessageIDs, id)
	} else if dm, ok := d.DMOfMessage(id); ok {
		dm.MessageIDs = RemoveID(dm.MessageIDs, id)
	}
	delete(d.Messages, id)
}

// MessagePage pages through an ordered id list, most recent first. start
// must satisfy 0 <= start <= len(ids); start == len(ids) yields an empty
// final page. end is start+PageSize, or PageEnd when the page reaches the
// oldest message.
func (d *Data) MessagePage(ids []int64, start int, viewerID int64) ([]models.MessageView, int) {
	end := start + PageSize
	page := make([]models.MessageView, 0, PageSize)
	for i := start; i < end && i < len(ids); i++ {
		if m, ok := d.Messages[ids[i]]; ok {
			page = append(page, d.viewMessage(viewerID, m))
		}
	}
	if end >= len(ids) {
		end = PageEnd
	}
	return page, end
}

// viewMessage annotates reacts with whether the viewer is among them.
func (d *Data) viewMessage(viewerID int64, m *models.Message) models.MessageView {
	reacts := make([]models.ReactView, 0, len(m.Reacts))
	for _, r := range m.Reacts {
		reacts = append(reacts, models.ReactView{
			ReactID:           r.ReactID,
			UIDs:              r.UIDs,
			IsThisUserReacted: ContainsID(r.UIDs, viewerID),
		})
	}
	return models.MessageView{
		ID:       m.ID,
		SenderID: m.SenderID,
		Text:     m.Text,
		TimeSent: m.TimeSent,
		Reacts:   reacts,
		Pinned:   m.Pinned,
	}
}

// ViewMessage is viewMessage for callers outside the package.
func (d *Data) ViewMessage(viewerID int64, m *models.Message) models.MessageView {
	return d.viewMessage(viewerID, m)
}

// Notifications

func (d *Data) Notify(uid int64, n models.Notification) {
	d.Notifications[uid] = append(d.Notifications[uid], n)
}

// TakeNotifications returns the newest 20 notifications and truncates the
// stored list to those 20. Older entries are gone for good.
func (d *Data) TakeNotifications(uid int64) []models.Notification {
	stored := d.Notifications[uid]
	recent := make([]models.Notification, 0, 20)
	for i := len(stored) - 1; i >= 0 && len(recent) < 20; i-- {
		recent = append(recent, stored[i])
	}
	kept := make([]models.Notification, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		kept = append(kept, recent[i])
	}
	d.Notifications[uid] = kept
	return recent
}

// NotifyChannelTags notifies every channel member whose handle is tagged in
// text, one notification each no matter how many times they are tagged.
// taggerID is the user the notification is attributed to.
func (d *Data) NotifyChannelTags(taggerID int64, ch *models.Channel, text string) {
	tagger, ok := d.Users[taggerID]
	if !ok {
		return
	}
	for _, uid := range ch.MemberIDs {
		u, ok := d.Users[uid]
		if !ok || u.Removed() {
			continue
		}
		if Tagged(text, u.Handle) {
			d.Notify(uid, models.Notification{
				ChannelID: ch.ID,
				DMID:      -1,
				Message:   fmt.Sprintf("%s tagged you in %s: %s", tagger.Handle, ch.Name, firstRunes(text, 20)),
			})
		}
	}
}

// NotifyDMTags is NotifyChannelTags for DM members.
func (d *Data) NotifyDMTags(taggerID int64, dm *models.DM, text string) {
	tagger, ok := d.Users[taggerID]
	if !ok {
		return
	}
	for _, uid := range dm.MemberIDs {
		u, ok := d.Users[uid]
		if !ok || u.Removed() {
			continue
		}
		if Tagged(text, u.Handle) {
			d.Notify(uid, models.Notification{
				ChannelID: -1,
				DMID:      dm.ID,
				Message:   fmt.Sprintf("%s tagged you in %s: %s", tagger.Handle, dm.Name, firstRunes(text, 20)),
			})
		}
	}
}

// Tagged reports whether text tags handle: "@handle" followed by end of
// string or a non-alphanumeric character.
func Tagged(text, handle string) bool {
	if handle == "" {
		return false
	}
	needle := "@" + handle
	for from := 0; ; {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			return false
		}
		end := from + i + len(needle)
		if end >= len(text) || !isAlnum(text[end]) {
			return true
		}
		from = from + i + 1
	}
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Id set helpers

func ContainsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func RemoveID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
