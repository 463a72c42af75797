package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New("", zap.NewNop())
}

func seedUser(t *testing.T, st *Store, handle string) int64 {
	t.Helper()
	var id int64
	err := st.Update(func(d *Data) error {
		u := &models.User{
			Email:     handle + "@example.com",
			NameFirst: handle,
			NameLast:  "Tester",
			Handle:    handle,
		}
		d.AddUser(u)
		d.SeedUserStats(u.ID, 1000)
		id = u.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	st := New(path, zap.NewNop())

	uid := seedUser(t, st, "jade")
	err := st.Update(func(d *Data) error {
		ch := &models.Channel{
			Name:       "general",
			IsPublic:   true,
			OwnerIDs:   []int64{uid},
			MemberIDs:  []int64{uid},
			MessageIDs: []int64{},
			Standup:    models.Standup{CreatorID: models.StandupCreatorNone},
		}
		d.AddChannel(ch)
		d.SendChannelMessage(uid, ch, "hello world", 1234)
		return nil
	})
	require.NoError(t, err)
	st.Flush()

	restored := New(path, zap.NewNop())
	require.NoError(t, restored.Restore())

	err = restored.View(func(d *Data) error {
		u, ok := d.User(uid)
		require.True(t, ok)
		assert.Equal(t, "jade", u.Handle)

		ch, ok := d.Channel(1)
		require.True(t, ok)
		assert.Equal(t, "general", ch.Name)
		require.Len(t, ch.MessageIDs, 1)

		m, ok := d.Message(ch.MessageIDs[0])
		require.True(t, ok)
		assert.Equal(t, "hello world", m.Text)
		assert.Equal(t, int64(1234), m.TimeSent)

		// counters survive, so new ids never collide with restored ones
		assert.Equal(t, int64(2), d.NextMessageID)
		return nil
	})
	require.NoError(t, err)
}

func TestRestoreMissingFile(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	require.NoError(t, st.Restore())
	err := st.View(func(d *Data) error {
		assert.Empty(t, d.Users)
		return nil
	})
	require.NoError(t, err)
}

func TestMessagePage(t *testing.T) {
	st := newTestStore(t)
	uid := seedUser(t, st, "jade")

	var ids []int64
	err := st.Update(func(d *Data) error {
		ch := &models.Channel{Name: "c", MemberIDs: []int64{uid}, Standup: models.Standup{CreatorID: models.StandupCreatorNone}}
		d.AddChannel(ch)
		for i := 0; i < 124; i++ {
			d.SendChannelMessage(uid, ch, "msg", int64(i))
		}
		ids = ch.MessageIDs
		return nil
	})
	require.NoError(t, err)

	err = st.View(func(d *Data) error {
		page, end := d.MessagePage(ids, 0, uid)
		assert.Len(t, page, 50)
		assert.Equal(t, 50, end)
		// most recent first
		assert.Equal(t, int64(124), page[0].ID)

		page, end = d.MessagePage(ids, 100, uid)
		assert.Len(t, page, 24)
		assert.Equal(t, PageEnd, end)

		page, end = d.MessagePage(ids, 124, uid)
		assert.Empty(t, page)
		assert.Equal(t, PageEnd, end)

		// exactly one page left
		page, end = d.MessagePage(ids, 74, uid)
		assert.Len(t, page, 50)
		assert.Equal(t, PageEnd, end)
		return nil
	})
	require.NoError(t, err)
}

func TestTagged(t *testing.T) {
	assert.True(t, Tagged("hi @jade", "jade"))
	assert.True(t, Tagged("@jade", "jade"))
	assert.True(t, Tagged("hello @jade!", "jade"))
	assert.True(t, Tagged("@jade7 no but @jade, yes", "jade"))
	assert.False(t, Tagged("@jade7", "jade"))
	assert.False(t, Tagged("jade", "jade"))
	assert.False(t, Tagged("email@jade.com is fine", "jade"))
	assert.True(t, Tagged("email@jade.com", "jade.com"))
	assert.False(t, Tagged("anything", ""))
}

func TestTakeNotificationsTruncates(t *testing.T) {
	st := newTestStore(t)
	uid := seedUser(t, st, "jade")

	err := st.Update(func(d *Data) error {
		for i := 0; i < 25; i++ {
			d.Notify(uid, models.Notification{ChannelID: int64(i), DMID: -1, Message: "n"})
		}
		return nil
	})
	require.NoError(t, err)

	err = st.Update(func(d *Data) error {
		got := d.TakeNotifications(uid)
		require.Len(t, got, 20)
		// newest first
		assert.Equal(t, int64(24), got[0].ChannelID)
		assert.Equal(t, int64(5), got[19].ChannelID)
		// the store keeps only what was returned
		assert.Len(t, d.Notifications[uid], 20)
		return nil
	})
	require.NoError(t, err)
}

func TestEngagementTracking(t *testing.T) {
	st := newTestStore(t)
	uid := seedUser(t, st, "jade")

	err := st.Update(func(d *Data) error {
		d.SeedWorkspaceStats(1000)
		d.RecordChannelsJoined(uid, 1, 1001)
		d.RecordDMsJoined(uid, 1, 1002)
		assert.Contains(t, d.Workspace.ActiveUserIDs, uid)

		// still in a DM, so still active
		d.RecordChannelsJoined(uid, -1, 1003)
		assert.Contains(t, d.Workspace.ActiveUserIDs, uid)

		d.RecordDMsJoined(uid, -1, 1004)
		assert.NotContains(t, d.Workspace.ActiveUserIDs, uid)
		return nil
	})
	require.NoError(t, err)
}

func TestSendChannelMessageBookkeeping(t *testing.T) {
	st := newTestStore(t)
	alice := seedUser(t, st, "alice")
	bob := seedUser(t, st, "bob")

	err := st.Update(func(d *Data) error {
		d.SeedWorkspaceStats(1000)
		ch := &models.Channel{Name: "c", MemberIDs: []int64{alice, bob}, Standup: models.Standup{CreatorID: models.StandupCreatorNone}}
		d.AddChannel(ch)

		d.SendChannelMessage(alice, ch, "hi @bob and again @bob", 2000)

		// one notification despite two tags
		require.Len(t, d.Notifications[bob], 1)
		assert.Equal(t, "alice tagged you in c: hi @bob and again @b", d.Notifications[bob][0].Message)
		assert.Empty(t, d.Notifications[alice])

		ustats := d.UserStats[alice]
		assert.Equal(t, int64(1), ustats.NumMessagesSent)
		last := d.Workspace.MessagesExist[len(d.Workspace.MessagesExist)-1]
		assert.Equal(t, int64(1), last.NumMessagesExist)
		return nil
	})
	require.NoError(t, err)
}
