package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/scheduler"
	"github.com/unsw-memes/memes/internal/store"
)

type fixture struct {
	svc *Service
	st  *store.Store

	alice int64 // global owner, channel owner, dm creator
	bob   int64 // plain member of both
	carol int64 // outsider

	chID int64
	dmID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New("", zap.NewNop())
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)

	f := &fixture{svc: NewService(st, sched, zap.NewNop()), st: st}

	err := st.Update(func(d *store.Data) error {
		d.SeedWorkspaceStats(1000)
		for _, handle := range []string{"alice", "bob", "carol"} {
			u := &models.User{
				Email:     handle + "@example.com",
				NameFirst: handle,
				NameLast:  "Tester",
				Handle:    handle,
			}
			d.AddUser(u)
			d.SeedUserStats(u.ID, 1000)
		}
		f.alice, f.bob, f.carol = 1, 2, 3
		d.GlobalOwners[f.alice] = true

		ch := &models.Channel{
			Name:       "general",
			IsPublic:   true,
			OwnerIDs:   []int64{f.alice},
			MemberIDs:  []int64{f.alice, f.bob},
			MessageIDs: []int64{},
			Standup:    models.Standup{CreatorID: models.StandupCreatorNone},
		}
		d.AddChannel(ch)
		f.chID = ch.ID

		dm := &models.DM{
			Name:       "alice, bob",
			CreatorID:  f.alice,
			MemberIDs:  []int64{f.alice, f.bob},
			MessageIDs: []int64{},
		}
		d.AddDM(dm)
		f.dmID = dm.ID
		return nil
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) message(t *testing.T, id int64) models.Message {
	t.Helper()
	var out models.Message
	err := f.st.View(func(d *store.Data) error {
		m, ok := d.Message(id)
		require.True(t, ok)
		out = *m
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSend(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Send(f.alice, f.chID, "")
	require.Error(t, err)
	_, err = f.svc.Send(f.alice, f.chID, strings.Repeat("x", 1001))
	require.Error(t, err)
	_, err = f.svc.Send(f.carol, f.chID, "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	_, err = f.svc.Send(f.alice, f.chID+99, "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	first, err := f.svc.Send(f.alice, f.chID, "first")
	require.NoError(t, err)
	second, err := f.svc.Send(f.bob, f.chID, "second")
	require.NoError(t, err)

	err = f.st.View(func(d *store.Data) error {
		ch, _ := d.Channel(f.chID)
		assert.Equal(t, []int64{second, first}, ch.MessageIDs)
		assert.Equal(t, int64(1), d.UserStats[f.bob].NumMessagesSent)
		return nil
	})
	require.NoError(t, err)
}

type fakeListener struct {
	callerID int64
	dmID     int64
	text     string
	calls    int
}

func (l *fakeListener) Listen(callerID, dmID int64, text string) {
	l.callerID, l.dmID, l.text = callerID, dmID, text
	l.calls++
}

func TestSendDMForwardsToAssistant(t *testing.T) {
	f := newFixture(t)
	listener := &fakeListener{}
	f.svc.SetAssistant(listener)

	// not an assistant DM yet: no forward
	_, err := f.svc.SendDM(f.alice, f.dmID, "plain")
	require.NoError(t, err)
	assert.Equal(t, 0, listener.calls)

	err = f.st.Update(func(d *store.Data) error {
		d.AssistantDMs[f.alice] = f.dmID
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.SendDM(f.alice, f.dmID, "set handle to memelord")
	require.NoError(t, err)
	require.Equal(t, 1, listener.calls)
	assert.Equal(t, f.alice, listener.callerID)
	assert.Equal(t, f.dmID, listener.dmID)
	assert.Equal(t, "set handle to memelord", listener.text)

	// someone else's message in the same DM is not the bound user's request
	_, err = f.svc.SendDM(f.bob, f.dmID, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, listener.calls)
}

func TestSendLater(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SendLater(f.alice, f.chID, "late", time.Now().Add(-5*time.Second).Unix())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	id, err := f.svc.SendLater(f.alice, f.chID, "delivered @bob", time.Now().Unix())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var found bool
		f.st.View(func(d *store.Data) error {
			_, found = d.Message(id)
			return nil
		})
		return found
	}, 2*time.Second, 10*time.Millisecond)

	err = f.st.View(func(d *store.Data) error {
		ch, _ := d.Channel(f.chID)
		assert.Equal(t, []int64{id}, ch.MessageIDs)
		// tags fire at delivery
		require.Len(t, d.Notifications[f.bob], 1)
		assert.Contains(t, d.Notifications[f.bob][0].Message, "tagged you")
		return nil
	})
	require.NoError(t, err)
}

func TestSendLaterDroppedWhenDMGone(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.SendLaterDM(f.alice, f.dmID, "too late", time.Now().Add(200*time.Millisecond).Unix())
	require.NoError(t, err)

	err = f.st.Update(func(d *store.Data) error {
		delete(d.DMs, f.dmID)
		return nil
	})
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)
	err = f.st.View(func(d *store.Data) error {
		_, found := d.Message(id)
		assert.False(t, found)
		return nil
	})
	require.NoError(t, err)
}

func TestEditPermissions(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Send(f.bob, f.chID, "original")
	require.NoError(t, err)

	err = f.svc.Edit(f.carol, id, "nope")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	require.NoError(t, f.svc.Edit(f.bob, id, "by sender"))
	require.NoError(t, f.svc.Edit(f.alice, id, "by channel owner"))
	assert.Equal(t, "by channel owner", f.message(t, id).Text)

	err = f.svc.Edit(f.bob, id, strings.Repeat("x", 1001))
	require.Error(t, err)

	// editing to empty removes the message
	require.NoError(t, f.svc.Edit(f.bob, id, ""))
	err = f.st.View(func(d *store.Data) error {
		_, found := d.Message(id)
		assert.False(t, found)
		return nil
	})
	require.NoError(t, err)
}

func TestEditAttributesTagsToSender(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Send(f.bob, f.chID, "plain")
	require.NoError(t, err)

	// alice edits, but the tag is attributed to bob, the sender
	require.NoError(t, f.svc.Edit(f.alice, id, "hey @alice"))

	err = f.st.View(func(d *store.Data) error {
		notifs := d.Notifications[f.alice]
		require.Len(t, notifs, 1)
		assert.Equal(t, "bob tagged you in general: hey @alice", notifs[0].Message)
		return nil
	})
	require.NoError(t, err)
}

func TestRemoveKeepsSentCredit(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Send(f.bob, f.chID, "to be removed")
	require.NoError(t, err)

	err = f.svc.Remove(f.carol, id)
	require.Error(t, err)

	require.NoError(t, f.svc.Remove(f.bob, id))

	err = f.st.View(func(d *store.Data) error {
		_, found := d.Message(id)
		assert.False(t, found)
		ch, _ := d.Channel(f.chID)
		assert.Empty(t, ch.MessageIDs)

		// existence dropped, the sender's credit stayed
		last := d.Workspace.MessagesExist[len(d.Workspace.MessagesExist)-1]
		assert.Equal(t, int64(0), last.NumMessagesExist)
		assert.Equal(t, int64(1), d.UserStats[f.bob].NumMessagesSent)
		return nil
	})
	require.NoError(t, err)

	err = f.svc.Remove(f.bob, id)
	require.Error(t, err)
}

func TestDMEditPermissions(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.SendDM(f.bob, f.dmID, "dm message")
	require.NoError(t, err)

	// alice is the DM creator, so she may edit; bob may as sender
	require.NoError(t, f.svc.Edit(f.alice, id, "edited"))

	// a global owner who is not the creator has no special DM powers
	err = f.st.Update(func(d *store.Data) error {
		dm, _ := d.DM(f.dmID)
		dm.CreatorID = f.bob
		return nil
	})
	require.NoError(t, err)
	err = f.svc.Edit(f.alice, id, "still edited")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestReactAndUnreact(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Send(f.bob, f.chID, "react to me")
	require.NoError(t, err)

	err = f.svc.React(f.alice, id, 2)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	err = f.svc.React(f.carol, id, 1)
	require.Error(t, err)

	require.NoError(t, f.svc.React(f.alice, id, 1))
	err = f.svc.React(f.alice, id, 1)
	require.Error(t, err)

	m := f.message(t, id)
	require.Len(t, m.Reacts, 1)
	assert.Equal(t, []int64{f.alice}, m.Reacts[0].UIDs)

	err = f.st.View(func(d *store.Data) error {
		notifs := d.Notifications[f.bob]
		require.Len(t, notifs, 1)
		assert.Equal(t, "alice reacted to your message in general", notifs[0].Message)
		return nil
	})
	require.NoError(t, err)

	err = f.svc.Unreact(f.bob, id, 1)
	require.Error(t, err)
	require.NoError(t, f.svc.Unreact(f.alice, id, 1))
	m = f.message(t, id)
	assert.Empty(t, m.Reacts[0].UIDs)
}

func TestReactNoNotificationWhenSenderLeft(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Send(f.bob, f.chID, "react to me")
	require.NoError(t, err)

	err = f.st.Update(func(d *store.Data) error {
		ch, _ := d.Channel(f.chID)
		ch.MemberIDs = store.RemoveID(ch.MemberIDs, f.bob)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.React(f.alice, id, 1))
	err = f.st.View(func(d *store.Data) error {
		assert.Empty(t, d.Notifications[f.bob])
		return nil
	})
	require.NoError(t, err)
}

func TestPinAndUnpin(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Send(f.bob, f.chID, "pin me")
	require.NoError(t, err)

	// the sender is not a channel owner
	err = f.svc.Pin(f.bob, id)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, f.svc.Pin(f.alice, id))
	assert.True(t, f.message(t, id).Pinned)

	err = f.svc.Pin(f.alice, id)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	// permissions are checked before the pinned state, so a plain member
	// probing an already-pinned message still gets 403
	err = f.svc.Pin(f.bob, id)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	err = f.svc.Unpin(f.bob, id)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	require.NoError(t, f.svc.Unpin(f.alice, id))
	assert.False(t, f.message(t, id).Pinned)
	err = f.svc.Unpin(f.alice, id)
	require.Error(t, err)
}

func TestShare(t *testing.T) {
	f := newFixture(t)
	og, err := f.svc.Send(f.bob, f.chID, "the original")
	require.NoError(t, err)

	_, err = f.svc.Share(f.bob, og, "x", f.chID, f.dmID)
	require.Error(t, err)
	_, err = f.svc.Share(f.bob, og, "x", NoTarget, NoTarget)
	require.Error(t, err)
	_, err = f.svc.Share(f.carol, og, "", NoTarget, f.dmID)
	require.Error(t, err)

	shared, err := f.svc.Share(f.bob, og, " +1", NoTarget, f.dmID)
	require.NoError(t, err)

	m := f.message(t, shared)
	assert.Equal(t, "the original +1", m.Text)
	assert.Equal(t, f.bob, m.SenderID)

	err = f.st.View(func(d *store.Data) error {
		dm, _ := d.DM(f.dmID)
		assert.Contains(t, dm.MessageIDs, shared)
		return nil
	})
	require.NoError(t, err)

	// destination membership is required
	err = f.st.Update(func(d *store.Data) error {
		dm, _ := d.DM(f.dmID)
		dm.MemberIDs = store.RemoveID(dm.MemberIDs, f.bob)
		return nil
	})
	require.NoError(t, err)
	_, err = f.svc.Share(f.bob, og, "", NoTarget, f.dmID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(f.alice, f.chID, "Needle in the channel")
	require.NoError(t, err)
	_, err = f.svc.SendDM(f.bob, f.dmID, "a needle in the dm")
	require.NoError(t, err)
	_, err = f.svc.Send(f.alice, f.chID, "nothing here")
	require.NoError(t, err)

	_, err = f.svc.Search(f.alice, "")
	require.Error(t, err)
	_, err = f.svc.Search(f.alice, strings.Repeat("x", 1001))
	require.Error(t, err)

	out, err := f.svc.Search(f.alice, "NEEDLE")
	require.NoError(t, err)
	assert.Len(t, out, 2)

	// carol is in neither conversation
	out, err = f.svc.Search(f.carol, "needle")
	require.NoError(t, err)
	assert.Empty(t, out)
}
