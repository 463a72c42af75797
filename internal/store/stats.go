package store

import "github.com/unsw-memes/memes/internal/models"

// Analytics bookkeeping. Workspace series record how many channels, DMs and
// messages exist; user series record per-user membership and send counts.
// Series are append-only and every change appends exactly one point.

// SeedWorkspaceStats starts the workspace series at zero. Called once, when
// the first user registers.
func (d *Data) SeedWorkspaceStats(now int64) {
	d.Workspace.ChannelsExist = []models.ChannelsExistPoint{{NumChannelsExist: 0, TimeStamp: now}}
	d.Workspace.DMsExist = []models.DMsExistPoint{{NumDMsExist: 0, TimeStamp: now}}
	d.Workspace.MessagesExist = []models.MessagesExistPoint{{NumMessagesExist: 0, TimeStamp: now}}
	d.Workspace.ActiveUserIDs = []int64{}
}

// SeedUserStats starts a user's series at zero.
func (d *Data) SeedUserStats(uid, now int64) {
	d.UserStats[uid] = &models.UserStats{
		ChannelsJoined: []models.ChannelsJoinedPoint{{NumChannelsJoined: 0, TimeStamp: now}},
		DMsJoined:      []models.DMsJoinedPoint{{NumDMsJoined: 0, TimeStamp: now}},
		MessagesSent:   []models.MessagesSentPoint{{NumMessagesSent: 0, TimeStamp: now}},
	}
}

// RecordChannelsExist appends a point with the current channel count.
func (d *Data) RecordChannelsExist(now int64) {
	d.Workspace.ChannelsExist = append(d.Workspace.ChannelsExist, models.ChannelsExistPoint{
		NumChannelsExist: int64(len(d.Channels)),
		TimeStamp:        now,
	})
}

// RecordDMsExist appends a point with the current DM count.
func (d *Data) RecordDMsExist(now int64) {
	d.Workspace.DMsExist = append(d.Workspace.DMsExist, models.DMsExistPoint{
		NumDMsExist: int64(len(d.DMs)),
		TimeStamp:   now,
	})
}

// RecordMessagesExist appends a point with the current message count. A bulk
// delete appends one point after all its removals.
func (d *Data) RecordMessagesExist(now int64) {
	d.Workspace.MessagesExist = append(d.Workspace.MessagesExist, models.MessagesExistPoint{
		NumMessagesExist: int64(len(d.Messages)),
		TimeStamp:        now,
	})
}

// RecordChannelsJoined moves a user's channel count by delta and appends the
// new value.
func (d *Data) RecordChannelsJoined(uid, delta, now int64) {
	st, ok := d.UserStats[uid]
	if !ok {
		return
	}
	st.NumChannelsJoined += delta
	st.ChannelsJoined = append(st.ChannelsJoined, models.ChannelsJoinedPoint{
		NumChannelsJoined: st.NumChannelsJoined,
		TimeStamp:         now,
	})
	if delta > 0 {
		d.markEngaged(uid)
	} else {
		d.reviewEngagement(uid)
	}
}

// RecordDMsJoined moves a user's DM count by delta and appends the new value.
func (d *Data) RecordDMsJoined(uid, delta, now int64) {
	st, ok := d.UserStats[uid]
	if !ok {
		return
	}
	st.NumDMsJoined += delta
	st.DMsJoined = append(st.DMsJoined, models.DMsJoinedPoint{
		NumDMsJoined: st.NumDMsJoined,
		TimeStamp:    now,
	})
	if delta > 0 {
		d.markEngaged(uid)
	} else {
		d.reviewEngagement(uid)
	}
}

// RecordMessageSent credits one sent message to a user. The credit is
// permanent: message removal never calls this with a negative delta.
func (d *Data) RecordMessageSent(uid, now int64) {
	st, ok := d.UserStats[uid]
	if !ok {
		return
	}
	st.NumMessagesSent++
	st.MessagesSent = append(st.MessagesSent, models.MessagesSentPoint{
		NumMessagesSent: st.NumMessagesSent,
		TimeStamp:       now,
	})
}

// markEngaged adds a user to the active set.
func (d *Data) markEngaged(uid int64) {
	if !ContainsID(d.Workspace.ActiveUserIDs, uid) {
		d.Workspace.ActiveUserIDs = append(d.Workspace.ActiveUserIDs, uid)
	}
}

// reviewEngagement drops a user from the active set once both membership
// counts reach zero. Sent messages alone do not keep a user active.
func (d *Data) reviewEngagement(uid int64) {
	st, ok := d.UserStats[uid]
	if !ok {
		return
	}
	if st.NumChannelsJoined == 0 && st.NumDMsJoined == 0 {
		d.Workspace.ActiveUserIDs = RemoveID(d.Workspace.ActiveUserIDs, uid)
	}
}

// DropFromActive removes a user from the active set unconditionally. Used by
// admin removal.
func (d *Data) DropFromActive(uid int64) {
	d.Workspace.ActiveUserIDs = RemoveID(d.Workspace.ActiveUserIDs, uid)
}
