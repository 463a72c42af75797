package store

import "github.com/unsw-memes/memes/internal/models"

// Shared send path. Every message that enters a channel or DM goes through
// here: standup summaries and assistant replies included, so tag scanning
// and analytics apply to them the same as to a direct send.

// SendChannelMessage creates a message at the head of the channel's list,
// records analytics and notifies tagged members.
func (d *Data) SendChannelMessage(senderID int64, ch *models.Channel, text string, now int64) *models.Message {
	m := d.NewMessage(senderID, text, now)
	ch.MessageIDs = append([]int64{m.ID}, ch.MessageIDs...)
	d.RecordMessagesExist(now)
	d.RecordMessageSent(senderID, now)
	d.NotifyChannelTags(senderID, ch, text)
	return m
}

// SendDMMessage is SendChannelMessage for DMs.
func (d *Data) SendDMMessage(senderID int64, dm *models.DM, text string, now int64) *models.Message {
	m := d.NewMessage(senderID, text, now)
	dm.MessageIDs = append([]int64{m.ID}, dm.MessageIDs...)
	d.RecordMessagesExist(now)
	d.RecordMessageSent(senderID, now)
	d.NotifyDMTags(senderID, dm, text)
	return m
}
