package models

// User is a registered account. Users are never physically deleted: admin
// removal rewrites the name to "Removed user" and clears Email and Handle so
// both can be reused. A cleared Handle marks the user as removed.
type User struct {
	ID            int64  `json:"uId"`
	Email         string `json:"email"`
	NameFirst     string `json:"nameFirst"`
	NameLast      string `json:"nameLast"`
	Handle        string `json:"handleStr"`
	ProfileImgURL string `json:"profileImgUrl"`
}

// Removed reports whether this account has been anonymized by an admin.
func (u *User) Removed() bool {
	return u.Handle == ""
}

// React is one reaction type on a message and the set of users who used it.
// A user id appears at most once per reaction type.
type React struct {
	ReactID int64   `json:"reactId"`
	UIDs    []int64 `json:"uIds"`
}

// ReactView is a React annotated with whether the requesting user reacted.
type ReactView struct {
	ReactID           int64   `json:"reactId"`
	UIDs              []int64 `json:"uIds"`
	IsThisUserReacted bool    `json:"isThisUserReacted"`
}

// Message lives in the global message table and in exactly one channel's or
// DM's ordered id list at a time.
type Message struct {
	ID       int64   `json:"messageId"`
	SenderID int64   `json:"uId"`
	Text     string  `json:"message"`
	TimeSent int64   `json:"timeSent"`
	Reacts   []React `json:"reacts"`
	Pinned   bool    `json:"isPinned"`
}

// MessageView is the per-caller read shape of a Message.
type MessageView struct {
	ID       int64       `json:"messageId"`
	SenderID int64       `json:"uId"`
	Text     string      `json:"message"`
	TimeSent int64       `json:"timeSent"`
	Reacts   []ReactView `json:"reacts"`
	Pinned   bool        `json:"isPinned"`
}

// StandupEntry is one buffered line of an active standup.
type StandupEntry struct {
	Handle string `json:"handle"`
	Text   string `json:"text"`
}

// StandupCreatorNone is the CreatorID sentinel while no standup is active.
const StandupCreatorNone int64 = -1

// Standup is the per-channel standup state. While idle, CreatorID is
// StandupCreatorNone, TimeFinish is zero and Buffer is empty.
type Standup struct {
	Active     bool           `json:"isActive"`
	CreatorID  int64          `json:"creatorId"`
	TimeFinish int64          `json:"timeFinish"`
	Buffer     []StandupEntry `json:"buffer"`
}

// Channel holds its membership as id sets resolved through the canonical
// user table. OwnerIDs is always a subset of MemberIDs. MessageIDs is
// ordered newest first.
type Channel struct {
	ID         int64   `json:"channelId"`
	Name       string  `json:"name"`
	IsPublic   bool    `json:"isPublic"`
	OwnerIDs   []int64 `json:"ownerIds"`
	MemberIDs  []int64 `json:"memberIds"`
	MessageIDs []int64 `json:"messageIds"`
	Standup    Standup `json:"standup"`
}

// DM is a direct-message group. Name is derived from the members' handles at
// creation and never recomputed. CreatorID is fixed at creation; only the
// creator, while still a member, may delete the DM.
type DM struct {
	ID         int64   `json:"dmId"`
	Name       string  `json:"name"`
	CreatorID  int64   `json:"creatorId"`
	MemberIDs  []int64 `json:"memberIds"`
	MessageIDs []int64 `json:"messageIds"`
}

// Notification is immutable once created. Exactly one of ChannelID and DMID
// is set; the other is -1.
type Notification struct {
	ChannelID int64  `json:"channelId"`
	DMID      int64  `json:"dmId"`
	Message   string `json:"notificationMessage"`
}

// Time-series points, one struct per metric so the wire keys match the
// metric they carry. Series are append-only; history is never rewritten.

type ChannelsExistPoint struct {
	NumChannelsExist int64 `json:"numChannelsExist"`
	TimeStamp        int64 `json:"timeStamp"`
}

type DMsExistPoint struct {
	NumDMsExist int64 `json:"numDmsExist"`
	TimeStamp   int64 `json:"timeStamp"`
}

type MessagesExistPoint struct {
	NumMessagesExist int64 `json:"numMessagesExist"`
	TimeStamp        int64 `json:"timeStamp"`
}

type ChannelsJoinedPoint struct {
	NumChannelsJoined int64 `json:"numChannelsJoined"`
	TimeStamp         int64 `json:"timeStamp"`
}

type DMsJoinedPoint struct {
	NumDMsJoined int64 `json:"numDmsJoined"`
	TimeStamp    int64 `json:"timeStamp"`
}

type MessagesSentPoint struct {
	NumMessagesSent int64 `json:"numMessagesSent"`
	TimeStamp       int64 `json:"timeStamp"`
}

// WorkspaceStats is the stored workspace series plus the live set of users
// currently in at least one channel or DM. The utilization rate is derived
// at read time and never stored.
type WorkspaceStats struct {
	ChannelsExist []ChannelsExistPoint `json:"channelsExist"`
	DMsExist      []DMsExistPoint      `json:"dmsExist"`
	MessagesExist []MessagesExistPoint `json:"messagesExist"`
	ActiveUserIDs []int64              `json:"activeUserIds"`
}

// UserStats is one user's stored series. The Num* fields mirror the latest
// point of each series so membership bookkeeping does not rescan history.
// NumMessagesSent is a permanent credit: message removal never decrements it.
type UserStats struct {
	NumChannelsJoined int64                 `json:"numChannelsJoined"`
	ChannelsJoined    []ChannelsJoinedPoint `json:"channelsJoined"`
	NumDMsJoined      int64                 `json:"numDmsJoined"`
	DMsJoined         []DMsJoinedPoint      `json:"dmsJoined"`
	NumMessagesSent   int64                 `json:"numMessagesSent"`
	MessagesSent      []MessagesSentPoint   `json:"messagesSent"`
}
