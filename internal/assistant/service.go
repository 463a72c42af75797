// Package assistant implements the personal assistant bot. Each user gets a
// dedicated DM with the bot; messages sent into it are parsed as requests
// and answered with bot messages in the same DM. The bot is a regular
// account with no password, so it can never be logged into.
package assistant

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/auth"
	"github.com/unsw-memes/memes/internal/channels"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
	"github.com/unsw-memes/memes/internal/users"
)

const (
	botHandle    = "personalassistant"
	botEmail     = "assistant@memes.local"
	botNameFirst = "Personal"
	botNameLast  = "Assistant"
)

const greeting = "Hi! I'm your personal assistant. Send ? to see what I can help with."

const help = `I can handle these requests:
set handle to <handle>
set name to <first> <last>
set email to <email>
set pic to <url>
create public channel "<name>"
create private channel "<name>"
Add emails on the lines after a create request and I will invite those people.
Separate multiple requests with commas.`

type Service struct {
	st       *store.Store
	users    *users.Service
	channels *channels.Service
	logger   *zap.Logger
	now      func() int64
}

func NewService(st *store.Store, usersSvc *users.Service, channelsSvc *channels.Service, logger *zap.Logger) *Service {
	return &Service{
		st:       st,
		users:    usersSvc,
		channels: channelsSvc,
		logger:   logger,
		now:      func() int64 { return time.Now().Unix() },
	}
}

// Create sets up the caller's assistant DM: the bot account is registered
// on first use, a DM is opened with the bot as creator, and the bot greets
// the caller. One assistant DM per user.
func (s *Service) Create(callerID int64) (int64, error) {
	var id int64
	err := s.st.Update(func(d *store.Data) error {
		if _, bound := d.AssistantDMs[callerID]; bound {
			return apperr.Input("user already has an assistant dm")
		}
		caller, ok := d.User(callerID)
		if !ok || caller.Removed() {
			return apperr.Input("user does not exist")
		}
		now := s.now()
		bot := s.ensureBot(d, now)

		handles := []string{bot.Handle, caller.Handle}
		sort.Strings(handles)
		dm := &models.DM{
			Name:       strings.Join(handles, ", "),
			CreatorID:  bot.ID,
			MemberIDs:  []int64{bot.ID, callerID},
			MessageIDs: []int64{},
		}
		d.AddDM(dm)
		id = dm.ID
		d.AssistantDMs[callerID] = dm.ID

		d.RecordDMsJoined(bot.ID, 1, now)
		d.RecordDMsJoined(callerID, 1, now)
		d.RecordDMsExist(now)

		d.SendDMMessage(bot.ID, dm, greeting, now)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("assistant dm created", zap.Int64("dm", id), zap.Int64("uid", callerID))
	return id, nil
}

// ensureBot finds or registers the bot account, identified by the stored
// bot id so a user holding the bot's handle is never mistaken for it. The
// bot is not a global owner and holds no password.
func (s *Service) ensureBot(d *store.Data, now int64) *models.User {
	if bot, ok := d.User(d.AssistantBotID); ok {
		return bot
	}
	handle, email := botHandle, botEmail
	for i := 0; ; i++ {
		_, handleTaken := d.UserByHandle(handle)
		_, emailTaken := d.UserByEmail(email)
		if !handleTaken && !emailTaken {
			break
		}
		handle = fmt.Sprintf("%s%d", botHandle, i)
		email = fmt.Sprintf("assistant%d@memes.local", i)
	}
	bot := &models.User{
		Email:     email,
		NameFirst: botNameFirst,
		NameLast:  botNameLast,
		Handle:    handle,
	}
	d.AddUser(bot)
	d.SeedUserStats(bot.ID, now)
	d.AssistantBotID = bot.ID
	return bot
}

// Listen handles one message addressed to the assistant and posts the
// replies into the same DM. A message opening with a create request takes
// its following lines as emails to invite; any other message is a
// comma-separated list of requests, answered one reply each.
func (s *Service) Listen(callerID, dmID int64, text string) {
	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])

	var replies []string
	if strings.HasPrefix(strings.ToLower(first), "create ") {
		replies = s.createChannel(callerID, first, lines[1:])
	} else {
		for _, req := range strings.Split(text, ",") {
			if req = strings.TrimSpace(req); req != "" {
				replies = append(replies, s.answer(callerID, req))
			}
		}
	}
	if len(replies) == 0 {
		return
	}

	err := s.st.Update(func(d *store.Data) error {
		dm, ok := d.DM(dmID)
		if !ok {
			return nil
		}
		bot, ok := d.User(d.AssistantBotID)
		if !ok {
			return nil
		}
		now := s.now()
		for _, reply := range replies {
			d.SendDMMessage(bot.ID, dm, reply, now)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("assistant reply", zap.Error(err))
	}
}

// answer handles one request and produces one reply.
func (s *Service) answer(callerID int64, req string) string {
	if req == "?" {
		return help
	}
	lower := strings.ToLower(req)
	switch {
	case strings.HasPrefix(lower, "set handle to "):
		handle := req[len("set handle to "):]
		if err := s.users.SetHandle(callerID, handle); err != nil {
			return fmt.Sprintf("I couldn't change your handle: %s.", apperr.MessageOf(err))
		}
		return fmt.Sprintf("Done! Your handle is now %s.", handle)

	case strings.HasPrefix(lower, "set name to "):
		parts := strings.Fields(req[len("set name to "):])
		if len(parts) < 2 {
			return "I need both a first and a last name, like: set name to Jade Painter."
		}
		first := parts[0]
		last := strings.Join(parts[1:], " ")
		if err := s.users.SetName(callerID, first, last); err != nil {
			return fmt.Sprintf("I couldn't change your name: %s.", apperr.MessageOf(err))
		}
		return fmt.Sprintf("Done! Your name is now %s %s.", first, last)

	case strings.HasPrefix(lower, "set email to "):
		email := req[len("set email to "):]
		if err := s.users.SetEmail(callerID, email); err != nil {
			return fmt.Sprintf("I couldn't change your email: %s.", apperr.MessageOf(err))
		}
		return fmt.Sprintf("Done! Your email is now %s.", email)

	case strings.HasPrefix(lower, "set pic to "):
		url := req[len("set pic to "):]
		if err := s.users.UploadPhoto(callerID, url, 0, 0, 0, 0); err != nil {
			return fmt.Sprintf("I couldn't set your picture: %s.", apperr.MessageOf(err))
		}
		return "Done! Your profile picture is updated."
	}
	return "Sorry, I don't understand that. Send ? for the list of requests."
}

// createChannel handles a create request plus invite emails on the
// following lines.
func (s *Service) createChannel(callerID int64, req string, inviteLines []string) []string {
	lower := strings.ToLower(req)
	var isPublic bool
	switch {
	case strings.HasPrefix(lower, "create public channel "):
		isPublic = true
	case strings.HasPrefix(lower, "create private channel "):
		isPublic = false
	default:
		return []string{"Sorry, I don't understand that. Send ? for the list of requests."}
	}

	name, ok := quoted(req)
	if !ok {
		return []string{`I need the channel name in quotes, like: create public channel "memes".`}
	}
	chID, err := s.channels.Create(callerID, name, isPublic)
	if err != nil {
		return []string{fmt.Sprintf("I couldn't create the channel: %s.", apperr.MessageOf(err))}
	}
	replies := []string{fmt.Sprintf("Done! I created the channel %s.", name)}

	for _, line := range inviteLines {
		email := strings.TrimSpace(line)
		if email == "" {
			continue
		}
		if !auth.ValidEmail(email) {
			replies = append(replies, fmt.Sprintf("%s is not an email address, so I couldn't invite them.", email))
			continue
		}
		var uid int64
		found := false
		_ = s.st.View(func(d *store.Data) error {
			if u, ok := d.UserByEmail(email); ok {
				uid = u.ID
				found = true
			}
			return nil
		})
		if !found {
			replies = append(replies, fmt.Sprintf("I couldn't find anyone with the email %s.", email))
			continue
		}
		if err := s.channels.Invite(callerID, chID, uid); err != nil {
			replies = append(replies, fmt.Sprintf("I couldn't invite %s: %s.", email, apperr.MessageOf(err)))
			continue
		}
		replies = append(replies, fmt.Sprintf("I invited %s to %s.", email, name))
	}
	return replies
}

// quoted extracts the first double-quoted substring of s.
func quoted(s string) (string, bool) {
	start := strings.Index(s, `"`)
	if start < 0 {
		return "", false
	}
	end := strings.Index(s[start+1:], `"`)
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}
