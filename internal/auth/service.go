// Package auth covers registration, login, sessions and password reset.
// A session is a signed JWT whose digest is registered in the session table;
// both the signature and the registration must check out, so revoking the
// digest kills the token no matter who still holds it.
package auth

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/models"
	"github.com/unsw-memes/memes/internal/store"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// Session is a freshly issued login.
type Session struct {
	UserID int64
	Token  string
}

type Service struct {
	st     *store.Store
	secret string
	mailer Mailer
	logger *zap.Logger
	now    func() int64
}

func NewService(st *store.Store, secret string, mailer Mailer, logger *zap.Logger) *Service {
	return &Service{
		st:     st,
		secret: secret,
		mailer: mailer,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Register creates an account and logs it in. The first account becomes a
// global owner and starts the workspace analytics series.
func (s *Service) Register(email, password, nameFirst, nameLast string) (Session, error) {
	if !ValidEmail(email) {
		return Session{}, apperr.Input("invalid email")
	}
	if len(password) < 6 {
		return Session{}, apperr.Input("password must be at least 6 characters")
	}
	if n := utf8.RuneCountInString(nameFirst); n < 1 || n > 50 {
		return Session{}, apperr.Input("nameFirst must be 1 to 50 characters")
	}
	if n := utf8.RuneCountInString(nameLast); n < 1 || n > 50 {
		return Session{}, apperr.Input("nameLast must be 1 to 50 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, err
	}

	var sess Session
	err = s.st.Update(func(d *store.Data) error {
		if _, ok := d.UserByEmail(email); ok {
			return apperr.Input("email already in use")
		}
		u := &models.User{
			Email:     email,
			NameFirst: nameFirst,
			NameLast:  nameLast,
			Handle:    generateHandle(d, nameFirst, nameLast),
		}
		first := len(d.Users) == 0
		d.AddUser(u)
		d.Passwords[u.ID] = string(hash)

		now := s.now()
		if first {
			d.GlobalOwners[u.ID] = true
			d.SeedWorkspaceStats(now)
		}
		d.SeedUserStats(u.ID, now)

		token, err := GenerateToken(u.ID, s.secret)
		if err != nil {
			return err
		}
		d.PutSession(TokenDigest(token), u.ID)
		sess = Session{UserID: u.ID, Token: token}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user registered", zap.Int64("uid", sess.UserID))
	return sess, nil
}

// generateHandle builds the account handle: the names lowercased, stripped
// to alphanumerics, concatenated and cut at 20 characters. On collision the
// smallest free numeric suffix starting at 0 is appended; the suffix may
// push past 20.
func generateHandle(d *store.Data, nameFirst, nameLast string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(nameFirst + nameLast) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if len(base) > 20 {
		base = base[:20]
	}
	if _, taken := d.UserByHandle(base); !taken {
		return base
	}
	for i := 0; ; i++ {
		candidate := base + strconv.Itoa(i)
		if _, taken := d.UserByHandle(candidate); !taken {
			return candidate
		}
	}
}

// Login checks credentials and opens a new session.
func (s *Service) Login(email, password string) (Session, error) {
	var (
		uid  int64
		hash string
	)
	err := s.st.View(func(d *store.Data) error {
		u, ok := d.UserByEmail(email)
		if !ok {
			return apperr.Input("email not registered")
		}
		uid = u.ID
		hash = d.Passwords[u.ID]
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Session{}, apperr.Input("incorrect password")
	}

	token, err := GenerateToken(uid, s.secret)
	if err != nil {
		return Session{}, err
	}
	err = s.st.Update(func(d *store.Data) error {
		u, ok := d.User(uid)
		if !ok || u.Removed() {
			return apperr.Input("email not registered")
		}
		d.PutSession(TokenDigest(token), uid)
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: uid, Token: token}, nil
}

// Logout ends the session the token belongs to. The token itself stays
// cryptographically valid; its registration is gone.
func (s *Service) Logout(token string) error {
	return s.st.Update(func(d *store.Data) error {
		if !d.DropSession(TokenDigest(token)) {
			return apperr.Unauthorized("invalid token")
		}
		return nil
	})
}

// Resolve maps a token to its user id. Both the signature and the session
// registration must be valid.
func (s *Service) Resolve(token string) (int64, error) {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return 0, apperr.Unauthorized("invalid token")
	}
	var uid int64
	err = s.st.View(func(d *store.Data) error {
		registered, ok := d.SessionUser(TokenDigest(token))
		if !ok || registered != claims.UserID {
			return apperr.Unauthorized("invalid token")
		}
		uid = registered
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uid, nil
}

// PasswordResetRequest issues a reset code and mails it. An unknown email is
// ignored without telling the caller, so the endpoint cannot be used to
// probe which addresses are registered. All of the user's sessions are
// revoked.
func (s *Service) PasswordResetRequest(email string) error {
	code := uuid.NewString()
	var found bool
	err := s.st.Update(func(d *store.Data) error {
		u, ok := d.UserByEmail(email)
		if !ok {
			return nil
		}
		found = true
		d.ResetCodes[code] = u.ID
		d.DropUserSessions(u.ID)
		return nil
	})
	if err != nil {
		return err
	}
	if found {
		if err := s.mailer.SendResetCode(email, code); err != nil {
			s.logger.Error("send reset code", zap.Error(err))
		}
	}
	return nil
}

// PasswordReset consumes a reset code and sets the new password. The
// password is validated before the code, so a bad password does not burn
// the code.
func (s *Service) PasswordReset(code, newPassword string) error {
	if len(newPassword) < 6 {
		return apperr.Input("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.st.Update(func(d *store.Data) error {
		uid, ok := d.ResetCodes[code]
		if !ok {
			return apperr.Input("invalid reset code")
		}
		d.Passwords[uid] = string(hash)
		delete(d.ResetCodes, code)
		return nil
	})
}
