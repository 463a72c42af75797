package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unsw-memes/memes/internal/apperr"
	"github.com/unsw-memes/memes/internal/store"
)

type recordingMailer struct {
	to   string
	code string
}

func (m *recordingMailer) SendResetCode(to, code string) error {
	m.to = to
	m.code = code
	return nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *recordingMailer) {
	t.Helper()
	st := store.New("", zap.NewNop())
	mailer := &recordingMailer{}
	return NewService(st, "test-secret", mailer, zap.NewNop()), st, mailer
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := []struct {
		name      string
		email     string
		password  string
		nameFirst string
		nameLast  string
	}{
		{"bad email", "not-an-email", "password", "Jade", "Painter"},
		{"short password", "jade@example.com", "five5", "Jade", "Painter"},
		{"empty first name", "jade@example.com", "password", "", "Painter"},
		{"empty last name", "jade@example.com", "password", "Jade", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(tc.email, tc.password, tc.nameFirst, tc.nameLast)
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register("jade@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)

	_, err = svc.Register("jade@example.com", "password", "Other", "Person")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestRegisterHandleGeneration(t *testing.T) {
	svc, st, _ := newTestService(t)

	first, err := svc.Register("a@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)
	second, err := svc.Register("b@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)
	third, err := svc.Register("c@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)

	long, err := svc.Register("d@example.com", "password", "Abcdefghijkl", "Mnopqrstuvwxyz0123")
	require.NoError(t, err)

	err = st.View(func(d *store.Data) error {
		u, _ := d.User(first.UserID)
		assert.Equal(t, "jadepainter", u.Handle)
		u, _ = d.User(second.UserID)
		assert.Equal(t, "jadepainter0", u.Handle)
		u, _ = d.User(third.UserID)
		assert.Equal(t, "jadepainter1", u.Handle)
		u, _ = d.User(long.UserID)
		assert.Equal(t, "abcdefghijklmnopqrst", u.Handle)
		assert.Len(t, u.Handle, 20)
		return nil
	})
	require.NoError(t, err)
}

func TestFirstUserIsGlobalOwner(t *testing.T) {
	svc, st, _ := newTestService(t)

	one, err := svc.Register("a@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)
	two, err := svc.Register("b@example.com", "password", "Kai", "Rivers")
	require.NoError(t, err)

	err = st.View(func(d *store.Data) error {
		assert.True(t, d.IsGlobalOwner(one.UserID))
		assert.False(t, d.IsGlobalOwner(two.UserID))
		// workspace series seeded at zero by the first registration
		require.Len(t, d.Workspace.ChannelsExist, 1)
		assert.Equal(t, int64(0), d.Workspace.ChannelsExist[0].NumChannelsExist)
		return nil
	})
	require.NoError(t, err)
}

func TestLoginAndResolve(t *testing.T) {
	svc, _, _ := newTestService(t)
	reg, err := svc.Register("jade@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)

	sess, err := svc.Login("jade@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, sess.UserID)
	assert.NotEqual(t, reg.Token, sess.Token)

	// both sessions resolve independently
	uid, err := svc.Resolve(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, uid)
	uid, err = svc.Resolve(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, uid)

	_, err = svc.Login("jade@example.com", "wrongpass")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = svc.Login("nobody@example.com", "password")
	require.Error(t, err)
}

func TestLogoutRevokesOneSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	reg, err := svc.Register("jade@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)
	other, err := svc.Login("jade@example.com", "password")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(reg.Token))

	_, err = svc.Resolve(reg.Token)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = svc.Resolve(other.Token)
	require.NoError(t, err)

	err = svc.Logout(reg.Token)
	require.Error(t, err)
}

func TestResolveRejectsForgedToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register("jade@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)

	forged, err := GenerateToken(1, "wrong-secret")
	require.NoError(t, err)
	_, err = svc.Resolve(forged)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	// signed with the right secret but never registered as a session
	unregistered, err := GenerateToken(1, "test-secret")
	require.NoError(t, err)
	_, err = svc.Resolve(unregistered)
	require.Error(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, mailer := newTestService(t)
	reg, err := svc.Register("jade@example.com", "password", "Jade", "Painter")
	require.NoError(t, err)

	require.NoError(t, svc.PasswordResetRequest("jade@example.com"))
	assert.Equal(t, "jade@example.com", mailer.to)
	require.NotEmpty(t, mailer.code)

	// requesting a reset revokes every live session
	_, err = svc.Resolve(reg.Token)
	require.Error(t, err)

	// a too-short password does not consume the code
	err = svc.PasswordReset(mailer.code, "five5")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	require.NoError(t, svc.PasswordReset(mailer.code, "newpassword"))

	// the code is single use
	err = svc.PasswordReset(mailer.code, "anotherpass")
	require.Error(t, err)

	_, err = svc.Login("jade@example.com", "password")
	require.Error(t, err)
	sess, err := svc.Login("jade@example.com", "newpassword")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, sess.UserID)
}

func TestPasswordResetRequestUnknownEmail(t *testing.T) {
	svc, _, mailer := newTestService(t)
	require.NoError(t, svc.PasswordResetRequest("ghost@example.com"))
	assert.Empty(t, mailer.to)
}
