package user_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/user"
)

func tokenConf() *core.Config {
	return &core.Config{
		AppName:            "SmartSubmit",
		SecretKey:          "test-secret",
		JWTExpirationDelta: 7 * 24 * time.Hour,
	}
}

func TestTokenSource_IssueVerify(t *testing.T) {
	ts := user.NewTokenSource(tokenConf())

	token, err := ts.Issue(user.User{ID: 42})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, id)
}

func TestTokenSource_Verify_missing(t *testing.T) {
	ts := user.NewTokenSource(tokenConf())

	_, err := ts.Verify("")
	assert.Equal(t, user.ErrTokenMissing, err)
}

func TestTokenSource_Verify_tampered(t *testing.T) {
	ts := user.NewTokenSource(tokenConf())
	other := user.NewTokenSource(&core.Config{SecretKey: "other-secret", JWTExpirationDelta: time.Hour})

	token, err := other.Issue(user.User{ID: 7})
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.Equal(t, user.ErrTokenInvalid, err)

	_, err = ts.Verify("not.a.token")
	assert.Equal(t, user.ErrTokenInvalid, err)
}

func TestTokenSource_Verify_expired(t *testing.T) {
	ts := user.NewTokenSource(tokenConf())

	user.NowFunc = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	defer func() { user.NowFunc = time.Now }()

	token, err := ts.Issue(user.User{ID: 1})
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.Equal(t, user.ErrTokenInvalid, err)
}
