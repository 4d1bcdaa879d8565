package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicHeader(creds string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

func TestBasicAuth_ExtractBasicToken(t *testing.T) {
	b := NewBasicAuth(nil)

	token, ok := b.ExtractBasicToken("Basic abc=")
	assert.True(t, ok)
	assert.Equal(t, "abc=", token)

	for _, h := range []string{"", "Basic", "Basic ", "basic abc=", "Bearer abc", " Basic abc="} {
		_, ok := b.ExtractBasicToken(h)
		assert.False(t, ok, "header %q", h)
	}
}

func TestBasicAuth_DecodeBasicToken(t *testing.T) {
	b := NewBasicAuth(nil)

	decoded, ok := b.DecodeBasicToken(base64.StdEncoding.EncodeToString([]byte("foo@bar.com:se:cret")))
	assert.True(t, ok)
	assert.Equal(t, "foo@bar.com:se:cret", decoded)

	_, ok = b.DecodeBasicToken("not base64!")
	assert.False(t, ok)

	_, ok = b.DecodeBasicToken(base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd}))
	assert.False(t, ok)

	_, ok = b.DecodeBasicToken("")
	assert.False(t, ok)
}

func TestBasicAuth_SplitCredentials(t *testing.T) {
	b := NewBasicAuth(nil)

	email, password, ok := b.SplitCredentials("foo@bar.com:se:cret")
	assert.True(t, ok)
	assert.Equal(t, "foo@bar.com", email)
	assert.Equal(t, "se:cret", password)

	email, password, ok = b.SplitCredentials("no-colon")
	assert.False(t, ok)
	assert.Empty(t, email)
	assert.Empty(t, password)
}

func TestBasicAuth_CurrentUser(t *testing.T) {
	users, _ := newTestCredentialStore()
	ctx := context.Background()
	user, err := users.Register(ctx, "foo@bar.com", "se:cret")
	require.NoError(t, err)

	b := NewBasicAuth(users)

	got, err := b.CurrentUser(ctx, fakeRequest{headers: map[string]string{"Authorization": basicHeader("foo@bar.com:se:cret")}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	for name, header := range map[string]string{
		"wrong password": basicHeader("foo@bar.com:secret"),
		"unknown email":  basicHeader("nobody@bar.com:se:cret"),
		"empty email":    basicHeader(":se:cret"),
		"no colon":       basicHeader("foo@bar.com"),
		"bad base64":     "Basic %%%",
		"wrong scheme":   "Bearer " + base64.StdEncoding.EncodeToString([]byte("foo@bar.com:se:cret")),
		"missing":        "",
	} {
		got, err := b.CurrentUser(ctx, fakeRequest{headers: map[string]string{"Authorization": header}})
		assert.NoError(t, err, name)
		assert.Nil(t, got, name)
	}
}
