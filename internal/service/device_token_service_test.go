package service

import (
	"context"
	"errors"
	"testing"

	"socialrank/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTokenService_RegisterAndMove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.user(t)
	b := h.user(t)

	dt, created, err := h.tokens.Register(ctx, a.ID, " abc ", "IOS")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "abc", dt.Token)
	assert.Equal(t, models.PlatformIOS, dt.Platform)

	dt, created, err = h.tokens.Register(ctx, b.ID, "abc", models.PlatformAndroid)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, b.ID, dt.UserID)

	tokens, err := h.store.DeviceTokens().ActiveTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	tokens, err = h.store.DeviceTokens().ActiveTokens(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, tokens)
}

func TestDeviceTokenService_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t)

	_, _, err := h.tokens.Register(ctx, u.ID, "", models.PlatformIOS)
	assert.True(t, errors.Is(err, models.ErrValidation))
	_, _, err = h.tokens.Register(ctx, u.ID, "abc", "windows")
	assert.True(t, errors.Is(err, models.ErrValidation))

	err = h.tokens.Remove(ctx, u.ID, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, _, err = h.tokens.Register(ctx, u.ID, "abc", models.PlatformIOS)
	require.NoError(t, err)
	require.NoError(t, h.tokens.Remove(ctx, u.ID, "abc"))
}
