package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/models"
	"taskhub/internal/repositories"
)

type fakeLinks struct {
	mu    sync.Mutex
	links map[string]*models.TelegramLink
}

func (f *fakeLinks) Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*models.TelegramLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links == nil {
		f.links = map[string]*models.TelegramLink{}
	}
	l := &models.TelegramLink{ID: int64(len(f.links) + 1), UserID: userID, Code: code, ExpiresAt: time.Now().Add(ttl)}
	f.links[code] = l
	cp := *l
	return &cp, nil
}

func (f *fakeLinks) UseByCode(ctx context.Context, code string) (*models.TelegramLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[code]
	if !ok || l.Used || time.Now().After(l.ExpiresAt) {
		return nil, repositories.ErrNotFound
	}
	l.Used = true
	cp := *l
	return &cp, nil
}

func TestTelegramLink_RequestAndLink(t *testing.T) {
	db := newMemDB()
	alice := db.addUser("alice", "alice@example.com", "Alice")
	links := &fakeLinks{}
	svc := NewTelegramLinkService(links, fakeUsers{db}, time.Minute)
	ctx := context.Background()

	link, err := svc.RequestLink(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, link.Code, 32)
	assert.Equal(t, strings.ToUpper(link.Code), link.Code)

	user, err := svc.Link(ctx, " /link «"+strings.ToLower(link.Code)+"» ", 555)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	assert.Equal(t, int64(555), user.TelegramChatID)

	_, err = svc.Link(ctx, link.Code, 777)
	assert.ErrorIs(t, err, ErrInvalidLinkCode, "codes are single use")
}

func TestTelegramLink_Rejects(t *testing.T) {
	db := newMemDB()
	alice := db.addUser("alice", "", "")
	links := &fakeLinks{}
	svc := NewTelegramLinkService(links, fakeUsers{db}, -time.Minute)
	ctx := context.Background()

	_, err := svc.RequestLink(ctx, 999)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = svc.Link(ctx, "short", 1)
	assert.ErrorIs(t, err, ErrInvalidLinkCode)

	// ttl <= 0 falls back to the default, so this code is still valid
	link, err := svc.RequestLink(ctx, alice.ID)
	require.NoError(t, err)
	links.links[link.Code].ExpiresAt = time.Now().Add(-time.Second)
	_, err = svc.Link(ctx, link.Code, 1)
	assert.ErrorIs(t, err, ErrInvalidLinkCode)
}

func TestNormalizeLinkCode(t *testing.T) {
	code, ok := NormalizeLinkCode(`"0123456789abcdef0123456789ABCDEF".`)
	require.True(t, ok)
	assert.Equal(t, "0123456789ABCDEF0123456789ABCDEF", code)

	_, ok = NormalizeLinkCode("0123")
	assert.False(t, ok)
}
