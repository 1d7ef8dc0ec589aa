package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/utils"
)

var ErrInvalidLinkCode = errors.New("invalid or expired link code")

const linkCodeLen = 32

type TelegramLinkService interface {
	// RequestLink issues a one-time code the user sends to the bot.
	RequestLink(ctx context.Context, userID int64) (*models.TelegramLink, error)
	// Link consumes code and stores chatID on the code's owner.
	Link(ctx context.Context, code string, chatID int64) (*models.User, error)
}

type telegramLinkService struct {
	links repositories.TelegramLinkRepository
	users repositories.UserRepository
	ttl   time.Duration
}

func NewTelegramLinkService(links repositories.TelegramLinkRepository, users repositories.UserRepository, ttl time.Duration) TelegramLinkService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &telegramLinkService{links: links, users: users, ttl: ttl}
}

func (s *telegramLinkService) RequestLink(ctx context.Context, userID int64) (*models.TelegramLink, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	// 16 байт -> 32 hex-символа
	raw, err := utils.NewRefreshToken(linkCodeLen / 2)
	if err != nil {
		return nil, err
	}
	link, err := s.links.Create(ctx, userID, strings.ToUpper(raw), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("create telegram link: %w", err)
	}
	logging.Logger.Infof("[tg][link][request] userID=%d expires=%s", userID, link.ExpiresAt.Format(time.RFC3339))
	return link, nil
}

func (s *telegramLinkService) Link(ctx context.Context, code string, chatID int64) (*models.User, error) {
	normalized, ok := NormalizeLinkCode(code)
	if !ok {
		return nil, ErrInvalidLinkCode
	}
	link, err := s.links.UseByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidLinkCode
		}
		return nil, err
	}
	if err := s.users.UpdateTelegramChat(ctx, link.UserID, chatID); err != nil {
		return nil, fmt.Errorf("store telegram chat: %w", err)
	}
	logging.Logger.Infof("[tg][link][ok] userID=%d chatID=%d", link.UserID, chatID)
	return s.users.GetByID(ctx, link.UserID)
}

// NormalizeLinkCode strips quotes and punctuation users paste around the code.
func NormalizeLinkCode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Hex_Digit, r) {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if len(code) != linkCodeLen {
		return "", false
	}
	return code, true
}
