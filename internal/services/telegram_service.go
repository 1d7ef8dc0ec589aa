package services

import (
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskhub/internal/logging"
	"taskhub/internal/models"
)

// BotSender is satisfied by *tgbotapi.BotAPI.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService sends best-effort copies of task notifications.
// A nil *TelegramService is valid and sends nothing.
type TelegramService struct {
	bot BotSender
}

// NewTelegramService connects to the Bot API. An empty token disables Telegram.
func NewTelegramService(botToken string) (*TelegramService, error) {
	if botToken == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramService{bot: bot}, nil
}

func NewTelegramServiceWithBot(bot BotSender) *TelegramService {
	return &TelegramService{bot: bot}
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || t.bot == nil || chatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		logging.Logger.Warnf("[tg][send][err] chatID=%d: %v", chatID, err)
		return err
	}
	return nil
}

// NotifyTask sends a task card to the assignee's chat, if linked.
func (t *TelegramService) NotifyTask(prefix string, task *models.Task) error {
	if t == nil || task == nil || task.AssignedTo == nil || task.AssignedTo.TelegramChatID == 0 {
		return nil
	}
	return t.SendMessage(task.AssignedTo.TelegramChatID, formatTask(prefix, task))
}

func formatTask(prefix string, task *models.Task) string {
	return prefix + "\n" +
		"• <b>" + html.EscapeString(task.Title) + "</b>\n" +
		"• Project: <code>" + html.EscapeString(task.ProjectName) + "</code>\n" +
		"• Status: <code>" + task.Status.Label() + "</code>\n" +
		"• Priority: <code>" + task.Priority.Label() + "</code>\n" +
		"• Due: <code>" + task.DueDate.Format(dueDateLayout) + "</code>"
}
