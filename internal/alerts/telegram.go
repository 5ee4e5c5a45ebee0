// Package alerts pushes moderation notifications to the operators' Telegram
// chat. The whole package is a no-op when no bot token is configured, so
// development and tests run without Telegram credentials.
package alerts

import (
	"fmt"

	"snackbox/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier sends operator alerts. The zero value (or a nil pointer) is safe
// to call and does nothing.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier connects the bot. An empty token yields a disabled notifier
// rather than an error.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		zap.L().Info("telegram alerts disabled")
		return &Notifier{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	zap.L().Info("telegram alerts enabled", zap.String("bot", bot.Self.UserName))
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) enabled() bool {
	return n != nil && n.bot != nil
}

// ReportFiled notifies operators about a new report.
func (n *Notifier) ReportFiled(report *models.SnackReport) {
	if !n.enabled() {
		return
	}
	text := fmt.Sprintf("🚩 New report\nreporter: %d\nreported: %d\nreason: %s",
		report.ReporterID, report.ReportedID, report.Reason)
	if report.SessionID != nil {
		text += fmt.Sprintf("\nsession: %d", *report.SessionID)
	}
	if report.Description != nil && *report.Description != "" {
		text += "\n\n" + *report.Description
	}
	n.send(text)
}

// UserSuspended notifies operators that the report threshold auto-suspended
// a user.
func (n *Notifier) UserSuspended(userID uint, reporterCount int64) {
	if !n.enabled() {
		return
	}
	n.send(fmt.Sprintf("⛔ User %d suspended from matching: reported by %d distinct users this week",
		userID, reporterCount))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		zap.L().Warn("failed to send telegram alert", zap.Error(err))
	}
}
