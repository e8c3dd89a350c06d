package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/telegram"
)

// StartHandler handles the /start command
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		svc:    svc,
		logger: logger,
	}
}

// Handle registers the sender and greets them
func (h *StartHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	welcomeText := fmt.Sprintf(`👋 *Welcome to FreeSlot, %s!*

I keep track of when you're free and find times that work for you and your friends.

Days are split into *morning* (6-12), *afternoon* (12-18) and *evening* (18-24).

Start with a weekly routine, for example:
`+"`/weekly saturday morning on`"+`

Then see your week with /week and shared free time with /overlaps.
Use /help for every command.`, escape(user.DisplayName()))

	if err := replyMarkdown(bot, message.Chat.ID, welcomeText); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": user.ID,
	}).Info("Sent start message")

	return nil
}
