package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/telegram"
)

// Descriptions is the command menu published to Telegram clients.
var Descriptions = map[string]string{
	"start":    "Register and get started",
	"help":     "Show all commands",
	"free":     "Mark a day and block as free",
	"busy":     "Mark a day and block as busy",
	"weekly":   "Set your weekly routine",
	"trip":     "Add a trip (away all day)",
	"say":      "Describe your availability in words",
	"calendar": "Sync busy times from an ICS calendar",
	"week":     "Show your availability",
	"overlaps": "Find free time with friends",
	"group":    "Show when a group is free",
}

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *FreeSlot Help*

*Your availability:*
• /free <day> <block> - Mark a slot free
• /busy <day> <block> - Mark a slot busy
• /weekly <weekday> <block> <on|off> - Weekly routine
• /trip <start> <end> [label] - Away for whole days
• /say <text> - Describe it in words
• /calendar <ics-url> [name] - Sync busy events

*Finding time:*
• /week [start] - Your next seven days
• /overlaps [start] - Best times with friends
• /group [id] [start] - Group heatmap

_Blocks: morning, afternoon, evening. Days: YYYY-MM-DD, today, tomorrow or a weekday._`

	if err := replyMarkdown(bot, message.Chat.ID, helpText); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
