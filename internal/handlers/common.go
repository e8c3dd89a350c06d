package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/telegram"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

var weekdayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// replyMarkdown sends text with Markdown formatting.
func replyMarkdown(bot telegram.Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// replyText sends text as-is. Used for anything echoing user input or error
// details, which may contain Markdown control characters.
func replyText(bot telegram.Sender, chatID int64, text string) error {
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func ensureSender(ctx context.Context, svc *service.Service, message *tgbotapi.Message) (*models.User, error) {
	user, err := svc.EnsureUser(ctx, message.From.ID, message.From.UserName, message.From.FirstName, message.From.LastName)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

// replyServiceError answers classified errors with a user-facing message and
// reports whether it did. Anything else is left for the router to log.
func replyServiceError(bot telegram.Sender, chatID int64, err error) (bool, error) {
	var text string
	switch {
	case errors.Is(err, models.ErrInvalidRange):
		text = "❌ The start date must not be after the end date."
	case errors.Is(err, models.ErrParserRejected):
		text = "🤔 I couldn't understand that. Try something like \"free saturday evening\"."
	case errors.Is(err, models.BadParameterError):
		text = "❌ " + err.Error()
	case errors.Is(err, models.ForbiddenError):
		text = "🔒 You can only see availability of yourself, your friends and your group mates."
	case errors.Is(err, models.NotFoundError):
		text = "❓ Not found."
	default:
		return false, nil
	}
	return true, replyText(bot, chatID, text)
}

// parseDay accepts YYYY-MM-DD, "today", "tomorrow" or a weekday name, which
// means its next occurrence counting today.
func parseDay(arg string, today timeslot.Date) (timeslot.Date, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch arg {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	if dow, ok := weekdayNames[arg]; ok {
		return today.AddDays((dow - today.Weekday() + 7) % 7), nil
	}
	d, err := timeslot.ParseDate(arg)
	if err != nil {
		return timeslot.Date{}, fmt.Errorf("%q is not a date; use YYYY-MM-DD, today, tomorrow or a weekday", arg)
	}
	return d, nil
}

// parseWeekday accepts a weekday name or 0-6 with 0 = Sunday.
func parseWeekday(arg string) (int, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if dow, ok := weekdayNames[arg]; ok {
		return dow, nil
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 0 && n <= 6 {
		return n, nil
	}
	return 0, fmt.Errorf("%q is not a weekday", arg)
}

func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "free", "yes":
		return true, nil
	case "off", "busy", "no":
		return false, nil
	}
	return false, fmt.Errorf("%q must be on or off", arg)
}

// startArg reads an optional start date from args[i], defaulting to today.
func startArg(args []string, i int, today timeslot.Date) (timeslot.Date, error) {
	if len(args) <= i {
		return today, nil
	}
	return parseDay(args[i], today)
}
