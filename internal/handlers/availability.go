package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/telegram"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// ---------------------------------------------------------------------------
// SlotHandler – /free <day> <block>, /busy <day> <block>
// ---------------------------------------------------------------------------

// SlotHandler writes a manual date override. The same type serves /free and
// /busy; available selects which.
type SlotHandler struct {
	svc       *service.Service
	logger    *logrus.Logger
	available bool
}

// NewFreeHandler creates the /free handler.
func NewFreeHandler(svc *service.Service, logger *logrus.Logger) *SlotHandler {
	return &SlotHandler{svc: svc, logger: logger, available: true}
}

// NewBusyHandler creates the /busy handler.
func NewBusyHandler(svc *service.Service, logger *logrus.Logger) *SlotHandler {
	return &SlotHandler{svc: svc, logger: logger, available: false}
}

func (h *SlotHandler) command() string {
	if h.available {
		return "free"
	}
	return "busy"
}

// Handle processes /free and /busy.
func (h *SlotHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		return replyMarkdown(bot, message.Chat.ID, fmt.Sprintf(
			"❌ Please provide a day and a time block.\n\n*Usage:*\n`/%s saturday evening`\n`/%s 2026-03-07 morning`",
			h.command(), h.command()))
	}

	date, err := parseDay(args[0], h.svc.Today())
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}
	block, err := timeslot.ParseTimeBlock(args[1])
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	if err := h.svc.SetOverride(ctx, user.ID, date, block, h.available); err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("set override: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"date":       date.String(),
		"time_block": block,
		"available":  h.available,
	}).Info("Date override set")

	mark := "✅ free"
	if !h.available {
		mark = "⛔ busy"
	}
	return replyMarkdown(bot, message.Chat.ID,
		fmt.Sprintf("%s on *%s* %s", mark, date.Time(h.svc.Location()).Format("Mon 02 Jan"), block))
}

// ---------------------------------------------------------------------------
// WeeklyHandler – /weekly <weekday> <block> <on|off>
// ---------------------------------------------------------------------------

// WeeklyHandler sets an entry of the recurring weekly pattern.
type WeeklyHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewWeeklyHandler(svc *service.Service, logger *logrus.Logger) *WeeklyHandler {
	return &WeeklyHandler{svc: svc, logger: logger}
}

func (h *WeeklyHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) < 3 {
		return replyMarkdown(bot, message.Chat.ID,
			"❌ Please provide a weekday, a time block and on/off.\n\n*Usage:*\n`/weekly friday evening on`")
	}

	dow, err := parseWeekday(args[0])
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}
	block, err := timeslot.ParseTimeBlock(args[1])
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}
	on, err := parseOnOff(args[2])
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	if err := h.svc.SetPattern(ctx, user.ID, dow, block, on); err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("set pattern: %w", err)
	}

	state := "free"
	if !on {
		state = "busy"
	}
	return replyMarkdown(bot, message.Chat.ID,
		fmt.Sprintf("🔁 Every *%s* %s you are %s.", weekdayLabel(dow), block, state))
}

// ---------------------------------------------------------------------------
// TripHandler – /trip <start> <end> [label]
// ---------------------------------------------------------------------------

// TripHandler records a travel period.
type TripHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewTripHandler(svc *service.Service, logger *logrus.Logger) *TripHandler {
	return &TripHandler{svc: svc, logger: logger}
}

func (h *TripHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		return replyMarkdown(bot, message.Chat.ID,
			"❌ Please provide start and end dates.\n\n*Usage:*\n`/trip 2026-03-10 2026-03-14 Lisbon`")
	}

	today := h.svc.Today()
	start, err := parseDay(args[0], today)
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}
	end, err := parseDay(args[1], today)
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}
	label := strings.Join(args[2:], " ")

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	trip, err := h.svc.AddTravel(ctx, user.ID, start, end, label)
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("add travel: %w", err)
	}

	text := fmt.Sprintf("✈️ Away *%s* to *%s*", start, end)
	if label != "" {
		text += " (" + escape(label) + ")"
	}
	text += fmt.Sprintf("\n_Trip #%d_", trip.ID)
	return replyMarkdown(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// ParseHandler – /say <free text>
// ---------------------------------------------------------------------------

// ParseHandler sends free text through the availability parser and applies
// the result.
type ParseHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewParseHandler(svc *service.Service, logger *logrus.Logger) *ParseHandler {
	return &ParseHandler{svc: svc, logger: logger}
}

func (h *ParseHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return replyMarkdown(bot, message.Chat.ID,
			"❌ Tell me when you're free.\n\n*Usage:*\n`/say free saturday evening, away 10-14 March`")
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	report, err := h.svc.ParseAndApply(ctx, user.ID, strings.Join(args, " "))
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("parse availability: %w", err)
	}

	text := fmt.Sprintf("📝 Saved %d slot(s) and %d trip(s).", report.SlotsWritten, report.TripsCreated)
	if report.Summary != "" {
		text += "\n" + report.Summary
	}
	return replyText(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// FeedHandler – /calendar <ics-url> [name]
// ---------------------------------------------------------------------------

// FeedHandler subscribes the sender to an external ICS calendar.
type FeedHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewFeedHandler(svc *service.Service, logger *logrus.Logger) *FeedHandler {
	return &FeedHandler{svc: svc, logger: logger}
}

func (h *FeedHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return replyMarkdown(bot, message.Chat.ID,
			"❌ Please provide the secret ICS address of your calendar.\n\n*Usage:*\n`/calendar https://example.com/basic.ics work`")
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	feed, err := h.svc.AddCalendarFeed(ctx, user.ID, strings.Join(args[1:], " "), args[0])
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("add calendar feed: %w", err)
	}

	return replyText(bot, message.Chat.ID, fmt.Sprintf(
		"📆 Calendar #%d added. Busy events for the next %d days will block your slots after the next sync.",
		feed.ID, h.svc.SyncWindow().Days()))
}
