package handlers

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/telegram"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

const topOverlaps = 5

// ---------------------------------------------------------------------------
// WeekHandler – /week [start]
// ---------------------------------------------------------------------------

// WeekHandler shows the sender's own resolved availability for seven days.
type WeekHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewWeekHandler(svc *service.Service, logger *logrus.Logger) *WeekHandler {
	return &WeekHandler{svc: svc, logger: logger}
}

func (h *WeekHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	start, err := startArg(args, 0, h.svc.Today())
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	week := timeslot.Week(start)
	cells, err := h.svc.ResolveEffectiveAvailability(ctx, user.ID, user.ID, week.Start, week.End)
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("resolve week: %w", err)
	}

	return replyMarkdown(bot, message.Chat.ID, formatWeek(cells, h.svc.Location()))
}

// ---------------------------------------------------------------------------
// OverlapsHandler – /overlaps [start]
// ---------------------------------------------------------------------------

// OverlapsHandler lists the best shared free slots with the sender's friends.
type OverlapsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewOverlapsHandler(svc *service.Service, logger *logrus.Logger) *OverlapsHandler {
	return &OverlapsHandler{svc: svc, logger: logger}
}

func (h *OverlapsHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	start, err := startArg(args, 0, h.svc.Today())
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	week := timeslot.Week(start)
	result, err := h.svc.ComputeFriendOverlaps(ctx, user.ID, week.Start, week.End)
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("compute overlaps: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"slots":    len(result.Slots),
		"degraded": result.Degraded,
	}).Debug("Computed friend overlaps")

	top := service.TopOverlaps(result, topOverlaps)
	return replyMarkdown(bot, message.Chat.ID, formatOverlaps(result, top, h.svc.Location()))
}

// ---------------------------------------------------------------------------
// GroupHandler – /group [group_id] [start]
// ---------------------------------------------------------------------------

// GroupHandler shows how many members of a group are free in each slot.
// Inside a group chat the ID may be omitted.
type GroupHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

func NewGroupHandler(svc *service.Service, logger *logrus.Logger) *GroupHandler {
	return &GroupHandler{svc: svc, logger: logger}
}

func (h *GroupHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	var groupID int64
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			groupID = id
			args = args[1:]
		}
	}
	if groupID == 0 && !message.Chat.IsGroup() && !message.Chat.IsSuperGroup() {
		return replyMarkdown(bot, message.Chat.ID,
			"❌ Please provide a group ID, or use this command in a group chat.\n\n*Usage:*\n`/group 3`")
	}

	start, err := startArg(args, 0, h.svc.Today())
	if err != nil {
		return replyText(bot, message.Chat.ID, "❌ "+err.Error())
	}

	user, err := ensureSender(ctx, h.svc, message)
	if err != nil {
		return err
	}

	var group *models.Group
	if groupID != 0 {
		group, err = h.svc.GroupMembers(ctx, user.ID, groupID)
	} else {
		group, err = h.svc.GroupForChat(ctx, user.ID, message.Chat.ID)
	}
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("load group: %w", err)
	}

	week := timeslot.Week(start)
	overlay, err := h.svc.ComputeGroupOverlayCounts(ctx, user.ID, group.MemberIDs, week.Start, week.End)
	if err != nil {
		if handled, rerr := replyServiceError(bot, message.Chat.ID, err); handled {
			return rerr
		}
		return fmt.Errorf("compute group overlay: %w", err)
	}

	return replyMarkdown(bot, message.Chat.ID, formatOverlay(group.Name, overlay, week, h.svc.Location()))
}
