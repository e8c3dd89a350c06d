package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

const dayLayout = "Mon 02 Jan"

var weekdayLabels = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func weekdayLabel(dow int) string {
	if dow < 0 || dow > 6 {
		return fmt.Sprintf("day %d", dow)
	}
	return weekdayLabels[dow]
}

func dayLabel(d timeslot.Date, loc *time.Location) string {
	return d.Time(loc).Format(dayLayout)
}

func cellMark(c models.EffectiveCell) string {
	switch {
	case c.Source == models.CellSourceTravel:
		return "✈️"
	case c.IsAvailable:
		return "🟢"
	default:
		return "⚪"
	}
}

// formatWeek renders resolved cells as one line per date with a mark per
// block. Cells arrive in date then block order.
func formatWeek(cells []models.EffectiveCell, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("📅 *Your availability*\n_morning · afternoon · evening_\n\n")

	for i := 0; i+len(timeslot.Blocks) <= len(cells); i += len(timeslot.Blocks) {
		sb.WriteString(fmt.Sprintf("`%s`", dayLabel(cells[i].Date, loc)))
		for _, c := range cells[i : i+len(timeslot.Blocks)] {
			sb.WriteString(" " + cellMark(c))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n🟢 free  ⚪ busy  ✈️ away")
	return sb.String()
}

func formatOverlaps(result *models.FriendOverlapResult, top []models.OverlapSlot, loc *time.Location) string {
	var sb strings.Builder
	if len(top) == 0 {
		sb.WriteString("🤷 *No shared free time* with your friends in this period.")
	} else {
		sb.WriteString("🤝 *Best times with friends*\n\n")
		for i, slot := range top {
			names := make([]string, len(slot.AvailableNames))
			for j, n := range slot.AvailableNames {
				names[j] = escape(n)
			}
			sb.WriteString(fmt.Sprintf("%d. *%s* %s: %s\n",
				i+1, dayLabel(slot.Date, loc), slot.TimeBlock, strings.Join(names, ", ")))
		}
	}
	if result.Degraded {
		sb.WriteString(fmt.Sprintf("\n_%d friend(s) could not be loaded and were left out._", len(result.Excluded)))
	}
	return sb.String()
}

// formatOverlay renders a dense group overlay as free/members counts.
func formatOverlay(name string, overlay *models.GroupOverlay, rng timeslot.Range, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 *%s*\n_morning · afternoon · evening_\n\n", escape(name)))

	for _, d := range rng.Dates() {
		sb.WriteString(fmt.Sprintf("`%s`", dayLabel(d, loc)))
		for _, b := range timeslot.Blocks {
			sb.WriteString(fmt.Sprintf(" %d/%d", overlay.Count(timeslot.Slot{Date: d, Block: b}), overlay.Members))
		}
		sb.WriteString("\n")
	}

	if overlay.Degraded {
		sb.WriteString(fmt.Sprintf("\n_%d member(s) could not be loaded and were left out._", len(overlay.Excluded)))
	}
	return sb.String()
}
