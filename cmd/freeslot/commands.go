package main

import (
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/handlers"
	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/telegram"
)

func registerCommands(bot *telegram.Bot, svc *service.Service, l *logrus.Logger, withParser bool) {
	bot.RegisterCommand("start", handlers.NewStartHandler(svc, l))
	bot.RegisterCommand("help", handlers.NewHelpHandler(l))

	// Own availability
	bot.RegisterCommand("free", handlers.NewFreeHandler(svc, l))
	bot.RegisterCommand("busy", handlers.NewBusyHandler(svc, l))
	bot.RegisterCommand("weekly", handlers.NewWeeklyHandler(svc, l))
	bot.RegisterCommand("trip", handlers.NewTripHandler(svc, l))
	bot.RegisterCommand("calendar", handlers.NewFeedHandler(svc, l))
	if withParser {
		bot.RegisterCommand("say", handlers.NewParseHandler(svc, l))
	}

	// Finding time
	bot.RegisterCommand("week", handlers.NewWeekHandler(svc, l))
	bot.RegisterCommand("overlaps", handlers.NewOverlapsHandler(svc, l))
	bot.RegisterCommand("group", handlers.NewGroupHandler(svc, l))
}
