package main

import (
	"discord-logbot/bot"
	"discord-logbot/command"
	"discord-logbot/handlers"
)

func main() {
	bot.Run(handlers.Register, command.GetCommandDefinitions())
}
