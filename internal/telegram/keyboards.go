package telegram

import (
	"github.com/go-telegram/bot/models"
)

// menuCommands are the commands a main-menu button may trigger
var menuCommands = map[string]bool{
	"bal":     true,
	"daily":   true,
	"toprich": true,
	"topkill": true,
	"history": true,
}

// MainKeyboard returns the main menu keyboard
func MainKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "💰 Balance", CallbackData: "bal"},
				{Text: "🎁 Daily", CallbackData: "daily"},
			},
			{
				{Text: "🏆 Richest", CallbackData: "toprich"},
				{Text: "☠️ Killers", CallbackData: "topkill"},
			},
			{
				{Text: "📜 History", CallbackData: "history"},
			},
		},
	}
}

// BotCommands is the command list shown in the Telegram client
func BotCommands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "daily", Description: "Claim your daily coins"},
		{Command: "bal", Description: "Show your balance"},
		{Command: "give", Description: "Reply: send coins"},
		{Command: "rob", Description: "Reply: rob a player"},
		{Command: "kill", Description: "Reply: kill a player"},
		{Command: "revive", Description: "Revive yourself or a replied player"},
		{Command: "protect", Description: "Protect yourself from robbers"},
		{Command: "check", Description: "Reply: check protection (premium)"},
		{Command: "toprich", Description: "Richest players"},
		{Command: "topkill", Description: "Deadliest players"},
		{Command: "history", Description: "Your recent activity"},
	}
}
