package telegram

import (
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Command is a parsed "/name@bot arg1 arg2" message
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command message. It reports false for plain text.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}

	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}

// Int returns argument i as an integer, or def when it is absent
func (c Command) Int(i int, def int64) (int64, bool) {
	if i >= len(c.Args) {
		return def, true
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(c.Args[i], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Arg returns argument i lowercased, or "" when absent
func (c Command) Arg(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.ToLower(c.Args[i])
}

// ReplyTarget is the author of the message msg replies to. Bots and
// anonymous senders are not targets.
func ReplyTarget(msg *models.Message) (*models.User, bool) {
	if msg == nil || msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		return nil, false
	}
	u := msg.ReplyToMessage.From
	if u.IsBot {
		return nil, false
	}
	return u, true
}

// IsPrivate reports whether chat is a one-to-one chat with the bot
func IsPrivate(chat models.Chat) bool {
	return chat.Type == "private"
}

// DisplayName picks the friendliest name a user has
func DisplayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}
