package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/suspectuso/econ-bot/internal/config"
	"github.com/suspectuso/econ-bot/internal/economy"
	"github.com/suspectuso/econ-bot/internal/leaderboard"
	"github.com/suspectuso/econ-bot/internal/notifier"
	"github.com/suspectuso/econ-bot/internal/storage"
)

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot      *bot.Bot
	cfg      *config.Config
	engine   *economy.Engine
	board    *leaderboard.View
	storage  *storage.Storage
	notifier *notifier.Notifier
	limiter  *rate.Limiter
	log      *slog.Logger

	commands map[string]commandFunc
}

// request is one command invocation, from a message or a menu button
type request struct {
	chatID  int64
	private bool
	from    *models.User
	target  *models.User
	cmd     Command
}

type commandFunc func(ctx context.Context, req request)

// New creates a new telegram bot
func New(cfg *config.Config, engine *economy.Engine, board *leaderboard.View, store *storage.Storage, log *slog.Logger) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		engine:  engine,
		board:   board,
		storage: store,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRatePerSec), cfg.SendBurst),
		log:     log,
	}
	b.commands = map[string]commandFunc{
		"start":   b.startHandler,
		"help":    b.startHandler,
		"bal":     b.balanceHandler,
		"balance": b.balanceHandler,
		"daily":   b.dailyHandler,
		"give":    b.giveHandler,
		"rob":     b.robHandler,
		"kill":    b.killHandler,
		"revive":  b.reviveHandler,
		"protect": b.protectHandler,
		"check":   b.checkHandler,
		"toprich": b.topRichHandler,
		"topkill": b.topKillHandler,
		"history": b.historyHandler,
		"premium": b.premiumHandler,
		"supply":  b.supplyHandler,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	return b, nil
}

// AttachNotifier enables DMs to the targets of actions
func (b *Bot) AttachNotifier(n *notifier.Notifier) {
	b.notifier = n
}

// Start starts the bot polling
func (b *Bot) Start(ctx context.Context) {
	if _, err := b.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: BotCommands()}); err != nil {
		b.log.Warn("set bot commands", "error", err)
	}
	b.bot.Start(ctx)
}

// --- Dispatch ---

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	cmd, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	handler, ok := b.commands[cmd.Name]
	if !ok {
		return
	}

	req := request{
		chatID:  msg.Chat.ID,
		private: IsPrivate(msg.Chat),
		from:    msg.From,
		cmd:     cmd,
	}
	if target, ok := ReplyTarget(msg); ok {
		req.target = target
	}

	handler(engineCtx(ctx, req), req)
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	if cb.Message.Message == nil {
		return
	}

	handler, ok := b.commands[cb.Data]
	if !ok || !menuCommands[cb.Data] {
		b.log.Warn("unknown callback", "data", cb.Data, "user_id", cb.From.ID)
		return
	}

	from := cb.From
	req := request{
		chatID:  cb.Message.Message.Chat.ID,
		private: IsPrivate(cb.Message.Message.Chat),
		from:    &from,
		cmd:     Command{Name: cb.Data},
	}
	handler(engineCtx(ctx, req), req)
}

func engineCtx(ctx context.Context, req request) context.Context {
	return economy.WithChat(ctx, req.chatID)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, req request) {
	if _, err := b.engine.Profile(ctx, req.from.ID); err != nil {
		b.storageError(ctx, req, "profile", err)
		return
	}
	if req.private {
		if err := b.storage.SetDMEnabled(ctx, req.from.ID, true); err != nil {
			b.log.Error("enable notifications", "user_id", req.from.ID, "error", err)
		}
	}

	text := fmt.Sprintf(
		"<a href='tg://user?id=%d'>%s</a>, welcome to the <b>economy</b>! 💰\n\n"+
			"/daily — claim your daily coins\n"+
			"/give <code>amount</code> — reply to someone to send coins\n"+
			"/rob, /kill — reply to a victim\n"+
			"/revive — bring yourself or a replied player back\n"+
			"/protect <code>days</code> — hide from robbers\n"+
			"/toprich, /topkill, /history — see who's winning",
		req.from.ID, html.EscapeString(DisplayName(req.from)),
	)

	b.sendMessage(ctx, req.chatID, text, MainKeyboard())
}

func (b *Bot) balanceHandler(ctx context.Context, req request) {
	who := req.from
	if req.target != nil {
		who = req.target
	}

	a, err := b.engine.Profile(ctx, who.ID)
	if err != nil {
		b.storageError(ctx, req, "profile", err)
		return
	}

	rules := b.engine.Policy().Rules(a.Tier)
	b.sendMessage(ctx, req.chatID, ProfileText(a, DisplayName(who), rules, time.Now()), nil)
}

func (b *Bot) dailyHandler(ctx context.Context, req request) {
	r, err := b.engine.Daily(ctx, req.from.ID)
	if err != nil {
		b.storageError(ctx, req, "daily", err)
		return
	}
	b.sendMessage(ctx, req.chatID, ResultText(r, DisplayName(req.from), ""), nil)
}

func (b *Bot) giveHandler(ctx context.Context, req request) {
	amount, _ := req.cmd.Int(0, 0)
	b.targeted(ctx, req, "give", func(ctx context.Context, actor, target int64) (economy.Result, error) {
		return b.engine.Give(ctx, actor, target, amount)
	})
}

func (b *Bot) robHandler(ctx context.Context, req request) {
	b.targeted(ctx, req, "rob", b.engine.Rob)
}

func (b *Bot) killHandler(ctx context.Context, req request) {
	b.targeted(ctx, req, "kill", b.engine.Kill)
}

func (b *Bot) reviveHandler(ctx context.Context, req request) {
	if req.target == nil {
		req.target = req.from
	}
	b.targeted(ctx, req, "revive", b.engine.Revive)
}

func (b *Bot) protectHandler(ctx context.Context, req request) {
	days, _ := req.cmd.Int(0, 1)

	r, err := b.engine.Protect(ctx, req.from.ID, int(days))
	if err != nil {
		b.storageError(ctx, req, "protect", err)
		return
	}
	b.sendMessage(ctx, req.chatID, ResultText(r, DisplayName(req.from), ""), nil)
}

func (b *Bot) checkHandler(ctx context.Context, req request) {
	if req.target == nil {
		b.sendMessage(ctx, req.chatID, "↩️ Reply to a player's message to check their protection.", nil)
		return
	}

	r, err := b.engine.CheckProtection(ctx, req.from.ID, req.target.ID)
	if err != nil {
		b.storageError(ctx, req, "check", err)
		return
	}
	b.sendMessage(ctx, req.chatID, ProtectionText(r, DisplayName(req.target)), nil)
}

func (b *Bot) topRichHandler(ctx context.Context, req request) {
	limit, _ := req.cmd.Int(0, leaderboard.DefaultLimit)
	entries, err := b.board.TopRich(ctx, int(limit))
	if err != nil {
		b.storageError(ctx, req, "top rich", err)
		return
	}
	b.sendMessage(ctx, req.chatID, BoardText("🏆 <b>Richest players</b>", "coins", entries), nil)
}

func (b *Bot) topKillHandler(ctx context.Context, req request) {
	limit, _ := req.cmd.Int(0, leaderboard.DefaultLimit)
	entries, err := b.board.TopKillers(ctx, int(limit))
	if err != nil {
		b.storageError(ctx, req, "top killers", err)
		return
	}
	b.sendMessage(ctx, req.chatID, BoardText("☠️ <b>Deadliest players</b>", "kills", entries), nil)
}

func (b *Bot) historyHandler(ctx context.Context, req request) {
	limit, _ := req.cmd.Int(0, leaderboard.DefaultLimit)
	txs, err := b.board.History(ctx, req.from.ID, int(limit))
	if err != nil {
		b.storageError(ctx, req, "history", err)
		return
	}
	b.sendMessage(ctx, req.chatID, HistoryText(req.from.ID, txs), nil)
}

func (b *Bot) premiumHandler(ctx context.Context, req request) {
	if !b.cfg.IsOwner(req.from.ID) {
		b.sendMessage(ctx, req.chatID, "⭐ Premium is granted by the bot owners.", nil)
		return
	}
	if req.target == nil {
		b.sendMessage(ctx, req.chatID, "↩️ Reply to a player's message with /premium or /premium off.", nil)
		return
	}

	tier := storage.TierPremium
	if req.cmd.Arg(0) == "off" {
		tier = storage.TierStandard
	}

	if _, err := b.engine.Profile(ctx, req.target.ID); err != nil {
		b.storageError(ctx, req, "profile", err)
		return
	}
	if err := b.storage.SetTier(ctx, req.target.ID, tier); err != nil {
		b.storageError(ctx, req, "set tier", err)
		return
	}

	b.log.Info("tier changed", "user_id", req.target.ID, "tier", tier, "by", req.from.ID)
	b.sendMessage(ctx, req.chatID, fmt.Sprintf("⭐ %s is now <b>%s</b>.", mention(DisplayName(req.target)), tier), nil)
}

func (b *Bot) supplyHandler(ctx context.Context, req request) {
	if !b.cfg.IsOwner(req.from.ID) {
		return
	}
	total, err := b.board.Supply(ctx)
	if err != nil {
		b.storageError(ctx, req, "supply", err)
		return
	}
	b.sendMessage(ctx, req.chatID, fmt.Sprintf("🏦 Coins in circulation: <b>%s</b>", formatCoins(total)), nil)
}

// --- Helpers ---

type actionFunc func(ctx context.Context, actor, target int64) (economy.Result, error)

// targeted runs an action against the author of the replied-to message and
// tells the target about it
func (b *Bot) targeted(ctx context.Context, req request, name string, run actionFunc) {
	if req.target == nil {
		b.sendMessage(ctx, req.chatID, fmt.Sprintf("↩️ Reply to a player's message with /%s.", req.cmd.Name), nil)
		return
	}

	r, err := run(ctx, req.from.ID, req.target.ID)
	if err != nil {
		b.storageError(ctx, req, name, err)
		return
	}

	b.sendMessage(ctx, req.chatID, ResultText(r, DisplayName(req.from), DisplayName(req.target)), nil)

	if b.notifier != nil {
		b.notifier.HandleResult(ctx, notifier.Event{
			Result:    r,
			Actor:     req.from.ID,
			ActorName: DisplayName(req.from),
			Target:    req.target.ID,
		})
	}
}

func (b *Bot) storageError(ctx context.Context, req request, op string, err error) {
	b.log.Error("command failed", "command", op, "user_id", req.from.ID, "chat_id", req.chatID, "error", err)
	b.sendMessage(ctx, req.chatID, "⚠️ The bank is unavailable right now. Try again later.", nil)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	if err := b.limiter.Wait(ctx); err != nil {
		return
	}

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

// SendNotification sends a private message; unreachable users surface as
// notifier.ErrBlocked
func (b *Bot) SendNotification(ctx context.Context, userID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	disablePreview := true
	params := &bot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	}

	_, err := b.bot.SendMessage(ctx, params)
	return classifySendError(err)
}

func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bot.ErrorForbidden) || strings.Contains(err.Error(), "chat not found") {
		return fmt.Errorf("%w: %v", notifier.ErrBlocked, err)
	}
	return err
}
