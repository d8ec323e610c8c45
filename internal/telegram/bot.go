// Package telegram is the Telegram front end over the chat pipeline. Plain
// messages run through the pipeline unchanged; a handful of commands cover
// onboarding, catalog browsing and an admin-only rule reload.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/generate"
	"github.com/hunterwarburton/porsa/internal/intent"
	"github.com/hunterwarburton/porsa/internal/logger"
)

// browseLimit caps the /brands and /categories listings.
const browseLimit = 20

// Fixed Persian replies for the command surface.
const (
	startText = "سلام! من دستیار فروش این فروشگاه هستم. سوال خود را درباره محصولات بنویسید.\n\n" +
		"دستورها:\n" +
		"/help - راهنما\n" +
		"/brands - برندهای موجود\n" +
		"/categories - دسته‌بندی محصولات"
	helpText = "دستورهای قابل استفاده:\n" +
		"/start - شروع دوباره\n" +
		"/help - همین راهنما\n" +
		"/brands - برندهای موجود\n" +
		"/categories - دسته‌بندی محصولات\n\n" +
		"برای پرسیدن سوال کافی است پیام خود را بنویسید."
	unknownCommandText = "دستور ناشناخته است. /help را امتحان کنید."
	notAdminText       = "این دستور فقط برای مدیران است."
	reloadFailedText   = "بارگذاری دوباره قواعد ناموفق بود."
	browseFailedText   = "فهرست در حال حاضر در دسترس نیست. لطفاً بعداً تلاش کنید."
	emptyCatalogText   = "هنوز محصولی ثبت نشده است."
)

// ChatService is the slice of the orchestrator the bot drives.
type ChatService interface {
	Chat(ctx context.Context, req core.Request) (core.ChatResult, error)
}

// CatalogBrowser lists distinct catalog values for the browse commands.
type CatalogBrowser interface {
	ListBrands(ctx context.Context, max int) ([]string, error)
	ListCategories(ctx context.Context, max int) ([]string, error)
}

// PolicyService decides who may talk to the bot and who may administer it.
type PolicyService interface {
	IsAdmin(userID int64) bool
	IsAllowed(userID int64) bool
}

// Deps are the collaborators behind the bot.
type Deps struct {
	Pipeline ChatService
	// Catalog may be nil when the store cannot enumerate values; the
	// browse commands then report the listing as unavailable.
	Catalog    CatalogBrowser
	Policy     PolicyService
	Classifier *intent.Classifier
	// RulesPath is re-read by the /reload command.
	RulesPath string
}

// Bot represents the Telegram bot.
type Bot struct {
	bot        *bot.Bot
	pipeline   ChatService
	catalog    CatalogBrowser
	policy     PolicyService
	classifier *intent.Classifier
	rulesPath  string
}

// NewBot creates a new bot instance.
func NewBot(token string, deps Deps) (*Bot, error) {
	b := &Bot{
		pipeline:   deps.Pipeline,
		catalog:    deps.Catalog,
		policy:     deps.Policy,
		classifier: deps.Classifier,
		rulesPath:  deps.RulesPath,
	}

	botAPI, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}

	b.bot = botAPI
	return b, nil
}

// Start runs the long-polling loop until the context is canceled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// handleUpdate handles a Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, tgbot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	message := update.Message
	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.policy.IsAllowed(userID) {
		logger.TelegramInfo("Chat[%d] User[%d]: Ignored message from disallowed user.", chatID, userID)
		return
	}
	if message.Text == "" {
		logger.TelegramDebug("Chat[%d] User[%d]: Ignored non-text message.", chatID, userID)
		return
	}

	if message.Text[0] == '/' {
		command := commandName(message.Text)
		logger.TelegramInfo("Chat[%d] User[%d]: Received command: /%s", chatID, userID, command)
		b.send(ctx, chatID, b.commandReply(ctx, command, userID))
		return
	}

	b.handleChatMessage(ctx, message)
}

// handleChatMessage runs one utterance through the pipeline and sends the
// answer back. The pipeline degrades internally, so the only error worth a
// canned apology here is an unexpected transport-level one.
func (b *Bot) handleChatMessage(ctx context.Context, message *models.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	logger.TelegramInfo("Chat[%d] User[%d]: Received text message.", chatID, userID)

	typingDone := make(chan struct{})
	go b.sendContinuousTypingAction(ctx, chatID, typingDone)
	defer close(typingDone)

	b.send(ctx, chatID, b.chatReply(ctx, chatID, userID, message.Text))
}

// chatReply produces the answer text for one plain message.
func (b *Bot) chatReply(ctx context.Context, chatID, userID int64, text string) string {
	result, err := b.pipeline.Chat(ctx, core.Request{
		UserID:    strconv.FormatInt(userID, 10),
		RawText:   text,
		SessionID: "tg-" + strconv.FormatInt(chatID, 10),
		Timestamp: time.Now(),
	})
	if err != nil && !errors.Is(err, core.ErrEmptyQuery) {
		logger.TelegramError("Chat[%d] User[%d]: Pipeline error: %v", chatID, userID, err)
		return generate.FallbackText
	}
	return result.Answer.Text
}

// commandReply produces the reply text for a command.
func (b *Bot) commandReply(ctx context.Context, command string, userID int64) string {
	switch command {
	case "start":
		return startText
	case "help":
		return helpText
	case "brands":
		return b.browseReply(ctx, "برندهای موجود:", func(ctx context.Context) ([]string, error) {
			return b.catalog.ListBrands(ctx, browseLimit)
		})
	case "categories":
		return b.browseReply(ctx, "دسته‌بندی محصولات:", func(ctx context.Context) ([]string, error) {
			return b.catalog.ListCategories(ctx, browseLimit)
		})
	case "reload":
		return b.reloadReply(userID)
	default:
		return unknownCommandText
	}
}

func (b *Bot) browseReply(ctx context.Context, header string, list func(context.Context) ([]string, error)) string {
	if b.catalog == nil {
		return browseFailedText
	}
	values, err := list(ctx)
	if err != nil {
		logger.TelegramWarn("Catalog listing failed: %v", err)
		return browseFailedText
	}
	if len(values) == 0 {
		return emptyCatalogText
	}
	return header + "\n" + bulleted(values)
}

func (b *Bot) reloadReply(userID int64) string {
	if !b.policy.IsAdmin(userID) {
		logger.TelegramWarn("User[%d]: Rejected /reload from non-admin.", userID)
		return notAdminText
	}

	rules, err := intent.LoadRulesOrDefault(b.rulesPath)
	if err != nil {
		logger.TelegramError("Intent rules reload failed: %v", err)
		return reloadFailedText
	}
	b.classifier.Reload(rules)

	logger.TelegramInfo("User[%d]: Intent rules reloaded (version %s).", userID, rules.Version)
	return fmt.Sprintf("قواعد تشخیص نیت دوباره بارگذاری شد (نسخه %s).", rules.Version)
}

// sendContinuousTypingAction keeps the typing indicator alive until done is
// closed. Telegram shows one action for about five seconds.
func (b *Bot) sendContinuousTypingAction(ctx context.Context, chatID int64, done chan struct{}) {
	b.sendTyping(ctx, chatID)

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			b.sendTyping(ctx, chatID)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	b.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if _, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		logger.TelegramError("Chat[%d]: Failed to send message: %v", chatID, err)
	}
}

// commandName extracts the bare command from text like "/brands@shop_bot 1".
func commandName(text string) string {
	command := strings.Split(text, " ")[0]
	command = strings.TrimPrefix(command, "/")
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	return command
}

func bulleted(values []string) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("• ")
		sb.WriteString(v)
	}
	return sb.String()
}
