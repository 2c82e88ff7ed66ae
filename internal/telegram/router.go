package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
	"github.com/disertus/Blood-Donor-Bot/internal/store"
)

// InventoryFetcher serves the /update command's live inventory view.
// inventory.Client implements it.
type InventoryFetcher interface {
	Fetch(ctx context.Context) (domain.Snapshot, error)
}

// Router wires Telegram updates to handlers. No in-memory dialog state:
// the registration stage lives on the persisted record, so free-form text
// is dispatched by whatever stage the store holds.
type Router struct {
	bot          *tgbotapi.BotAPI
	log          *zap.Logger
	repo         store.Repo
	fetcher      InventoryFetcher
	cooldownDays int
	now          func() time.Time // localized to the notification timezone; overridable in tests
}

// NewRouter creates a new Telegram router. loc is the timezone notification
// dates are computed in; registration must use the same calendar as the
// scheduler or a late-evening answer lands one day off.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo,
	fetcher InventoryFetcher, cooldownDays int, loc *time.Location) *Router {
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		bot:          bot,
		log:          log,
		repo:         repo,
		fetcher:      fetcher,
		cooldownDays: cooldownDays,
		now:          func() time.Time { return time.Now().In(loc) },
	}
}

// HandleUpdate routes a single update. Registration answers for one chat
// arrive sequentially from Telegram; the store's atomic mutations keep them
// safe against the scheduler writing the same record mid-tick.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, chatID)
	case strings.HasPrefix(text, "/help"):
		r.sendText(chatID, helpText)
	case strings.HasPrefix(text, "/info"):
		r.sendText(chatID, infoText)
	case strings.HasPrefix(text, "/update"):
		r.handleInventoryUpdate(ctx, chatID)
	case strings.HasPrefix(text, "/intervals"):
		r.sendText(chatID, intervalsText)
	case strings.HasPrefix(text, "/location"):
		r.handleLocation(chatID)
	case strings.HasPrefix(text, "/reset"):
		r.handleReset(ctx, chatID)
	default:
		r.handleDialog(ctx, chatID, text)
	}
}

// SendMessage sends a plain text message to the given chat. This makes
// Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}
