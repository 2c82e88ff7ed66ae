package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
	"github.com/disertus/Blood-Donor-Bot/internal/store"
)

// handleStart creates (or restarts) the registration dialog for a chat.
func (r *Router) handleStart(ctx context.Context, chatID int64) {
	u := &domain.User{
		ChatID:    chatID,
		Stage:     domain.StageAwaitingBloodType,
		CreatedAt: r.now().UTC(),
	}
	if err := r.repo.PutUser(ctx, u); err != nil {
		r.log.Error("start: put user failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Помилка ініціалізації профілю. Спробуй ще раз пізніше.")
		return
	}
	r.sendWithKeyboard(chatID, promptBloodType, bloodTypeKeyboard())
}

// handleReset deletes the record and immediately restarts registration.
func (r *Router) handleReset(ctx context.Context, chatID int64) {
	if err := r.repo.DeleteUser(ctx, chatID); err != nil {
		r.log.Error("reset failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Не вдалося видалити дані. Спробуй пізніше.")
		return
	}
	u := &domain.User{
		ChatID:    chatID,
		Stage:     domain.StageAwaitingBloodType,
		CreatedAt: r.now().UTC(),
	}
	if err := r.repo.PutUser(ctx, u); err != nil {
		r.log.Error("reset: recreate failed", zap.Int64("chatID", chatID), zap.Error(err))
		return
	}
	r.sendWithKeyboard(chatID, resetDoneText+"\n\n"+promptBloodType, bloodTypeKeyboard())
}

// handleDialog feeds free-form text into the registration state machine.
// The whole read-advance-persist step runs as one atomic store mutation, so
// it cannot interleave with a scheduler reschedule of the same record.
func (r *Router) handleDialog(ctx context.Context, chatID int64, text string) {
	var (
		advErr     error
		stageAfter domain.Stage
		registered bool
	)
	err := r.repo.MutateUser(ctx, chatID, func(u *domain.User) error {
		if u.Stage == domain.StageRegistered {
			registered = true
			return store.ErrNoChange
		}
		// r.now is localized to the notification timezone, so the computed
		// dates share the scheduler's calendar.
		advErr = domain.Advance(u, text, r.now(), r.cooldownDays)
		stageAfter = u.Stage
		// The reset on invalid input is persisted too, so the dialog
		// restarts from a clean record.
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, notRegisteredHint)
		return
	}
	if err != nil {
		r.log.Error("dialog: store mutation failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, "Щось пішло не так. Спробуй ще раз.")
		return
	}
	if registered {
		// Free text from a registered user; point at the command list.
		r.sendText(chatID, helpText)
		return
	}

	if advErr != nil {
		r.sendWithKeyboard(chatID, invalidInputText, bloodTypeKeyboard())
		return
	}

	switch stageAfter {
	case domain.StageAwaitingRh:
		r.sendWithKeyboard(chatID, promptRh, rhKeyboard())
	case domain.StageAwaitingDonationDate:
		r.sendWithKeyboard(chatID, promptDonation, donationDateKeyboard())
	case domain.StageRegistered:
		r.sendWithKeyboard(chatID, confirmRegistered, tgbotapi.NewRemoveKeyboard(true))
	}
}

// handleInventoryUpdate answers /update with the live inventory, falling
// back to the latest stored snapshot when the site is unreachable.
func (r *Router) handleInventoryUpdate(ctx context.Context, chatID int64) {
	snap, err := r.fetcher.Fetch(ctx)
	if err == nil {
		r.sendText(chatID, formatSnapshot(domain.DateOf(r.now()), snap, false))
		return
	}
	r.log.Warn("live inventory fetch failed, trying stored snapshot", zap.Error(err))

	snap, day, err := r.repo.LatestSnapshot(ctx)
	if err != nil {
		r.sendText(chatID, updateUnavailable)
		return
	}
	r.sendText(chatID, formatSnapshot(day, snap, true))
}

// handleLocation sends the donor center's coordinates.
func (r *Router) handleLocation(chatID int64) {
	loc := tgbotapi.NewLocation(chatID, centerLat, centerLon)
	if _, err := r.bot.Send(loc); err != nil {
		r.log.Warn("send location failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
	r.sendText(chatID, infoText)
}

// formatSnapshot renders all eight slots in page order under a dated header.
func formatSnapshot(day time.Time, snap domain.Snapshot, stale bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, updateHeaderFmt, day.Format("02.01.2006"))
	if stale {
		b.WriteString("\n" + updateStaleNote)
	}
	b.WriteString("\n")
	for _, k := range domain.AllKeys() {
		status, ok := snap.Lookup(k)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s : %s", k, displayStatus(status))
	}
	return b.String()
}

func displayStatus(s domain.Status) string {
	if s == domain.StatusSufficient {
		return "достатньо"
	}
	return string(s)
}
