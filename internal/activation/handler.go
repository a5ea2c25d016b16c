// Package activation interprets inbound /start commands and validation
// callbacks against client records, linking a Telegram account to its record
// and handing out the invite links its entitlements grant.
//
// The activation progression (awaiting start, awaiting validation,
// validated) is carried by the data rather than in-process state: the
// callback payload round-trips the client id, and the record's connected
// flag marks a finished activation. Both handlers are stateless and safe to
// replay.
package activation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/grupovip/gatekeeper/internal/directory"
	"github.com/grupovip/gatekeeper/pkg/records"
	"github.com/grupovip/gatekeeper/pkg/telegram"
)

// StartCommand is the bot command that begins an activation
const StartCommand = "/start"

// ValidatePrefix is the callback payload prefix carrying a client id
const ValidatePrefix = "validar"

// Handler processes activation traffic
type Handler struct {
	store   records.StoreInterface
	groups  *directory.Directory
	gateway telegram.Gateway
	now     func() time.Time
}

// NewHandler creates an activation handler
func NewHandler(store records.StoreInterface, groups *directory.Directory, gateway telegram.Gateway) *Handler {
	return &Handler{
		store:   store,
		groups:  groups,
		gateway: gateway,
		now:     time.Now,
	}
}

// IsStartCommand reports whether a message text is a /start command
func IsStartCommand(text string) bool {
	return strings.HasPrefix(text, StartCommand)
}

// HandleStart processes a "/start <client_id>" message. A malformed argument
// gets the invalid-link error without touching the store; a valid one fetches
// the record and presents the validation button carrying the client id.
func (h *Handler) HandleStart(ctx context.Context, msg *telegram.Message) error {
	chatID := msg.Chat.ID

	parts := strings.Fields(msg.Text)
	if len(parts) < 2 || !isNumeric(parts[1]) {
		return h.gateway.SendMessage(ctx, chatID, msgInvalidLink)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return h.gateway.SendMessage(ctx, chatID, msgInvalidLink)
	}

	rec, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return h.gateway.SendMessage(ctx, chatID, msgNotFoundStart)
		}
		log.Printf("[ACTIVATION]: failed to fetch client %d: %v", id, err)
		return h.gateway.SendMessage(ctx, chatID, msgStoreUnavailable)
	}

	button := telegram.Button{
		Text: validateButtonText,
		Data: fmt.Sprintf("%s:%d", ValidatePrefix, id),
	}
	return h.gateway.SendMessage(ctx, chatID, greeting(rec.Name), button)
}

// HandleCallback processes a validation button press. Payloads without the
// validar prefix belong to no flow of ours and are ignored. On a match the
// record is re-fetched (arbitrary time may have passed since /start), the
// invite links are sent, and the activation patch is applied. Replays re-run
// the same idempotent update and resend the same links.
func (h *Handler) HandleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	prefix, rawID, found := strings.Cut(cb.Data, ":")
	if !found || prefix != ValidatePrefix {
		return nil
	}

	chatID := cb.ChatID()

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		// A garbled id matches no record
		return h.gateway.SendMessage(ctx, chatID, msgNotFound)
	}

	rec, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return h.gateway.SendMessage(ctx, chatID, msgNotFound)
		}
		log.Printf("[ACTIVATION]: failed to fetch client %d: %v", id, err)
		return h.gateway.SendMessage(ctx, chatID, msgStoreUnavailable)
	}

	lines := []string{validatedHeader(rec.Name)}
	for _, entitlement := range rec.Entitlements {
		if group, ok := h.groups.Lookup(entitlement); ok {
			lines = append(lines, entitlementLine(entitlement, group.InviteLink))
		} else {
			lines = append(lines, missingGroupLine(entitlement))
		}
	}

	sendErr := h.gateway.SendMessage(ctx, chatID, strings.Join(lines, "\n"))

	// The record update is attempted after the reply so a store failure never
	// keeps the client from seeing their links; its outcome is logged only
	patch := records.ActivationPatch(cb.From.ID, cb.From.Username, cb.From.FirstName, h.now())
	if err := h.store.Update(ctx, rec.ID, patch); err != nil {
		log.Printf("[ACTIVATION]: failed to mark client %d connected: %v", rec.ID, err)
	}

	return sendErr
}

// isNumeric reports whether s is one or more ASCII digits
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
