// Package sweep revokes access for clients whose subscription has expired:
// it removes them from every entitled group, resets their record to the
// terminal Leads state, and notifies them how to renew.
package sweep

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grupovip/gatekeeper/internal/directory"
	"github.com/grupovip/gatekeeper/pkg/records"
	"github.com/grupovip/gatekeeper/pkg/telegram"
)

// Sweeper runs single revocation passes over the record store
type Sweeper struct {
	store          records.StoreInterface
	groups         *directory.Directory
	gateway        telegram.Gateway
	supportContact string
	now            func() time.Time
}

// NewSweeper creates a sweeper. supportContact names the renewal channel
// included in every expiry notification.
func NewSweeper(store records.StoreInterface, groups *directory.Directory, gateway telegram.Gateway, supportContact string) *Sweeper {
	return &Sweeper{
		store:          store,
		groups:         groups,
		gateway:        gateway,
		supportContact: supportContact,
		now:            time.Now,
	}
}

// Run executes one sweep pass and returns the number of records processed.
// The store's connected+expired predicate is the primary filter; records
// already reduced to the terminal entitlement are skipped again here in case
// the store view is stale. Failures of the individual effects (kick, patch,
// notify) are logged per record and never abort the batch.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	passID := uuid.NewString()
	today := records.DateOf(s.now())

	expired, err := s.store.ListExpiredConnected(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired clients: %w", err)
	}

	processed := 0
	for _, rec := range expired {
		if rec.Revoked() {
			log.Printf("[SWEEP]: pass %s: client %d already revoked, skipping", passID, rec.ID)
			continue
		}

		s.revoke(ctx, passID, rec)
		processed++
	}

	log.Printf("[SWEEP]: pass %s processed %d expired clients", passID, processed)
	return processed, nil
}

// revoke drives one record through the three revocation effects
func (s *Sweeper) revoke(ctx context.Context, passID string, rec *records.Record) {
	if rec.TelegramUserID == nil {
		// Connected implies a linked account; a record violating that can
		// still be marked revoked so it leaves the candidate set
		log.Printf("[SWEEP]: pass %s: client %d is connected without a telegram account", passID, rec.ID)
	}

	for _, entitlement := range rec.Entitlements {
		group, ok := s.groups.Lookup(entitlement)
		if !ok {
			log.Printf("[SWEEP]: pass %s: client %d holds '%s' with no configured group", passID, rec.ID, entitlement)
			continue
		}
		if rec.TelegramUserID == nil {
			continue
		}

		if err := s.gateway.RemoveMember(ctx, group.ChatID, *rec.TelegramUserID); err != nil {
			log.Printf("[SWEEP]: pass %s: failed to remove client %d from '%s': %v", passID, rec.ID, entitlement, err)
		}
	}

	if err := s.store.Update(ctx, rec.ID, records.RevocationPatch(s.now())); err != nil {
		log.Printf("[SWEEP]: pass %s: failed to mark client %d revoked: %v", passID, rec.ID, err)
	}

	if rec.TelegramUserID != nil {
		text := expiryNotice(rec.Name, rec.Entitlements, s.supportContact)
		if err := s.gateway.SendMessage(ctx, *rec.TelegramUserID, text); err != nil {
			log.Printf("[SWEEP]: pass %s: failed to notify client %d: %v", passID, rec.ID, err)
		}
	}
}

// expiryNotice tells a client which entitlements lapsed and how to renew
func expiryNotice(name string, entitlements []string, supportContact string) string {
	lines := []string{fmt.Sprintf("⏳ <b>Sua assinatura expirou, %s.</b>\n", name)}
	lines = append(lines, "Seu acesso aos grupos abaixo foi encerrado:")
	for _, entitlement := range entitlements {
		lines = append(lines, fmt.Sprintf("➡️ <b>%s</b>", entitlement))
	}
	lines = append(lines, fmt.Sprintf("\nPara renovar, fale com %s.", supportContact))
	return strings.Join(lines, "\n")
}
