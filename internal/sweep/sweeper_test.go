package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupovip/gatekeeper/internal/directory"
	"github.com/grupovip/gatekeeper/internal/stores/memory"
	"github.com/grupovip/gatekeeper/pkg/records"
	"github.com/grupovip/gatekeeper/pkg/telegram"
)

// sentMessage captures one outbound message
type sentMessage struct {
	chatID int64
	text   string
}

// removal captures one remove-member call
type removal struct {
	chatID int64
	userID int64
}

// fakeGateway records outbound traffic and can fail on demand
type fakeGateway struct {
	sent      []sentMessage
	removed   []removal
	removeErr error
	sendErr   error
}

func (g *fakeGateway) FetchUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	return nil, nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, chatID int64, text string, buttons ...telegram.Button) error {
	g.sent = append(g.sent, sentMessage{chatID: chatID, text: text})
	return g.sendErr
}

func (g *fakeGateway) RemoveMember(ctx context.Context, chatID int64, userID int64) error {
	g.removed = append(g.removed, removal{chatID: chatID, userID: userID})
	return g.removeErr
}

func testDirectory() *directory.Directory {
	return directory.New(map[string]directory.Group{
		"Curto Prazo": {InviteLink: "https://t.me/+curto", ChatID: -1002046197953},
		"Opções":      {InviteLink: "https://t.me/+opcoes", ChatID: -1002001152534},
	})
}

// today is the fixed sweep date used by every test
var today = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

func testSweeper(store records.StoreInterface, gateway telegram.Gateway) *Sweeper {
	s := NewSweeper(store, testDirectory(), gateway, "@suporte")
	s.now = func() time.Time { return today }
	return s
}

func connectedRecord(id int64, userID int64, end records.Date, entitlements ...string) *records.Record {
	return &records.Record{
		ID:              id,
		Name:            "Ana",
		Entitlements:    entitlements,
		SubscriptionEnd: end,
		TelegramUserID:  &userID,
		Connected:       true,
	}
}

func TestRunRevokesExpiredClient(t *testing.T) {
	store := memory.NewStore()
	store.Put(connectedRecord(42, 999, records.NewDate(2026, time.March, 9), "Curto Prazo"))
	gateway := &fakeGateway{}

	processed, err := testSweeper(store, gateway).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// One kick from the Curto Prazo group
	require.Len(t, gateway.removed, 1)
	assert.Equal(t, removal{chatID: -1002046197953, userID: 999}, gateway.removed[0])

	// Record marked revoked with the terminal entitlement
	rec, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, rec.Connected)
	assert.Equal(t, []string{records.TerminalEntitlement}, rec.Entitlements)
	require.NotNil(t, rec.RemovedAt)

	// One notification naming the lapsed entitlement and the renewal contact
	require.Len(t, gateway.sent, 1)
	assert.Equal(t, int64(999), gateway.sent[0].chatID)
	assert.Contains(t, gateway.sent[0].text, "Curto Prazo")
	assert.Contains(t, gateway.sent[0].text, "@suporte")
}

func TestRunSkipsTerminalRecords(t *testing.T) {
	store := memory.NewStore()
	// Stale store view: terminal entitlements but still flagged connected
	store.Put(connectedRecord(42, 999, records.NewDate(2026, time.March, 1), records.TerminalEntitlement))
	gateway := &fakeGateway{}

	processed, err := testSweeper(store, gateway).Run(context.Background())
	require.NoError(t, err)

	// Zero side effects on the skip branch
	assert.Zero(t, processed)
	assert.Empty(t, gateway.removed)
	assert.Empty(t, gateway.sent)

	rec, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, rec.Connected)
	assert.Nil(t, rec.RemovedAt)
}

func TestRunDateBoundary(t *testing.T) {
	t.Run("expiring today is revoked", func(t *testing.T) {
		store := memory.NewStore()
		store.Put(connectedRecord(1, 100, records.DateOf(today), "Curto Prazo"))
		gateway := &fakeGateway{}

		processed, err := testSweeper(store, gateway).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)
	})

	t.Run("expiring tomorrow is untouched", func(t *testing.T) {
		store := memory.NewStore()
		store.Put(connectedRecord(1, 100, records.NewDate(2026, time.March, 11), "Curto Prazo"))
		gateway := &fakeGateway{}

		processed, err := testSweeper(store, gateway).Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, processed)
		assert.Empty(t, gateway.removed)
	})
}

func TestRunIdempotent(t *testing.T) {
	store := memory.NewStore()
	store.Put(connectedRecord(42, 999, records.NewDate(2026, time.March, 9), "Curto Prazo"))
	gateway := &fakeGateway{}
	sweeper := testSweeper(store, gateway)

	processed, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// Second pass with no intervening changes is a no-op
	processed, err = sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)

	assert.Len(t, gateway.removed, 1)
	assert.Len(t, gateway.sent, 1)
}

func TestRunSkipsUnmappedEntitlements(t *testing.T) {
	store := memory.NewStore()
	store.Put(connectedRecord(42, 999, records.NewDate(2026, time.March, 9), "Curto Prazo", "Criptomoedas"))
	gateway := &fakeGateway{}

	processed, err := testSweeper(store, gateway).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// Only the mapped entitlement produces a kick; the other is skipped silently
	require.Len(t, gateway.removed, 1)
	assert.Equal(t, int64(-1002046197953), gateway.removed[0].chatID)

	rec, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, rec.Connected)
}

func TestRunIsolatesPerRecordErrors(t *testing.T) {
	store := memory.NewStore()
	store.Put(connectedRecord(1, 100, records.NewDate(2026, time.March, 1), "Curto Prazo"))
	store.Put(connectedRecord(2, 200, records.NewDate(2026, time.March, 2), "Opções"))
	gateway := &fakeGateway{removeErr: errors.New("user not in group")}

	processed, err := testSweeper(store, gateway).Run(context.Background())
	require.NoError(t, err)

	// Kick failures never abort the batch or the remaining effects
	assert.Equal(t, 2, processed)
	assert.Len(t, gateway.removed, 2)
	assert.Len(t, gateway.sent, 2)

	for _, id := range []int64{1, 2} {
		rec, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, rec.Connected)
		assert.Equal(t, []string{records.TerminalEntitlement}, rec.Entitlements)
	}
}

func TestRunMultipleEntitlements(t *testing.T) {
	store := memory.NewStore()
	store.Put(connectedRecord(42, 999, records.NewDate(2026, time.March, 9), "Curto Prazo", "Opções"))
	gateway := &fakeGateway{}

	processed, err := testSweeper(store, gateway).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// One kick per entitled group, a single notification
	assert.Len(t, gateway.removed, 2)
	require.Len(t, gateway.sent, 1)
	assert.Contains(t, gateway.sent[0].text, "Curto Prazo")
	assert.Contains(t, gateway.sent[0].text, "Opções")
}
