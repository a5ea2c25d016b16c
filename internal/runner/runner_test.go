package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupovip/gatekeeper/internal/activation"
	"github.com/grupovip/gatekeeper/internal/directory"
	"github.com/grupovip/gatekeeper/internal/stores/memory"
	"github.com/grupovip/gatekeeper/internal/sweep"
	"github.com/grupovip/gatekeeper/pkg/records"
	"github.com/grupovip/gatekeeper/pkg/telegram"
)

// scriptedGateway serves queued update batches and records outbound traffic
type scriptedGateway struct {
	mutex    sync.Mutex
	batches  [][]telegram.Update
	fetchErr error
	offsets  []int64
	sent     []string
}

func (g *scriptedGateway) FetchUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.offsets = append(g.offsets, offset)
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	if len(g.batches) == 0 {
		return nil, nil
	}

	batch := g.batches[0]
	g.batches = g.batches[1:]
	return batch, nil
}

func (g *scriptedGateway) SendMessage(ctx context.Context, chatID int64, text string, buttons ...telegram.Button) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.sent = append(g.sent, text)
	return nil
}

func (g *scriptedGateway) RemoveMember(ctx context.Context, chatID int64, userID int64) error {
	return nil
}

func (g *scriptedGateway) sentCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.sent)
}

func (g *scriptedGateway) offsetCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.offsets)
}

func newTestRunner(gateway telegram.Gateway, store records.StoreInterface) *Runner {
	groups := directory.New(map[string]directory.Group{
		"Curto Prazo": {InviteLink: "https://t.me/+curto", ChatID: -100},
	})
	handler := activation.NewHandler(store, groups, gateway)
	sweeper := sweep.NewSweeper(store, groups, gateway, "@suporte")

	return NewRunner(gateway, handler, sweeper, &Options{
		PollDelay:     5 * time.Millisecond,
		SweepSchedule: "@every 1h",
	})
}

// waitFor polls a condition until it holds or the deadline passes
func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never held")
}

func TestUpdateLoopAdvancesCursor(t *testing.T) {
	gateway := &scriptedGateway{
		batches: [][]telegram.Update{{
			// An update no handler matches still advances the cursor
			{UpdateID: 5, Message: &telegram.Message{Chat: telegram.Chat{ID: 555}, Text: "hello"}},
			{UpdateID: 6, Message: &telegram.Message{Chat: telegram.Chat{ID: 555}, Text: "/start abc"}},
		}},
	}
	r := newTestRunner(gateway, memory.NewStore())

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitFor(t, func() bool { return r.Offset() == 7 })
	waitFor(t, func() bool { return gateway.sentCount() == 1 })

	// Only the malformed /start produced a reply; "hello" was skipped
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	assert.Contains(t, gateway.sent[0], "Link inválido")
}

func TestUpdateLoopDispatchesCallback(t *testing.T) {
	store := memory.NewStore()
	store.Put(&records.Record{
		ID:              42,
		Name:            "Ana",
		Entitlements:    []string{"Curto Prazo"},
		SubscriptionEnd: records.NewDate(2026, time.March, 9),
	})
	gateway := &scriptedGateway{
		batches: [][]telegram.Update{{
			{UpdateID: 20, CallbackQuery: &telegram.CallbackQuery{
				From:    telegram.User{ID: 999, Username: "ana", FirstName: "Ana"},
				Message: &telegram.Message{Chat: telegram.Chat{ID: 555}},
				Data:    "validar:42",
			}},
		}},
	}
	r := newTestRunner(gateway, store)

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitFor(t, func() bool { return gateway.sentCount() == 1 })
	assert.Equal(t, int64(21), r.Offset())

	rec, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, rec.Connected)
}

func TestUpdateLoopSurvivesTransportErrors(t *testing.T) {
	gateway := &scriptedGateway{fetchErr: errors.New("gateway timeout")}
	r := newTestRunner(gateway, memory.NewStore())

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	// The loop keeps retrying after the fixed delay instead of dying
	waitFor(t, func() bool { return gateway.offsetCount() >= 3 })
}

func TestStop(t *testing.T) {
	gateway := &scriptedGateway{}
	r := newTestRunner(gateway, memory.NewStore())

	require.NoError(t, r.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunSweepRecordsStatus(t *testing.T) {
	store := memory.NewStore()
	userID := int64(999)
	store.Put(&records.Record{
		ID:              42,
		Name:            "Ana",
		Entitlements:    []string{"Curto Prazo"},
		SubscriptionEnd: records.NewDate(2000, time.January, 1),
		TelegramUserID:  &userID,
		Connected:       true,
	})
	gateway := &scriptedGateway{}
	r := newTestRunner(gateway, store)

	processed, err := r.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	status := r.LastSweep()
	assert.Equal(t, 1, status.Processed)
	assert.Empty(t, status.Error)
	assert.False(t, status.LastRun.IsZero())
}

func TestOffsetNeverMovesBackward(t *testing.T) {
	r := newTestRunner(&scriptedGateway{}, memory.NewStore())

	r.advance(10)
	r.advance(7)
	assert.Equal(t, int64(10), r.Offset())
}
