package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickalert/tickalert/internal/gateway"
	"github.com/tickalert/tickalert/internal/model"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []int64
	errBy map[int64]error
}

func (s *fakeSender) Send(_ context.Context, msg model.Outgoing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errBy[msg.RecipientID]; ok {
		return err
	}
	s.sent = append(s.sent, msg.RecipientID)
	return nil
}

func (s *fakeSender) sentSet() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int)
	for _, id := range s.sent {
		out[id]++
	}
	return out
}

type fakeBlocks struct {
	mu      sync.Mutex
	blocked map[int64]bool
	checks  int
}

func (b *fakeBlocks) IsBlocked(_ context.Context, id int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checks++
	return b.blocked[id], nil
}

func newNotifier(sender *fakeSender, blocks *fakeBlocks) *Notifier {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), sender, blocks)
}

func TestBroadcast_ExcludesActorAndBlocked(t *testing.T) {
	sender := &fakeSender{}
	blocks := &fakeBlocks{blocked: map[int64]bool{2: true}}
	n := newNotifier(sender, blocks)

	results := n.Broadcast(context.Background(), []int64{1, 2, 3, 4}, 4, "new ticket")

	assert.Equal(t, 2, SuccessCount(results))
	sent := sender.sentSet()
	assert.Equal(t, 1, sent[1])
	assert.Equal(t, 1, sent[3])
	assert.Zero(t, sent[2], "blocked recipient must be skipped")
	assert.Zero(t, sent[4], "the actor must be excluded")
}

func TestBroadcast_PartialFailureDoesNotStopOthers(t *testing.T) {
	recipients := []int64{1, 2, 3, 4, 5}
	sender := &fakeSender{errBy: map[int64]error{
		3: fmt.Errorf("%w: status 404", gateway.ErrRecipientUnreachable),
	}}
	n := newNotifier(sender, &fakeBlocks{})

	results := n.Broadcast(context.Background(), recipients, 0, "new ticket")

	require.Len(t, results, 5, "every non-blocked recipient is attempted")
	assert.Equal(t, 4, SuccessCount(results))

	sent := sender.sentSet()
	for _, id := range []int64{1, 2, 4, 5} {
		assert.Equal(t, 1, sent[id], "recipient %d", id)
	}
	for _, r := range results {
		if r.RecipientID == 3 {
			assert.ErrorIs(t, r.Err, gateway.ErrRecipientUnreachable)
		} else {
			assert.NoError(t, r.Err)
		}
	}
}

func TestBroadcast_AtMostOneMessagePerRecipient(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(sender, &fakeBlocks{})

	results := n.Broadcast(context.Background(), []int64{7, 7, 8, 7, 8}, 0, "hi")

	assert.Equal(t, 2, SuccessCount(results))
	sent := sender.sentSet()
	assert.Equal(t, 1, sent[7])
	assert.Equal(t, 1, sent[8])
}

func TestBroadcast_AuthFailureAbortsBatch(t *testing.T) {
	recipients := make([]int64, 0, 32)
	errBy := make(map[int64]error, 32)
	for i := int64(1); i <= 32; i++ {
		recipients = append(recipients, i)
		errBy[i] = fmt.Errorf("%w: status 401", gateway.ErrGatewayAuth)
	}
	sender := &fakeSender{errBy: errBy}
	n := newNotifier(sender, &fakeBlocks{})

	results := n.Broadcast(context.Background(), recipients, 0, "hi")

	assert.Zero(t, SuccessCount(results))
	for _, r := range results {
		assert.Error(t, r.Err)
	}
	// The batch stops early: with the first sends failing fatally, far fewer
	// than all 32 recipients are ever attempted.
	assert.Less(t, len(results), 32)
}

func TestBroadcast_NothingToDo(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(sender, &fakeBlocks{})

	assert.Nil(t, n.Broadcast(context.Background(), nil, 0, "hi"))
	assert.Nil(t, n.Broadcast(context.Background(), []int64{9}, 9, "hi"))
	assert.Empty(t, sender.sent)
}

func TestBroadcast_BlockCheckedPerRecipientAtSendTime(t *testing.T) {
	sender := &fakeSender{}
	blocks := &fakeBlocks{}
	n := newNotifier(sender, blocks)

	n.Broadcast(context.Background(), []int64{1, 2, 3}, 0, "hi")
	assert.Equal(t, 3, blocks.checks, "each recipient is re-checked at send time")
}
