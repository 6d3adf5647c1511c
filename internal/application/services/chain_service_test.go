package services

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/domain/events"
	"github.com/bernice-stories/bernice/internal/infrastructure/caching/stores"
	"github.com/bernice-stories/bernice/internal/infrastructure/chain"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
)

type countingCaller struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingCaller) Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	c.mu.Lock()
	c.calls[method]++
	c.mu.Unlock()

	switch method {
	case chain.MethodStoryCount:
		*results = []interface{}{big.NewInt(1)}
	case chain.MethodGetStory:
		*results = []interface{}{
			common.HexToAddress("0x00000000000000000000000000000000000000a1"),
			"On chain",
			big.NewInt(5), big.NewInt(1), big.NewInt(60), big.NewInt(0), false,
		}
	}
	return nil
}

func (c *countingCaller) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func newTestChainService(t *testing.T) (*ChainService, *countingCaller) {
	t.Helper()
	caller := &countingCaller{calls: map[string]int{}}
	logger := logging.NewDiscardLogger()
	tracker := chain.NewTxTracker(nil)
	gateway := chain.NewGateway(chain.GatewayDeps{
		Address: common.HexToAddress("0x1502b55CB677ae1c514cd87aA103a3A33aD82876"),
		ChainID: 84532,
		Caller:  caller,
	}, tracker, logger)
	t.Cleanup(gateway.Close)

	network, _ := chain.LookupNetwork(84532)
	svc := NewChainService(gateway, network, nil, tracker, stores.NewReadStore(time.Minute), logger, performance.NewTracker(nil))
	return svc, caller
}

func TestChainServiceUnavailable(t *testing.T) {
	svc := NewChainService(nil, chain.Network{ChainID: 1, Name: "Ethereum Mainnet"}, nil, nil,
		stores.NewReadStore(time.Minute), logging.NewDiscardLogger(), performance.NewTracker(nil))

	status := svc.Status()
	assert.False(t, status.Enabled)
	assert.Equal(t, chain.ErrContractUnavailable, status.Error)

	_, err := svc.StoryCount(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))

	_, err = svc.Vote(context.Background(), "1", "0")
	assert.True(t, apperrors.IsUnavailable(err))

	_, err = svc.GetStory(context.Background(), "0")
	assert.True(t, apperrors.IsValidation(err), "validation runs before availability")
}

func TestChainServiceRejectsBadIDsBeforeDispatch(t *testing.T) {
	svc, caller := newTestChainService(t)
	ctx := context.Background()

	_, err := svc.GetStory(ctx, "")
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.ChapterContent(ctx, "1", "0")
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.HasVoted(ctx, "1", "1", "nobody")
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.Vote(ctx, "1", "-1")
	assert.True(t, apperrors.IsValidation(err))

	assert.Empty(t, caller.calls)
}

func TestChainServiceCachesReadsUntilInvalidated(t *testing.T) {
	svc, caller := newTestChainService(t)
	ctx := context.Background()

	first, err := svc.GetStory(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "On chain", first.Title)

	_, err = svc.GetStory(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, caller.count(chain.MethodGetStory))

	_, err = svc.StoryCount(ctx)
	require.NoError(t, err)

	assert.Positive(t, svc.InvalidateStory("1"))

	_, err = svc.GetStory(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, caller.count(chain.MethodGetStory))

	_, err = svc.StoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, caller.count(chain.MethodStoryCount))
}

func TestChainServiceStatusAndTx(t *testing.T) {
	svc, _ := newTestChainService(t)

	status := svc.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, uint64(84532), status.ChainID)
	assert.Equal(t, "Base Sepolia", status.Network)
	assert.False(t, status.WritesEnabled)

	_, err := svc.TxStatus("tx_missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.FinalizeChapter(context.Background(), "1")
	assert.True(t, apperrors.IsUnavailable(err), "no signer configured")
	assert.Empty(t, svc.RecentTx())
}

func TestEventServiceInvalidatesAndForwards(t *testing.T) {
	svc, caller := newTestChainService(t)
	pub := &recordingPublisher{}
	eventSvc := NewEventService(svc, pub, logging.NewDiscardLogger())
	ctx := context.Background()

	_, err := svc.GetStory(ctx, "1")
	require.NoError(t, err)

	eventSvc.HandleContractEvent(ctx, &chain.VoteCast{
		StoryId:         big.NewInt(1),
		ChapterNumber:   big.NewInt(2),
		SubmissionIndex: big.NewInt(0),
		Voter:           common.HexToAddress("0x00000000000000000000000000000000000000b2"),
	})

	require.Len(t, pub.events, 1)
	got := pub.events[0]
	assert.Equal(t, events.VoteCast, got.Type)
	assert.Equal(t, events.SourceChain, got.Source)
	assert.Equal(t, "1", got.StoryID)
	payload := got.Payload.(map[string]any)
	assert.Equal(t, "2", payload["chapterNumber"])

	_, err = svc.GetStory(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, caller.count(chain.MethodGetStory))
}
