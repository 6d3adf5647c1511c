package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/domain/events"
)

var (
	testContract = common.HexToAddress("0x1502b55CB677ae1c514cd87aA103a3A33aD82876")
	testAuthor   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testVoter    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type fakeCaller struct {
	respond func(method string, params []interface{}) ([]interface{}, error)
	mu      sync.Mutex
	calls   []string
}

func (f *fakeCaller) Call(opts *bind.CallOpts, results *[]interface{}, method string, params ...interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()

	out, err := f.respond(method, params)
	if err != nil {
		return err
	}
	*results = out
	return nil
}

type fakeTransactor struct {
	err  error
	mu   sync.Mutex
	sent []string
	args [][]interface{}
}

func (f *fakeTransactor) Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, method)
	f.args = append(f.args, params)
	return types.NewTx(&types.LegacyTx{
		Nonce:    uint64(len(f.sent)),
		To:       &testContract,
		Value:    big.NewInt(0),
		Gas:      100000,
		GasPrice: big.NewInt(1),
	}), nil
}

type fakeConfirmer struct {
	receipt *types.Receipt
	err     error
}

func (f *fakeConfirmer) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

type fakeHead struct{ time uint64 }

func (f fakeHead) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), Time: f.time}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) phases() []TxPhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TxPhase, 0, len(p.events))
	for _, e := range p.events {
		if rec, ok := e.Payload.(TxRecord); ok {
			out = append(out, rec.Phase)
		}
	}
	return out
}

type fakeLogSource struct {
	mu      sync.Mutex
	head    uint64
	logs    []types.Log
	queries []ethereum.FilterQuery
	subErr  error
	heads   int
}

func (f *fakeLogSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLogSource) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return nil, errors.New("subscriptions not supported")
}

func (f *fakeLogSource) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads++
	return f.head, nil
}

func (f *fakeLogSource) headReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heads
}

func (f *fakeLogSource) setHead(head uint64, logs ...types.Log) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = head
	f.logs = append(f.logs, logs...)
}

func makeLog(t *testing.T, name string, block uint64, indexed []common.Hash, nonIndexed ...interface{}) types.Log {
	t.Helper()
	parsed := MustBerniceABI()
	ev, ok := parsed.Events[name]
	require.True(t, ok, "event %s", name)

	data, err := ev.Inputs.NonIndexed().Pack(nonIndexed...)
	require.NoError(t, err)

	return types.Log{
		Address:     testContract,
		Topics:      append([]common.Hash{ev.ID}, indexed...),
		Data:        data,
		BlockNumber: block,
	}
}

func idTopic(v int64) common.Hash { return common.BigToHash(big.NewInt(v)) }

func storyTuple(title string, total, current, period, votingEnd int64, completed bool) []interface{} {
	return []interface{}{
		testAuthor,
		title,
		big.NewInt(total),
		big.NewInt(current),
		big.NewInt(period),
		big.NewInt(votingEnd),
		completed,
	}
}
