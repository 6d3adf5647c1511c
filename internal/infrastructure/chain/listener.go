package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

// LogSource delivers contract logs. *ethclient.Client satisfies it.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// EventHandler receives each decoded event.
type EventHandler func(ctx context.Context, event ContractEvent)

// Transport selects how logs are obtained.
type Transport string

const (
	TransportSubscribe Transport = "subscribe"
	TransportPoll      Transport = "poll"
)

// TransportFor picks subscription for websocket endpoints and polling otherwise.
func TransportFor(rpcURL string) Transport {
	lower := strings.ToLower(rpcURL)
	if strings.HasPrefix(lower, "ws://") || strings.HasPrefix(lower, "wss://") {
		return TransportSubscribe
	}
	return TransportPoll
}

type ListenerConfig struct {
	Address      common.Address
	Transport    Transport
	PollInterval time.Duration
	MaxBlocks    uint64
}

// Listener watches the contract and hands decoded events to its handlers
// one at a time, in delivery order.
type Listener struct {
	source   LogSource
	cfg      ListenerConfig
	decoder  *EventDecoder
	logger   *logging.ChanneledLogger
	handlers []EventHandler
	mu       sync.RWMutex

	delivered uint64
	lastBlock uint64
}

func NewListener(source LogSource, cfg ListenerConfig, logger *logging.ChanneledLogger) *Listener {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = config.EventPollInterval
	}
	if cfg.MaxBlocks == 0 {
		cfg.MaxBlocks = uint64(config.EventPollMaxBlocks)
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportPoll
	}
	return &Listener{
		source:  source,
		cfg:     cfg,
		decoder: NewEventDecoder(cfg.Address),
		logger:  logger,
	}
}

// OnEvent registers a handler. Handlers run in registration order.
func (l *Listener) OnEvent(h EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, h)
}

// Stats reports how many events were delivered and the last block seen.
func (l *Listener) Stats() (delivered, lastBlock uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.delivered, l.lastBlock
}

func (l *Listener) query() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{l.cfg.Address},
		Topics:    l.decoder.Topics(),
	}
}

// Run blocks until ctx is cancelled. A failed subscription falls back to polling.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Events().Info("Event listener starting",
		"contract", l.cfg.Address.Hex(), "transport", string(l.cfg.Transport))

	if l.cfg.Transport == TransportSubscribe {
		err := l.subscribe(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		l.logger.Events().Warn("Log subscription failed, falling back to polling", "error", err.Error())
	}
	return l.poll(ctx)
}

func (l *Listener) subscribe(ctx context.Context) error {
	logs := make(chan types.Log, 64)
	sub, err := l.source.SubscribeFilterLogs(ctx, l.query(), logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to logs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Events().Info("Event listener stopped")
			return nil
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case lg := <-logs:
			l.HandleLogs(ctx, []types.Log{lg})
		}
	}
}

func (l *Listener) poll(ctx context.Context) error {
	head, err := l.source.BlockNumber(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to read head block: %w", err)
	}
	from := head + 1

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Events().Info("Event listener stopped")
			return nil
		case <-ticker.C:
			next, err := l.PollOnce(ctx, from)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				l.logger.Events().Error("Log poll failed", "from", from, "error", err.Error())
				continue
			}
			from = next
		}
	}
}

// PollOnce fetches logs from block `from` up to the head, bounded by
// MaxBlocks, delivers them and returns the next block to read.
func (l *Listener) PollOnce(ctx context.Context, from uint64) (uint64, error) {
	head, err := l.source.BlockNumber(ctx)
	if err != nil {
		return from, fmt.Errorf("failed to read head block: %w", err)
	}
	if head < from {
		return from, nil
	}

	to := head
	if span := from + l.cfg.MaxBlocks - 1; span < to {
		to = span
	}

	q := l.query()
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(to)

	start := time.Now()
	logs, err := l.source.FilterLogs(ctx, q)
	if err != nil {
		return from, fmt.Errorf("failed to filter logs %d-%d: %w", from, to, err)
	}
	l.logger.Events().Debug("Polled logs", "from", from, "to", to, "count", len(logs), "duration", time.Since(start))

	l.HandleLogs(ctx, logs)

	l.mu.Lock()
	l.lastBlock = to
	l.mu.Unlock()
	return to + 1, nil
}

// HandleLogs decodes each log and calls every handler synchronously.
// Removed logs and logs of other events are skipped. Returns the number of
// events delivered.
func (l *Listener) HandleLogs(ctx context.Context, logs []types.Log) int {
	l.mu.RLock()
	handlers := append([]EventHandler(nil), l.handlers...)
	l.mu.RUnlock()

	delivered := 0
	for _, lg := range logs {
		if lg.Removed {
			l.logger.Events().Debug("Skipping removed log", "txHash", lg.TxHash.Hex())
			continue
		}
		event, err := l.decoder.Decode(lg)
		if err != nil {
			if !errors.Is(err, ErrUnknownEvent) {
				l.logger.Events().Warn("Failed to decode log", "txHash", lg.TxHash.Hex(), "error", err.Error())
			}
			continue
		}

		l.logger.Events().Info("Contract event",
			"event", event.EventName(), "storyId", dec(event.Story()), "block", lg.BlockNumber)
		for _, h := range handlers {
			h(ctx, event)
		}
		delivered++
	}

	l.mu.Lock()
	l.delivered += uint64(delivered)
	if n := len(logs); n > 0 && logs[n-1].BlockNumber > l.lastBlock {
		l.lastBlock = logs[n-1].BlockNumber
	}
	l.mu.Unlock()
	return delivered
}
