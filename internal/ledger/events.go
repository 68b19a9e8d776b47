package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

// ScoreEvent is a decoded ScoreSubmitted log.
type ScoreEvent struct {
	Player      string
	Score       uint64
	Timestamp   time.Time
	TxID        string
	BlockNumber uint64
}

// DecodeScoreSubmitted decodes a ScoreSubmitted log emitted by the contract.
func (c *Client) DecodeScoreSubmitted(l types.Log) (ScoreEvent, error) {
	ev := c.abi.Events[eventScoreSubmitted]
	if len(l.Topics) != 2 || l.Topics[0] != ev.ID {
		return ScoreEvent{}, fmt.Errorf("%w: not a %s log", ErrMalformedResponse, eventScoreSubmitted)
	}
	vals, err := c.abi.Unpack(eventScoreSubmitted, l.Data)
	if err != nil {
		return ScoreEvent{}, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, eventScoreSubmitted, err)
	}
	if len(vals) != 2 {
		return ScoreEvent{}, fmt.Errorf("%w: %s has %d values", ErrMalformedResponse, eventScoreSubmitted, len(vals))
	}
	score, err := toUint64(vals[0], "score")
	if err != nil {
		return ScoreEvent{}, err
	}
	ts, err := toUint64(vals[1], "timestamp")
	if err != nil {
		return ScoreEvent{}, err
	}
	return ScoreEvent{
		Player:      common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
		Score:       score,
		Timestamp:   time.Unix(int64(ts), 0).UTC(),
		TxID:        l.TxHash.Hex(),
		BlockNumber: l.BlockNumber,
	}, nil
}

func (c *Client) scoreQuery() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{c.abi.Events[eventScoreSubmitted].ID}},
	}
}

// WatchScoreSubmitted streams ScoreSubmitted events into sink until the
// returned subscription is unsubscribed, fails or ctx ends. Endpoints without
// notification support (plain HTTP) are polled with FilterLogs every LogPoll.
func (c *Client) WatchScoreSubmitted(ctx context.Context, sink chan<- ScoreEvent) (event.Subscription, error) {
	logs := make(chan types.Log, 16)
	sub, err := c.backend.SubscribeFilterLogs(ctx, c.scoreQuery(), logs)
	switch {
	case errors.Is(err, rpc.ErrNotificationsUnsupported):
		c.log.Debug("no log subscriptions, polling", "every", c.cfg.LogPoll)
		return c.pollScoreSubmitted(ctx, sink)
	case err != nil:
		return nil, fmt.Errorf("ledger: subscribe %s: %w", eventScoreSubmitted, err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				if !c.forward(l, sink, quit) {
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	}), nil
}

func (c *Client) pollScoreSubmitted(ctx context.Context, sink chan<- ScoreEvent) (event.Subscription, error) {
	from, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: block number: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(c.cfg.LogPoll)
		defer ticker.Stop()

		pollCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-quit:
			case <-pollCtx.Done():
			}
			cancel()
		}()

		for {
			select {
			case <-quit:
				return nil
			case <-pollCtx.Done():
				return nil
			case <-ticker.C:
			}

			latest, err := c.backend.BlockNumber(pollCtx)
			if err != nil {
				c.log.Warn("poll block number", "err", err)
				continue
			}
			if latest <= from {
				continue
			}
			q := c.scoreQuery()
			q.FromBlock = new(big.Int).SetUint64(from + 1)
			q.ToBlock = new(big.Int).SetUint64(latest)
			logs, err := c.backend.FilterLogs(pollCtx, q)
			if err != nil {
				c.log.Warn("poll logs", "from", from+1, "to", latest, "err", err)
				continue
			}
			for _, l := range logs {
				if !c.forward(l, sink, quit) {
					return nil
				}
			}
			from = latest
		}
	}), nil
}

// forward decodes l and delivers it to sink. It reports false when quit
// closed while waiting on sink.
func (c *Client) forward(l types.Log, sink chan<- ScoreEvent, quit <-chan struct{}) bool {
	if l.Removed {
		return true
	}
	ev, err := c.DecodeScoreSubmitted(l)
	if err != nil {
		c.log.Warn("skipping log", "tx", l.TxHash.Hex(), "err", err)
		return true
	}
	select {
	case sink <- ev:
		return true
	case <-quit:
		return false
	}
}
