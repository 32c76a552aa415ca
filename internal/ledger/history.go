package ledger

import (
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"fundscope/internal/contract"
	"fundscope/internal/metrics"
	"fundscope/internal/model"
)

// defaultScanBatch bounds one eth_getLogs range.
const defaultScanBatch = 5000

// LogReader is the chain surface the history scanner needs.
type LogReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error)
}

// HistoryScanner reconstructs a timestamped donation history from
// DonationMade logs. Best-effort: log availability depends on the configured
// start block and the endpoint's log-range limits, so a scan that finds
// nothing yields an empty history, never an error.
type HistoryScanner struct {
	chain      LogReader
	router     common.Address
	startBlock uint64
	batchSize  uint64
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHistoryScanner builds a scanner. m may be nil.
func NewHistoryScanner(chain LogReader, router common.Address, startBlock uint64, m *metrics.Metrics, logger *zap.Logger) *HistoryScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryScanner{
		chain:      chain,
		router:     router,
		startBlock: startBlock,
		batchSize:  defaultScanBatch,
		metrics:    m,
		logger:     logger,
	}
}

// Scan collects the account's donation events from the start block to the
// chain head, sorted descending by resolved block timestamp.
func (s *HistoryScanner) Scan(ctx context.Context, account common.Address) ([]model.DonationEvent, error) {
	if s.router == (common.Address{}) {
		return nil, nil
	}

	routerABI, err := contract.RouterABI()
	if err != nil {
		return nil, err
	}
	event := routerABI.Events["DonationMade"]

	latest, err := s.chain.LatestBlockNumber(ctx)
	if err != nil {
		s.logger.Warn("history scan: latest block unavailable", zap.Error(err))
		return nil, nil
	}
	if s.startBlock > latest {
		return nil, nil
	}

	topics := [][]common.Hash{
		{event.ID},
		nil,
		{common.BytesToHash(account.Bytes())},
	}

	events := make([]model.DonationEvent, 0)
	for from := s.startBlock; from <= latest; {
		to := from + s.batchSize - 1
		if to > latest {
			to = latest
		}

		logs, err := s.chain.FilterLogs(ctx, from, to, []common.Address{s.router}, topics)
		if err != nil {
			// Partial history beats none; the scan stops where the
			// endpoint stopped serving it.
			s.logger.Warn("history scan: log range failed",
				zap.Uint64("from", from), zap.Uint64("to", to), zap.Error(err))
			break
		}

		for _, log := range logs {
			decoded, err := s.decode(ctx, event, log)
			if err != nil {
				s.logger.Warn("history scan: undecodable log",
					zap.String("tx", log.TxHash.Hex()), zap.Error(err))
				continue
			}
			events = append(events, decoded)
			if s.metrics != nil {
				s.metrics.DonationEvents.Inc()
			}
		}

		if to == latest {
			break
		}
		from = to + 1
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp > events[j].Timestamp
		}
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})

	return events, nil
}

var errInsufficientTopics = errors.New("insufficient topics for DonationMade")

func (s *HistoryScanner) decode(ctx context.Context, event abi.Event, log types.Log) (model.DonationEvent, error) {
	if len(log.Topics) < 3 {
		return model.DonationEvent{}, errInsufficientTopics
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.DonationEvent{}, err
	}

	var token string
	var amount *big.Int
	if len(values) > 0 {
		if addr, ok := values[0].(common.Address); ok {
			token = addr.Hex()
		}
	}
	if len(values) > 1 {
		if n, ok := values[1].(*big.Int); ok {
			amount = new(big.Int).Set(n)
		}
	}
	if amount == nil {
		amount = new(big.Int)
	}

	// Timestamps resolve once per unique block via the client cache.
	ts, err := s.chain.BlockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		s.logger.Debug("history scan: timestamp unavailable",
			zap.Uint64("block", log.BlockNumber), zap.Error(err))
	}

	return model.DonationEvent{
		CampaignID:  new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		Donor:       common.BytesToAddress(log.Topics[2].Bytes()).Hex(),
		Token:       token,
		Amount:      amount,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Timestamp:   ts,
	}, nil
}
