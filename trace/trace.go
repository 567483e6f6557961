// Package trace acquires and decodes the hostio trace of a previously
// executed Stylus transaction. Acquisition talks to a node once; after
// that, replay works entirely off the decoded frames.
package trace

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/colorfulnotion/stylus-replay/cache"
	"github.com/colorfulnotion/stylus-replay/hostio"
	"github.com/colorfulnotion/stylus-replay/log"
)

// The tracer runs node-side under debug_traceTransaction and returns the
// raw step objects ParseFrame understands. It is the only tracer this tool
// ever submits.
//
//go:embed query.js
var traceQuery string

// Trace is one acquired transaction: the transaction itself, its receipt,
// the raw tracer output, and the decoded root frame.
type Trace struct {
	Frame   *hostio.TraceFrame
	Tx      *types.Transaction
	Receipt *types.Receipt
	Hash    common.Hash
	Raw     json.RawMessage
}

// Config adjusts acquisition. The zero value traces through the node on
// every call.
type Config struct {
	Cache    *cache.Store // nil disables trace caching
	Endpoint string       // part of the cache key; nodes may trace differently
}

type traceConfig struct {
	Tracer string `json:"tracer"`
}

// New fetches the receipt, the transaction, and the hostio trace of txHash,
// and decodes the trace into frames. Acquisition completes fully before any
// replay starts; every failure here is fatal to the run.
func New(ctx context.Context, client *rpc.Client, txHash common.Hash, cfg Config) (*Trace, error) {
	ec := ethclient.NewClient(client)

	receipt, err := ec.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w: failed to get receipt for %s", ErrReceiptNotFound, txHash.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		log.Warn(log.AcquireModule, "transaction reverted on chain", "tx", txHash.Hex(), "status", receipt.Status)
	}

	tx, _, err := ec.TransactionByHash(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w: failed to get tx %s", ErrTxNotFound, txHash.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", txHash.Hex(), err)
	}

	raw, err := fetchRawTrace(ctx, client, txHash, cfg)
	if err != nil {
		return nil, err
	}

	steps, err := decodeRawTrace(raw)
	if err != nil {
		return nil, err
	}

	to := tx.To()
	if to == nil {
		log.Warn(log.AcquireModule, "tracing a contract-creation transaction; root frame has no address", "tx", txHash.Hex())
	}
	frame, err := ParseFrame(to, steps)
	if err != nil {
		return nil, err
	}
	log.Debug(log.AcquireModule, "trace decoded", "tx", txHash.Hex(), "root_steps", len(frame.Steps))

	return &Trace{
		Frame:   frame,
		Tx:      tx,
		Receipt: receipt,
		Hash:    txHash,
		Raw:     raw,
	}, nil
}

// fetchRawTrace runs the embedded tracer against the node, going through
// the trace cache when one is configured. Cache failures degrade to a
// fresh trace rather than failing the run.
func fetchRawTrace(ctx context.Context, client *rpc.Client, txHash common.Hash, cfg Config) (json.RawMessage, error) {
	if cfg.Cache != nil {
		hit, ok, err := cfg.Cache.GetTrace(cfg.Endpoint, txHash)
		if err != nil {
			log.Warn(log.CacheModule, "trace cache read failed", "tx", txHash.Hex(), "err", err)
		} else if ok {
			log.Debug(log.CacheModule, "trace cache hit", "tx", txHash.Hex())
			return hit, nil
		}
	}

	var raw json.RawMessage
	if err := client.CallContext(ctx, &raw, "debug_traceTransaction", txHash, traceConfig{Tracer: traceQuery}); err != nil {
		return nil, fmt.Errorf("debug_traceTransaction %s: %w", txHash.Hex(), err)
	}

	if cfg.Cache != nil {
		if err := cfg.Cache.PutTrace(cfg.Endpoint, txHash, raw); err != nil {
			log.Warn(log.CacheModule, "trace cache write failed", "tx", txHash.Hex(), "err", err)
		}
	}
	return raw, nil
}

// decodeRawTrace parses the tracer output, keeping numbers exact, and
// checks the top-level shape.
func decodeRawTrace(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrace, err)
	}
	if _, ok := v.([]interface{}); !ok {
		return nil, fmt.Errorf("%w: expected an array of steps", ErrMalformedTrace)
	}
	return v, nil
}

// Reader returns a fresh reader over the root frame.
func (t *Trace) Reader() *FrameReader {
	return NewFrameReader(t.Frame)
}

// ArgsLen returns the calldata length the entrypoint is invoked with. The
// replayed binary fetches the calldata itself through read_args.
func (t *Trace) ArgsLen() int {
	return len(t.Tx.Data())
}
