package recordsource

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/carechain/carechain/internal/domain/record"
)

// MultiChain RPC error codes the client reacts to.
const (
	codeEntityNotFound = -708
	codeNotSubscribed  = -710
)

const defaultPageSize = 500

// MultiChainConfig configures the JSON-RPC client.
type MultiChainConfig struct {
	URL      string
	User     string
	Password string
	Chain    string
	PageSize int
	Timeout  time.Duration
}

// MultiChain reads and publishes stream items through a node's JSON-RPC API.
type MultiChain struct {
	http     *resty.Client
	chain    string
	pageSize int
	nextID   atomic.Int64
	calls    atomic.Int64
	logger   zerolog.Logger
}

func NewMultiChain(cfg MultiChainConfig, logger zerolog.Logger) *MultiChain {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Password)
	}

	return &MultiChain{
		http:     client,
		chain:    cfg.Chain,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "multichain").Logger(),
	}
}

// nonIdempotent methods write to the chain; a retried request could commit
// twice.
var nonIdempotent = map[string]bool{"publish": true, "create": true}

func noRetry(*resty.Response, error) bool { return false }

type rpcRequest struct {
	Method    string        `json:"method"`
	Params    []interface{} `json:"params"`
	ID        int64         `json:"id"`
	ChainName string        `json:"chain_name,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     int64           `json:"id"`
}

// RPCError is an error reported by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("multichain error %d: %s", e.Code, e.Message)
}

func (m *MultiChain) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	req := rpcRequest{Method: method, Params: params, ID: m.nextID.Add(1), ChainName: m.chain}
	m.calls.Add(1)

	var resp rpcResponse
	r := m.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp)
	if nonIdempotent[method] {
		r.AddRetryCondition(noRetry)
	}
	httpResp, err := r.Post("/")
	if err != nil {
		return fmt.Errorf("multichain %s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if httpResp.IsError() {
		return fmt.Errorf("multichain %s: http status %d", method, httpResp.StatusCode())
	}

	m.logger.Debug().Str("method", method).Int("status", httpResp.StatusCode()).Msg("rpc call")

	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("multichain %s: decode result: %w", method, err)
	}
	return nil
}

type streamItem struct {
	Key       string          `json:"key"`
	Keys      []string        `json:"keys"`
	Data      json.RawMessage `json:"data"`
	BlockTime int64           `json:"blocktime"`
	Time      int64           `json:"time"`
}

func (m *MultiChain) Name() string { return KindMultiChain }

// Items pages through liststreamitems from the first item. An unknown stream
// reads as empty; an unsubscribed one is subscribed to and read again.
func (m *MultiChain) Items(ctx context.Context, stream string) ([]record.RawRecord, error) {
	items, err := m.listAll(ctx, stream)
	if rpcCode(err) == codeNotSubscribed {
		if err := m.call(ctx, "subscribe", []interface{}{stream}, nil); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", stream, err)
		}
		items, err = m.listAll(ctx, stream)
	}
	if rpcCode(err) == codeEntityNotFound {
		return []record.RawRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]record.RawRecord, 0, len(items))
	for _, it := range items {
		out = append(out, it.toRaw())
	}
	return out, nil
}

func (m *MultiChain) listAll(ctx context.Context, stream string) ([]streamItem, error) {
	var all []streamItem
	for start := 0; ; start += m.pageSize {
		var page []streamItem
		if err := m.call(ctx, "liststreamitems", []interface{}{stream, false, m.pageSize, start}, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < m.pageSize {
			return all, nil
		}
	}
}

// Append publishes a hex payload, creating and subscribing to the stream
// first if the node does not know it.
func (m *MultiChain) Append(ctx context.Context, stream, key string, encodedPayload []byte) error {
	params := []interface{}{stream, key, string(encodedPayload)}
	err := m.call(ctx, "publish", params, nil)
	if rpcCode(err) != codeEntityNotFound {
		return err
	}

	m.logger.Info().Str("stream", stream).Msg("creating stream")
	if err := m.call(ctx, "create", []interface{}{"stream", stream, true}, nil); err != nil {
		return fmt.Errorf("create stream %s: %w", stream, err)
	}
	if err := m.call(ctx, "subscribe", []interface{}{stream}, nil); err != nil {
		return fmt.Errorf("subscribe %s: %w", stream, err)
	}
	return m.call(ctx, "publish", params, nil)
}

func (m *MultiChain) Ping(ctx context.Context) error {
	var info map[string]interface{}
	return m.call(ctx, "getinfo", []interface{}{}, &info)
}

func (m *MultiChain) Stats() any {
	return map[string]interface{}{
		"chain":     m.chain,
		"rpc_calls": m.calls.Load(),
	}
}

func (m *MultiChain) Close() error { return nil }

// toRaw maps a stream item to a raw record. Hex data is passed through;
// {"json":...} and {"text":...} items are re-encoded as hex; anything else,
// such as an off-chain reference, is kept verbatim and fails to decode later.
func (it streamItem) toRaw() record.RawRecord {
	raw := record.RawRecord{Key: it.Key, CommitTime: it.BlockTime}
	if raw.Key == "" && len(it.Keys) > 0 {
		raw.Key = it.Keys[0]
	}
	if raw.CommitTime == 0 {
		raw.CommitTime = it.Time
	}

	var text string
	if err := json.Unmarshal(it.Data, &text); err == nil {
		raw.EncodedPayload = []byte(text)
		return raw
	}

	var wrapped struct {
		JSON json.RawMessage `json:"json"`
		Text *string         `json:"text"`
	}
	if err := json.Unmarshal(it.Data, &wrapped); err == nil {
		switch {
		case len(wrapped.JSON) > 0:
			raw.EncodedPayload = []byte(hex.EncodeToString(wrapped.JSON))
			return raw
		case wrapped.Text != nil:
			raw.EncodedPayload = []byte(hex.EncodeToString([]byte(*wrapped.Text)))
			return raw
		}
	}
	raw.EncodedPayload = []byte(strings.TrimSpace(string(it.Data)))
	return raw
}

func rpcCode(err error) int {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}
