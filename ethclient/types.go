package ethclient

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Receipt statuses.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Block is a block with its transaction hashes.
type Block struct {
	Header       *types.Header
	Hash         common.Hash
	Transactions []common.Hash
}

// Number returns the block height.
func (b *Block) Number() *big.Int { return b.Header.Number }

// MinimumGasPrice returns the lowest gas price the block's miner accepted.
func (b *Block) MinimumGasPrice() *big.Int { return b.Header.BaseFee }

// Transaction is a transaction as reported by the node. BlockNumber and
// BlockHash are nil while it is pending.
type Transaction struct {
	Hash        common.Hash
	From        common.Address
	To          *common.Address
	Nonce       uint64
	Gas         uint64
	GasPrice    *big.Int
	Value       *big.Int
	Input       []byte
	BlockNumber *big.Int
	BlockHash   *common.Hash
}

// Pending reports whether the transaction is not yet mined.
func (t *Transaction) Pending() bool { return t.BlockNumber == nil }

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash            common.Hash
	TransactionIndex  uint64
	BlockHash         common.Hash
	BlockNumber       *big.Int
	From              common.Address
	To                *common.Address
	GasUsed           uint64
	CumulativeGasUsed uint64
	ContractAddress   *common.Address
	Status            uint64
	Logs              []*types.Log
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool { return r.Status == ReceiptStatusSuccessful }

// rskHeader is a block header as returned by a Rootstock node: it carries
// minimumGasPrice instead of baseFeePerGas plus merged mining fields, and has
// no withdrawals or blob fields.
type rskHeader struct {
	ParentHash  *common.Hash      `json:"parentHash"`
	UncleHash   *common.Hash      `json:"sha3Uncles"`
	Coinbase    *common.Address   `json:"miner"`
	Root        *common.Hash      `json:"stateRoot"`
	TxHash      *common.Hash      `json:"transactionsRoot"`
	ReceiptHash *common.Hash      `json:"receiptsRoot"`
	Bloom       *types.Bloom      `json:"logsBloom"`
	Difficulty  *hexutil.Big      `json:"difficulty"`
	Number      *hexutil.Big      `json:"number"`
	GasLimit    *hexutil.Uint64   `json:"gasLimit"`
	GasUsed     *hexutil.Uint64   `json:"gasUsed"`
	Time        *hexutil.Uint64   `json:"timestamp"`
	Extra       *hexutil.Bytes    `json:"extraData"`
	MixDigest   *common.Hash      `json:"mixHash"`
	Nonce       *types.BlockNonce `json:"nonce"`

	MinimumGasPrice *hexutil.Big    `json:"minimumGasPrice"`
	PaidFees        *hexutil.Big    `json:"paidFees,omitempty"`
	UncleCount      *hexutil.Uint64 `json:"uncleCount,omitempty"`

	BitcoinMergedMiningHeader              *hexutil.Bytes `json:"bitcoinMergedMiningHeader,omitempty"`
	BitcoinMergedMiningMerkleProof         *hexutil.Bytes `json:"bitcoinMergedMiningMerkleProof,omitempty"`
	BitcoinMergedMiningCoinbaseTransaction *hexutil.Bytes `json:"bitcoinMergedMiningCoinbaseTransaction,omitempty"`

	Hash *common.Hash `json:"hash"`
}

// ToGethHeader converts the header to a go-ethereum header, mapping
// minimumGasPrice to BaseFee. Fields Rootstock lacks stay zero.
func (h *rskHeader) ToGethHeader() *types.Header {
	header := &types.Header{}

	if h.ParentHash != nil {
		header.ParentHash = *h.ParentHash
	}
	if h.UncleHash != nil {
		header.UncleHash = *h.UncleHash
	}
	if h.Coinbase != nil {
		header.Coinbase = *h.Coinbase
	}
	if h.Root != nil {
		header.Root = *h.Root
	}
	if h.TxHash != nil {
		header.TxHash = *h.TxHash
	}
	if h.ReceiptHash != nil {
		header.ReceiptHash = *h.ReceiptHash
	}
	if h.Bloom != nil {
		header.Bloom = *h.Bloom
	}
	if h.Difficulty != nil {
		header.Difficulty = (*big.Int)(h.Difficulty)
	}
	if h.Number != nil {
		header.Number = (*big.Int)(h.Number)
	}
	if h.GasLimit != nil {
		header.GasLimit = uint64(*h.GasLimit)
	}
	if h.GasUsed != nil {
		header.GasUsed = uint64(*h.GasUsed)
	}
	if h.Time != nil {
		header.Time = uint64(*h.Time)
	}
	if h.Extra != nil {
		header.Extra = *h.Extra
	}
	if h.MixDigest != nil {
		header.MixDigest = *h.MixDigest
	}
	if h.Nonce != nil {
		header.Nonce = *h.Nonce
	}
	if h.MinimumGasPrice != nil {
		header.BaseFee = (*big.Int)(h.MinimumGasPrice)
	}
	return header
}

type rskBlock struct {
	rskHeader
	Transactions []common.Hash `json:"transactions"`
}

func (b *rskBlock) toBlock() *Block {
	blk := &Block{
		Header:       b.ToGethHeader(),
		Transactions: b.Transactions,
	}
	if b.Hash != nil {
		blk.Hash = *b.Hash
	}
	return blk
}

type rskTransaction struct {
	BlockHash        *common.Hash    `json:"blockHash,omitempty"`
	BlockNumber      *hexutil.Big    `json:"blockNumber,omitempty"`
	From             *common.Address `json:"from,omitempty"`
	Gas              *hexutil.Uint64 `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Hash             *common.Hash    `json:"hash"`
	Input            *hexutil.Bytes  `json:"input"`
	Nonce            *hexutil.Uint64 `json:"nonce"`
	To               *common.Address `json:"to"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex,omitempty"`
	Value            *hexutil.Big    `json:"value"`
}

func (t *rskTransaction) toTransaction() *Transaction {
	tx := &Transaction{
		Hash:        *t.Hash,
		To:          t.To,
		GasPrice:    (*big.Int)(t.GasPrice),
		Value:       (*big.Int)(t.Value),
		BlockNumber: (*big.Int)(t.BlockNumber),
	}
	if t.From != nil {
		tx.From = *t.From
	}
	if t.Nonce != nil {
		tx.Nonce = uint64(*t.Nonce)
	}
	if t.Gas != nil {
		tx.Gas = uint64(*t.Gas)
	}
	if t.Input != nil {
		tx.Input = *t.Input
	}
	// Pending transactions report a null or zero block hash.
	if t.BlockHash != nil && *t.BlockHash != (common.Hash{}) {
		tx.BlockHash = t.BlockHash
	} else {
		tx.BlockNumber = nil
	}
	return tx
}

type rskReceipt struct {
	TxHash            *common.Hash    `json:"transactionHash"`
	TransactionIndex  *hexutil.Uint64 `json:"transactionIndex"`
	BlockHash         *common.Hash    `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	From              *common.Address `json:"from"`
	To                *common.Address `json:"to"`
	GasUsed           *hexutil.Uint64 `json:"gasUsed"`
	CumulativeGasUsed *hexutil.Uint64 `json:"cumulativeGasUsed"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Status            *quantity       `json:"status"`
	Logs              []*types.Log    `json:"logs"`
}

func (r *rskReceipt) toReceipt() (*Receipt, error) {
	if r.Status == nil {
		return nil, fmt.Errorf("receipt %s has no status", r.TxHash.Hex())
	}
	rec := &Receipt{
		TxHash:          *r.TxHash,
		BlockNumber:     (*big.Int)(r.BlockNumber),
		To:              r.To,
		ContractAddress: r.ContractAddress,
		Status:          uint64(*r.Status),
		Logs:            r.Logs,
	}
	if r.TransactionIndex != nil {
		rec.TransactionIndex = uint64(*r.TransactionIndex)
	}
	if r.BlockHash != nil {
		rec.BlockHash = *r.BlockHash
	}
	if r.From != nil {
		rec.From = *r.From
	}
	if r.GasUsed != nil {
		rec.GasUsed = uint64(*r.GasUsed)
	}
	if r.CumulativeGasUsed != nil {
		rec.CumulativeGasUsed = uint64(*r.CumulativeGasUsed)
	}
	return rec, nil
}

// quantity is a hex number that tolerates leading zeros ("0x01").
type quantity uint64

func (q *quantity) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return fmt.Errorf("quantity %q lacks 0x prefix", s)
	}
	body := s[2:]
	if body == "" {
		*q = 0
		return nil
	}
	n, ok := new(big.Int).SetString(body, 16)
	if !ok || !n.IsUint64() {
		return fmt.Errorf("invalid quantity %q", s)
	}
	*q = quantity(n.Uint64())
	return nil
}
