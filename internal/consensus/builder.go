package consensus

import (
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/codec"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/execution"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
	"github.com/holiman/uint256"
)

// maxTxsPerBlock is the block builder's greedy-selection cap (spec.md §4.8:
// "at most 500 transactions per block").
const maxTxsPerBlock = 500

// buildResult is everything BuildBlock produces: the sealed, signed block
// plus the per-tx receipts execution emitted while building it.
type buildResult struct {
	block    *types.Block
	receipts []*types.Receipt
}

// BuildBlock runs the greedy block-building algorithm of spec.md §4.8:
// walk the mempool's priority order, re-validate and execute each
// candidate against the live (non-snapshot) state, and include it if it
// fits the remaining block gas budget — continuing past a single
// candidate's failure rather than aborting the whole block, since a
// rejected transaction just stays in the mempool for the next round.
func (e *Engine) BuildBlock() (*buildResult, error) {
	head := e.chain.Head()
	height := e.chain.Height() + 1
	prevHash := cryptoutil.Hash{}
	prevBaseFee := e.initialBaseFee
	var parentGasUsed uint64
	if head != nil {
		prevHash = head.Hash
		prevBaseFee = head.Header.BaseFeePerGas
		parentGasUsed = head.Header.GasUsed
	}

	candidates := e.pool.Ordered()
	var included []types.SignedTransaction
	var receipts []*types.Receipt
	var gasUsed uint64

	blockCtx := execution.BlockContext{
		Height:      height,
		TimestampMs: e.nowMs(),
		Proposer:    e.identity.Address,
		GasLimit:    e.params.BlockGasLimit,
	}

	for _, stx := range candidates {
		if len(included) >= maxTxsPerBlock {
			break
		}
		if err := gas.Validate(stx, e.st, e.params, gasUsed); err != nil {
			e.log.WithError(err).WithField("tx_hash", stx.Hash.String()).Debug("dropping tx from block candidate set")
			continue
		}
		receipt, err := execution.Apply(stx, e.st, e.params, blockCtx)
		if err != nil {
			e.log.WithError(err).WithField("tx_hash", stx.Hash.String()).Warn("execution fault applying candidate tx")
			continue
		}
		included = append(included, *stx)
		receipts = append(receipts, receipt)
		gasUsed += receipt.GasUsed
	}

	e.mintBlockReward(e.identity.Address)

	txHashes := make([]cryptoutil.Hash, len(included))
	for i := range included {
		txHashes[i] = included[i].Hash
	}

	header := types.Header{
		Height:      height,
		PrevHash:    prevHash,
		TimestampMs: blockCtx.TimestampMs,
		TxRoot:      codec.MerkleRoot(txHashes),
		Proposer:    e.identity.Address,
		GasUsed:     gasUsed,
		GasLimit:    e.params.BlockGasLimit,
		// base_fee_update(head): the rule runs against the PARENT block's
		// utilization (spec.md §4.8 step 2), not this block's own gasUsed.
		BaseFeePerGas: gas.UpdateBaseFee(prevBaseFee, parentGasUsed, e.params.BlockGasLimit, e.params.MinGasPrice),
	}

	headerHash := cryptoutil.SHA256(header.Preimage())
	signature := cryptoutil.SignEd25519(e.identity.PrivateKey, headerHash[:])

	block := &types.Block{
		Header:    header,
		Txs:       included,
		Signature: signature,
	}
	block.Hash = cryptoutil.SHA256(block.HashPreimage())

	return &buildResult{block: block, receipts: receipts}, nil
}

func defaultBaseFee() *uint256.Int {
	return uint256.NewInt(1)
}
