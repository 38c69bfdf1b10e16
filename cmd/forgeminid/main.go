// Command forgeminid runs a single-leader forge-mini-chain node: it loads
// configuration, opens durable storage, applies genesis if needed, and
// drives either the leader's block-production loop or a follower's
// block-application path, per spec.md §4.8. Adapted from the teacher's
// cmd/empower1d/main.go, which wired the same component set (state,
// chain, mempool, network, consensus) in the same order with
// log.Println progress messages; this version replaces that ad hoc
// wiring with github.com/spf13/viper configuration and structured
// github.com/sirupsen/logrus logging, the way the rest of the retrieved
// corpus's daemons initialize themselves.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/chain"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/config"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/consensus"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/cryptoutil"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/gas"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/genesis"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/mempool"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/metrics"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/nodeerrors"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/peer"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/pubsub"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/state"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/store"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/walletkey"
	"github.com/holiman/uint256"
)

func main() {
	configPath := flag.String("config", "", "path to a node configuration file (optional)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(*configPath, log); err != nil {
		log.WithError(err).Fatal("forgeminid: fatal startup or runtime error")
	}
}

func run(configPath string, log *logrus.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log.WithFields(logrus.Fields{"chain_id": cfg.ChainID, "is_leader": cfg.IsLeader}).Info("forgeminid: starting")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data_dir %q: %w", cfg.DataDir, err)
	}

	identity, err := walletkey.Load(cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("load node identity: %w", err)
	}
	log.WithField("address", identity.Address.String()).Info("forgeminid: node identity loaded")

	durable, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open durable store: %w", err)
	}
	defer durable.Close()

	if err := store.MigrateLegacyLog(durable, store.DefaultLegacyLogPath(cfg.DataDir)); err != nil {
		return fmt.Errorf("migrate legacy log: %w", err)
	}

	st := state.New(durable)
	c, err := chain.Open(durable)
	if err != nil {
		return fmt.Errorf("open chain: %w", err)
	}

	if c.Height() == 0 && c.Head() == nil {
		if err := applyGenesis(cfg, st, c, log); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
	}

	if cfg.PruneRetentionBlocks > 0 && c.Height() > cfg.PruneRetentionBlocks {
		watermark := c.Height() - cfg.PruneRetentionBlocks
		if err := c.PruneBelow(watermark); err != nil {
			log.WithError(err).Warn("forgeminid: pruning below retention watermark failed")
		} else {
			log.WithField("watermark", watermark).Info("forgeminid: pruned blocks below retention watermark")
		}
	}

	minGasPrice, err := parseUint256(cfg.MinGasPrice)
	if err != nil {
		return fmt.Errorf("parse min_gas_price: %w", err)
	}
	initialBaseFee, err := parseUint256(cfg.BaseFeePerGas)
	if err != nil {
		return fmt.Errorf("parse base_fee_per_gas: %w", err)
	}
	blockReward, err := parseUint256(cfg.BlockReward)
	if err != nil {
		return fmt.Errorf("parse block_reward: %w", err)
	}
	supplyCap, err := parseUint256(cfg.SupplyCap)
	if err != nil {
		return fmt.Errorf("parse supply_cap: %w", err)
	}

	params := gas.Params{
		ChainID:       cfg.ChainID,
		MinGasPrice:   minGasPrice,
		BlockGasLimit: cfg.BlockGasLimit,
	}

	limiter := gas.NewRateLimiter(cfg.MaxTxPerMinute, cfg.MaxTxPerMinute*2)
	pool := mempool.New(cfg.MempoolCap, limiter)
	restoreMempoolSnapshot(cfg.DataDir, pool, log)

	bus := pubsub.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	leaderPub, leaderAlg, err := resolveLeaderKey(cfg, identity)
	if err != nil {
		return fmt.Errorf("resolve proposer public key: %w", err)
	}

	engine := consensus.New(consensus.EngineConfig{
		IsLeader:               cfg.IsLeader,
		LeaderPubKey:           leaderPub,
		LeaderAlg:              leaderAlg,
		BlockTime:              time.Duration(cfg.BlockTimeMs) * time.Millisecond,
		InitialBaseFee:         initialBaseFee,
		SnapshotIntervalBlocks: cfg.SnapshotIntervalBlocks,
		BlockReward:            blockReward,
		SupplyCap:              supplyCap,
	}, c, st, durable, pool, identity, params, bus, m, log)

	peerBus := peer.NewBus()
	nodeID := identity.Address.String()
	peerBus.Register(nodeID, func(from string, env peer.Envelope) {
		switch env.Kind {
		case peer.KindTx:
			stx, err := env.DecodeTx()
			if err != nil {
				log.WithError(err).Warn("forgeminid: failed to decode peer tx envelope")
				return
			}
			if err := gas.Validate(stx, st.Snapshot(), params, pool.PendingGas()); err != nil {
				m.TxsRejected.WithLabelValues(string(nodeerrors.KindOf(err))).Inc()
				log.WithError(err).Debug("forgeminid: rejected peer tx at admission")
				return
			}
			if err := pool.Admit(stx); err != nil {
				m.TxsRejected.WithLabelValues(string(nodeerrors.KindOf(err))).Inc()
				log.WithError(err).Debug("forgeminid: rejected peer tx at mempool admission")
			}
		case peer.KindBlock:
			if cfg.IsLeader {
				return
			}
			block, err := env.DecodeBlock()
			if err != nil {
				log.WithError(err).Warn("forgeminid: failed to decode peer block envelope")
				return
			}
			if err := engine.ApplyFollowerBlock(block); err != nil {
				log.WithError(err).Error("forgeminid: rejected block from peer")
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("forgeminid: shutdown signal received, stopping")

	cancel()
	if cfg.IsLeader {
		engine.Stop()
	}
	persistMempoolSnapshot(cfg.DataDir, pool, log)

	log.Info("forgeminid: shutdown complete")
	return nil
}

func applyGenesis(cfg *config.Config, st *state.Store, c *chain.Chain, log *logrus.Logger) error {
	log.WithField("genesis_file", cfg.GenesisFile).Info("forgeminid: chain is empty, applying genesis")
	g, err := genesis.Load(cfg.GenesisFile)
	if err != nil {
		return err
	}
	block, err := genesis.Apply(g, st, uint64(time.Now().UnixMilli()))
	if err != nil {
		return err
	}
	stateWrites, err := st.PendingWrites()
	if err != nil {
		return fmt.Errorf("collect genesis state writes: %w", err)
	}
	if err := c.Append(block, nil, stateWrites...); err != nil {
		return fmt.Errorf("commit genesis block: %w", err)
	}
	log.WithField("hash", block.Hash.String()).Info("forgeminid: genesis block committed")
	return nil
}

func resolveLeaderKey(cfg *config.Config, identity *walletkey.Identity) ([]byte, cryptoutil.Algorithm, error) {
	alg := cryptoutil.Algorithm(cfg.ProposerAlgorithm)
	if alg == "" {
		alg = cryptoutil.AlgorithmEd25519
	}
	if cfg.IsLeader {
		return identity.PublicKey, alg, nil
	}
	if cfg.ProposerPublicKey == "" {
		return nil, "", fmt.Errorf("proposer_public_key must be configured on a follower node")
	}
	pub, err := hex.DecodeString(trimHexPrefix(cfg.ProposerPublicKey))
	if err != nil {
		return nil, "", fmt.Errorf("decode proposer_public_key: %w", err)
	}
	return pub, alg, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func parseUint256(s string) (*uint256.Int, error) {
	v := new(uint256.Int)
	if s == "" {
		return uint256.NewInt(0), nil
	}
	if err := v.SetFromDecimal(s); err != nil {
		return nil, err
	}
	return v, nil
}

func mempoolSnapshotPath(dataDir string) string {
	return filepath.Join(dataDir, "mempool_snapshot.json")
}

func persistMempoolSnapshot(dataDir string, pool *mempool.Pool, log *logrus.Logger) {
	path := mempoolSnapshotPath(dataDir)
	pending := pool.Snapshot()
	raw, err := json.Marshal(pending)
	if err != nil {
		log.WithError(err).Warn("forgeminid: failed to marshal mempool snapshot")
		return
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.WithError(err).Warn("forgeminid: failed to persist mempool snapshot")
		return
	}
	log.WithField("count", len(pending)).Info("forgeminid: mempool snapshot flushed")
}

func restoreMempoolSnapshot(dataDir string, pool *mempool.Pool, log *logrus.Logger) {
	path := mempoolSnapshotPath(dataDir)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.WithError(err).Warn("forgeminid: failed to read mempool snapshot")
		return
	}
	var pending []*types.SignedTransaction
	if err := json.Unmarshal(raw, &pending); err != nil {
		log.WithError(err).Warn("forgeminid: failed to decode mempool snapshot")
		return
	}
	restored := 0
	for _, stx := range pending {
		if err := pool.Admit(stx); err == nil {
			restored++
		}
	}
	_ = os.Remove(path)
	log.WithField("restored", restored).Info("forgeminid: mempool snapshot restored")
}
