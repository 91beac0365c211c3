package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bloxapp/safe-history/pkg/safe"
	"github.com/bloxapp/safe-history/pkg/sync/etherscan"
	"github.com/bloxapp/safe-history/pkg/sync/execution"
	"github.com/bloxapp/safe-history/pkg/sync/safeservice"
)

// HistoryFlags is shared by every command that walks a Safe's history.
type HistoryFlags struct {
	SafeAddress                 string  `arg:""                               help:"Address of the Safe."`
	ServiceEndpoint             string  `env:"SERVICE_ENDPOINT"               default:"https://safe-transaction-mainnet.safe.global" help:"HTTP endpoint to a Safe Transaction Service."`
	ServiceRequestsPerSecond    float64 `env:"SERVICE_REQUESTS_PER_SECOND"    default:"4"                                            help:"Maximum number of requests per second to the transaction service."`
	ExecutionEndpoint           string  `env:"EXECUTION_ENDPOINT"                                                                    help:"RPC endpoint to an Ethereum execution node (enables gas enrichment)."                   xor:"enrichment-endpoint"`
	EtherscanEndpoint           string  `env:"ETHERSCAN_ENDPOINT"                                                                    help:"HTTP endpoint to an Etherscan-compatible API (enables gas enrichment)."                 xor:"enrichment-endpoint"`
	EtherscanAPIKey             string  `env:"ETHERSCAN_API_KEY"                                                                     help:"API key for the Etherscan API."`
	EnrichmentRequestsPerSecond float64 `env:"ENRICHMENT_REQUESTS_PER_SECOND" default:"8"                                            help:"Maximum number of requests per second to the enrichment endpoint."`
	EnrichmentConcurrency       int     `env:"ENRICHMENT_CONCURRENCY"         default:"1"                                            help:"Parallel enrichment lookups. Results are reordered, so the output stays chronological."`
	FromBlock                   uint64  `env:"FROM_BLOCK"                                                                            help:"Ignore transactions mined before this block."`
}

// fetchHistory resolves the Safe, then pulls its entire history through the
// normalization, enrichment and aggregation pipeline.
func (f *HistoryFlags) fetchHistory(
	ctx context.Context,
	logger *zap.Logger,
) (*safeservice.Safe, *safe.Result, error) {
	if !common.IsHexAddress(f.SafeAddress) {
		return nil, nil, fmt.Errorf("invalid Safe address %q", f.SafeAddress)
	}
	address := common.HexToAddress(f.SafeAddress)

	service := safeservice.New(f.ServiceEndpoint, f.ServiceRequestsPerSecond)
	info, err := service.Safe(ctx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get Safe: %w", err)
	}
	logger.Info("Resolved Safe",
		zap.String("address", info.Address.Hex()),
		zap.String("version", info.Version),
		zap.Int("threshold", info.Threshold),
		zap.Int("owners", len(info.Owners)),
	)

	var gas safe.GasLookup
	switch {
	case f.ExecutionEndpoint != "":
		client, err := execution.Dial(ctx, f.ExecutionEndpoint, f.EnrichmentRequestsPerSecond)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to execution node: %w", err)
		}
		defer client.Close()
		gas = client
		logger.Info("Connected to execution node", zap.String("endpoint", f.ExecutionEndpoint))
	case f.EtherscanEndpoint != "":
		gas = etherscan.New(f.EtherscanEndpoint, f.EtherscanAPIKey, f.EnrichmentRequestsPerSecond)
		logger.Info("Using Etherscan for gas enrichment", zap.String("endpoint", f.EtherscanEndpoint))
	}

	pipeline := &safe.Pipeline{
		Source:      service.Transactions(address, f.FromBlock),
		Owners:      safe.NewOwnerSet(info.Owners),
		Gas:         gas,
		Concurrency: f.EnrichmentConcurrency,
		Progress:    true,
	}
	result, err := pipeline.Run(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	if gas != nil && result.Unenrichable > 0 {
		logger.Warn("Some transactions could not be enriched",
			zap.Int("unenrichable", result.Unenrichable),
		)
	}
	return info, result, nil
}
