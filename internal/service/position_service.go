package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/StabilityNexus/Fate/internal/domain"
	"github.com/StabilityNexus/Fate/internal/platform/sui"
	"github.com/StabilityNexus/Fate/internal/position"
)

// PositionService derives a user's holdings in a pool. Nothing it returns
// is persisted.
type PositionService struct {
	chain     domain.ChainReader
	pools     PoolReader
	packageID string
	logger    *slog.Logger
}

// NewPositionService creates a PositionService.
func NewPositionService(chain domain.ChainReader, pools PoolReader, packageID string, logger *slog.Logger) *PositionService {
	return &PositionService{
		chain:     chain,
		pools:     pools,
		packageID: packageID,
		logger:    logger,
	}
}

// Balances reads the raw bull and bear token balances of addr through a
// get_user_balances call simulated with addr as sender. Any failure yields
// zero balances.
func (s *PositionService) Balances(ctx context.Context, poolID, addr string) domain.Balances {
	if s.packageID == "" || poolID == "" || addr == "" {
		return domain.Balances{}
	}

	b, err := s.balances(ctx, poolID, addr)
	if err != nil {
		s.logger.WarnContext(ctx, "position_service: balances unavailable",
			slog.String("pool_id", poolID),
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		return domain.Balances{}
	}
	return b
}

func (s *PositionService) balances(ctx context.Context, poolID, addr string) (domain.Balances, error) {
	tx := domain.NewTransaction(0)
	tx.MoveCall(s.packageID+"::"+poolModule+"::get_user_balances", nil,
		tx.ReadOnly(poolID),
		tx.Address(addr),
	)

	res, err := s.chain.DevInspect(ctx, addr, tx)
	if err != nil {
		return domain.Balances{}, fmt.Errorf("devinspect: %w", err)
	}
	if res.Error != "" {
		return domain.Balances{}, fmt.Errorf("%s: %w", res.Error, domain.ErrSimulationFailed)
	}
	if len(res.Results) == 0 || len(res.Results[0]) < 2 {
		return domain.Balances{}, fmt.Errorf("get_user_balances returned %d values: %w", countValues(res), domain.ErrSimulationFailed)
	}

	vals := res.Results[0]
	bull, err := sui.DecodeU64(vals[0].Bytes)
	if err != nil {
		return domain.Balances{}, fmt.Errorf("decode bull balance: %w", err)
	}
	bear, err := sui.DecodeU64(vals[1].Bytes)
	if err != nil {
		return domain.Balances{}, fmt.Errorf("decode bear balance: %w", err)
	}
	return domain.Balances{BullTokens: bull, BearTokens: bear}, nil
}

func countValues(res domain.InspectResult) int {
	if len(res.Results) == 0 {
		return 0
	}
	return len(res.Results[0])
}

// Position combines the pool snapshot with addr's balances.
func (s *PositionService) Position(ctx context.Context, poolID, addr string, avg domain.AvgCost) (domain.UserPosition, error) {
	snap, err := s.pools.Get(ctx, poolID)
	if err != nil {
		return domain.UserPosition{}, fmt.Errorf("position_service: load pool: %w", err)
	}
	pos := position.Compute(snap, s.Balances(ctx, poolID, addr), avg)
	pos.Address = addr
	return pos, nil
}
