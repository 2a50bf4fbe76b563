package cron

import (
	"context"
	"fmt"

	"github.com/seqstage/seqstage-backend/internal/broker"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

type leaseSweeper interface {
	ExpireStaleLeases(ctx context.Context) (*broker.ExpireResult, error)
}

// LeaseExpiryJobParams configure the lease reap job.
type LeaseExpiryJobParams struct {
	Logger  *logger.Logger
	Sweeper leaseSweeper
}

// NewLeaseExpiryJob builds the job that reaps lapsed submission leases.
func NewLeaseExpiryJob(params LeaseExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("lease sweeper required")
	}
	return &leaseExpiryJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type leaseExpiryJob struct {
	logg    *logger.Logger
	sweeper leaseSweeper
}

func (j *leaseExpiryJob) Name() string { return "lease-expiry" }

func (j *leaseExpiryJob) Run(ctx context.Context) error {
	result, err := j.sweeper.ExpireStaleLeases(ctx)
	if err != nil {
		return fmt.Errorf("lease expiry sweep: %w", err)
	}

	recordsExpired := 0
	for _, count := range result.RecordsExpired {
		recordsExpired += count
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"records_expired":  recordsExpired,
		"attempts_expired": result.AttemptsExpired,
	})
	j.logg.Info(logCtx, "lease expiry sweep complete")
	return nil
}
