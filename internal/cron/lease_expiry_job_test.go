package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/seqstage/seqstage-backend/internal/broker"
	"github.com/seqstage/seqstage-backend/pkg/enums"
	"github.com/seqstage/seqstage-backend/pkg/logger"
)

type fakeSweeper struct {
	result *broker.ExpireResult
	err    error
	calls  int
}

func (f *fakeSweeper) ExpireStaleLeases(context.Context) (*broker.ExpireResult, error) {
	f.calls++
	return f.result, f.err
}

func TestLeaseExpiryJobRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{result: &broker.ExpireResult{
		RecordsExpired:  map[enums.EntityType]int{enums.EntityTypeSample: 2},
		AttemptsExpired: 1,
	}}
	job, err := NewLeaseExpiryJob(LeaseExpiryJobParams{
		Logger:  logger.New(logger.Options{}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", sweeper.calls)
	}
}

func TestLeaseExpiryJobPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	job, err := NewLeaseExpiryJob(LeaseExpiryJobParams{
		Logger:  logger.New(logger.Options{}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error to propagate")
	}
}

func TestNewLeaseExpiryJobRequiresDeps(t *testing.T) {
	if _, err := NewLeaseExpiryJob(LeaseExpiryJobParams{Sweeper: &fakeSweeper{}}); err == nil {
		t.Fatal("expected logger requirement error")
	}
	if _, err := NewLeaseExpiryJob(LeaseExpiryJobParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatal("expected sweeper requirement error")
	}
}
