// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

func samplePipeline(id string) *pipeline.Pipeline {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := pipeline.New(id, "user-1", created)
	p.AddStep(pipeline.NewStep("alert",
		pipeline.Notification{Message: "SOL above 100"},
		pipeline.NewCondition(pipeline.PriceAbove{Asset: "SOL", Threshold: 100}),
	).Then("swap"))
	p.AddStep(pipeline.NewStep("swap",
		pipeline.Swap{InputToken: "USDC", OutputToken: "SOL", Amount: "25"},
	))
	p.Start("alert")
	return p
}

func backends(t *testing.T) map[string]Store {
	client, _ := setupTestRedis(t)
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pipelines.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"redis":  NewRedisStore(client, RedisStoreConfig{}),
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.Get(ctx, "missing")
			if err != nil || got != nil {
				t.Fatalf("Get(missing) = %v, %v; want nil, nil", got, err)
			}

			p := samplePipeline("p-1")
			if err := s.Put(ctx, p); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			got, err = s.Get(ctx, "p-1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got == nil {
				t.Fatal("Get() returned nil after Put")
			}
			if got.UserID != "user-1" || got.Status != pipeline.StatusPending {
				t.Errorf("Get() = user %q status %q", got.UserID, got.Status)
			}
			swap, ok := got.Steps["swap"].Action.(pipeline.Swap)
			if !ok || swap.Amount != "25" {
				t.Errorf("swap action = %#v", got.Steps["swap"].Action)
			}
			if len(got.CurrentSteps) != 1 || got.CurrentSteps[0] != "alert" {
				t.Errorf("CurrentSteps = %v", got.CurrentSteps)
			}

			// Put replaces the previous snapshot.
			p.Status = pipeline.StatusActive
			p.Steps["alert"].Conditions[0].Triggered = true
			if err := s.Put(ctx, p); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, _ = s.Get(ctx, "p-1")
			if got.Status != pipeline.StatusActive || !got.Steps["alert"].Conditions[0].Triggered {
				t.Errorf("snapshot not replaced: status %q", got.Status)
			}

			if err := s.Put(ctx, samplePipeline("p-2")); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			all, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("List() returned %d pipelines, expected 2", len(all))
			}

			if err := s.Delete(ctx, "p-1"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, "p-1"); err != nil {
				t.Fatalf("second Delete() error = %v", err)
			}
			got, err = s.Get(ctx, "p-1")
			if err != nil || got != nil {
				t.Errorf("Get() after Delete = %v, %v", got, err)
			}
		})
	}
}

func TestRedisStore_KeyLayout(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStore(client, RedisStoreConfig{TTL: time.Hour})
	ctx := context.Background()

	if err := s.Put(ctx, samplePipeline("abc")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !mr.Exists("pipeline:abc") {
		t.Fatal("expected key pipeline:abc")
	}
	if ttl := mr.TTL("pipeline:abc"); ttl != time.Hour {
		t.Errorf("TTL = %v, expected 1h", ttl)
	}
}

func TestRedisStore_ListSkipsCorruptRecords(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStore(client, RedisStoreConfig{})
	ctx := context.Background()

	if err := s.Put(ctx, samplePipeline("good")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	mr.Set("pipeline:bad", "{not json")
	mr.Set("other:key", "ignored")

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != "good" {
		t.Errorf("List() = %d pipelines, expected only 'good'", len(all))
	}
}

func TestRedisStore_ListPagesThroughManyKeys(t *testing.T) {
	client, _ := setupTestRedis(t)
	s := NewRedisStore(client, RedisStoreConfig{})
	ctx := context.Background()

	const n = 1200
	for i := 0; i < n; i++ {
		p := samplePipeline("p-" + strconv.Itoa(i))
		if err := s.Put(ctx, p); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != n {
		t.Errorf("List() returned %d pipelines, expected %d", len(all), n)
	}
}

func TestMemoryStore_FailureInjection(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("disk full")

	s.SetFailPut(boom)
	if err := s.Put(ctx, samplePipeline("p")); !errors.Is(err, boom) {
		t.Fatalf("Put() error = %v, expected %v", err, boom)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after failed Put", s.Len())
	}

	s.SetFailPut(nil)
	if err := s.Put(ctx, samplePipeline("p")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	puts, _ := s.Ops()
	if puts != 1 {
		t.Errorf("puts = %d, expected 1", puts)
	}

	s.Close()
	if _, err := s.Get(ctx, "p"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close error = %v, expected ErrClosed", err)
	}
}

func TestHealthChecker(t *testing.T) {
	client, mr := setupTestRedis(t)
	h := NewHealthChecker("redis", NewRedisStore(client, RedisStoreConfig{}))
	ctx := context.Background()

	if !h.IsHealthy(ctx) {
		t.Fatal("expected healthy redis")
	}
	mr.Close()
	if h.IsHealthy(ctx) {
		t.Error("expected unhealthy after miniredis shutdown")
	}
}

func TestInitRedisClient(t *testing.T) {
	_, mr := setupTestRedis(t)
	client, err := InitRedisClient(context.Background(), RedisOptions{Addr: mr.Addr(), MaxRetries: 1})
	if err != nil {
		t.Fatalf("InitRedisClient() error = %v", err)
	}
	client.Close()
}
