package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/config"
)

func TestGetTreatsMissingKeyAsEmpty(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	val, err := client.Get(ctx, "absent")
	if err != nil || val != "" {
		t.Fatalf("expected empty value without error, got %q err=%v", val, err)
	}

	ok, err := client.SetNX(ctx, "k", "v", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win, got %v err=%v", ok, err)
	}
	ok, _ = client.SetNX(ctx, "k", "other", time.Minute)
	if ok {
		t.Fatal("second SetNX must not overwrite")
	}
	if val, _ := client.Get(ctx, "k"); val != "v" {
		t.Fatalf("expected stored value, got %q", val)
	}
	if err := client.Set(ctx, "k", "final", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if val, _ := client.Get(ctx, "k"); val != "final" {
		t.Fatalf("expected overwritten value, got %q", val)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if val, _ := client.Get(ctx, "k"); val != "" {
		t.Fatalf("expected key to be deleted, got %q", val)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("user|POST|/api/v1/checkout", " key-1 "); got != "sf:idempotency:user|POST|/api/v1/checkout:key-1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected missing address to fail")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 7, ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 || opts.PoolSize != 7 || opts.ReadTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("ip", "login", "10.0.0.1")
	if key != "sf:rl:ip:login:10.0.0.1" {
		t.Fatalf("unexpected key %q", key)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("IncrWithTTL: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
	if mock.expires[key] != 1 {
		t.Fatalf("expected a single expire call, got %d", mock.expires[key])
	}
}

type mockCmdable struct {
	data     map[string]string
	counters map[string]int64
	expires  map[string]int
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: map[string]string{}, counters: map[string]int64{}, expires: map[string]int{}}
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expires[key]++
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	if val, ok := m.data[key]; ok {
		return redis.NewStringResult(val, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}
