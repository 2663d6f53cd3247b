package stats

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisRecorder(t *testing.T) (*RedisRecorder, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return NewRedisRecorder(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestRecorders(t *testing.T) {
	redisRec, _ := newRedisRecorder(t)
	recorders := map[string]Recorder{
		"memory": NewMemoryRecorder(),
		"redis":  redisRec,
	}

	for name, rec := range recorders {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			outcomes := []Outcome{
				{Winner: "alice", Loser: "bob"},
				{Winner: "Bob", Loser: "alice"},
				{Winner: "alice", Loser: "bob", Draw: true},
				{Winner: "alice", Loser: "carol", Aborted: true},
			}
			for _, o := range outcomes {
				if err := rec.Record(ctx, o); err != nil {
					t.Fatalf("Record(%+v): %v", o, err)
				}
			}

			alice, err := rec.Get(ctx, "ALICE")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			want := Summary{Games: 4, Wins: 2, Losses: 1, Draws: 1, Aborted: 1, Rating: DefaultRating}
			if alice != want {
				t.Errorf("alice: expected %+v, got %+v", want, alice)
			}

			bob, _ := rec.Get(ctx, "bob")
			if bob.Games != 3 || bob.Wins != 1 || bob.Losses != 1 || bob.Draws != 1 {
				t.Errorf("bob: unexpected totals %+v", bob)
			}

			nobody, err := rec.Get(ctx, "nobody")
			if err != nil || nobody.Games != 0 || nobody.Rating != DefaultRating {
				t.Errorf("unknown player: got %+v, %v", nobody, err)
			}

			if err := rec.Record(ctx, Outcome{Winner: " ", Loser: "bob"}); !errors.Is(err, ErrEmptyName) {
				t.Errorf("Expected ErrEmptyName, got %v", err)
			}
		})
	}
}

func TestRedisRecorder_Layout(t *testing.T) {
	rec, mr := newRedisRecorder(t)
	if err := rec.Record(context.Background(), Outcome{Winner: "alice", Loser: "bob"}); err != nil {
		t.Fatal(err)
	}
	if got := mr.HGet("xq:stats:alice", "wins"); got != "1" {
		t.Errorf("Expected wins=1 in alice's hash, got %q", got)
	}
	if got := mr.HGet("xq:stats:bob", "losses"); got != "1" {
		t.Errorf("Expected losses=1 in bob's hash, got %q", got)
	}
}

func TestRedisRecorder_Unavailable(t *testing.T) {
	rec, mr := newRedisRecorder(t)
	mr.Close()
	if _, err := rec.Get(context.Background(), "alice"); err == nil {
		t.Error("Expected an error when redis is down")
	}
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	rec, err := DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer rec.Close()

	if _, err := DialRedis(context.Background(), "not a url"); err == nil {
		t.Error("Expected a parse error")
	}
}
