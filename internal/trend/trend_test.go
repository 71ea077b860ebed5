package trend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStaticProvider_Lookup(t *testing.T) {
	p := NewStaticProvider([]Entry{
		{Designer: "Chanel", Model: "Classic Flap", Score: 0.7},
		{Designer: "Fendi", Model: "Baguette", Score: 0.9},
	})

	score, err := p.TrendScore(context.Background(), "chanel", "CLASSIC FLAP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0.7 {
		t.Errorf("expected 0.7, got %f", score)
	}
}

func TestStaticProvider_MissReturnsDefault(t *testing.T) {
	p := NewStaticProvider(nil)

	score, err := p.TrendScore(context.Background(), "Unknown", "Bag")
	if err != nil {
		t.Fatalf("a plain miss should not be an error: %v", err)
	}
	if score != DefaultScore {
		t.Errorf("expected default score %f, got %f", DefaultScore, score)
	}
}

func TestStaticProvider_ClampsScores(t *testing.T) {
	p := NewStaticProvider([]Entry{
		{Designer: "A", Model: "B", Score: 1.8},
		{Designer: "C", Model: "D", Score: -0.3},
	})

	if score, _ := p.TrendScore(context.Background(), "A", "B"); score != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", score)
	}
	if score, _ := p.TrendScore(context.Background(), "C", "D"); score != 0.0 {
		t.Errorf("expected clamp to 0.0, got %f", score)
	}
}

type countingProvider struct {
	score float64
	err   error
	calls int
}

func (c *countingProvider) TrendScore(context.Context, string, string) (float64, error) {
	c.calls++
	return c.score, c.err
}

func TestCachedProvider_CachesSuccess(t *testing.T) {
	inner := &countingProvider{score: 0.8}
	p := NewCachedProvider(inner, time.Hour)

	for i := 0; i < 3; i++ {
		score, err := p.TrendScore(context.Background(), "Chanel", "Classic Flap")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if score != 0.8 {
			t.Errorf("expected 0.8, got %f", score)
		}
	}

	if inner.calls != 1 {
		t.Errorf("expected a single backend call, got %d", inner.calls)
	}
}

func TestCachedProvider_ExpiresEntries(t *testing.T) {
	inner := &countingProvider{score: 0.8}
	p := NewCachedProvider(inner, time.Hour)

	current := time.Now()
	p.now = func() time.Time { return current }

	if _, err := p.TrendScore(context.Background(), "Chanel", "Classic Flap"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, err := p.TrendScore(context.Background(), "Chanel", "Classic Flap"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 2 {
		t.Errorf("expected refetch after expiry, got %d calls", inner.calls)
	}
}

func TestCachedProvider_DoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{score: DefaultScore, err: errors.New("backend down")}
	p := NewCachedProvider(inner, time.Hour)

	for i := 0; i < 2; i++ {
		score, err := p.TrendScore(context.Background(), "Chanel", "Classic Flap")
		if err == nil {
			t.Fatal("expected degraded error to propagate")
		}
		if score != DefaultScore {
			t.Errorf("expected default score on failure, got %f", score)
		}
	}

	if inner.calls != 2 {
		t.Errorf("failures must not be cached, got %d calls", inner.calls)
	}
}
