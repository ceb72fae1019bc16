package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"folio/internal/daemon"
	"folio/internal/logging"
	"folio/internal/server"
	"folio/internal/snapshot"
	"folio/internal/testsupport"
)

type stubGenerator struct {
	mu       sync.Mutex
	triggers []string
}

func (g *stubGenerator) Generate(_ context.Context, trigger string) snapshot.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triggers = append(g.triggers, trigger)
	return snapshot.Result{Success: true, RunID: trigger, Timestamp: time.Now().UTC()}
}

func (g *stubGenerator) InProgress() bool { return false }

func (g *stubGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.triggers...)
}

type stubPruner struct {
	mu    sync.Mutex
	calls int
	keep  int
}

func (p *stubPruner) Prune(_ context.Context, keep int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.keep = keep
	return 0, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type healthBody struct {
	NextSync   *time.Time       `json:"nextSync"`
	LastResult *snapshot.Result `json:"lastResult"`
}

func getHealth(t *testing.T, addr string) healthBody {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status %d", resp.StatusCode)
	}
	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return body
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &stubGenerator{}
	srv := server.New(cfg, snapshot.NewStore(cfg), gen)
	d, err := daemon.New(cfg, logging.NewNop(), gen, srv)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv.SetSchedule(d)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	health := getHealth(t, srv.Addr())
	if health.NextSync != nil || health.LastResult != nil {
		t.Fatalf("expected no schedule without interval, got %+v", health)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if len(gen.calls()) != 0 {
		t.Fatalf("no passes expected without a schedule, got %v", gen.calls())
	}

	again, err := daemon.New(cfg, logging.NewNop(), gen, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := again.Start(ctx); err != nil {
		t.Fatalf("expected lock released after Stop: %v", err)
	}
	again.Stop()
}

func TestHealthReportsSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &stubGenerator{}
	srv := server.New(cfg, snapshot.NewStore(cfg), gen)
	d, err := daemon.New(cfg, logging.NewNop(), gen, srv,
		daemon.WithInterval(time.Hour),
		daemon.WithStartupSync(func() bool { return false }),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv.SetSchedule(d)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitFor(t, "startup result", func() bool { return d.LastResult() != nil })
	waitFor(t, "next sync", func() bool { return !d.NextSync().IsZero() })

	health := getHealth(t, srv.Addr())
	if health.LastResult == nil || health.LastResult.RunID != snapshot.TriggerStartup {
		t.Fatalf("unexpected last result %+v", health.LastResult)
	}
	if health.NextSync == nil || time.Until(*health.NextSync) < 50*time.Minute {
		t.Fatalf("unexpected next sync %v", health.NextSync)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &stubGenerator{}
	first, err := daemon.New(cfg, logging.NewNop(), gen, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, logging.NewNop(), gen, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestStartupSyncRunsWhenSnapshotMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &stubGenerator{}
	pruner := &stubPruner{}
	d, err := daemon.New(cfg, logging.NewNop(), gen, nil,
		daemon.WithStartupSync(func() bool { return false }),
		daemon.WithPruner(pruner, 10),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitFor(t, "startup pass", func() bool { return len(gen.calls()) == 1 })
	if gen.calls()[0] != snapshot.TriggerStartup {
		t.Fatalf("unexpected trigger %v", gen.calls())
	}
	waitFor(t, "history prune", func() bool {
		pruner.mu.Lock()
		defer pruner.mu.Unlock()
		return pruner.calls == 1 && pruner.keep == 10
	})
	waitFor(t, "last result", func() bool { return d.LastResult() != nil })
}

func TestStartupSyncSkippedWhenSnapshotPresent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &stubGenerator{}
	d, err := daemon.New(cfg, logging.NewNop(), gen, nil, daemon.WithStartupSync(func() bool { return true }))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	d.Stop()
	if len(gen.calls()) != 0 {
		t.Fatalf("expected no startup pass, got %v", gen.calls())
	}
}

func TestScheduledPasses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &stubGenerator{}
	d, err := daemon.New(cfg, logging.NewNop(), gen, nil, daemon.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitFor(t, "two scheduled passes", func() bool { return len(gen.calls()) >= 2 })
	for _, trigger := range gen.calls() {
		if trigger != snapshot.TriggerSchedule {
			t.Fatalf("unexpected trigger %q", trigger)
		}
	}
	if d.NextSync().IsZero() {
		t.Fatal("expected next sync time")
	}
	d.Stop()
	if !d.NextSync().IsZero() {
		t.Fatal("expected next sync cleared after Stop")
	}
}
