package history

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/log"
)

// startPostgres spins up a disposable PostgreSQL container and returns
// a migrated store. Requires Docker; skipped in -short runs.
func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("vibedrive_test"),
		tcpostgres.WithUsername("vibedrive"),
		tcpostgres.WithPassword("vibedrive_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := Migrate(dsn); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	pool, err := OpenPool(ctx, dsn)
	if err != nil {
		t.Fatalf("opening pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return NewPostgresStore(pool, log.NewNop())
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	plan := ambience.AmbiencePlan{
		SessionID: "s1",
		Light: &ambience.LightSetting{
			Color:      ambience.LightColor{Hex: "#FFAA00"},
			Brightness: 70,
			Mode:       ambience.LightStatic,
		},
		SafetyMode: ambience.ModeNormal,
		Reasoning:  "warm evening",
		CreatedAt:  time.Now(),
	}
	if err := store.SavePlan(ctx, "s1", plan); err != nil {
		t.Fatalf("SavePlan() error: %v", err)
	}
	if err := store.SavePlan(ctx, "s1", ambience.SilentPlan("s1")); err != nil {
		t.Fatalf("SavePlan() error: %v", err)
	}

	records, err := store.ListPlans(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListPlans() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListPlans() = %d records, want 2", len(records))
	}
	// Newest first: the silent plan was saved last.
	if !records[0].Plan.IsSilent() {
		t.Error("newest record is not the silent plan")
	}
	if records[1].Plan.Light == nil || records[1].Plan.Light.Color.Hex != "#FFAA00" {
		t.Errorf("stored plan lost its light setting: %+v", records[1].Plan)
	}

	if err := store.AppendMessage(ctx, "s1", "user", "make it cozy"); err != nil {
		t.Fatalf("AppendMessage() error: %v", err)
	}
	if err := store.AppendMessage(ctx, "s1", "assistant", "done"); err != nil {
		t.Fatalf("AppendMessage() error: %v", err)
	}
	msgs, err := store.ListMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListMessages() error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("transcript = %+v", msgs)
	}

	empty, err := store.ListPlans(ctx, "other", 10)
	if err != nil {
		t.Fatalf("ListPlans() error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("foreign session returned %d plans", len(empty))
	}
}
