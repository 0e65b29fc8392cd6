package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"fightleague/test/actors"
	"fightleague/test/chaos"
	"fightleague/test/infra"
	"fightleague/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestLeagueConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	// migrations
	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	// seed minimal data
	seedData := mustSeed(t, ctx, pool)

	// run actors
	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// reporters writing records for each roster fighter
	for i := 0; i < *flConcurrency; i++ {
		fID := seedData.fighterIDs[i%len(seedData.fighterIDs)]
		opp := seedData.fighterNames[(i+1)%len(seedData.fighterNames)]
		g.Go(func() error { return actors.Reporter(ctx2, pool, fID, opp, stop) })
	}

	// promoters racing the reporters over the same rows
	for _, fID := range seedData.fighterIDs {
		fID := fID
		g.Go(func() error { return actors.Promoter(ctx2, pool, fID, stop) })
	}

	// disputes flowing open -> in_review -> resolved
	g.Go(func() error {
		return actors.Disputer(ctx2, pool, seedData.fighterIDs[0], seedData.fighterIDs[1], stop)
	})
	g.Go(func() error { return actors.Resolver(ctx2, pool, stop) })
	g.Go(func() error { return actors.Messenger(ctx2, pool, seedData.fighterIDs[0], stop) })
	// outbox worker
	g.Go(func() error { return actors.OutboxWorker(ctx2, pool, stop) })
	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	// schedule oracle checks until duration reached
	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	adminID      string
	fighterIDs   []string
	fighterNames []string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs
	if err := pool.QueryRow(ctx, `INSERT INTO fighters (email, display_name, password_hash, role)
                                  VALUES ($1,$2,'x','admin') RETURNING id`,
		fmt.Sprintf("admin%d@example.com", rand.Int63()), fmt.Sprintf("Admin %d", rand.Int63())).Scan(&s.adminID); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	for i := 0; i < 4; i++ {
		var id string
		name := fmt.Sprintf("Fighter %d-%d", i, rand.Int63())
		if err := pool.QueryRow(ctx, `INSERT INTO fighters (email, display_name, password_hash)
                                      VALUES ($1,$2,'x') RETURNING id`,
			fmt.Sprintf("f%d-%d@example.com", i, rand.Int63()), name).Scan(&id); err != nil {
			t.Fatalf("seed fighter %d: %v", i, err)
		}
		s.fighterIDs = append(s.fighterIDs, id)
		s.fighterNames = append(s.fighterNames, name)
	}
	// a scheduled bout between the first two so disputes can reference one
	_, _ = pool.Exec(ctx, `INSERT INTO scheduled_fights (fighter_a_id, fighter_b_id, scheduled_at)
                           VALUES ($1,$2,NOW() + INTERVAL '1 day')`, s.fighterIDs[0], s.fighterIDs[1])
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"fight_records", `SELECT id, fighter_id, result, method, points_earned, fought_at FROM fight_records ORDER BY created_at DESC LIMIT 50`},
		{"fighters", `SELECT id, display_name, points, tier, wins, losses, draws FROM fighters ORDER BY updated_at DESC LIMIT 50`},
		{"tier_history", `SELECT id, fighter_id, previous_tier, new_tier, transition, points_at_change FROM tier_history ORDER BY id DESC LIMIT 50`},
		{"disputes", `SELECT id, disputer_id, status, resolution_type, created_at, resolved_at FROM disputes ORDER BY created_at DESC LIMIT 50`},
		{"outbox", `SELECT id, topic, status, attempts, created_at FROM outbox ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			// compact print
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
