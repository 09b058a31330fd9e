// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/seed"
	"github.com/driftwood-mud/driftwood/internal/store"
	"github.com/driftwood-mud/driftwood/internal/value"
	"github.com/driftwood-mud/driftwood/internal/world"
	worldpg "github.com/driftwood-mud/driftwood/internal/world/postgres"
)

// Postgres suites need Docker; set DRIFTWOOD_INTEGRATION_DB=1 to run them.
var _ = Describe("Postgres persistence", func() {
	var (
		ctx       context.Context
		container testcontainers.Container
		connStr   string
	)

	BeforeEach(func() {
		if os.Getenv("DRIFTWOOD_INTEGRATION_DB") == "" {
			Skip("DRIFTWOOD_INTEGRATION_DB not set")
		}

		ctx = context.Background()

		var err error
		container, err = pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("driftwood_test"),
			pgcontainer.WithUsername("driftwood"),
			pgcontainer.WithPassword("driftwood"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = container.Terminate(ctx)
		})

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Up()).To(Succeed())
		Expect(m.Close()).To(Succeed())
	})

	It("seeds a world that survives a fresh connection", func() {
		pool, err := store.NewPool(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())

		applied, err := seed.Default().Apply(ctx, worldpg.NewStore(pool), auth.NewArgon2idHasher())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())
		pool.Close()

		// Reconnect from scratch; the seeded objects must still be there.
		pool2, err := store.NewPool(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		defer pool2.Close()

		tx, err := worldpg.NewStore(pool2).Begin(ctx)
		Expect(err).NotTo(HaveOccurred())
		defer tx.Rollback(ctx)

		wizard, err := tx.GetObject(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(wizard.Flags.Has(world.FlagWizard)).To(BeTrue())

		// Seeding again is a no-op.
		applied, err = seed.Default().Apply(ctx, worldpg.NewStore(pool2), auth.NewArgon2idHasher())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeFalse())
	})

	It("persists engine effects through the durable event log", func() {
		pool, err := store.NewPool(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		worldStore := worldpg.NewStore(pool)
		applied, err := seed.Default().Apply(ctx, worldStore, auth.NewArgon2idHasher())
		Expect(err).NotTo(HaveOccurred())
		Expect(applied).To(BeTrue())

		svc := world.NewService(worldStore)
		engine := core.NewEngine(svc, store.NewPostgresEventLog(pool))

		Expect(engine.Notify(ctx, 2, "durable hello")).To(Succeed())

		// A second engine over the same database sees the event.
		engine2 := core.NewEngine(svc, store.NewPostgresEventLog(pool))
		page, err := engine2.Log.History(ctx, value.Obj(2), core.HistoryQuery{Limit: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Events).To(HaveLen(1))
		Expect(page.Events[0].Message).To(Equal("durable hello"))
	})
})
