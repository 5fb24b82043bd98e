// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/profilehub/profilehub/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("profilehub_test"),
			postgres.WithUsername("profilehub"),
			postgres.WithPassword("profilehub"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		pool, err = store.Connect(ctx, connStr, store.DefaultConnectOptions())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	tableExists := func() bool {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'users')`).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		return exists
	}

	It("starts with every migration pending", func() {
		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(m.Close()).To(Succeed()) }()

		status, err := m.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(BeZero())
		Expect(status.Pending).To(Equal([]uint{1, 2}))
	})

	It("applies all migrations and is idempotent", func() {
		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(m.Close()).To(Succeed()) }()

		Expect(m.Up()).To(Succeed())
		Expect(m.Up()).To(Succeed())
		Expect(tableExists()).To(BeTrue())

		version, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())
	})

	It("enforces case-insensitive username uniqueness", func() {
		_, err := pool.Exec(ctx, `INSERT INTO users (id, username, password_hash) VALUES ($1, $2, 'h')`,
			"01HZN3XS000000000000000001", "Alice")
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password_hash) VALUES ($1, $2, 'h')`,
			"01HZN3XS000000000000000002", "alice")
		Expect(err).To(HaveOccurred())
	})

	It("rolls back one migration at a time", func() {
		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(m.Close()).To(Succeed()) }()

		Expect(m.Rollback(1)).To(Succeed())
		version, _, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(tableExists()).To(BeTrue())
	})

	It("rolls everything back", func() {
		m, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(m.Close()).To(Succeed()) }()

		Expect(m.Rollback(0)).To(Succeed())
		Expect(tableExists()).To(BeFalse())
	})
})
