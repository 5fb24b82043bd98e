// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ProfileHub Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/profilehub/profilehub/internal/auth"
	authpg "github.com/profilehub/profilehub/internal/auth/postgres"
	"github.com/profilehub/profilehub/internal/store"
	"github.com/profilehub/profilehub/internal/web"
)

// testEnv holds the resources shared by the end-to-end specs.
type testEnv struct {
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	users     *authpg.UserStore
	svc       *auth.Service
	server    *httptest.Server
}

var env *testEnv

var _ = BeforeSuite(func() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
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

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err := store.Connect(ctx, connStr, store.DefaultConnectOptions())
	Expect(err).NotTo(HaveOccurred())

	users := authpg.NewUserStore(pool)
	hasher, err := auth.NewArgon2idHasherWithParams(auth.HasherParams{Time: 1, MemoryKiB: 64, Threads: 1})
	Expect(err).NotTo(HaveOccurred())
	logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
	svc, err := auth.NewServiceWithLogger(users, hasher, auth.DefaultPasswordPolicy(), logger)
	Expect(err).NotTo(HaveOccurred())
	identity, err := auth.NewIdentitySerializer(users)
	Expect(err).NotTo(HaveOccurred())
	sessions, err := web.NewSessionManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, false)
	Expect(err).NotTo(HaveOccurred())

	site, err := web.NewServer(svc, identity, sessions, web.Options{Logger: logger})
	Expect(err).NotTo(HaveOccurred())

	env = &testEnv{
		ctx:       ctx,
		container: container,
		pool:      pool,
		users:     users,
		svc:       svc,
		server:    httptest.NewServer(site.Handler()),
	}
})

var _ = AfterSuite(func() {
	if env == nil {
		return
	}
	env.server.Close()
	env.pool.Close()
	_ = env.container.Terminate(env.ctx)
})

var csrfField = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	client *http.Client
}

func newBrowser() *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) get(path string) (*http.Response, string) {
	resp, err := b.client.Get(env.server.URL + path)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, string(body)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	_, page := b.get("/login")
	m := csrfField.FindStringSubmatch(page)
	Expect(m).To(HaveLen(2))
	form.Set(web.CSRFFieldName, m[1])

	resp, err := b.client.PostForm(env.server.URL+path, form)
	Expect(err).NotTo(HaveOccurred())
	_ = resp.Body.Close()
	return resp
}

var _ = Describe("ProfileHub on PostgreSQL", func() {
	It("walks an account from signup to deletion", func() {
		b := newBrowser()

		resp := b.post("/signup", url.Values{"username": {"e2e_alice"}, "password": {"password123"}, "bio": {"hello"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/"))

		_, body := b.get("/users/E2E_ALICE")
		Expect(body).To(ContainSubstring("hello"))

		resp = b.post("/edit", url.Values{"displayname": {"Alice"}, "bio": {"updated"}})
		Expect(resp.Header.Get("Location")).To(Equal("/edit"))
		_, body = b.get("/edit")
		Expect(body).To(ContainSubstring("Profile updated!"))

		user, err := env.svc.Lookup(env.ctx, "e2e_alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(user.DisplayName).To(Equal("Alice"))
		Expect(user.Bio).To(Equal("updated"))

		resp = b.post("/delete-account", url.Values{})
		Expect(resp.Header.Get("Location")).To(Equal("/"))
		_, body = b.get("/")
		Expect(body).To(ContainSubstring("Account deleted successfully."))

		_, err = env.users.FindByID(env.ctx, user.ID)
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("rejects a duplicate username regardless of case", func() {
		_, err := env.svc.Signup(env.ctx, auth.SignupRequest{Username: "e2e_bob", Password: "password123"})
		Expect(err).NotTo(HaveOccurred())

		b := newBrowser()
		resp := b.post("/signup", url.Values{"username": {"E2E_Bob"}, "password": {"password123"}})
		Expect(resp.Header.Get("Location")).To(Equal("/signup"))
		_, body := b.get("/signup")
		Expect(body).To(ContainSubstring("That username is already taken."))
	})

	It("upgrades a legacy bcrypt hash on login", func() {
		legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		user, err := auth.NewUser("e2e_legacy", string(legacy))
		Expect(err).NotTo(HaveOccurred())
		Expect(env.users.Create(env.ctx, user)).To(Succeed())

		b := newBrowser()
		resp := b.post("/login", url.Values{"username": {"e2e_legacy"}, "password": {"legacy-password"}})
		Expect(resp.Header.Get("Location")).To(Equal("/"))

		stored, err := env.users.FindByID(env.ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(stored.PasswordHash, "$argon2id$")).To(BeTrue())

		other := newBrowser()
		resp = other.post("/login", url.Values{"username": {"e2e_legacy"}, "password": {"legacy-password"}})
		Expect(resp.Header.Get("Location")).To(Equal("/"))
	})

	It("drops a session whose account was deleted elsewhere", func() {
		user, err := env.svc.Signup(env.ctx, auth.SignupRequest{Username: "e2e_carol", Password: "password123"})
		Expect(err).NotTo(HaveOccurred())

		b := newBrowser()
		resp := b.post("/login", url.Values{"username": {"e2e_carol"}, "password": {"password123"}})
		Expect(resp.Header.Get("Location")).To(Equal("/"))

		Expect(env.svc.DeleteAccount(env.ctx, user.ID)).To(Succeed())

		resp, body := b.get("/")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).NotTo(ContainSubstring("Log out"))
	})
})
