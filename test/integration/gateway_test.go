// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/core"
	"github.com/driftwood-mud/driftwood/internal/seed"
	"github.com/driftwood-mud/driftwood/internal/web"
	"github.com/driftwood-mud/driftwood/internal/world"
)

// gatewayEnv is a full in-memory server behind an httptest listener,
// bootstrapped with the default seed.
type gatewayEnv struct {
	ts     *httptest.Server
	doc    *seed.Document
	engine *core.Engine
}

func newGatewayEnv() *gatewayEnv {
	ctx := context.Background()

	store := world.NewMemStore()
	doc := seed.Default()
	applied, err := doc.Apply(ctx, store, auth.NewArgon2idHasher())
	Expect(err).NotTo(HaveOccurred())
	Expect(applied).To(BeTrue())

	svc := world.NewService(store)
	engine := core.NewEngine(svc, core.NewMemoryEventLog())
	authSvc := auth.NewService(svc, auth.NewMemorySessionRepo(), auth.NewArgon2idHasher(), auth.NewLoginLimiter())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := web.NewServer(engine, authSvc, logger, prometheus.NewRegistry())

	return &gatewayEnv{
		ts:     httptest.NewServer(srv.Handler()),
		doc:    doc,
		engine: engine,
	}
}

func (e *gatewayEnv) close() {
	e.ts.Close()
}

// connect logs the seeded wizard in and returns the session token.
func (e *gatewayEnv) connect() string {
	resp, err := http.PostForm(e.ts.URL+"/auth/connect", url.Values{
		"player":   {e.doc.Wizard.Name},
		"password": {e.doc.Wizard.Password},
	})
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	Expect(resp.StatusCode).To(Equal(http.StatusOK))

	token := resp.Header.Get(web.AuthTokenHeader)
	Expect(token).NotTo(BeEmpty())
	return token
}

func (e *gatewayEnv) do(method, path, token, body string) (*http.Response, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if token != "" {
		req.Header.Set(web.AuthTokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, string(data)
}

var _ = Describe("Gateway", func() {
	var env *gatewayEnv

	BeforeEach(func() {
		env = newGatewayEnv()
		DeferCleanup(env.close)
	})

	Describe("Authentication", func() {
		It("connects the seeded wizard and names its object", func() {
			resp, err := http.PostForm(env.ts.URL+"/auth/connect", url.Values{
				"player":   {env.doc.Wizard.Name},
				"password": {env.doc.Wizard.Password},
			})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get(web.AuthTokenHeader)).NotTo(BeEmpty())

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			// The seeded wizard is the third object created.
			Expect(strings.Fields(string(body))[0]).To(Equal("#2"))
		})

		It("rejects a wrong password", func() {
			resp, err := http.PostForm(env.ts.URL+"/auth/connect", url.Values{
				"player":   {env.doc.Wizard.Name},
				"password": {"not-the-password"},
			})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("creates a fresh player who can reconnect", func() {
			resp, err := http.PostForm(env.ts.URL+"/auth/create", url.Values{
				"player":   {"Newcomer"},
				"password": {"hunter2hunter2"},
			})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			again, err := http.PostForm(env.ts.URL+"/auth/connect", url.Values{
				"player":   {"Newcomer"},
				"password": {"hunter2hunter2"},
			})
			Expect(err).NotTo(HaveOccurred())
			defer again.Body.Close()
			Expect(again.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("Welcome document", func() {
		It("serves the seeded banner without authentication", func() {
			resp, body := env.do(http.MethodGet, "/welcome", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var lines []string
			Expect(json.Unmarshal([]byte(body), &lines)).To(Succeed())
			Expect(lines).To(Equal(env.doc.Welcome))
		})
	})

	Describe("Eval", func() {
		It("evaluates an expression as the wizard", func() {
			token := env.connect()
			resp, body := env.do(http.MethodPost, "/eval", token, "return 6 * 7;")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(strings.TrimSpace(body)).To(Equal("42"))
		})

		It("returns the error value for an uncaught runtime error", func() {
			token := env.connect()
			resp, body := env.do(http.MethodPost, "/eval", token, "return 1 / 0;")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("E_DIV"))
		})
	})

	Describe("Verb programming", func() {
		It("programs a verb and invokes it", func() {
			token := env.connect()

			source := "return args;"
			resp, body := env.do(http.MethodPost, "/verbs/oid:1/greet", token, source)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).NotTo(ContainSubstring("errors"))

			resp, body = env.do(http.MethodPost, "/verbs/oid:1/greet/invoke", token, `["hello", 7]`)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result map[string]any
			Expect(json.Unmarshal([]byte(body), &result)).To(Succeed())
			Expect(result["result"]).To(Equal([]any{"hello", float64(7)}))
		})

		It("reports parse errors without storing the verb", func() {
			token := env.connect()

			resp, body := env.do(http.MethodPost, "/verbs/oid:1/broken", token, "if (1")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("errors"))

			resp, _ = env.do(http.MethodGet, "/verbs/oid:1/broken", token, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("History", func() {
		It("returns events published to the player", func() {
			token := env.connect()

			Expect(env.engine.Notify(context.Background(), 2, "first")).To(Succeed())
			Expect(env.engine.Notify(context.Background(), 2, "second")).To(Succeed())

			resp, body := env.do(http.MethodGet, "/api/history", token, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("first"))
			Expect(body).To(ContainSubstring("second"))
		})
	})
})
