//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/api"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/config"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/database"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/identity"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/quota"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/search"
)

// Test limits are deliberately small so admission caps are cheap to hit.
const (
	testDailyLimit   = 5
	testMonthlyLimit = 20
)

type TestEnv struct {
	Pool   *pgxpool.Pool
	Server *httptest.Server
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "quotaapp_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://test:test@%s:%d/quotaapp_test?sslmode=disable", pgHost, pgPort.Int())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	seedGeography(t, pool)

	gate := quota.NewService(quota.NewPostgresStore(pool), config.QuotaConfig{
		DailyLimit:   testDailyLimit,
		MonthlyLimit: testMonthlyLimit,
		UTCOffset:    3 * time.Hour,
	})
	repo := search.NewRepository(pool)
	handler := search.NewHandler(gate, search.NewService(repo), repo, nil)

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		Search:   handler.Search,
		GetUsage: handler.Usage,

		Provinces:      handler.Provinces,
		Counties:       handler.Counties,
		Neighbourhoods: handler.Neighbourhoods,
		Streets:        handler.Streets,
		Sites:          handler.Sites,

		IdentityMiddleware: identity.Middleware,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	testEnv = &TestEnv{Pool: pool, Server: server}
	return testEnv
}

func seedGeography(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	stmts := []string{
		`INSERT INTO provinces (id, name) VALUES (34, 'Istanbul'), (6, 'Ankara')`,
		`INSERT INTO counties (id, province_id, name) VALUES (401, 34, 'Kadikoy'), (402, 34, 'Besiktas')`,
		`INSERT INTO neighbourhoods (id, county_id, name) VALUES (12, 401, 'Moda')`,
		`INSERT INTO streets (id, neighbourhood_id, name) VALUES
			(7, 12, 'Moda Avenue'), (8, 12, 'Ferit Tek Street'), (10, 12, 'Bademalti Street'), (11, 12, 'Cem Street')`,
		`INSERT INTO sites (id, neighbourhood_id, name) VALUES (9, 12, 'Rose Residences')`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("seeding geography: %v", err)
		}
	}
}

var userSeq atomic.Int64

// uniqueUser returns a fresh user ID so tests don't share quota state.
func uniqueUser() string {
	return fmt.Sprintf("user-%d-%d", time.Now().UnixNano(), userSeq.Add(1))
}

func DoRequest(t *testing.T, env *TestEnv, method, path, userID string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
	}

	resp, err := env.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return result
}

func searchBody(streetID int) map[string]any {
	return map[string]any{
		"province_id": 34,
		"county_id":   401,
		"has_street":  true,
		"street_id":   streetID,
	}
}

func countLogs(t *testing.T, env *TestEnv, userID string) int {
	t.Helper()
	var count int
	err := env.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM search_logs WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		t.Fatalf("counting search logs: %v", err)
	}
	return count
}
