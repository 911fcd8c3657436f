package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

func TestClassifyDBErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"duplicate email", fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"}), "unique_violation"},
		{"missing owner", &pgconn.PgError{Code: "23503"}, "foreign_key_violation"},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, "query_canceled"},
		{"other pg code", &pgconn.PgError{Code: "22P02"}, "pg_22P02"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"plain", errors.New("boom"), "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyDBErr(tc.err); got != tc.want {
				t.Fatalf("classifyDBErr = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestObserveDB_NoRowsIsNotAnError(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	err := p.ObserveDB("users.get_by_email", func() error {
		return fmt.Errorf("user not found: %w", pgx.ErrNoRows)
	})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("error must be returned unchanged, got %v", err)
	}
	if n := dbErrorSeries(t, reg); n != 0 {
		t.Fatalf("expected no error series, got %d", n)
	}

	_ = p.ObserveDB("users.create", func() error { return &pgconn.PgError{Code: "23505"} })
	if n := dbErrorSeries(t, reg); n != 1 {
		t.Fatalf("expected one error series, got %d", n)
	}
}

func dbErrorSeries(t *testing.T, reg *prometheus.Registry) int {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "taxdesk_db_errors_total" {
			return len(mf.GetMetric())
		}
	}
	return 0
}
