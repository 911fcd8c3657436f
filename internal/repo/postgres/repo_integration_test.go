package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/taxdesk/internal/db"
	"github.com/geocoder89/taxdesk/internal/domain/document"
	"github.com/geocoder89/taxdesk/internal/repo/postgres"
	"github.com/geocoder89/taxdesk/internal/utils"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE extracted_data, users CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	return pool
}

func TestUsersRepo_CreateAndDuplicate(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := postgres.NewUsersRepo(pool, nil)

	u, err := repo.Create(ctx, "Asha", "Rao", "A@X.com", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "a@x.com" {
		t.Fatalf("expected normalised email, got %q", u.Email)
	}

	if _, err := repo.Create(ctx, "Other", "Person", "a@x.com", "hash"); !errors.Is(err, postgres.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "a@x.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail: %+v %v", got, err)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, postgres.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUsersRepo_UpdateProfileEmailCollision(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := postgres.NewUsersRepo(pool, nil)

	a, _ := repo.Create(ctx, "A", "A", "a@x.com", "hash")
	_, _ = repo.Create(ctx, "B", "B", "b@x.com", "hash")

	a.Email = "b@x.com"
	if _, err := repo.UpdateProfile(ctx, a); !errors.Is(err, postgres.ErrEmailAlreadyUsed) {
		t.Fatalf("expected ErrEmailAlreadyUsed, got %v", err)
	}

	stored, err := repo.GetByID(ctx, a.ID)
	if err != nil || stored.Email != "a@x.com" {
		t.Fatalf("original record changed: %+v %v", stored, err)
	}
}

func TestExtractedDataRepo_NewestFirstAndCursor(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	users := postgres.NewUsersRepo(pool, nil)
	records := postgres.NewExtractedDataRepo(pool, nil)

	u, err := users.Create(ctx, "Asha", "Rao", "a@x.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		amt, _ := document.NewAmount("100")
		rec, err := records.Create(ctx, document.CreateExtractedDataRequest{
			UserID:           u.ID,
			DocumentType:     document.TypeBills,
			Extracted:        &document.Bill{TotalAmount: &amt, Vendor: "Acme"},
			OriginalFileName: "bill.pdf",
		})
		if err != nil {
			t.Fatalf("create record: %v", err)
		}
		ids = append(ids, rec.ID)
		time.Sleep(5 * time.Millisecond)
	}

	all, err := records.ListByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %v", all)
	}
	if b, ok := all[0].Extracted.(*document.Bill); !ok || b.Vendor != "Acme" {
		t.Fatalf("payload not decoded: %#v", all[0].Extracted)
	}

	page, next, err := records.ListByUserCursor(ctx, u.ID, 2, nil)
	if err != nil || len(page) != 2 || next == nil {
		t.Fatalf("first page: %v %v %v", page, next, err)
	}

	after, err := utils.DecodeRecordCursor(*next)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}

	rest, next, err := records.ListByUserCursor(ctx, u.ID, 2, &after)
	if err != nil || len(rest) != 1 || next != nil || rest[0].ID != ids[0] {
		t.Fatalf("second page: %v %v %v", rest, next, err)
	}
}
