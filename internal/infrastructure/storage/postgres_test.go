package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/infrastructure/storage"
	"NewsCollector/internal/ports"
)

func newMockStore(t *testing.T) (*storage.Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return storage.NewPostgres(sqlx.NewDb(db, "postgres")), mock
}

func TestGetLastTimestampOfSource(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	testCases := []struct {
		name      string
		setupMock func()
		want      int64
		wantErr   bool
	}{
		{
			name: "returns stored timestamp",
			setupMock: func() {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT ts FROM source_timestamps WHERE source = $1")).
					WithArgs("lenta").
					WillReturnRows(sqlmock.NewRows([]string{"ts"}).AddRow(int64(1700000000)))
			},
			want: 1700000000,
		},
		{
			name: "returns zero for unknown source",
			setupMock: func() {
				mock.ExpectQuery("SELECT ts FROM source_timestamps").
					WillReturnError(sql.ErrNoRows)
			},
			want: 0,
		},
		{
			name: "returns error on database failure",
			setupMock: func() {
				mock.ExpectQuery("SELECT ts FROM source_timestamps").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			got, err := store.GetLastTimestampOfSource(ctx, "lenta")
			if (err != nil) != tc.wantErr {
				t.Errorf("GetLastTimestampOfSource() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("GetLastTimestampOfSource() = %d, want %d", got, tc.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestHasScopesBySource(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM articles WHERE link = $1 AND source = $2 LIMIT 1)")).
		WithArgs("https://x/1", "lenta").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM articles WHERE link = $1 LIMIT 1)")).
		WithArgs("https://x/1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	inSource, err := store.Has(ctx, "lenta", "https://x/1")
	if err != nil || !inSource {
		t.Fatalf("Has(source) = %v, %v", inSource, err)
	}
	global, err := store.Has(ctx, "", "https://x/1")
	if err != nil || global {
		t.Fatalf("Has(global) = %v, %v", global, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWithinTransactionCommits(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles (source,link,title,text,ts) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (source, link) DO NOTHING")).
		WithArgs("lenta", "https://x/1", "t", "b", int64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO source_timestamps").
		WithArgs("lenta", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTransaction(ctx, func(ctx context.Context, tx ports.ArticleStore) error {
		if err := tx.AddJustCollected(ctx, "lenta", domain.CollectedItem{Link: "https://x/1", Title: "t", Text: "b", Timestamp: 10}); err != nil {
			return err
		}
		return tx.SetLastTimestampOfSource(ctx, "lenta", 10)
	})
	if err != nil {
		t.Fatalf("WithinTransaction: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWithinTransactionRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO articles").WillReturnError(boom)
	mock.ExpectRollback()

	err := store.WithinTransaction(ctx, func(ctx context.Context, tx ports.ArticleStore) error {
		return tx.AddJustCollected(ctx, "lenta", domain.CollectedItem{Link: "https://x/1"})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetMaxID(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(id) FROM articles")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(id) FROM articles")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(42)))

	if _, ok, err := store.GetMaxID(ctx); err != nil || ok {
		t.Fatalf("empty table: ok=%v err=%v", ok, err)
	}
	maxID, ok, err := store.GetMaxID(ctx)
	if err != nil || !ok || maxID != 42 {
		t.Fatalf("GetMaxID() = %d, %v, %v", maxID, ok, err)
	}
}

func TestGetAfterAndPage(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	columns := []string{"id", "source", "link", "title", "text", "ts"}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, source, link, title, text, ts FROM articles WHERE id > $1 ORDER BY id ASC LIMIT 2")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(6), "a", "l6", "t", "b", int64(100)).
			AddRow(int64(7), "a", "l7", "t", "b", int64(90)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, source, link, title, text, ts FROM articles WHERE id <= $1 ORDER BY ts DESC, id DESC LIMIT 10 OFFSET 20")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns))

	after, err := store.GetAfter(ctx, 5, 2)
	if err != nil {
		t.Fatalf("GetAfter: %v", err)
	}
	if len(after) != 2 || after[1].ID != 7 || after[0].Timestamp != 100 {
		t.Fatalf("unexpected articles: %+v", after)
	}

	page, err := store.GetPage(ctx, 7, 2, 10)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page == nil || len(page) != 0 {
		t.Fatalf("expected empty non-nil page, got %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetPageFarOffsetSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	page, err := store.GetPage(context.Background(), 7, 1<<62, 1000)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page == nil || len(page) != 0 {
		t.Fatalf("expected empty non-nil page, got %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestLeastAfter(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT instance_id FROM heartbeat_records WHERE group_name = $1 AND ts > $2 ORDER BY ord ASC, instance_id COLLATE "C" ASC LIMIT 1`)).
		WithArgs("collector", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"instance_id"}).AddRow("A"))
	mock.ExpectQuery("SELECT instance_id FROM heartbeat_records").
		WillReturnError(sql.ErrNoRows)

	id, ok, err := store.LeastAfter(ctx, "collector", 50)
	if err != nil || !ok || id != "A" {
		t.Fatalf("LeastAfter() = %q, %v, %v", id, ok, err)
	}
	_, ok, err = store.LeastAfter(ctx, "collector", 50)
	if err != nil || ok {
		t.Fatalf("expected no record, got ok=%v err=%v", ok, err)
	}
}

func TestPruneBefore(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM heartbeat_records WHERE group_name = $1 AND ts < $2")).
		WithArgs("collector", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := store.PruneBefore(context.Background(), "collector", 10); err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
