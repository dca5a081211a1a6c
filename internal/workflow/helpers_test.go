package workflow

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/rezervator/internal/blob"
	"github.com/erazemk/rezervator/internal/db"
	"github.com/erazemk/rezervator/internal/imaging"
	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/store"
	"github.com/erazemk/rezervator/internal/warehouse"
)

var today = model.MustParseDate("2024-06-10")

// countingBlobs records how many blobs are live.
type countingBlobs struct {
	blob.Store
	mu   sync.Mutex
	live map[string]bool
}

func (c *countingBlobs) Put(ctx context.Context, data []byte) (string, error) {
	ref, err := c.Store.Put(ctx, data)
	if err == nil {
		c.mu.Lock()
		c.live[ref] = true
		c.mu.Unlock()
	}
	return ref, err
}

func (c *countingBlobs) Delete(ctx context.Context, ref string) error {
	err := c.Store.Delete(ctx, ref)
	c.mu.Lock()
	delete(c.live, ref)
	c.mu.Unlock()
	return err
}

func (c *countingBlobs) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

type env struct {
	t     *testing.T
	ctx   context.Context
	db    *sql.DB
	blobs *countingBlobs
	deps  *Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	database := db.NewTestDB(t)
	blobs := &countingBlobs{Store: blob.NewTestStore(t), live: map[string]bool{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &Deps{
		DB:        database,
		Warehouse: warehouse.New(database, blobs, func() model.Date { return today }, logger),
		Blobs:     blobs,
		Images:    imaging.Processor{MaxDimension: 64},
		Locks:     NewItemLocks(),
		Logger:    logger,
	}
	return &env{t: t, ctx: context.Background(), db: database, blobs: blobs, deps: deps}
}

func (e *env) category(name string) model.Category {
	e.t.Helper()
	categories, err := store.ListCategories(e.ctx, e.db)
	require.NoError(e.t, err)
	for _, c := range categories {
		if c.Name == name {
			return c
		}
	}
	e.t.Fatalf("no category %q", name)
	return model.Category{}
}

func (e *env) item(category, name string, qty int) *model.Item {
	e.t.Helper()
	item, _, err := store.CreateItem(e.ctx, e.db, e.category(category).ID, name, qty, "", "")
	require.NoError(e.t, err)
	return item
}

func (e *env) reservationCount() int {
	e.t.Helper()
	var n int
	require.NoError(e.t, e.db.QueryRowContext(e.ctx, `SELECT COUNT(*) FROM reservations`).Scan(&n))
	return n
}

func (e *env) itemCount() int {
	e.t.Helper()
	var n int
	require.NoError(e.t, e.db.QueryRowContext(e.ctx, `SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func text(s string) intent.Intent { return intent.Text(s) }

func token(t *testing.T, s string) intent.Intent {
	t.Helper()
	in, err := intent.ParseToken(s)
	require.NoError(t, err)
	return in
}

func date(p intent.Purpose, s string) intent.Intent {
	return intent.Intent{Kind: intent.KindDate, Purpose: p, Date: model.MustParseDate(s)}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func hasToken(options []Option, tok string) bool {
	for _, o := range options {
		if o.Token == tok {
			return true
		}
	}
	return false
}
