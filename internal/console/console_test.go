package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/rezervator/internal/blob"
	"github.com/erazemk/rezervator/internal/db"
	"github.com/erazemk/rezervator/internal/imaging"
	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/session"
	"github.com/erazemk/rezervator/internal/store"
	"github.com/erazemk/rezervator/internal/warehouse"
	"github.com/erazemk/rezervator/internal/workflow"
)

func TestConsole_Reserve(t *testing.T) {
	ctx := context.Background()
	database := db.NewTestDB(t)
	blobs := blob.NewTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	today := model.MustParseDate("2024-06-10")
	svc := warehouse.New(database, blobs, func() model.Date { return today }, logger)
	deps := &workflow.Deps{
		DB: database, Warehouse: svc, Blobs: blobs,
		Images: imaging.Processor{}, Locks: workflow.NewItemLocks(), Logger: logger,
	}
	sessions := session.NewManager(deps, nil, session.Options{}, logger)

	categories, err := store.ListCategories(ctx, database)
	require.NoError(t, err)
	_, _, err = store.CreateItem(ctx, database, categories[0].ID, "Chair", 10, "", "")
	require.NoError(t, err)

	reserve := -1
	for i, m := range intent.Menu {
		if m.Command == intent.CmdReserve {
			reserve = i + 1
		}
	}
	require.Positive(t, reserve)

	script := strings.Join([]string{
		"#" + strconv.Itoa(reserve),
		"#1",
		"4",
		">",
		"<",
		"2024-06-11",
		"#99",
		"2024-06-15",
		"Wedding",
		"quit",
		"never read",
	}, "\n")

	var out bytes.Buffer
	c := New(sessions, model.Requester{ID: 7, FirstName: "Ana"}, strings.NewReader(script), &out)
	require.NoError(t, c.Run(ctx))

	output := out.String()
	assert.Contains(t, output, "June 2024")
	assert.Contains(t, output, "July 2024")
	assert.Contains(t, output, "⚠️ no option #99")
	assert.Contains(t, output, "✅ Reservation created!")

	rs, err := store.ListRequesterReservations(ctx, database, 7, today)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "Ana", rs[0].RequesterLabel)
	assert.Equal(t, "Wedding", rs[0].EventLabel)
}
