package auditdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"connectix/internal/activity"
)

// TestRecordAndList round-trips events through the sqlite store.
func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Record(ctx, activity.Event{
		ConnectionID: "conn-1", UserID: "u1", Kind: activity.KindFileWrite,
		Detail: "/tmp/a.txt", Bytes: 10,
	}))
	require.NoError(t, st.Record(ctx, activity.Event{
		ConnectionID: "conn-1", UserID: "u1", Kind: activity.KindFileDelete,
		Detail: "/tmp/a.txt",
	}))
	require.NoError(t, st.Record(ctx, activity.Event{
		ConnectionID: "conn-2", UserID: "u2", Kind: activity.KindDirList,
	}))

	evs, err := st.ListByConnection(ctx, "conn-1", 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	for _, ev := range evs {
		require.Equal(t, "conn-1", ev.ConnectionID)
	}

	evs, err = st.ListByConnection(ctx, "conn-3", 10)
	require.NoError(t, err)
	require.Empty(t, evs)
}

// TestOpenRequiresPath rejects an empty database path.
func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}
