package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindd/pkg/reminders"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	ok := reminders.Dispatch{
		Reminder: reminders.Reminder{
			ID:        "standup",
			Title:     "Daily standup",
			DueTime:   base,
			Recipient: "team@example.com",
		},
		DispatchedAt: base.Add(12 * time.Millisecond),
	}
	failed := reminders.Dispatch{
		Reminder: reminders.Reminder{
			ID:        "review",
			Title:     "Code review",
			DueTime:   base.Add(time.Hour),
			Recipient: "dev@example.com",
		},
		DispatchedAt: base.Add(time.Hour),
		Err:          errors.New("smtp: connection refused"),
	}

	require.NoError(t, store.Record(ctx, ok))
	require.NoError(t, store.Record(ctx, failed))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first
	assert.Equal(t, "review", entries[0].ReminderID)
	assert.Equal(t, "failed", entries[0].Outcome)
	assert.Equal(t, "smtp: connection refused", entries[0].Error)

	assert.Equal(t, "standup", entries[1].ReminderID)
	assert.Equal(t, "sent", entries[1].Outcome)
	assert.Empty(t, entries[1].Error)
	assert.True(t, entries[1].DueTime.Equal(base))
	assert.True(t, entries[1].DispatchedAt.Equal(base.Add(12*time.Millisecond)))
}

func TestRecentHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		d := reminders.Dispatch{
			Reminder: reminders.Reminder{
				ID:        "r",
				Title:     "t",
				DueTime:   base,
				Recipient: "user@example.com",
			},
			DispatchedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Record(ctx, d))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].DispatchedAt.After(entries[1].DispatchedAt))
}

func TestRecentOnEmptyJournal(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
