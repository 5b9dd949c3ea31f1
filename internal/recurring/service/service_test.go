package service

import (
	"context"
	"testing"
	"time"

	ledger "github.com/mgiraudo/gastosbot/internal/ledger/service"

	ledgerrepo "github.com/mgiraudo/gastosbot/internal/ledger/repository"
	"github.com/mgiraudo/gastosbot/internal/recurring/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	items  []*repository.Recurring
	nextID int64
}

func (f *fakeStore) Create(_ context.Context, rec *repository.Recurring) (*repository.Recurring, error) {
	f.nextID++
	stored := *rec
	stored.ID = f.nextID
	stored.Active = true
	f.items = append(f.items, &stored)
	return &stored, nil
}

func (f *fakeStore) ListActive(_ context.Context, userID int64) ([]*repository.Recurring, error) {
	var out []*repository.Recurring
	for _, r := range f.items {
		if r.UserID == userID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDue(_ context.Context, asOf time.Time) ([]*repository.Recurring, error) {
	var out []*repository.Recurring
	for _, r := range f.items {
		if r.Active && !r.NextDate.After(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateNextDate(_ context.Context, id int64, next time.Time) error {
	for _, r := range f.items {
		if r.ID == id {
			r.NextDate = next
		}
	}
	return nil
}

func (f *fakeStore) Deactivate(_ context.Context, id, userID int64) (bool, error) {
	for _, r := range f.items {
		if r.ID == id && r.UserID == userID && r.Active {
			r.Active = false
			return true, nil
		}
	}
	return false, nil
}

type fakeAdder struct {
	drafts []ledger.Draft
	users  []int64
	fail   bool
}

func (f *fakeAdder) Add(_ context.Context, userID int64, draft ledger.Draft) (*ledgerrepo.Transaction, bool, error) {
	if f.fail {
		return nil, false, assert.AnError
	}
	f.drafts = append(f.drafts, draft)
	f.users = append(f.users, userID)
	return &ledgerrepo.Transaction{ID: int64(len(f.drafts)), UserID: userID}, false, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDate(t *testing.T) {
	base := date(2026, time.January, 15)

	assert.Equal(t, date(2026, time.January, 16), NextDate(base, "daily"))
	assert.Equal(t, date(2026, time.January, 22), NextDate(base, "weekly"))
	assert.Equal(t, date(2026, time.February, 15), NextDate(base, "monthly"))
	assert.Equal(t, date(2027, time.January, 15), NextDate(base, "yearly"))
}

func TestNextDateMonthEndClamp(t *testing.T) {
	// AddDate rolls Jan 31 over into March when February is shorter.
	next := NextDate(date(2026, time.January, 31), "monthly")
	assert.Equal(t, date(2026, time.March, 3), next)
}

func TestAddValidation(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeAdder{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 0, "hogar", "alquiler", "monthly", date(2026, time.March, 1))
	assert.Error(t, err)

	_, err = svc.Add(ctx, 1, 1000, "hogar", "alquiler", "quincenal", date(2026, time.March, 1))
	assert.Error(t, err)

	rec, err := svc.Add(ctx, 1, 1000, "hogar", "alquiler", "monthly", date(2026, time.March, 1))
	require.NoError(t, err)
	assert.True(t, rec.Active)
}

func TestProcessDue(t *testing.T) {
	store := &fakeStore{}
	adder := &fakeAdder{}
	svc := NewService(store, adder, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 450000, "hogar", "alquiler", "monthly", date(2026, time.January, 15))
	require.NoError(t, err)
	_, err = svc.Add(ctx, 2, 12000, "servicios", "internet", "monthly", date(2026, time.February, 1))
	require.NoError(t, err)

	created, err := svc.ProcessDue(ctx, date(2026, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	require.Len(t, adder.drafts, 1)
	assert.Equal(t, int64(1), adder.users[0])
	assert.Equal(t, "[Auto] alquiler", adder.drafts[0].Description)
	assert.Equal(t, "expense", adder.drafts[0].Type)
	assert.Equal(t, date(2026, time.January, 15), adder.drafts[0].Date)

	// Next occurrence advanced a month.
	assert.Equal(t, date(2026, time.February, 15), store.items[0].NextDate)

	// Nothing further due on the same day.
	created, err = svc.ProcessDue(ctx, date(2026, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestProcessDueSkipsFailures(t *testing.T) {
	store := &fakeStore{}
	adder := &fakeAdder{fail: true}
	svc := NewService(store, adder, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, 100, "otros", "x", "daily", date(2026, time.January, 1))
	require.NoError(t, err)

	created, err := svc.ProcessDue(ctx, date(2026, time.January, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// A failed spawn keeps the schedule intact for the next sweep.
	assert.Equal(t, date(2026, time.January, 1), store.items[0].NextDate)
}

func TestDeactivateGuardsOwner(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeAdder{}, zap.NewNop())
	ctx := context.Background()

	rec, err := svc.Add(ctx, 1, 100, "otros", "x", "weekly", date(2026, time.January, 1))
	require.NoError(t, err)

	ok, err := svc.Deactivate(ctx, rec.ID, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Deactivate(ctx, rec.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
