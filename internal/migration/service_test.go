package migration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeledger-dev/feeledger/internal/model"
)

func validPlan() *Plan {
	return NewPlan(Validate([]model.ImportRow{
		row(2, "3", "A", "12", "1500", "200", "0"),
		row(3, "3", "A", "13", "1500", "0", "75"),
	}, testIndex()))
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	svc := NewService(root, NewFileStore(root), nil)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }
	return svc, root
}

func commitParams() CommitParams {
	return CommitParams{Month: "2025-04", SourceFile: "opening.csv", Confirmed: true, Students: testIndex()}
}

func TestCommit(t *testing.T) {
	svc, root := newTestService(t)
	ctx := context.Background()

	report, err := svc.Commit(ctx, validPlan(), commitParams())
	require.NoError(t, err)
	assert.Equal(t, 2, report.StudentsCount)
	assert.Equal(t, "200.00", report.TotalPendingDue.StringFixed(2))
	assert.Equal(t, "75.00", report.TotalAdvance.StringFixed(2))
	assert.Equal(t, time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC), report.CompletedAt)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, report.ID, status.ID)

	openings, err := LoadOpenings(root)
	require.NoError(t, err)
	require.Len(t, openings, 2)
	assert.Equal(t, "s1", openings[0].StudentID)
	assert.Equal(t, "75.00", openings[1].Advance.StringFixed(2))

	staged, _ := filepath.Glob(filepath.Join(root, "migration", ".openings-*"))
	assert.Empty(t, staged)
}

func TestCommit_SecondRunRejected(t *testing.T) {
	svc, root := newTestService(t)
	ctx := context.Background()

	_, err := svc.Commit(ctx, validPlan(), commitParams())
	require.NoError(t, err)
	before, err := os.ReadFile(OpeningsPath(root))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, validPlan(), commitParams())
	assert.ErrorIs(t, err, ErrAlreadyMigrated)

	after, err := os.ReadFile(OpeningsPath(root))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCommit_Preconditions(t *testing.T) {
	invalid := NewPlan(Validate([]model.ImportRow{
		row(2, "3", "A", "12", "1500", "200", "0"),
		row(3, "9", "A", "12", "1500", "200", "0"),
	}, testIndex()))

	tests := []struct {
		name   string
		plan   *Plan
		params func(p *CommitParams)
		want   error
	}{
		{"invalid rows", invalid, func(*CommitParams) {}, ErrInvalidRows},
		{"empty plan", NewPlan(nil), func(*CommitParams) {}, ErrEmptyPlan},
		{"not confirmed", validPlan(), func(p *CommitParams) { p.Confirmed = false }, ErrNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, root := newTestService(t)
			params := commitParams()
			tt.params(&params)

			_, err := svc.Commit(context.Background(), tt.plan, params)
			assert.ErrorIs(t, err, tt.want)

			status, err := svc.Status(context.Background())
			require.NoError(t, err)
			assert.Nil(t, status, "nothing may be committed")
			_, err = os.Stat(OpeningsPath(root))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestCommit_BadMonth(t *testing.T) {
	svc, _ := newTestService(t)
	params := commitParams()
	params.Month = "April"
	_, err := svc.Commit(context.Background(), validPlan(), params)
	assert.Error(t, err)
}

func TestCommit_ExistingReportCheckedFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.TryMigrate(ctx, sampleReport("manual")))

	params := commitParams()
	params.Confirmed = false
	_, err := svc.Commit(ctx, NewPlan(nil), params)
	assert.ErrorIs(t, err, ErrAlreadyMigrated)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context) (*model.MigrationReport, error) { return nil, nil }

func (brokenStore) PutIfAbsent(context.Context, model.MigrationReport) error {
	return errors.New("disk full")
}

func TestCommit_ReportFailureWithdrawsOpenings(t *testing.T) {
	root := t.TempDir()
	svc := NewService(root, brokenStore{}, nil)

	_, err := svc.Commit(context.Background(), validPlan(), commitParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, err = os.Stat(OpeningsPath(root))
	assert.True(t, os.IsNotExist(err), "openings must not outlive a failed report write")
	staged, _ := filepath.Glob(filepath.Join(root, "migration", ".openings-*"))
	assert.Empty(t, staged)
}

func TestCommit_PublishedOpeningsBlockSecondCommit(t *testing.T) {
	svc, root := newTestService(t)
	path := OpeningsPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	_, err := svc.Commit(context.Background(), validPlan(), commitParams())
	assert.ErrorIs(t, err, ErrAlreadyMigrated)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestTryMigrate_Twice(t *testing.T) {
	svc := NewService(t.TempDir(), NewMemoryStore(), nil)
	ctx := context.Background()
	require.NoError(t, svc.TryMigrate(ctx, sampleReport("a")))
	assert.ErrorIs(t, svc.TryMigrate(ctx, sampleReport("b")), ErrAlreadyMigrated)
	assert.ErrorIs(t, svc.TryMigrate(ctx, sampleReport("a")), ErrAlreadyMigrated)
}

func TestOpeningsRoundTrip(t *testing.T) {
	openings, err := Openings(validPlan(), testIndex())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteOpenings(&buf, openings))
	got, err := ReadOpenings(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(openings))
	for i := range openings {
		assert.Equal(t, openings[i].StudentID, got[i].StudentID)
		assert.True(t, openings[i].Due.Equal(got[i].Due))
		assert.True(t, openings[i].Advance.Equal(got[i].Advance))
	}
}

func TestLoadOpenings_Missing(t *testing.T) {
	got, err := LoadOpenings(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, got)
}
