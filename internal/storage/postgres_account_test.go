package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
)

func TestFindActiveAccounts_OrdersByLastSynced(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	pattern := regexp.QuoteMeta(`SELECT * FROM "integration_accounts" WHERE company_id = $1 AND platform = $2 AND active = $3`) +
		`.*` + regexp.QuoteMeta(`ORDER BY last_synced_at DESC NULLS LAST`)
	rows := sqlmock.NewRows([]string{"id", "company_id", "platform", "account_name", "active"}).
		AddRow(2, testTenantID, string(model.PlatformWaba), "primary", true).
		AddRow(1, testTenantID, string(model.PlatformWaba), "legacy", true)
	mock.ExpectQuery(pattern).
		WithArgs(testTenantID, string(model.PlatformWaba), true).
		WillReturnRows(rows)

	accounts, err := repo.FindActiveAccounts(ctx, model.PlatformWaba)

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(2), accounts[0].ID)
}

func TestFindActiveAccounts_Empty(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "integration_accounts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	accounts, err := repo.FindActiveAccounts(ctx, model.PlatformJNE)

	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestTouchAccountLastSynced_Success(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	syncedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "integration_accounts" SET "last_synced_at"=$1,"updated_at"=$2 WHERE id = $3 AND company_id = $4`)).
		WithArgs(syncedAt, AnyTime{}, int64(11), testTenantID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TouchAccountLastSynced(ctx, 11, syncedAt)

	require.NoError(t, err)
}

func TestTouchAccountLastSynced_NotFound(t *testing.T) {
	repo, mock, teardown := newMockRepo(t)
	t.Cleanup(teardown)
	ctx := contextWithTestTenant()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "integration_accounts"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchAccountLastSynced(ctx, 99, time.Now())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
