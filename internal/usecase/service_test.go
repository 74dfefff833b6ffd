package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
)

func TestResolveAccount_SingleActive(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)

	accounts := []model.IntegrationAccount{{ID: 7, CompanyID: testCompanyID, Platform: model.PlatformWaba, Active: true}}
	m.accountRepo.On("FindActiveAccounts", mock.Anything, model.PlatformWaba).Return(accounts, nil)

	account, err := service.ResolveAccount(ctx, model.PlatformWaba)

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(7), account.ID)
}

func TestResolveAccount_NoneActive(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)

	m.accountRepo.On("FindActiveAccounts", mock.Anything, model.PlatformJNE).
		Return([]model.IntegrationAccount{}, nil)

	account, err := service.ResolveAccount(ctx, model.PlatformJNE)

	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestResolveAccount_MultiplePicksMostRecentlySynced(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)

	// The repository orders by last_synced_at descending; the head wins.
	accounts := []model.IntegrationAccount{
		{ID: 2, CompanyID: testCompanyID, Platform: model.PlatformWaba, Active: true},
		{ID: 1, CompanyID: testCompanyID, Platform: model.PlatformWaba, Active: true},
	}
	m.accountRepo.On("FindActiveAccounts", mock.Anything, model.PlatformWaba).Return(accounts, nil)

	account, err := service.ResolveAccount(ctx, model.PlatformWaba)

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(2), account.ID)
}

func TestResolveAccount_RepositoryError(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)

	m.accountRepo.On("FindActiveAccounts", mock.Anything, model.PlatformWaba).
		Return(nil, apperrors.ErrDatabase)

	account, err := service.ResolveAccount(ctx, model.PlatformWaba)

	require.Error(t, err)
	assert.Nil(t, account)
}

func TestAudit_AppendsEntryWithPayload(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	account := testAccount()
	payload := []byte(`{"awb":"JNE0011223344"}`)

	m.logRepo.On("AppendIntegrationLog", mock.Anything, mock.MatchedBy(func(entry model.IntegrationLog) bool {
		return entry.CompanyID == testCompanyID &&
			entry.AccountID == account.ID &&
			entry.Operation == "webhook_jne" &&
			entry.Status == model.LogStatusSuccess &&
			string(entry.Payload) == string(datatypes.JSON(payload))
	})).Return(nil)

	service.Audit(ctx, account, "webhook_jne", model.LogStatusSuccess, "applied 1 event(s)", payload)

	m.logRepo.AssertExpectations(t)
}

func TestAudit_InvalidPayloadOmitted(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)

	m.logRepo.On("AppendIntegrationLog", mock.Anything, mock.MatchedBy(func(entry model.IntegrationLog) bool {
		return entry.Payload == nil
	})).Return(nil)

	service.Audit(ctx, testAccount(), "webhook_jne", model.LogStatusFailure, "parse failed", []byte("not json"))

	m.logRepo.AssertExpectations(t)
}

func TestAudit_AppendFailureIsSwallowed(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)

	m.logRepo.On("AppendIntegrationLog", mock.Anything, mock.Anything).
		Return(apperrors.ErrDatabase)

	// Must not panic or surface the error.
	service.Audit(ctx, testAccount(), "webhook_jne", model.LogStatusSuccess, "ok", nil)

	m.logRepo.AssertExpectations(t)
}

func TestTouchAccount_BestEffort(t *testing.T) {
	service, m := newTestService()
	ctx := testContext(t)
	account := testAccount()

	m.accountRepo.On("TouchAccountLastSynced", mock.Anything, account.ID, mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrNotFound)

	// A failed touch is logged and ignored.
	service.TouchAccount(ctx, account)

	m.accountRepo.AssertExpectations(t)
}
