package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyIDRoundTrip(t *testing.T) {
	tests := []struct {
		name          string
		setupContext  func() context.Context
		expectedValue string
		expectedError error
	}{
		{
			name: "company ID present",
			setupContext: func() context.Context {
				return WithCompanyID(context.Background(), "tenant-a")
			},
			expectedValue: "tenant-a",
			expectedError: nil,
		},
		{
			name: "company ID missing",
			setupContext: func() context.Context {
				return context.Background()
			},
			expectedValue: "",
			expectedError: ErrCompanyIDNotFound,
		},
		{
			name: "company ID empty",
			setupContext: func() context.Context {
				return WithCompanyID(context.Background(), "")
			},
			expectedValue: "",
			expectedError: ErrCompanyIDNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, err := FromContext(tc.setupContext())
			assert.Equal(t, tc.expectedValue, value)
			assert.ErrorIs(t, err, tc.expectedError)
		})
	}
}

func TestMustFromContext(t *testing.T) {
	ctx := WithCompanyID(context.Background(), "tenant-b")
	assert.Equal(t, "tenant-b", MustFromContext(ctx))

	assert.Panics(t, func() {
		MustFromContext(context.Background())
	})
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	requestID, err := FromRequestIDContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "req-123", requestID)

	_, err = FromRequestIDContext(context.Background())
	assert.ErrorIs(t, err, ErrNoRequestIDInContext)
}
