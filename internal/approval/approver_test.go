package approval

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"metatradex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubEndpoint(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreditsBalanceMatrix(t *testing.T) {
	assert.True(t, creditsBalance(types.ReviewTableDeposits, types.ReviewActionApprove))
	assert.True(t, creditsBalance(types.ReviewTableWithdrawals, types.ReviewActionReject))
	assert.False(t, creditsBalance(types.ReviewTableDeposits, types.ReviewActionReject))
	assert.False(t, creditsBalance(types.ReviewTableWithdrawals, types.ReviewActionApprove))
}

func TestReviewEndpointTierSuccessStopsChain(t *testing.T) {
	srv := stubEndpoint(t, http.StatusOK, `{"success":true,"status":"approved"}`)
	a := NewApprover(nil, nil, srv.URL)

	status, err := a.Review(context.Background(), types.ReviewTableDeposits, types.ReviewActionApprove,
		"7b0d7b2e-0000-0000-0000-000000000001", "", "token")
	require.NoError(t, err)
	assert.Equal(t, types.RequestStatusApproved, status)
}

func TestReviewEndpointNotPendingIsFinal(t *testing.T) {
	srv := stubEndpoint(t, http.StatusOK, `{"success":false,"error":"Record is not pending"}`)
	a := NewApprover(nil, nil, srv.URL)

	_, err := a.Review(context.Background(), types.ReviewTableDeposits, types.ReviewActionApprove,
		"7b0d7b2e-0000-0000-0000-000000000001", "", "token")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestReviewEndpointRejectedCredentialsIsFatal(t *testing.T) {
	srv := stubEndpoint(t, http.StatusUnauthorized, `{"success":false,"error":"unauthorized"}`)
	a := NewApprover(nil, nil, srv.URL)

	_, err := a.Review(context.Background(), types.ReviewTableWithdrawals, types.ReviewActionReject,
		"7b0d7b2e-0000-0000-0000-000000000002", "", "bad-token")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errTierUnavailable))
}

func TestReviewEndpointServerErrorFallsThrough(t *testing.T) {
	srv := stubEndpoint(t, http.StatusInternalServerError, `{}`)
	a := NewApprover(nil, nil, srv.URL)

	_, err := a.reviewViaEndpoint(context.Background(), types.ReviewTableDeposits, types.ReviewActionApprove,
		"7b0d7b2e-0000-0000-0000-000000000003", "token")
	require.ErrorIs(t, err, errTierUnavailable)
}

func TestReviewEndpointUnreachableFallsThrough(t *testing.T) {
	a := NewApprover(nil, nil, "http://127.0.0.1:1/approve")

	_, err := a.reviewViaEndpoint(context.Background(), types.ReviewTableDeposits, types.ReviewActionApprove,
		"7b0d7b2e-0000-0000-0000-000000000004", "token")
	require.ErrorIs(t, err, errTierUnavailable)
}

func TestReviewRejectsUnknownTableAndAction(t *testing.T) {
	a := NewApprover(nil, nil, "")

	_, err := a.Review(context.Background(), types.ReviewTable("loans"), types.ReviewActionApprove, "id", "", "")
	require.Error(t, err)

	_, err = a.Review(context.Background(), types.ReviewTableDeposits, types.ReviewAction("escalate"), "id", "", "")
	require.Error(t, err)
}
