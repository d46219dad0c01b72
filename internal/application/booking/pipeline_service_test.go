package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/registry"
	"github.com/knjigovodja/backend/internal/domain/safety"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Insert(ctx context.Context, proposal *booking.BookingProposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*booking.BookingProposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingProposal), args.Error(1)
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.BookingStatus, actor, reason string) (*booking.BookingProposal, error) {
	args := m.Called(ctx, id, status, actor, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingProposal), args.Error(1)
}

func (m *mockBookingRepo) FindPending(ctx context.Context, clientID string) ([]booking.BookingProposal, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.BookingProposal), args.Error(1)
}

func (m *mockBookingRepo) FindByStatus(ctx context.Context, clientID string, status booking.BookingStatus) ([]booking.BookingProposal, error) {
	args := m.Called(ctx, clientID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.BookingProposal), args.Error(1)
}

func (m *mockBookingRepo) FindAll(ctx context.Context, filter booking.BookingFilter) ([]booking.BookingProposal, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]booking.BookingProposal), args.Get(1).(int64), args.Error(2)
}

func (m *mockBookingRepo) Stats(ctx context.Context) (*booking.StoreStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.StoreStats), args.Error(1)
}

type mockCorrectionRepo struct {
	mock.Mock
}

func (m *mockCorrectionRepo) Append(ctx context.Context, correction *booking.Correction) error {
	args := m.Called(ctx, correction)
	return args.Error(0)
}

func (m *mockCorrectionRepo) FindAll(ctx context.Context) ([]booking.Correction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Correction), args.Error(1)
}

func (m *mockCorrectionRepo) FindByClient(ctx context.Context, clientID string) ([]booking.Correction, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Correction), args.Error(1)
}

func (m *mockCorrectionRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockClientRegistry struct {
	mock.Mock
}

func (m *mockClientRegistry) Resolve(clientID string) (*registry.Client, error) {
	args := m.Called(clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registry.Client), args.Error(1)
}

func submitParams() booking.NewBookingProposalParams {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return booking.NewBookingProposalParams{
		DocumentType: booking.DocumentTypeUlazniRacun,
		ClientID:     "obrt-horvat",
		Counterparty: "HEP d.d.",
		DocumentDate: &date,
		UkupniIznos:  decimal.NewFromInt(500),
		Confidence:   0.9,
	}
}

func newTestPipeline(bookings *mockBookingRepo, corrections *mockCorrectionRepo, clients *mockClientRegistry, cfg PipelineConfig) *BookingPipeline {
	return NewBookingPipeline(
		safety.NewOverseer(safety.DefaultLimits()),
		bookings,
		corrections,
		NewCorrectionMemory(nil),
		clients,
		nil,
		nil,
		cfg,
	)
}

func TestSubmit(t *testing.T) {
	t.Run("valid proposal is persisted pending", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, PipelineConfig{})

		clients.On("Resolve", "obrt-horvat").Return(&registry.Client{
			ID: "obrt-horvat", ERPTarget: "synesis",
		}, nil)
		bookings.On("Insert", mock.Anything, mock.AnythingOfType("*booking.BookingProposal")).Return(nil)

		result, err := pipeline.Submit(context.Background(), submitParams())
		require.NoError(t, err)
		assert.Equal(t, "pending", result.Status)
		assert.Equal(t, "synesis", result.ERPTarget)
		assert.Empty(t, result.Warnings)
		bookings.AssertExpectations(t)
	})

	t.Run("structurally invalid proposal is never persisted", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, PipelineConfig{})
		clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound).Maybe()

		params := submitParams()
		params.DocumentType = "rental_contract"

		_, err := pipeline.Submit(context.Background(), params)
		assertDomainCode(t, err, "INVALID_DOCUMENT_TYPE")
		bookings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("overseer rejection is never persisted", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, PipelineConfig{})
		clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound).Maybe()

		params := submitParams()
		params.Counterparty = ""

		_, err := pipeline.Submit(context.Background(), params)
		assertDomainCode(t, err, "VALIDATION_FAILED")
		bookings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("unknown client leaves erp target empty", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, PipelineConfig{})

		clients.On("Resolve", "obrt-horvat").Return(nil, shared.ErrNotFound)
		bookings.On("Insert", mock.Anything, mock.Anything).Return(nil)

		result, err := pipeline.Submit(context.Background(), submitParams())
		require.NoError(t, err)
		assert.Equal(t, "", result.ERPTarget)
	})
}

func TestSubmitAutoApprove(t *testing.T) {
	cfg := PipelineConfig{AutoApproveEnabled: true, AutoApproveThreshold: 0.95}

	t.Run("high confidence is auto approved through the store", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, cfg)
		clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound)

		params := submitParams()
		params.Confidence = 0.99

		var storedID uuid.UUID
		bookings.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			storedID = args.Get(1).(*booking.BookingProposal).ID
		}).Return(nil)
		bookings.On("UpdateStatus", mock.Anything, mock.Anything, booking.StatusAutoApproved, "system:auto", "").
			Return(&booking.BookingProposal{Status: booking.StatusAutoApproved}, nil)

		result, err := pipeline.Submit(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, "auto_approved", result.Status)
		assert.Equal(t, storedID, result.ID)
		bookings.AssertExpectations(t)
	})

	t.Run("below threshold stays pending", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, cfg)
		clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound)
		bookings.On("Insert", mock.Anything, mock.Anything).Return(nil)

		result, err := pipeline.Submit(context.Background(), submitParams())
		require.NoError(t, err)
		assert.Equal(t, "pending", result.Status)
		bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed auto approval keeps the submission", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, cfg)
		clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound)

		params := submitParams()
		params.Confidence = 0.99

		bookings.On("Insert", mock.Anything, mock.Anything).Return(nil)
		bookings.On("UpdateStatus", mock.Anything, mock.Anything, booking.StatusAutoApproved, "system:auto", "").
			Return(nil, shared.ErrPersistenceFailure)

		result, err := pipeline.Submit(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, "pending", result.Status)
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("disabled auto approval never fires", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		clients := new(mockClientRegistry)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), clients, PipelineConfig{AutoApproveThreshold: 0.95})
		clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound)
		bookings.On("Insert", mock.Anything, mock.Anything).Return(nil)

		params := submitParams()
		params.Confidence = 1.0

		result, err := pipeline.Submit(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, "pending", result.Status)
		bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestApproveAndReject(t *testing.T) {
	id := uuid.New()

	t.Run("approve delegates to the store boundary", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), new(mockClientRegistry), PipelineConfig{})

		approved := &booking.BookingProposal{Status: booking.StatusApproved, ApprovedBy: "ana"}
		bookings.On("UpdateStatus", mock.Anything, id, booking.StatusApproved, "ana", "").Return(approved, nil)

		result, err := pipeline.Approve(context.Background(), id, "ana")
		require.NoError(t, err)
		assert.Equal(t, booking.StatusApproved, result.Status)
	})

	t.Run("approve without approver fails", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), new(mockClientRegistry), PipelineConfig{})

		_, err := pipeline.Approve(context.Background(), id, "")
		assertDomainCode(t, err, "MISSING_APPROVER")
		bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reject passes the reason through", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), new(mockClientRegistry), PipelineConfig{})

		rejected := &booking.BookingProposal{Status: booking.StatusRejected}
		bookings.On("UpdateStatus", mock.Anything, id, booking.StatusRejected, "ana", "pogrešan konto").Return(rejected, nil)

		result, err := pipeline.Reject(context.Background(), id, "ana", "pogrešan konto")
		require.NoError(t, err)
		assert.Equal(t, booking.StatusRejected, result.Status)
	})

	t.Run("race loser surfaces the store conflict", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), new(mockClientRegistry), PipelineConfig{})

		bookings.On("UpdateStatus", mock.Anything, id, booking.StatusApproved, "ivan", "").
			Return(nil, shared.ErrInvalidTransition)

		_, err := pipeline.Approve(context.Background(), id, "ivan")
		assertDomainCode(t, err, "INVALID_TRANSITION")
	})
}

func TestCorrect(t *testing.T) {
	proposal, err := booking.NewBookingProposal(submitParams())
	require.NoError(t, err)

	t.Run("correction feeds the log and the memory", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		corrections := new(mockCorrectionRepo)
		pipeline := newTestPipeline(bookings, corrections, new(mockClientRegistry), PipelineConfig{})

		bookings.On("FindByID", mock.Anything, proposal.ID).Return(proposal, nil)
		corrections.On("Append", mock.Anything, mock.AnythingOfType("*booking.Correction")).Return(nil)

		correction, err := pipeline.Correct(context.Background(), proposal.ID, "ana", CorrectionInput{
			OriginalKonto:  "4000",
			CorrectedKonto: "7200",
		})
		require.NoError(t, err)
		// Supplier defaults to the proposal's counterparty
		assert.Equal(t, "HEP d.d.", correction.Supplier)

		hint := pipeline.GetHint(proposal.ClientID, "HEP d.d.")
		require.NotNil(t, hint)
		assert.Equal(t, "7200", hint.CorrectedKonto)
	})

	t.Run("unknown booking fails without touching memory", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		corrections := new(mockCorrectionRepo)
		pipeline := newTestPipeline(bookings, corrections, new(mockClientRegistry), PipelineConfig{})

		id := uuid.New()
		bookings.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := pipeline.Correct(context.Background(), id, "ana", CorrectionInput{
			OriginalKonto:  "4000",
			CorrectedKonto: "7200",
		})
		assertDomainCode(t, err, "NOT_FOUND")
		corrections.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("failed append does not feed the memory", func(t *testing.T) {
		bookings := new(mockBookingRepo)
		corrections := new(mockCorrectionRepo)
		pipeline := newTestPipeline(bookings, corrections, new(mockClientRegistry), PipelineConfig{})

		bookings.On("FindByID", mock.Anything, proposal.ID).Return(proposal, nil)
		corrections.On("Append", mock.Anything, mock.Anything).Return(shared.ErrPersistenceFailure)

		_, err := pipeline.Correct(context.Background(), proposal.ID, "ana", CorrectionInput{
			OriginalKonto:  "4000",
			CorrectedKonto: "9999",
			Supplier:       "Konzum",
		})
		assertDomainCode(t, err, "PERSISTENCE_FAILURE")
		assert.Nil(t, pipeline.GetHint(proposal.ClientID, "Konzum"))
	})
}

func TestGetApprovedMergesBothApprovalPaths(t *testing.T) {
	bookings := new(mockBookingRepo)
	pipeline := newTestPipeline(bookings, new(mockCorrectionRepo), new(mockClientRegistry), PipelineConfig{})

	older := booking.BookingProposal{Status: booking.StatusAutoApproved}
	older.ID = uuid.New()
	older.CreatedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := booking.BookingProposal{Status: booking.StatusApproved}
	newer.ID = uuid.New()
	newer.CreatedAt = time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	bookings.On("FindByStatus", mock.Anything, "obrt-horvat", booking.StatusApproved).
		Return([]booking.BookingProposal{newer}, nil)
	bookings.On("FindByStatus", mock.Anything, "obrt-horvat", booking.StatusAutoApproved).
		Return([]booking.BookingProposal{older}, nil)

	merged, err := pipeline.GetApproved(context.Background(), "obrt-horvat")
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, older.ID, merged[0].ID)
	assert.Equal(t, newer.ID, merged[1].ID)
}

func TestRebuildMemory(t *testing.T) {
	corrections := new(mockCorrectionRepo)
	pipeline := newTestPipeline(new(mockBookingRepo), corrections, new(mockClientRegistry), PipelineConfig{})

	corrections.On("FindAll", mock.Anything).Return([]booking.Correction{
		{ClientID: "obrt-horvat", Supplier: "HEP d.d.", OriginalKonto: "4000",
			CorrectedKonto: "7200", DocumentType: booking.DocumentTypeUlazniRacun, Approver: "ana"},
	}, nil)

	require.NoError(t, pipeline.RebuildMemory(context.Background()))
	hint := pipeline.GetHint("obrt-horvat", "HEP d.d.")
	require.NotNil(t, hint)
	assert.Equal(t, "7200", hint.CorrectedKonto)
}

func TestGetStats(t *testing.T) {
	bookings := new(mockBookingRepo)
	corrections := new(mockCorrectionRepo)
	clients := new(mockClientRegistry)
	pipeline := newTestPipeline(bookings, corrections, clients, PipelineConfig{PersistenceDriver: "sqlite"})

	clients.On("Resolve", mock.Anything).Return(nil, shared.ErrNotFound)
	bookings.On("Insert", mock.Anything, mock.Anything).Return(nil)
	bookings.On("Stats", mock.Anything).Return(&booking.StoreStats{
		TotalBookings: 1,
		ByStatus:      map[booking.BookingStatus]int64{booking.StatusPending: 1},
	}, nil)
	corrections.On("Count", mock.Anything).Return(int64(2), nil)

	_, err := pipeline.Submit(context.Background(), submitParams())
	require.NoError(t, err)

	stats, err := pipeline.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Submitted)
	assert.Equal(t, int64(0), stats.Rejected)
	assert.Equal(t, "durable", stats.Persistence)
	assert.Equal(t, "sqlite", stats.Driver)
	assert.Equal(t, int64(1), stats.Store.TotalBookings)
	assert.Equal(t, int64(2), stats.Store.TotalCorrections)
}

func TestGetCorrectionsForDPO(t *testing.T) {
	corrections := new(mockCorrectionRepo)
	pipeline := newTestPipeline(new(mockBookingRepo), corrections, new(mockClientRegistry), PipelineConfig{})

	all := []booking.Correction{
		{ClientID: "obrt-horvat", OriginalKonto: "4000", CorrectedKonto: "7200"},
		{ClientID: "doo-kovac", OriginalKonto: "4100", CorrectedKonto: "7300"},
	}
	corrections.On("FindAll", mock.Anything).Return(all, nil)
	corrections.On("FindByClient", mock.Anything, "doo-kovac").Return(all[1:], nil)

	everything, err := pipeline.GetCorrectionsForDPO(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, everything, 2)

	filtered, err := pipeline.GetCorrectionsForDPO(context.Background(), "doo-kovac")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "doo-kovac", filtered[0].ClientID)
}
