package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndFindAll(t *testing.T) {
	db := newTestDatabase(t)
	bookings := NewGormBookingRepository(db.DB)
	repo := NewGormCorrectionRepository(db.DB)
	ctx := context.Background()

	stored := newStoredProposal(t, bookings, nil)

	first, err := booking.NewCorrection(stored.ID, stored.ClientID, "HEP d.d.",
		"4000", "7200", stored.DocumentType, "ana")
	require.NoError(t, err)
	second, err := booking.NewCorrection(stored.ID, stored.ClientID, "HEP d.d.",
		"7200", "7210", stored.DocumentType, "ivan")
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	log, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "7200", log[0].CorrectedKonto)
	assert.Equal(t, "7210", log[1].CorrectedKonto)
	assert.Equal(t, stored.ID, log[0].BookingID)
}

func TestAppendRequiresExistingBooking(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormCorrectionRepository(db.DB)

	correction, err := booking.NewCorrection(uuid.New(), "obrt-horvat", "HEP d.d.",
		"4000", "7200", booking.DocumentTypeUlazniRacun, "ana")
	require.NoError(t, err)

	err = repo.Append(context.Background(), correction)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestFindByClient(t *testing.T) {
	db := newTestDatabase(t)
	bookings := NewGormBookingRepository(db.DB)
	repo := NewGormCorrectionRepository(db.DB)
	ctx := context.Background()

	horvat := newStoredProposal(t, bookings, nil)
	kovac := newStoredProposal(t, bookings, func(p *booking.NewBookingProposalParams) {
		p.ClientID = "doo-kovac"
		p.Counterparty = "Konzum"
	})

	c1, err := booking.NewCorrection(horvat.ID, horvat.ClientID, horvat.Counterparty,
		"4000", "7200", horvat.DocumentType, "ana")
	require.NoError(t, err)
	c2, err := booking.NewCorrection(kovac.ID, kovac.ClientID, kovac.Counterparty,
		"4010", "4400", kovac.DocumentType, "ana")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, c1))
	require.NoError(t, repo.Append(ctx, c2))

	mine, err := repo.FindByClient(ctx, "doo-kovac")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "4400", mine[0].CorrectedKonto)

	none, err := repo.FindByClient(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCount(t *testing.T) {
	db := newTestDatabase(t)
	bookings := NewGormBookingRepository(db.DB)
	repo := NewGormCorrectionRepository(db.DB)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	stored := newStoredProposal(t, bookings, nil)
	correction, err := booking.NewCorrection(stored.ID, stored.ClientID, stored.Counterparty,
		"4000", "7200", stored.DocumentType, "ana")
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, correction))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
