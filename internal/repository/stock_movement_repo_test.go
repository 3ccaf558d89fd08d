package repository

import (
	"testing"
	"time"

	"github.com/SantiagoClavijoSoto/inventory-system-sub000/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterFromDTO_DateBoundsAreUTC(t *testing.T) {
	out, err := FilterFromDTO(dto.MovementFilter{From: "2026-03-01", To: "2026-03-02"})
	require.NoError(t, err)

	require.NotNil(t, out.From)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *out.From)

	// "to" is inclusive for the caller, so the stored bound sits at the
	// following UTC midnight and is compared exclusively.
	require.NotNil(t, out.To)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *out.To)
}

func TestFilterFromDTO_ParsesIDs(t *testing.T) {
	productID := uuid.New()
	locationID := uuid.New()

	out, err := FilterFromDTO(dto.MovementFilter{
		ProductID:  productID.String(),
		LocationID: locationID.String(),
		Kind:       "sale",
	})
	require.NoError(t, err)
	require.NotNil(t, out.ProductID)
	assert.Equal(t, productID, *out.ProductID)
	require.NotNil(t, out.LocationID)
	assert.Equal(t, locationID, *out.LocationID)
	assert.Equal(t, "sale", out.Kind)
	assert.Nil(t, out.From)
	assert.Nil(t, out.To)
}

func TestFilterFromDTO_RejectsMalformedInput(t *testing.T) {
	_, err := FilterFromDTO(dto.MovementFilter{From: "03/01/2026"})
	assert.Error(t, err)

	_, err = FilterFromDTO(dto.MovementFilter{To: "yesterday"})
	assert.Error(t, err)

	_, err = FilterFromDTO(dto.MovementFilter{ProductID: "not-a-uuid"})
	assert.Error(t, err)
}
