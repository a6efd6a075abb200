package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationCreatedRoundTrip(t *testing.T) {
	in := ReservationCreated{
		EventType:       TypeReservationCreated,
		EventTimestamp:  time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		ReservationID:   "5f9f1b9b-8b1a-4f7e-9d6c-1c2d3e4f5a6b",
		DinnerID:        42,
		GuestID:         5,
		ReservationTime: time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		RestaurantName:  "Chez Amina",
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out ReservationCreated
	require.NoError(t, Unmarshal(data, &out))

	assert.Equal(t, in.ReservationID, out.ReservationID)
	assert.Equal(t, in.DinnerID, out.DinnerID)
	assert.Equal(t, in.GuestID, out.GuestID)
	assert.True(t, in.ReservationTime.Equal(out.ReservationTime))
	assert.Equal(t, in.RestaurantName, out.RestaurantName)
}

func TestDinnerStartedRoundTrip(t *testing.T) {
	in := DinnerStarted{
		EventType:      TypeDinnerStarted,
		EventTimestamp: time.Now().UTC(),
		Dinner: DinnerSnapshot{
			ID:            7,
			HostID:        1,
			MenuID:        3,
			Name:          "Couscous Night",
			Price:         35.5,
			StartTime:     time.Date(2026, 5, 2, 19, 0, 0, 0, time.UTC),
			EndTime:       time.Date(2026, 5, 2, 22, 0, 0, 0, time.UTC),
			Address:       "12 Rue Neuve, Lyon, ARA, 69002, France",
			CuisineType:   "Moroccan",
			MaxGuestCount: 8,
			Status:        "IN_PROGRESS",
		},
		GuestIDs: []int64{1, 2, 3},
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out DinnerStarted
	require.NoError(t, Unmarshal(data, &out))

	assert.Equal(t, in.GuestIDs, out.GuestIDs)
	assert.Equal(t, in.Dinner.ID, out.Dinner.ID)
	assert.Equal(t, in.Dinner.Status, out.Dinner.Status)
}
