package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)

	tests := []struct {
		name    string
		raw     string
		loc     *time.Location
		want    string
		wantErr bool
	}{
		{name: "plain date", raw: "2024-06-10", want: "2024-06-10"},
		{name: "rfc3339 utc", raw: "2024-06-10T15:30:00Z", want: "2024-06-10"},
		{name: "rfc3339 with millis", raw: "2024-06-10T15:30:00.000Z", want: "2024-06-10"},
		{name: "converted to location", raw: "2024-06-09T22:00:00Z", loc: moscow, want: "2024-06-10"},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "garbage", raw: "next monday", wantErr: true},
		{name: "impossible date", raw: "2024-02-30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw, tt.loc)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, DateKey(got))
			assert.Equal(t, time.UTC, got.Location())
			assert.Zero(t, got.Hour())
		})
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)

	d, err = ParseWeekday("sat")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, AppointmentStatusPending.CanTransitionTo(AppointmentStatusApproved))
	assert.True(t, AppointmentStatusPending.CanTransitionTo(AppointmentStatusRejected))
	assert.True(t, AppointmentStatusApproved.CanTransitionTo(AppointmentStatusCompleted))

	assert.False(t, AppointmentStatusPending.CanTransitionTo(AppointmentStatusCompleted))
	assert.False(t, AppointmentStatusApproved.CanTransitionTo(AppointmentStatusPending))
	assert.False(t, AppointmentStatusRejected.CanTransitionTo(AppointmentStatusApproved))
	assert.False(t, AppointmentStatusCompleted.CanTransitionTo(AppointmentStatusPending))

	assert.True(t, AppointmentStatusCompleted.Live())
	assert.False(t, AppointmentStatusRejected.Live())
	assert.False(t, AppointmentStatusCompleted.Active())
	assert.True(t, errors.Is(ErrInvalidTransition, ErrValidation))
}
