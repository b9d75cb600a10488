package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/langchou/evfleet/internal/models"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		filter models.FilterState
		want   string
	}{
		{"empty", Clear(), ""},
		{"status only", models.FilterState{Status: []models.VehicleStatus{models.StatusActive, models.StatusMaintenance}}, "status=active,maintenance"},
		{"charging only", models.FilterState{Charging: []models.ChargingStatus{models.ChargingIdle}}, "charging=idle"},
		{
			"both",
			models.FilterState{
				Status:   []models.VehicleStatus{models.StatusActive, models.StatusMaintenance},
				Charging: []models.ChargingStatus{models.ChargingCharging},
			},
			"status=active,maintenance&charging=charging",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.filter))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.FilterState
	}{
		{"empty", "", Clear()},
		{"missing keys", "page=2", Clear()},
		{"leading question mark", "?status=active", models.FilterState{Status: []models.VehicleStatus{models.StatusActive}, Charging: []models.ChargingStatus{}}},
		{"escaped comma", "status=active%2Cinactive", models.FilterState{Status: []models.VehicleStatus{models.StatusActive, models.StatusInactive}, Charging: []models.ChargingStatus{}}},
		{"whitespace and empty tokens", "charging= idle,,charging ", models.FilterState{Status: []models.VehicleStatus{}, Charging: []models.ChargingStatus{models.ChargingIdle, models.ChargingCharging}}},
		{"repeated keys merge", "status=active&status=inactive&charging=idle", models.FilterState{Status: []models.VehicleStatus{models.StatusActive, models.StatusInactive}, Charging: []models.ChargingStatus{models.ChargingIdle}}},
		{"duplicate tokens collapse", "status=active,maintenance&status=active", models.FilterState{Status: []models.VehicleStatus{models.StatusActive, models.StatusMaintenance}, Charging: []models.ChargingStatus{}}},
		{"unknown tokens pass through", "status=active,parked", models.FilterState{Status: []models.VehicleStatus{models.StatusActive, "parked"}, Charging: []models.ChargingStatus{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.query))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	f := models.FilterState{Status: []models.VehicleStatus{models.StatusActive, models.StatusMaintenance}, Charging: []models.ChargingStatus{}}
	assert.True(t, Equal(f, Decode(Encode(f))))

	for _, q := range []string{
		"status=active",
		"charging=charging,discharging,idle",
		"status=maintenance,inactive&charging=idle",
	} {
		assert.Equal(t, q, Encode(Decode(q)), q)
	}
}
