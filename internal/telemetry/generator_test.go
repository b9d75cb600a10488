package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/langchou/evfleet/internal/models"
)

func TestGenerate_FieldsWithinRanges(t *testing.T) {
	gen := NewGenerator(42)

	for i := 0; i < 5000; i++ {
		s := gen.Generate()

		assert.Truef(t, SpeedRange.Contains(s.Speed), "speed %v", s.Speed)
		assert.Truef(t, BatteryRange.Contains(s.BatteryLevel), "battery %v", s.BatteryLevel)
		assert.Truef(t, TemperatureRange.Contains(s.Temperature), "temperature %v", s.Temperature)
		assert.Truef(t, TirePressureRange.Contains(s.TirePressure), "tire pressure %v", s.TirePressure)
		assert.Truef(t, MotorEfficiencyRange.Contains(s.MotorEfficiency), "motor efficiency %v", s.MotorEfficiency)
		assert.Truef(t, OdometerRange.Contains(s.Odometer), "odometer %v", s.Odometer)
		assert.Truef(t, EnergyConsumptionRange.Contains(s.EnergyConsumption), "energy %v", s.EnergyConsumption)
		assert.Truef(t, VoltageRange.Contains(s.Voltage), "voltage %v", s.Voltage)
		assert.Truef(t, CurrentRange.Contains(s.Current), "current %v", s.Current)
		assert.True(t, s.ChargingStatus.Valid())

		assert.LessOrEqual(t, math.Abs(s.Location.Lat-ReferencePoint.Lat), LocationJitter)
		assert.LessOrEqual(t, math.Abs(s.Location.Lng-ReferencePoint.Lng), LocationJitter)
	}
}

func TestGenerate_SeedIsDeterministic(t *testing.T) {
	a := NewGenerator(7)
	b := NewGenerator(7)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestGenerate_CoversAllChargingStatuses(t *testing.T) {
	gen := NewGenerator(1)
	seen := map[models.ChargingStatus]bool{}
	for i := 0; i < 500; i++ {
		seen[gen.Generate().ChargingStatus] = true
	}
	assert.Len(t, seen, len(models.ChargingStatuses))
}
