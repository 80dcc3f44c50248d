package ambience

import (
	"errors"
	"fmt"
	"time"
)

// Validation limits for Environment.
const (
	MinSpeed          = 0.0
	MaxSpeed          = 200.0
	MinPassengerCount = 1
	MaxPassengerCount = 7
)

// Sentinel errors for environment validation.
var (
	// ErrSpeedOutOfRange indicates a speed outside [0, 200] km/h.
	ErrSpeedOutOfRange = errors.New("speed out of range")

	// ErrPassengerCountOutOfRange indicates a passenger count outside [1, 7].
	ErrPassengerCountOutOfRange = errors.New("passenger count out of range")
)

// DriverBiometrics carries optional driver vitals from the seat sensors.
type DriverBiometrics struct {
	HeartRate       int     `json:"heartRate"`
	StressLevel     float64 `json:"stressLevel"`
	FatigueLevel    float64 `json:"fatigueLevel"`
	BodyTemperature float64 `json:"bodyTemperature"`
}

// LocationInfo is the optional precise position of the vehicle.
type LocationInfo struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CityName     string  `json:"cityName,omitempty"`
	DistrictName string  `json:"districtName,omitempty"`
	RoadName     string  `json:"roadName,omitempty"`
}

// Environment is an immutable snapshot of vehicle and user state at the
// moment an orchestration run is requested. Construct with NewEnvironment;
// a zero Environment is not valid.
type Environment struct {
	GpsTag         GpsTag            `json:"gpsTag"`
	Weather        Weather           `json:"weather"`
	Speed          float64           `json:"speed"`
	UserMood       UserMood          `json:"userMood"`
	TimeOfDay      TimeOfDay         `json:"timeOfDay"`
	PassengerCount int               `json:"passengerCount"`
	RouteType      RouteType         `json:"routeType"`
	Biometrics     *DriverBiometrics `json:"biometrics,omitempty"`
	Location       *LocationInfo     `json:"location,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// NewEnvironment validates the snapshot and defaults the capture
// timestamp. Range violations are construction-time errors; nothing
// downstream re-checks them.
func NewEnvironment(env Environment) (Environment, error) {
	if env.Speed < MinSpeed || env.Speed > MaxSpeed {
		return Environment{}, fmt.Errorf("%w: %.1f km/h (must be within [%.0f, %.0f])",
			ErrSpeedOutOfRange, env.Speed, MinSpeed, MaxSpeed)
	}
	if env.PassengerCount < MinPassengerCount || env.PassengerCount > MaxPassengerCount {
		return Environment{}, fmt.Errorf("%w: %d (must be within [%d, %d])",
			ErrPassengerCountOutOfRange, env.PassengerCount, MinPassengerCount, MaxPassengerCount)
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	return env, nil
}

// IsHighSpeedScenario reports whether speed or location class implies a
// high-speed driving context.
func (e Environment) IsHighSpeedScenario() bool {
	return e.Speed >= 100 || e.GpsTag.IsHighSpeedScenario()
}

// IsSoloDriving reports whether the driver is alone.
func (e Environment) IsSoloDriving() bool {
	return e.PassengerCount == 1
}

// NeedsSoothingAmbience reports whether mood, hour or weather calls for
// a soothing plan.
func (e Environment) NeedsSoothingAmbience() bool {
	return e.UserMood.NeedsSoothing() || e.TimeOfDay.IsLateNight() || e.Weather.IsSevere()
}

// SuitsEnergeticAmbience reports whether an energetic plan is appropriate.
func (e Environment) SuitsEnergeticAmbience() bool {
	return e.UserMood.NeedsEnergizing() && !e.IsHighSpeedScenario() && !e.Weather.IsSevere()
}
