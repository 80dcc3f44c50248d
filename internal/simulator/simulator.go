// Package simulator synthesizes driving environments for demos and
// integration exercises. Each scenario produces a plausible snapshot of
// the kind the vehicle gateway would report, including seat-sensor
// biometrics and a coarse position; Evolve drifts an existing snapshot
// the way telemetry drifts between samples.
package simulator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// Scenario selects the driving situation to synthesize.
type Scenario string

const (
	// ScenarioLateNightReturn is a tired solo driver on a night highway.
	ScenarioLateNightReturn Scenario = "LATE_NIGHT_RETURN"

	// ScenarioWeekendFamilyTrip is a full cabin on a sunny coastal road.
	ScenarioWeekendFamilyTrip Scenario = "WEEKEND_FAMILY_TRIP"

	// ScenarioMorningCommute is stop-and-go urban rush-hour traffic.
	ScenarioMorningCommute Scenario = "MORNING_COMMUTE"

	// ScenarioRandom draws every field uniformly.
	ScenarioRandom Scenario = "RANDOM"
)

// ErrUnknownScenario indicates a scenario name outside the known set.
var ErrUnknownScenario = errors.New("unknown scenario")

// ParseScenario resolves a scenario name case-insensitively. The empty
// string selects ScenarioRandom so callers can omit the parameter.
func ParseScenario(name string) (Scenario, error) {
	switch Scenario(strings.ToUpper(strings.TrimSpace(name))) {
	case "":
		return ScenarioRandom, nil
	case ScenarioLateNightReturn:
		return ScenarioLateNightReturn, nil
	case ScenarioWeekendFamilyTrip:
		return ScenarioWeekendFamilyTrip, nil
	case ScenarioMorningCommute:
		return ScenarioMorningCommute, nil
	case ScenarioRandom:
		return ScenarioRandom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// evolveMaxSpeed caps drifted speed below the hard validation limit so
// an evolving simulation never tips into an invalid snapshot.
const evolveMaxSpeed = 150.0

// Simulator generates environments from a private random source.
type Simulator struct {
	rng *rand.Rand
}

// New returns a simulator seeded from the clock.
func New() *Simulator {
	return NewWithSeed(uint64(time.Now().UnixNano()))
}

// NewWithSeed returns a simulator with a deterministic random source.
func NewWithSeed(seed uint64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(seed, seed<<17|1))}
}

// Generate builds a validated environment for the scenario.
func (s *Simulator) Generate(scenario Scenario) (ambience.Environment, error) {
	var env ambience.Environment
	switch scenario {
	case ScenarioLateNightReturn:
		env = s.lateNightReturn()
	case ScenarioWeekendFamilyTrip:
		env = s.weekendFamilyTrip()
	case ScenarioMorningCommute:
		env = s.morningCommute()
	case ScenarioRandom:
		env = s.random()
	default:
		return ambience.Environment{}, fmt.Errorf("%w: %q", ErrUnknownScenario, scenario)
	}
	return ambience.NewEnvironment(env)
}

// Evolve drifts an environment by one telemetry step: speed moves by at
// most 5 km/h in either direction, clamped to [0, 150], and the capture
// timestamp is refreshed. All other fields carry over.
func (s *Simulator) Evolve(current ambience.Environment) (ambience.Environment, error) {
	next := current
	next.Speed = min(evolveMaxSpeed, max(0, current.Speed+float64(s.rng.IntN(11)-5)))
	next.Timestamp = time.Time{}
	return ambience.NewEnvironment(next)
}

func (s *Simulator) lateNightReturn() ambience.Environment {
	return ambience.Environment{
		GpsTag:         ambience.GpsHighway,
		Weather:        ambience.WeatherSunny,
		TimeOfDay:      ambience.TimeNight,
		PassengerCount: 1,
		Speed:          float64(80 + s.rng.IntN(20)),
		UserMood:       ambience.MoodTired,
		Biometrics:     s.tiredBiometrics(),
		Location:       s.highwayLocation(),
	}
}

func (s *Simulator) weekendFamilyTrip() ambience.Environment {
	return ambience.Environment{
		GpsTag:         ambience.GpsCoastal,
		Weather:        ambience.WeatherSunny,
		TimeOfDay:      ambience.TimeMorning,
		PassengerCount: 3 + s.rng.IntN(2),
		Speed:          float64(40 + s.rng.IntN(30)),
		UserMood:       ambience.MoodHappy,
		Biometrics:     s.normalBiometrics(),
		Location:       s.coastalLocation(),
	}
}

func (s *Simulator) morningCommute() ambience.Environment {
	return ambience.Environment{
		GpsTag:         ambience.GpsUrban,
		Weather:        pick(s.rng, weathers...),
		TimeOfDay:      ambience.TimeMorning,
		PassengerCount: 1,
		Speed:          float64(20 + s.rng.IntN(40)),
		UserMood:       ambience.MoodCalm,
		Biometrics:     s.stressedBiometrics(),
		Location:       s.urbanLocation(),
	}
}

func (s *Simulator) random() ambience.Environment {
	return ambience.Environment{
		GpsTag:         pick(s.rng, gpsTags...),
		Weather:        pick(s.rng, weathers...),
		TimeOfDay:      pick(s.rng, timesOfDay...),
		PassengerCount: 1 + s.rng.IntN(4),
		Speed:          float64(s.rng.IntN(120)),
		UserMood:       pick(s.rng, moods...),
		Biometrics:     s.randomBiometrics(),
		Location:       s.randomLocation(),
	}
}

var (
	gpsTags = []ambience.GpsTag{
		ambience.GpsHighway, ambience.GpsTunnel, ambience.GpsBridge,
		ambience.GpsUrban, ambience.GpsSuburban, ambience.GpsMountain,
		ambience.GpsCoastal, ambience.GpsParking,
	}
	weathers = []ambience.Weather{
		ambience.WeatherSunny, ambience.WeatherCloudy, ambience.WeatherRainy,
		ambience.WeatherSnowy, ambience.WeatherFoggy,
	}
	timesOfDay = []ambience.TimeOfDay{
		ambience.TimeDawn, ambience.TimeMorning, ambience.TimeNoon,
		ambience.TimeAfternoon, ambience.TimeEvening, ambience.TimeNight,
		ambience.TimeMidnight,
	}
	moods = []ambience.UserMood{
		ambience.MoodHappy, ambience.MoodCalm, ambience.MoodTired,
		ambience.MoodStressed, ambience.MoodExcited,
	}
)

func pick[T any](rng *rand.Rand, values ...T) T {
	return values[rng.IntN(len(values))]
}

func (s *Simulator) normalBiometrics() *ambience.DriverBiometrics {
	return &ambience.DriverBiometrics{
		HeartRate:       70 + s.rng.IntN(15),
		StressLevel:     0.2 + s.rng.Float64()*0.2,
		FatigueLevel:    0.1 + s.rng.Float64()*0.2,
		BodyTemperature: 36.3 + s.rng.Float64()*0.4,
	}
}

func (s *Simulator) tiredBiometrics() *ambience.DriverBiometrics {
	return &ambience.DriverBiometrics{
		HeartRate:       65 + s.rng.IntN(10),
		StressLevel:     0.4 + s.rng.Float64()*0.2,
		FatigueLevel:    0.6 + s.rng.Float64()*0.3,
		BodyTemperature: 36.2 + s.rng.Float64()*0.3,
	}
}

func (s *Simulator) stressedBiometrics() *ambience.DriverBiometrics {
	return &ambience.DriverBiometrics{
		HeartRate:       85 + s.rng.IntN(20),
		StressLevel:     0.7 + s.rng.Float64()*0.2,
		FatigueLevel:    0.3 + s.rng.Float64()*0.2,
		BodyTemperature: 36.5 + s.rng.Float64()*0.5,
	}
}

func (s *Simulator) randomBiometrics() *ambience.DriverBiometrics {
	return &ambience.DriverBiometrics{
		HeartRate:       60 + s.rng.IntN(40),
		StressLevel:     s.rng.Float64(),
		FatigueLevel:    s.rng.Float64() * 0.8,
		BodyTemperature: 36.0 + s.rng.Float64(),
	}
}

func (s *Simulator) highwayLocation() *ambience.LocationInfo {
	return &ambience.LocationInfo{
		Latitude:     31.2304 + s.rng.Float64()*0.5,
		Longitude:    121.4737 + s.rng.Float64()*0.5,
		CityName:     "Shanghai",
		DistrictName: "Pudong",
		RoadName:     "Hu-Hang Expressway",
	}
}

func (s *Simulator) coastalLocation() *ambience.LocationInfo {
	return &ambience.LocationInfo{
		Latitude:     30.2741 + s.rng.Float64()*0.1,
		Longitude:    120.1551 + s.rng.Float64()*0.1,
		CityName:     "Hangzhou",
		DistrictName: "Xihu",
		RoadName:     "West Lake Scenic Road",
	}
}

func (s *Simulator) urbanLocation() *ambience.LocationInfo {
	return &ambience.LocationInfo{
		Latitude:     31.2304 + s.rng.Float64()*0.05,
		Longitude:    121.4737 + s.rng.Float64()*0.05,
		CityName:     "Shanghai",
		DistrictName: "Huangpu",
		RoadName:     "East Nanjing Road",
	}
}

func (s *Simulator) randomLocation() *ambience.LocationInfo {
	cities := []string{"Shanghai", "Beijing", "Hangzhou", "Shenzhen", "Guangzhou"}
	districts := []string{"Downtown", "Outskirts", "New District", "Development Zone"}
	return &ambience.LocationInfo{
		Latitude:     30 + s.rng.Float64()*10,
		Longitude:    115 + s.rng.Float64()*10,
		CityName:     pick(s.rng, cities...),
		DistrictName: pick(s.rng, districts...),
		RoadName:     "Main Road",
	}
}
