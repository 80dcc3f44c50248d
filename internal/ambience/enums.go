package ambience

// GpsTag classifies the vehicle's current location.
type GpsTag string

const (
	GpsHighway  GpsTag = "HIGHWAY"
	GpsTunnel   GpsTag = "TUNNEL"
	GpsBridge   GpsTag = "BRIDGE"
	GpsUrban    GpsTag = "URBAN"
	GpsSuburban GpsTag = "SUBURBAN"
	GpsMountain GpsTag = "MOUNTAIN"
	GpsCoastal  GpsTag = "COASTAL"
	GpsParking  GpsTag = "PARKING"
)

// IsHighSpeedScenario reports whether this location class implies
// sustained high speed regardless of the instantaneous reading.
func (g GpsTag) IsHighSpeedScenario() bool {
	return g == GpsHighway || g == GpsTunnel || g == GpsBridge
}

// Weather is the current weather condition.
type Weather string

const (
	WeatherSunny  Weather = "SUNNY"
	WeatherCloudy Weather = "CLOUDY"
	WeatherRainy  Weather = "RAINY"
	WeatherSnowy  Weather = "SNOWY"
	WeatherFoggy  Weather = "FOGGY"
)

// IsSevere reports whether the weather calls for a calmer ambience.
func (w Weather) IsSevere() bool {
	return w == WeatherRainy || w == WeatherSnowy || w == WeatherFoggy
}

// UserMood is the detected emotional state of the user.
type UserMood string

const (
	MoodHappy    UserMood = "HAPPY"
	MoodCalm     UserMood = "CALM"
	MoodTired    UserMood = "TIRED"
	MoodStressed UserMood = "STRESSED"
	MoodExcited  UserMood = "EXCITED"
)

// NeedsSoothing reports whether the mood calls for a soothing ambience.
func (m UserMood) NeedsSoothing() bool {
	return m == MoodTired || m == MoodStressed
}

// NeedsEnergizing reports whether the mood suits an energetic ambience.
func (m UserMood) NeedsEnergizing() bool {
	return m == MoodHappy || m == MoodExcited
}

// TimeOfDay is the coarse time-of-day bucket.
type TimeOfDay string

const (
	TimeDawn      TimeOfDay = "DAWN"
	TimeMorning   TimeOfDay = "MORNING"
	TimeNoon      TimeOfDay = "NOON"
	TimeAfternoon TimeOfDay = "AFTERNOON"
	TimeEvening   TimeOfDay = "EVENING"
	TimeNight     TimeOfDay = "NIGHT"
	TimeMidnight  TimeOfDay = "MIDNIGHT"
)

// IsLateNight reports whether this is a late-night bucket.
func (t TimeOfDay) IsLateNight() bool {
	return t == TimeNight || t == TimeMidnight
}

// RouteType classifies the planned route.
type RouteType string

const (
	RouteHighway  RouteType = "HIGHWAY"
	RouteUrban    RouteType = "URBAN"
	RouteMountain RouteType = "MOUNTAIN"
	RouteCoastal  RouteType = "COASTAL"
	RouteTunnel   RouteType = "TUNNEL"
)

// LightMode is the animation mode of the ambient lighting.
type LightMode string

const (
	LightStatic    LightMode = "STATIC"
	LightBreathing LightMode = "BREATHING"
	LightGradient  LightMode = "GRADIENT"
	LightPulse     LightMode = "PULSE"
)

// IsDynamic reports whether the mode animates. Dynamic modes are
// disallowed above the focus-mode speed threshold.
func (m LightMode) IsDynamic() bool {
	return m != LightStatic
}

// ScentType identifies a cartridge in the scent diffuser.
type ScentType string

const (
	ScentLavender   ScentType = "LAVENDER"
	ScentPeppermint ScentType = "PEPPERMINT"
	ScentOcean      ScentType = "OCEAN"
	ScentForest     ScentType = "FOREST"
	ScentCitrus     ScentType = "CITRUS"
	ScentVanilla    ScentType = "VANILLA"
	ScentNone       ScentType = "NONE"
)

// MassageMode is the seat massage program.
type MassageMode string

const (
	MassageRelax    MassageMode = "RELAX"
	MassageEnergize MassageMode = "ENERGIZE"
	MassageComfort  MassageMode = "COMFORT"
	MassageSport    MassageMode = "SPORT"
	MassageOff      MassageMode = "OFF"
)

// IsSafeForHighSpeed reports whether the program is permitted while the
// vehicle is in a restricted safety mode. Intense programs distract.
func (m MassageMode) IsSafeForHighSpeed() bool {
	return m == MassageOff || m == MassageComfort
}

// MassageZone is a seat region the massage program targets.
type MassageZone string

const (
	ZoneBack     MassageZone = "BACK"
	ZoneLumbar   MassageZone = "LUMBAR"
	ZoneShoulder MassageZone = "SHOULDER"
	ZoneThigh    MassageZone = "THIGH"
	ZoneAll      MassageZone = "ALL"
)

// NarrativeEmotion is the emotional coloring of the TTS narration.
type NarrativeEmotion string

const (
	EmotionWarm        NarrativeEmotion = "WARM"
	EmotionEnergetic   NarrativeEmotion = "ENERGETIC"
	EmotionRomantic    NarrativeEmotion = "ROMANTIC"
	EmotionAdventurous NarrativeEmotion = "ADVENTUROUS"
	EmotionCalm        NarrativeEmotion = "CALM"
)
