package catalog

import "time"

// Component is a trackable maintenance item.
type Component string

const (
	OilChange    Component = "oil_change"
	TireChange   Component = "tire_change"
	TimingBelt   Component = "timing_belt"
	BrakePad     Component = "brake_pad"
	AirFilter    Component = "air_filter"
	FuelFilter   Component = "fuel_filter"
	SparkPlugs   Component = "spark_plugs"
	Battery      Component = "battery"
	SeasonalTire Component = "seasonal_tire"
	Insurance    Component = "insurance"
	Registration Component = "registration"
)

// components holds the canonical ordering used for deterministic ranking.
var components = []Component{
	OilChange,
	TireChange,
	TimingBelt,
	BrakePad,
	AirFilter,
	FuelFilter,
	SparkPlugs,
	Battery,
	SeasonalTire,
	Insurance,
	Registration,
}

// Components returns all known components in canonical order.
func Components() []Component {
	out := make([]Component, len(components))
	copy(out, components)
	return out
}

// Index returns the canonical position of a component, or -1 if unknown.
func Index(c Component) int {
	for i, known := range components {
		if known == c {
			return i
		}
	}
	return -1
}

// Valid reports whether c is a known component.
func (c Component) Valid() bool {
	return Index(c) >= 0
}

// TrackingMode says what governs a component's due-ness.
type TrackingMode string

const (
	ModeMileage       TrackingMode = "mileage"
	ModeTime          TrackingMode = "time"
	ModeMileageOrTime TrackingMode = "mileage_or_time"
)

// AvgAnnualDistanceKm converts remaining time into a distance-comparable
// scalar when ranking mileage-based and calendar-based items together.
const AvgAnnualDistanceKm = 12000

// Year approximates a calendar year for interval math.
const Year = 365 * 24 * time.Hour

// ExpiryDueSoonWindow is the warning window for expiry-style items
// (insurance, registration) where a percentage of the interval would be
// too wide.
const ExpiryDueSoonWindow = 30 * 24 * time.Hour

// Interval describes how often a component needs service.
type Interval struct {
	Mode          TrackingMode
	DistanceKm    int
	Duration      time.Duration
	DueSoonKm     int           // 0 means 10% of DistanceKm
	DueSoonWindow time.Duration // 0 means 10% of Duration, or 30 days for expiry items
	Expiry        bool          // expiry-style item (insurance, registration)
}

// DueSoonDistance returns the distance warning threshold in km.
func (iv Interval) DueSoonDistance() int {
	if iv.DueSoonKm > 0 {
		return iv.DueSoonKm
	}
	return iv.DistanceKm / 10
}

// DueSoonDuration returns the time warning window.
func (iv Interval) DueSoonDuration() time.Duration {
	if iv.DueSoonWindow > 0 {
		return iv.DueSoonWindow
	}
	if iv.Expiry {
		return ExpiryDueSoonWindow
	}
	return iv.Duration / 10
}

// TracksDistance reports whether the interval has a mileage dimension.
func (iv Interval) TracksDistance() bool {
	return iv.Mode == ModeMileage || iv.Mode == ModeMileageOrTime
}

// TracksTime reports whether the interval has a calendar dimension.
func (iv Interval) TracksTime() bool {
	return iv.Mode == ModeTime || iv.Mode == ModeMileageOrTime
}

// Catalog maps components to their service intervals. Components missing
// from the catalog are excluded from scheduling.
type Catalog map[Component]Interval

// Default returns the built-in interval catalog. Deployments can copy and
// override entries; the engine only reads it.
func Default() Catalog {
	return Catalog{
		OilChange:    {Mode: ModeMileageOrTime, DistanceKm: 15000, Duration: Year},
		TireChange:   {Mode: ModeMileage, DistanceKm: 40000},
		TimingBelt:   {Mode: ModeMileageOrTime, DistanceKm: 100000, Duration: 6 * Year},
		BrakePad:     {Mode: ModeMileage, DistanceKm: 30000},
		AirFilter:    {Mode: ModeMileage, DistanceKm: 15000},
		FuelFilter:   {Mode: ModeMileage, DistanceKm: 30000},
		SparkPlugs:   {Mode: ModeMileage, DistanceKm: 40000},
		Battery:      {Mode: ModeTime, Duration: 4 * Year},
		SeasonalTire: {Mode: ModeTime, Duration: 182 * 24 * time.Hour},
		Insurance:    {Mode: ModeTime, Duration: Year, Expiry: true},
		Registration: {Mode: ModeTime, Duration: Year, Expiry: true},
	}
}
