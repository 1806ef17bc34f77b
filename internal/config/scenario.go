package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/fsutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/ocean"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/waveq3d"
)

// DefaultConfigPath is the path to the canonical scenario defaults file.
const DefaultConfigPath = "config/scenario.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Profile, boundary, attenuation and bottom loss model names.
const (
	ProfileLinear = "linear"
	ProfileMunk   = "munk"
	ProfileGrid   = "grid"

	BottomFlat  = "flat"
	BottomSlope = "slope"
	BottomGrid  = "grid"

	AttenuationNone     = "none"
	AttenuationConstant = "constant"
	AttenuationThorp    = "thorp"

	LossLossless = "lossless"
	LossConstant = "constant"
	LossRayleigh = "rayleigh"
)

// Fan is an evenly spaced launch angle sequence in degrees.
type Fan struct {
	First     float64 `json:"first"`
	Increment float64 `json:"increment"`
	Last      float64 `json:"last"`
}

// Angles expands the fan.
func (f Fan) Angles() []float64 {
	return waveq3d.Linear(f.First, f.Increment, f.Last)
}

// TargetGrid is a rectangular grid of targets at a single altitude.
type TargetGrid struct {
	Latitude  Fan     `json:"latitude"`
	Longitude Fan     `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Positions expands the grid, latitude varying slowest.
func (g TargetGrid) Positions() []geo.Position {
	var out []geo.Position
	for _, lat := range g.Latitude.Angles() {
		for _, lng := range g.Longitude.Angles() {
			out = append(out, geo.Position{Latitude: lat, Longitude: lng, Altitude: g.Altitude})
		}
	}
	return out
}

// EnvironmentConfig selects and parameterises the ocean models.
type EnvironmentConfig struct {
	Profile     *string  `json:"profile,omitempty"`     // linear, munk, grid
	SoundSpeed  *float64 `json:"sound_speed,omitempty"` // m/s at the surface (linear)
	Gradient    *float64 `json:"gradient,omitempty"`    // (m/s)/m (linear)
	Climatology *string  `json:"climatology,omitempty"` // JSON grid path (grid)

	Attenuation            *string  `json:"attenuation,omitempty"` // none, constant, thorp
	AttenuationCoefficient *float64 `json:"attenuation_coefficient,omitempty"`

	Bottom      *string  `json:"bottom,omitempty"`       // flat, slope, grid
	BottomDepth *float64 `json:"bottom_depth,omitempty"` // metres
	SlopeNorth  *float64 `json:"slope_north,omitempty"`  // depth change per metre north
	SlopeEast   *float64 `json:"slope_east,omitempty"`
	Bathymetry  *string  `json:"bathymetry,omitempty"` // JSON grid path (grid)

	BottomLoss   *string  `json:"bottom_loss,omitempty"` // lossless, constant, rayleigh
	BottomLossDB *float64 `json:"bottom_loss_db,omitempty"`
	BottomType   *string  `json:"bottom_type,omitempty"` // sediment name (rayleigh)
}

// ScenarioConfig is the root configuration of a propagation study.
type ScenarioConfig struct {
	Name        *string        `json:"name,omitempty"`
	Source      *geo.Position  `json:"source,omitempty"`
	Targets     []geo.Position `json:"targets,omitempty"`
	TargetGrid  *TargetGrid    `json:"target_grid,omitempty"`
	Frequencies []float64      `json:"frequencies,omitempty"`
	DE          *Fan           `json:"de,omitempty"`
	AZ          *Fan           `json:"az,omitempty"`
	TimeStep    *float64       `json:"time_step,omitempty"`
	TimeMax     *float64       `json:"time_max,omitempty"`
	Epoch       *string        `json:"epoch,omitempty"` // RFC 3339, selects climatology months

	Workers          *int     `json:"workers,omitempty"`
	MaxExtrapolation *float64 `json:"max_extrapolation,omitempty"`
	WavefrontEvery   *int     `json:"wavefront_every,omitempty"` // record every Nth slice; 0 disables
	FrequencyIndex   *int     `json:"frequency_index,omitempty"` // frequency reported in CSV tables

	Environment *EnvironmentConfig `json:"environment,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyScenarioConfig returns a ScenarioConfig with all fields unset.
func EmptyScenarioConfig() *ScenarioConfig {
	return &ScenarioConfig{}
}

// LoadScenarioConfig loads a ScenarioConfig from a JSON file on disk.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	return LoadScenarioConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadScenarioConfigFS loads a ScenarioConfig through fs. The file must have
// a .json extension and be under 1MB. Fields omitted from the file fall back
// to the Get* defaults, so partial configs are safe.
func LoadScenarioConfigFS(fs fsutil.FileSystem, path string) (*ScenarioConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScenarioConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical scenario from DefaultConfigPath,
// searching the current directory and its parents up to the repository
// root. Panics if the file cannot be loaded; intended for tests and tools.
func MustLoadDefaultConfig() *ScenarioConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadScenarioConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from the repository root")
}

// Validate checks that the configuration values are valid and reports the
// first problem found.
func (c *ScenarioConfig) Validate() error {
	if c.Source != nil {
		if !c.Source.IsFinite() || math.Abs(c.Source.Latitude) > 90 {
			return fmt.Errorf("source must be a finite position, got %+v", *c.Source)
		}
	}
	for i, t := range c.Targets {
		if !t.IsFinite() || math.Abs(t.Latitude) > 90 {
			return fmt.Errorf("targets[%d] must be a finite position, got %+v", i, t)
		}
	}
	if g := c.TargetGrid; g != nil {
		if err := checkFan("target_grid.latitude", g.Latitude); err != nil {
			return err
		}
		if err := checkFan("target_grid.longitude", g.Longitude); err != nil {
			return err
		}
	}
	for i, f := range c.Frequencies {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("frequencies[%d] must be positive, got %g", i, f)
		}
	}
	if c.DE != nil {
		if err := checkFan("de", *c.DE); err != nil {
			return err
		}
	}
	if c.AZ != nil {
		if err := checkFan("az", *c.AZ); err != nil {
			return err
		}
	}
	if c.TimeStep != nil && !(*c.TimeStep > 0) {
		return fmt.Errorf("time_step must be positive, got %g", *c.TimeStep)
	}
	if c.TimeMax != nil && !(*c.TimeMax > 0) {
		return fmt.Errorf("time_max must be positive, got %g", *c.TimeMax)
	}
	if c.Epoch != nil && *c.Epoch != "" {
		if _, err := time.Parse(time.RFC3339, *c.Epoch); err != nil {
			return fmt.Errorf("invalid epoch '%s': %w", *c.Epoch, err)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MaxExtrapolation != nil && *c.MaxExtrapolation < 0 {
		return fmt.Errorf("max_extrapolation must be non-negative, got %g", *c.MaxExtrapolation)
	}
	if c.WavefrontEvery != nil && *c.WavefrontEvery < 0 {
		return fmt.Errorf("wavefront_every must be non-negative, got %d", *c.WavefrontEvery)
	}
	if c.FrequencyIndex != nil {
		if n := len(c.GetFrequencies()); *c.FrequencyIndex < 0 || *c.FrequencyIndex >= n {
			return fmt.Errorf("frequency_index must be in [0, %d), got %d", n, *c.FrequencyIndex)
		}
	}
	if c.Environment != nil {
		return c.Environment.Validate()
	}
	return nil
}

func checkFan(name string, f Fan) error {
	if f.Increment == 0 || math.IsNaN(f.Increment) || math.IsInf(f.Increment, 0) {
		return fmt.Errorf("%s.increment must be non-zero and finite, got %g", name, f.Increment)
	}
	if (f.Last-f.First)/f.Increment < 0 {
		return fmt.Errorf("%s.increment %g does not step from %g towards %g", name, f.Increment, f.First, f.Last)
	}
	return nil
}

// Validate checks the environment section.
func (e *EnvironmentConfig) Validate() error {
	switch p := e.GetProfile(); p {
	case ProfileLinear, ProfileMunk:
	case ProfileGrid:
		if e.GetClimatology() == "" {
			return fmt.Errorf("profile %q requires environment.climatology", p)
		}
	default:
		return fmt.Errorf("unknown profile %q", p)
	}
	if e.SoundSpeed != nil && !(*e.SoundSpeed > 0) {
		return fmt.Errorf("sound_speed must be positive, got %g", *e.SoundSpeed)
	}
	switch a := e.GetAttenuation(); a {
	case AttenuationNone, AttenuationThorp:
	case AttenuationConstant:
		if e.GetAttenuationCoefficient() < 0 {
			return fmt.Errorf("attenuation_coefficient must be non-negative, got %g", e.GetAttenuationCoefficient())
		}
	default:
		return fmt.Errorf("unknown attenuation %q", a)
	}
	switch b := e.GetBottom(); b {
	case BottomFlat, BottomSlope:
		if !(e.GetBottomDepth() > 0) {
			return fmt.Errorf("bottom_depth must be positive, got %g", e.GetBottomDepth())
		}
	case BottomGrid:
		if e.GetBathymetry() == "" {
			return fmt.Errorf("bottom %q requires environment.bathymetry", b)
		}
	default:
		return fmt.Errorf("unknown bottom %q", b)
	}
	switch l := e.GetBottomLoss(); l {
	case LossLossless:
	case LossConstant:
		if e.GetBottomLossDB() < 0 {
			return fmt.Errorf("bottom_loss_db must be non-negative, got %g", e.GetBottomLossDB())
		}
	case LossRayleigh:
		if _, err := ocean.NewReflectLossRayleigh(ocean.BottomType(e.GetBottomType())); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown bottom_loss %q", l)
	}
	return nil
}

// GetName returns the scenario name or the default.
func (c *ScenarioConfig) GetName() string {
	if c.Name == nil {
		return "scenario"
	}
	return *c.Name
}

// GetSource returns the source position or the default.
func (c *ScenarioConfig) GetSource() geo.Position {
	if c.Source == nil {
		return geo.Position{Latitude: 45, Longitude: -45, Altitude: -1000}
	}
	return *c.Source
}

// GetTargets returns the explicit targets followed by the target grid.
// With neither set, a single target 0.02 degrees north of the source at
// the source depth is returned.
func (c *ScenarioConfig) GetTargets() []geo.Position {
	var out []geo.Position
	out = append(out, c.Targets...)
	if c.TargetGrid != nil {
		out = append(out, c.TargetGrid.Positions()...)
	}
	if len(out) == 0 {
		s := c.GetSource()
		out = append(out, geo.Position{Latitude: s.Latitude + 0.02, Longitude: s.Longitude, Altitude: s.Altitude})
	}
	return out
}

// GetFrequencies returns the frequencies in Hz or the default.
func (c *ScenarioConfig) GetFrequencies() []float64 {
	if len(c.Frequencies) == 0 {
		return []float64{10e3}
	}
	return c.Frequencies
}

// GetDE returns the D/E launch angles in degrees.
func (c *ScenarioConfig) GetDE() []float64 {
	if c.DE == nil {
		return waveq3d.Linear(-60, 1, 60)
	}
	return c.DE.Angles()
}

// GetAZ returns the AZ launch angles in degrees.
func (c *ScenarioConfig) GetAZ() []float64 {
	if c.AZ == nil {
		return waveq3d.Linear(-4, 1, 4)
	}
	return c.AZ.Angles()
}

// GetTimeStep returns the time step in seconds.
func (c *ScenarioConfig) GetTimeStep() float64 {
	if c.TimeStep == nil {
		return 0.1
	}
	return *c.TimeStep
}

// GetTimeMax returns the propagation time limit in seconds.
func (c *ScenarioConfig) GetTimeMax() float64 {
	if c.TimeMax == nil {
		return 3.5
	}
	return *c.TimeMax
}

// GetEpoch returns the wall-clock time of the start of propagation.
func (c *ScenarioConfig) GetEpoch() time.Time {
	if c.Epoch == nil || *c.Epoch == "" {
		return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	t, err := time.Parse(time.RFC3339, *c.Epoch)
	if err != nil {
		return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// GetWorkers returns the worker count; 0 means one per CPU.
func (c *ScenarioConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetMaxExtrapolation returns the extrapolation limit in cells.
func (c *ScenarioConfig) GetMaxExtrapolation() float64 {
	if c.MaxExtrapolation == nil {
		return waveq3d.DefaultQueueConfig().MaxExtrapolation
	}
	return *c.MaxExtrapolation
}

// GetWavefrontEvery returns the wavefront recording stride.
func (c *ScenarioConfig) GetWavefrontEvery() int {
	if c.WavefrontEvery == nil {
		return 1
	}
	return *c.WavefrontEvery
}

// GetFrequencyIndex returns the frequency reported in CSV tables.
func (c *ScenarioConfig) GetFrequencyIndex() int {
	if c.FrequencyIndex == nil {
		return 0
	}
	return *c.FrequencyIndex
}

// GetEnvironment returns the environment section, never nil.
func (c *ScenarioConfig) GetEnvironment() *EnvironmentConfig {
	if c.Environment == nil {
		return &EnvironmentConfig{}
	}
	return c.Environment
}

// QueueConfig maps the tuning fields onto a wavefront queue configuration.
func (c *ScenarioConfig) QueueConfig() waveq3d.QueueConfig {
	cfg := waveq3d.DefaultQueueConfig()
	cfg.Workers = c.GetWorkers()
	cfg.MaxExtrapolation = c.GetMaxExtrapolation()
	return cfg
}

// GetProfile returns the profile model name.
func (e *EnvironmentConfig) GetProfile() string {
	if e.Profile == nil {
		return ProfileLinear
	}
	return *e.Profile
}

// GetSoundSpeed returns the surface sound speed for the linear profile.
func (e *EnvironmentConfig) GetSoundSpeed() float64 {
	if e.SoundSpeed == nil {
		return 1500
	}
	return *e.SoundSpeed
}

// GetGradient returns the sound speed gradient for the linear profile.
func (e *EnvironmentConfig) GetGradient() float64 {
	if e.Gradient == nil {
		return 0
	}
	return *e.Gradient
}

// GetClimatology returns the climatology grid path.
func (e *EnvironmentConfig) GetClimatology() string {
	if e.Climatology == nil {
		return ""
	}
	return *e.Climatology
}

// GetAttenuation returns the attenuation model name.
func (e *EnvironmentConfig) GetAttenuation() string {
	if e.Attenuation == nil {
		return AttenuationNone
	}
	return *e.Attenuation
}

// GetAttenuationCoefficient returns the constant attenuation in dB/(m Hz).
func (e *EnvironmentConfig) GetAttenuationCoefficient() float64 {
	if e.AttenuationCoefficient == nil {
		return 0
	}
	return *e.AttenuationCoefficient
}

// GetBottom returns the bottom model name.
func (e *EnvironmentConfig) GetBottom() string {
	if e.Bottom == nil {
		return BottomFlat
	}
	return *e.Bottom
}

// GetBottomDepth returns the flat or reference bottom depth in metres.
func (e *EnvironmentConfig) GetBottomDepth() float64 {
	if e.BottomDepth == nil {
		return 3000
	}
	return *e.BottomDepth
}

// GetSlopeNorth returns the northward bottom slope.
func (e *EnvironmentConfig) GetSlopeNorth() float64 {
	if e.SlopeNorth == nil {
		return 0
	}
	return *e.SlopeNorth
}

// GetSlopeEast returns the eastward bottom slope.
func (e *EnvironmentConfig) GetSlopeEast() float64 {
	if e.SlopeEast == nil {
		return 0
	}
	return *e.SlopeEast
}

// GetBathymetry returns the bathymetry grid path.
func (e *EnvironmentConfig) GetBathymetry() string {
	if e.Bathymetry == nil {
		return ""
	}
	return *e.Bathymetry
}

// GetBottomLoss returns the bottom reflection model name.
func (e *EnvironmentConfig) GetBottomLoss() string {
	if e.BottomLoss == nil {
		return LossLossless
	}
	return *e.BottomLoss
}

// GetBottomLossDB returns the constant bottom loss in dB.
func (e *EnvironmentConfig) GetBottomLossDB() float64 {
	if e.BottomLossDB == nil {
		return 0
	}
	return *e.BottomLossDB
}

// GetBottomType returns the sediment name for the Rayleigh model.
func (e *EnvironmentConfig) GetBottomType() string {
	if e.BottomType == nil {
		return string(ocean.Sand)
	}
	return *e.BottomType
}
