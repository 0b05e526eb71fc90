package scenario

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/model"
	"github.com/arnewlabs/trajopt/internal/models"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// RegistryEntry binds a model name to its dynamics, default boundary
// values, and any scenario-specific constraints a Document can opt into
// (e.g. the car-parking obstacle). This is the string-dispatch idiom of
// the teacher's Config.GetInitState switch, generalized from a fixed
// case statement to a lookup table so new models register themselves
// rather than growing a switch.
type RegistryEntry struct {
	Dyn          model.Dynamics
	InitialState traj.State
	Goal         traj.State
	Constraints  func(doc *Document) *constraint.Builder
}

// Registry lists every model a scenario file can select via Document.Model.
var Registry = map[string]RegistryEntry{
	"double_integrator": {
		Dyn:          models.DoubleIntegrator{},
		InitialState: models.DoubleIntegrator{}.InitialState(),
		Goal:         models.DoubleIntegrator{}.Goal(),
		Constraints:  noConstraints,
	},
	"pendulum": {
		Dyn:          models.NewPendulum(),
		InitialState: models.NewPendulum().InitialState(),
		Goal:         models.NewPendulum().Goal(),
		Constraints:  noConstraints,
	},
	"cartpole": {
		Dyn:          models.NewCartPole(),
		InitialState: models.NewCartPole().InitialState(),
		Goal:         models.NewCartPole().Goal(),
		Constraints:  noConstraints,
	},
	"car_parking": {
		Dyn:          models.NewCarParking(),
		InitialState: models.NewCarParking().InitialState(),
		Goal:         models.NewCarParking().Goal(),
		Constraints:  carParkingConstraints,
	},
}

func noConstraints(*Document) *constraint.Builder { return constraint.NewBuilder() }

func carParkingConstraints(doc *Document) *constraint.Builder {
	b := constraint.NewBuilder()
	if doc.Obstacle != nil {
		o := models.Obstacle{CX: doc.Obstacle.CX, CY: doc.Obstacle.CY, Radius: doc.Obstacle.Radius}
		b.Add(models.ObstacleConstraint(o))
	}
	return b
}

// Presets holds canned Documents per model, the named-scenario idiom of
// the teacher's config.Presets map.
var Presets = map[string]map[string]*Document{
	"pendulum": {
		"swing_up": {
			Model: "pendulum",
			X0:    []float64{0, 0},
			Xf:    []float64{3.14159265, 0},
			Knots: 60, Tf: 2.5,
		},
	},
	"cartpole": {
		"swing_up": {
			Model: "cartpole",
			X0:    []float64{0, 0, 0, 0},
			Xf:    []float64{0, 0, 3.14159265, 0},
			Knots: 101, Tf: 5.0,
		},
	},
	"car_parking": {
		"parallel_park": {
			Model:    "car_parking",
			X0:       []float64{0, 0, 0, 0},
			Xf:       []float64{10, 0, 0, 0},
			Knots:    101, Tf: 8.0,
			Obstacle: &ObstacleDoc{CX: 5, CY: 0, Radius: 1.5},
		},
	},
	"double_integrator": {
		"minimum_time": {
			Model:       "double_integrator",
			X0:          []float64{-1, 0},
			Xf:          []float64{0, 0},
			Knots:       41, Tf: 2.0,
			MinimumTime: true,
			Options:     OptionsDoc{RMinimumTime: 1.0},
		},
	},
}

// GetPreset returns a named scenario Document, or nil if model/name is
// unknown.
func GetPreset(modelName, name string) *Document {
	m, ok := Presets[modelName]
	if !ok {
		return nil
	}
	return m[name]
}

// ListPresets lists every preset name registered for a model.
func ListPresets(modelName string) []string {
	m, ok := Presets[modelName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
