package lucidity

import "time"

// EncounterProfile holds the stability deltas for one hostile-encounter
// category: a steep first-time hit and a smaller repeat hit that
// acclimation eventually halves.
type EncounterProfile struct {
	FirstTime int `json:"first_time"`
	Repeat    int `json:"repeat"`
}

// RecoveryProfile is one recovery ritual: the restored delta and how long
// the actor must wait before repeating it.
type RecoveryProfile struct {
	Delta    int           `json:"delta"`
	Cooldown time.Duration `json:"cooldown"`
}

// Catalogs bundles the static effect configuration. Loaded once at
// startup; never hot-reloaded mid-process.
type Catalogs struct {
	Encounters map[string]EncounterProfile
	Recoveries map[string]RecoveryProfile

	// AcclimationThreshold is the encounter count at which repeat
	// penalties for an archetype are halved.
	AcclimationThreshold int

	// LossThreshold is the single-hit magnitude at which a liability is
	// rolled even without a tier change.
	LossThreshold int
}

// DefaultCatalogs returns the built-in effect configuration.
func DefaultCatalogs() Catalogs {
	return Catalogs{
		Encounters: map[string]EncounterProfile{
			"unsettling": {FirstTime: -5, Repeat: -2},
			"horrific":   {FirstTime: -15, Repeat: -6},
			"grotesque":  {FirstTime: -20, Repeat: -8},
			"eldritch":   {FirstTime: -30, Repeat: -1},
		},
		Recoveries: map[string]RecoveryProfile{
			"steady_breath":   {Delta: 3, Cooldown: 5 * time.Minute},
			"meditate":        {Delta: 5, Cooldown: 15 * time.Minute},
			"commune":         {Delta: 10, Cooldown: time.Hour},
			"rite_of_clarity": {Delta: 20, Cooldown: 6 * time.Hour},
		},
		AcclimationThreshold: 6,
		LossThreshold:        15,
	}
}
