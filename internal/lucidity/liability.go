package lucidity

// LiabilityCatalog is the ordered set of codes a severe or worsening loss
// can inflict. The first entry doubles as the fallback when an actor
// already carries everything.
var LiabilityCatalog = []string{
	"paranoia",
	"night_terrors",
	"tremors",
	"heard_whispers",
	"phantom_stench",
	"mistrust",
	"wandering_eye",
}

// rollLiability picks a catalog code the actor does not already carry,
// using draw for the selection. Falls back to the first catalog entry when
// every code is taken or no entropy source is available.
func rollLiability(rec Record, draw func(n int) int) string {
	var open []string
	for _, code := range LiabilityCatalog {
		if !rec.HasLiability(code) {
			open = append(open, code)
		}
	}
	if len(open) == 0 {
		return LiabilityCatalog[0]
	}
	if draw == nil {
		return open[0]
	}
	return open[draw(len(open))]
}
