package rules

// lengthSensitive marks the run-shaped types that additionally require equal
// card counts to be comparable.
var lengthSensitive = map[HandType]bool{
	Straight:         true,
	StraightPair:     true,
	Airplane:         true,
	AirplaneWithPair: true,
}

// Beats reports whether candidate may legally be played over reference. In
// free play (reference is nil or freePlay is set) any classified hand is
// accepted. A rocket beats everything; a bomb beats everything except a
// bigger bomb; otherwise the hands must share type and, for the run shapes,
// size, with the candidate's power strictly higher.
func Beats(candidate, reference *Hand, freePlay bool) bool {
	if freePlay || reference == nil {
		return true
	}

	switch candidate.Type {
	case Rocket:
		return true
	case Bomb:
		if reference.Type == Bomb {
			return candidate.Power > reference.Power
		}
		return true
	}

	if candidate.Type != reference.Type {
		return false
	}
	if candidate.Power <= reference.Power {
		return false
	}
	if lengthSensitive[candidate.Type] && candidate.Size() != reference.Size() {
		return false
	}
	return true
}
