package venting

import "math/rand/v2"

// Level is the discrete expression level shown to the user
type Level string

const (
	Whisper Level = "whisper"
	Normal  Level = "normal"
	Loud    Level = "loud"
	Shout   Level = "shout"
	Scream  Level = "scream"
)

// Levels lists every level from quietest to loudest
var Levels = []Level{Whisper, Normal, Loud, Shout, Scream}

// Classify maps an intensity in [0, 100] onto a level.
// Lower bounds are inclusive, upper bounds exclusive.
func Classify(intensity float64) Level {
	switch {
	case intensity >= 90:
		return Scream
	case intensity >= 70:
		return Shout
	case intensity >= 50:
		return Loud
	case intensity >= 30:
		return Normal
	default:
		return Whisper
	}
}

// ParseLevel returns the level named s
func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// DefaultMessages are the encouragement pools shown on level changes
var DefaultMessages = map[Level][]string{
	Whisper: {
		"Take a deep breath. Whenever you're ready, let it out.",
		"It's okay to start small.",
		"This is your space. No one is judging.",
		"Go at your own pace.",
	},
	Normal: {
		"That's it, keep going.",
		"You're finding your voice.",
		"Let a little more out.",
		"Good. Stay with it.",
	},
	Loud: {
		"Yes! Let it out!",
		"You're doing great, don't hold back.",
		"Feel that release.",
		"Louder if you need to!",
	},
	Shout: {
		"That's the spirit! Shout it out!",
		"Let all that tension go!",
		"Powerful! Keep it coming!",
		"You've got this!",
	},
	Scream: {
		"SCREAM IT OUT! You deserve this release!",
		"Incredible! Let everything go!",
		"Nothing is holding you back now!",
		"That's a real release. Well done!",
	},
}

// Selector picks one message from a level's pool
type Selector func(level Level, pool []string) string

// RandomSelector picks uniformly at random
func RandomSelector(_ Level, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))]
}

// mergeMessages overlays non-empty overrides on top of DefaultMessages
func mergeMessages(overrides map[Level][]string) map[Level][]string {
	pools := make(map[Level][]string, len(DefaultMessages))
	for l, p := range DefaultMessages {
		pools[l] = p
	}
	for l, p := range overrides {
		if len(p) > 0 {
			pools[l] = p
		}
	}
	return pools
}
