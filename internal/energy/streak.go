package energy

import "github.com/roman-kulish/lap-energy/internal/telemetry"

// Streak is a maximal run of consecutive samples sharing a mode
type Streak struct {
	ID      int            `json:"id"`
	Mode    telemetry.Mode `json:"mode"`
	First   int            `json:"first"`   // Index of the first sample
	Last    int            `json:"last"`    // Index of the last sample
	Samples int            `json:"samples"` // Number of samples
	Energy  float64        `json:"energy"`  // Sum of sample energies in J
}

// AssignStreaks numbers the runs of equal modes. The first sample starts
// streak 1 and every mode change starts the next one.
func AssignStreaks(samples []telemetry.Sample) {
	id := 0
	for i := range samples {
		if i == 0 || samples[i].Mode != samples[i-1].Mode {
			id++
		}
		samples[i].StreakID = id
	}
}

// Streaks groups samples by StreakID, in order of appearance. The mode of a
// streak is the mode of its first sample.
func Streaks(samples []telemetry.Sample) []Streak {
	var out []Streak
	index := make(map[int]int)
	for i := range samples {
		s := &samples[i]
		pos, ok := index[s.StreakID]
		if !ok {
			pos = len(out)
			index[s.StreakID] = pos
			out = append(out, Streak{ID: s.StreakID, Mode: s.Mode, First: i})
		}
		out[pos].Last = i
		out[pos].Samples++
		out[pos].Energy += s.Energy
	}
	return out
}
