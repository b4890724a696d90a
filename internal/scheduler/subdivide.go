package scheduler

import (
	"math"
	"time"
)

// ChildSpec describes one subtask to subdivide a parent's allocation over.
// Minutes is the subtask's estimated effort; the actual share is scaled to
// the parent's allocated total. Children carries the next hierarchy level.
type ChildSpec struct {
	TaskID   uint
	Minutes  int
	Children []ChildSpec
}

// ChildLine is one subdivided interval for a subtask. It mirrors an
// allocation row but does not consume calendar capacity.
type ChildLine struct {
	ParentTaskID uint
	TaskID       uint
	Level        int
	Date         time.Time
	StartMinutes int
	EndMinutes   int
}

// Subdivide splits the parent's allocation lines among its children in
// proportion to their estimated minutes, filling each line sequentially so
// children keep the parent's date order. Children with their own children
// are subdivided recursively one level deeper. Children with zero estimates
// share evenly.
func Subdivide(parentID uint, lines []Line, children []ChildSpec, level int) []ChildLine {
	if len(children) == 0 || len(lines) == 0 {
		return nil
	}

	total := 0
	for _, l := range lines {
		total += l.Minutes()
	}
	weights := make([]int, len(children))
	sum := 0
	for i, c := range children {
		weights[i] = c.Minutes
		sum += c.Minutes
	}
	if sum <= 0 {
		for i := range weights {
			weights[i] = 1
		}
		sum = len(weights)
	}

	var out []ChildLine
	cursorLine := 0
	cursorPos := lines[0].StartMinutes
	used := 0
	prefix := 0

	for i, c := range children {
		prefix += weights[i]
		boundary := int(math.Round(float64(total) * float64(prefix) / float64(sum)))

		var share []Line
		for used < boundary && cursorLine < len(lines) {
			l := lines[cursorLine]
			take := boundary - used
			if room := l.EndMinutes - cursorPos; take > room {
				take = room
			}
			share = append(share, Line{Date: l.Date, StartMinutes: cursorPos, EndMinutes: cursorPos + take})
			cursorPos += take
			used += take
			if cursorPos >= l.EndMinutes {
				cursorLine++
				if cursorLine < len(lines) {
					cursorPos = lines[cursorLine].StartMinutes
				}
			}
		}

		for _, s := range share {
			out = append(out, ChildLine{
				ParentTaskID: parentID,
				TaskID:       c.TaskID,
				Level:        level,
				Date:         s.Date,
				StartMinutes: s.StartMinutes,
				EndMinutes:   s.EndMinutes,
			})
		}
		out = append(out, Subdivide(c.TaskID, share, c.Children, level+1)...)
	}
	return out
}
