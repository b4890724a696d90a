package scheduler

import (
	"testing"
)

func TestSubdivide_EvenSplit(t *testing.T) {
	lines := []Line{
		{Date: monday, StartMinutes: 9 * 60, EndMinutes: 13 * 60},
		{Date: monday, StartMinutes: 14 * 60, EndMinutes: 18 * 60},
	}
	children := []ChildSpec{
		{TaskID: 11, Minutes: 240},
		{TaskID: 12, Minutes: 240},
	}

	out := Subdivide(1, lines, children, 1)

	if len(out) != 2 {
		t.Fatalf("expected 2 child lines, got %d", len(out))
	}
	first, second := out[0], out[1]
	if first.TaskID != 11 || first.StartMinutes != 9*60 || first.EndMinutes != 13*60 {
		t.Errorf("first child line = task %d %s-%s", first.TaskID, Clock(first.StartMinutes), Clock(first.EndMinutes))
	}
	if second.TaskID != 12 || second.StartMinutes != 14*60 || second.EndMinutes != 18*60 {
		t.Errorf("second child line = task %d %s-%s", second.TaskID, Clock(second.StartMinutes), Clock(second.EndMinutes))
	}
	for _, cl := range out {
		if cl.ParentTaskID != 1 || cl.Level != 1 {
			t.Errorf("child line parent/level = %d/%d, want 1/1", cl.ParentTaskID, cl.Level)
		}
	}
}

func TestSubdivide_ProportionalAcrossLineBoundary(t *testing.T) {
	lines := []Line{
		{Date: monday, StartMinutes: 9 * 60, EndMinutes: 13 * 60},
		{Date: monday, StartMinutes: 14 * 60, EndMinutes: 18 * 60},
	}
	// 1:3 split of 8h: first child 2h, second child 6h spanning the gap.
	children := []ChildSpec{
		{TaskID: 11, Minutes: 60},
		{TaskID: 12, Minutes: 180},
	}

	out := Subdivide(1, lines, children, 1)

	if len(out) != 3 {
		t.Fatalf("expected 3 child lines, got %d", len(out))
	}
	if out[0].TaskID != 11 || out[0].EndMinutes != 11*60 {
		t.Errorf("first share ends at %s, want 11:00", Clock(out[0].EndMinutes))
	}
	if out[1].TaskID != 12 || out[1].StartMinutes != 11*60 || out[1].EndMinutes != 13*60 {
		t.Errorf("second share first segment = %s-%s", Clock(out[1].StartMinutes), Clock(out[1].EndMinutes))
	}
	if out[2].TaskID != 12 || out[2].StartMinutes != 14*60 || out[2].EndMinutes != 18*60 {
		t.Errorf("second share second segment = %s-%s", Clock(out[2].StartMinutes), Clock(out[2].EndMinutes))
	}

	total := 0
	for _, cl := range out {
		total += cl.EndMinutes - cl.StartMinutes
	}
	if total != 480 {
		t.Errorf("child lines cover %d min, want 480", total)
	}
}

func TestSubdivide_NestedLevels(t *testing.T) {
	lines := []Line{{Date: monday, StartMinutes: 9 * 60, EndMinutes: 11 * 60}}
	children := []ChildSpec{
		{TaskID: 11, Minutes: 120, Children: []ChildSpec{
			{TaskID: 21, Minutes: 60},
			{TaskID: 22, Minutes: 60},
		}},
	}

	out := Subdivide(1, lines, children, 1)

	if len(out) != 3 {
		t.Fatalf("expected 3 child lines, got %d", len(out))
	}
	if out[0].Level != 1 || out[0].ParentTaskID != 1 || out[0].TaskID != 11 {
		t.Errorf("level 1 line = parent %d task %d level %d", out[0].ParentTaskID, out[0].TaskID, out[0].Level)
	}
	if out[1].Level != 2 || out[1].ParentTaskID != 11 || out[1].TaskID != 21 {
		t.Errorf("level 2 line = parent %d task %d level %d", out[1].ParentTaskID, out[1].TaskID, out[1].Level)
	}
	if out[2].TaskID != 22 || out[2].StartMinutes != 10*60 {
		t.Errorf("second grandchild starts at %s, want 10:00", Clock(out[2].StartMinutes))
	}
}

func TestSubdivide_ZeroEstimatesShareEvenly(t *testing.T) {
	lines := []Line{{Date: monday, StartMinutes: 9 * 60, EndMinutes: 11 * 60}}
	children := []ChildSpec{{TaskID: 11}, {TaskID: 12}}

	out := Subdivide(1, lines, children, 1)

	if len(out) != 2 {
		t.Fatalf("expected 2 child lines, got %d", len(out))
	}
	if out[0].EndMinutes != 10*60 || out[1].StartMinutes != 10*60 {
		t.Errorf("even split boundary at %s, want 10:00", Clock(out[0].EndMinutes))
	}
}

func TestSubdivide_NoChildrenOrLines(t *testing.T) {
	if out := Subdivide(1, nil, []ChildSpec{{TaskID: 11}}, 1); out != nil {
		t.Errorf("expected nil for empty lines, got %v", out)
	}
	if out := Subdivide(1, []Line{{Date: monday, StartMinutes: 540, EndMinutes: 600}}, nil, 1); out != nil {
		t.Errorf("expected nil for no children, got %v", out)
	}
}
