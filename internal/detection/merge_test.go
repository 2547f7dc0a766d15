package detection

import (
	"testing"
)

func TestMerge_OffsetsGrade2(t *testing.T) {
	g1 := []Detection{box(10, 10, 10, 10, 0.9, 4)}
	g2 := []Detection{
		box(100, 10, 10, 10, 0.8, 0),
		box(200, 10, 10, 10, 0.7, 31),
	}

	merged := Merge(g1, g2, 0.5)
	if len(merged) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(merged))
	}

	g2Seen := 0
	for _, d := range merged {
		local, isG2 := SplitCombinedID(d.ClassID)
		if d.X >= 100 {
			g2Seen++
			if !isG2 || d.ClassID < G2ClassOffset {
				t.Errorf("grade-2 detection kept id %d, want >= %d", d.ClassID, G2ClassOffset)
			}
			want := 0
			if d.X == 200 {
				want = 31
			}
			if local != want {
				t.Errorf("SplitCombinedID(%d) local = %d, want %d", d.ClassID, local, want)
			}
		} else if isG2 || d.ClassID != 4 {
			t.Errorf("grade-1 detection relabelled: %+v", d)
		}
	}
	if g2Seen != 2 {
		t.Errorf("expected 2 grade-2 detections, saw %d", g2Seen)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	g2 := []Detection{box(100, 10, 10, 10, 0.8, 5)}
	Merge(nil, g2, 0.5)
	if g2[0].ClassID != 5 {
		t.Errorf("Merge modified caller's grade-2 slice: class id %d", g2[0].ClassID)
	}
}

func TestMerge_CrossGradeSuppression(t *testing.T) {
	g1 := []Detection{box(50, 50, 20, 20, 0.70, 8)}
	g2 := []Detection{box(51, 50, 20, 20, 0.90, 8)}

	merged := Merge(g1, g2, 0.5)
	if len(merged) != 1 {
		t.Fatalf("overlapping cross-grade boxes should collapse to 1, got %d", len(merged))
	}
	if merged[0].ClassID != 8+G2ClassOffset {
		t.Errorf("expected the more confident grade-2 box, got %+v", merged[0])
	}
}

func TestMerge_SameWordOverlap(t *testing.T) {
	// Two grade-2 detections of the same word over the same cell.
	g2 := []Detection{
		box(300, 120, 40, 60, 0.81, 29),
		box(302, 121, 40, 60, 0.93, 29),
	}
	if IoU(g2[0], g2[1]) < 0.5 {
		t.Fatalf("fixture boxes should overlap with IoU >= 0.5, got %v", IoU(g2[0], g2[1]))
	}

	merged := Merge(nil, g2, 0.5)
	if len(merged) != 1 {
		t.Fatalf("expected one survivor, got %d", len(merged))
	}
	if merged[0].Confidence != 0.93 {
		t.Errorf("expected confidence 0.93 to survive, got %v", merged[0].Confidence)
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	if got := Merge(nil, nil, 0.5); len(got) != 0 {
		t.Errorf("Merge(nil, nil) = %v, want empty", got)
	}

	g1 := []Detection{
		box(0, 0, 10, 10, 0.4, 1),
		box(100, 0, 10, 10, 0.9, 2),
	}
	got := Merge(g1, nil, 0.5)
	if len(got) != 2 || got[0].ClassID != 2 {
		t.Errorf("Merge(g1, nil) = %+v, want both boxes by confidence", got)
	}

	got = Merge(nil, g1, 0.5)
	if len(got) != 2 || got[0].ClassID != 2+G2ClassOffset {
		t.Errorf("Merge(nil, g2) = %+v, want both boxes offset and by confidence", got)
	}
}

func TestSplitCombinedID(t *testing.T) {
	tests := []struct {
		id        int
		wantLocal int
		wantG2    bool
	}{
		{0, 0, false},
		{999, 999, false},
		{1000, 0, true},
		{1031, 31, true},
	}
	for _, tt := range tests {
		local, isG2 := SplitCombinedID(tt.id)
		if local != tt.wantLocal || isG2 != tt.wantG2 {
			t.Errorf("SplitCombinedID(%d) = (%d, %v), want (%d, %v)", tt.id, local, isG2, tt.wantLocal, tt.wantG2)
		}
	}
}
