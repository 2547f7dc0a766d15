package detection

// G2ClassOffset is added to Grade-2 class ids when two models' results are
// merged. It must stay above the largest local class id of either model.
const G2ClassOffset = 1000

// IsCombinedG2 reports whether a combined class id belongs to the Grade-2 model.
func IsCombinedG2(classID int) bool {
	return classID >= G2ClassOffset
}

// SplitCombinedID returns the model-local id and whether it is a Grade-2 id.
func SplitCombinedID(classID int) (localID int, isG2 bool) {
	if IsCombinedG2(classID) {
		return classID - G2ClassOffset, true
	}
	return classID, false
}

// Merge combines Grade-1 and Grade-2 detections into one set.
//
// Grade-2 class ids are shifted by G2ClassOffset, the lists are concatenated
// (Grade-1 first) and a single NonMaxSuppression pass runs over the union, so a
// Grade-1 and a Grade-2 box over the same cell compete and only the more
// confident one survives. Either list may be empty. Inputs are not modified.
func Merge(grade1, grade2 []Detection, iouThreshold float64) []Detection {
	combined := make([]Detection, 0, len(grade1)+len(grade2))
	combined = append(combined, grade1...)
	for _, d := range grade2 {
		d.ClassID += G2ClassOffset
		combined = append(combined, d)
	}
	return NonMaxSuppression(combined, iouThreshold)
}
