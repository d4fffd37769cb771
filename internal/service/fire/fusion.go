package fire

// Fuse combines the model and heuristic verdicts for the same image.
//
// A negative model defers to the heuristic. A positive model wins unless the
// heuristic is also positive and strictly more confident.
func Fuse(model, heuristic Result) Result {
	if !model.Fire {
		return heuristic
	}
	if heuristic.Fire && heuristic.Confidence > model.Confidence {
		return heuristic
	}
	return model
}
