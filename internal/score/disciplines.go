package score

import (
	"math"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// evaluateSalutation rewards a crisply raised saluting hand with the off
// hand resting at the side.
func evaluateSalutation(d types.Detection, e *evaluation) {
	// Dominant side preference: right hand salutes unless it is not
	// reliably visible.
	wrist, elbow, shoulder := types.RightWrist, types.RightElbow, types.RightShoulder
	offWrist, offHip := types.LeftWrist, types.LeftHip
	if !usable(d, types.RightWrist) && usable(d, types.LeftWrist) {
		wrist, elbow, shoulder = types.LeftWrist, types.LeftElbow, types.LeftShoulder
		offWrist, offHip = types.RightWrist, types.RightHip
	}

	// Raised wrist: above both nose and shoulder for full credit. Y grows
	// downward, so "above" means a smaller Y.
	if usable(d, wrist, shoulder, types.Nose) {
		w := d.At(wrist)
		switch {
		case w.Y < d.At(types.Nose).Y && w.Y < d.At(shoulder).Y:
			e.pass(20, "Salute hand raised high")
		case w.Y < d.At(shoulder).Y:
			e.partial(12, "Raise your saluting hand above eye level")
		case usable(d, elbow) && w.Y < d.At(elbow).Y:
			e.partial(6, "Lift your saluting hand higher")
		default:
			e.fail("Raise your saluting hand to your brow")
		}
	}

	// Elbow angle via the three-point angle at the elbow joint.
	if usable(d, shoulder, elbow, wrist) {
		a := jointAngle(d.At(shoulder), d.At(elbow), d.At(wrist))
		if a >= 30 && a <= 120 {
			e.pass(5, "Saluting elbow bent at a crisp angle")
		} else {
			e.fail("Bend your saluting elbow to about 90 degrees")
		}
	}

	// Off hand resting below hip height.
	if usable(d, offWrist, offHip) {
		if d.At(offWrist).Y > d.At(offHip).Y {
			e.pass(5, "Off hand resting at your side")
		} else {
			e.fail("Keep your other arm straight down at your side")
		}
	}
}

// evaluateAttention rewards both arms pressed straight against the sides,
// wrists at hip height. Each side is scored independently.
func evaluateAttention(d types.Detection, e *evaluation) {
	sides := []struct {
		label    string
		wrist    types.Landmark
		elbow    types.Landmark
		shoulder types.Landmark
		hip      types.Landmark
	}{
		{"left", types.LeftWrist, types.LeftElbow, types.LeftShoulder, types.LeftHip},
		{"right", types.RightWrist, types.RightElbow, types.RightShoulder, types.RightHip},
	}

	for _, s := range sides {
		if usable(d, s.wrist, s.hip) {
			w, h := d.At(s.wrist), d.At(s.hip)
			dx := math.Abs(w.X - h.X)
			switch {
			case dx < 0.15 && w.Y > h.Y-0.05:
				e.pass(15, capSide(s.label)+" hand at your side")
			case dx < 0.25 && w.Y > h.Y-0.10:
				e.partial(8, "Press your "+s.label+" hand against your side")
			default:
				e.fail("Press your " + s.label + " hand against your side")
			}
		}

		if usable(d, s.shoulder, s.elbow, s.wrist) {
			if jointAngle(d.At(s.shoulder), d.At(s.elbow), d.At(s.wrist)) > 160 {
				e.pass(5, capSide(s.label)+" arm straight")
			} else {
				e.fail("Straighten your " + s.label + " arm")
			}
		}
	}
}

// evaluateMarching rewards a ready marching stance: feet set apart, elbows
// bent and visible.
func evaluateMarching(d types.Detection, e *evaluation) {
	if usable(d, types.LeftAnkle, types.RightAnkle) {
		sep := math.Abs(d.At(types.LeftAnkle).X - d.At(types.RightAnkle).X)
		if sep >= 0.10 && sep <= 0.30 {
			e.pass(10, "Feet set in a marching stance")
		} else {
			e.fail("Set your feet about shoulder width apart")
		}
	}

	leftReady := usable(d, types.LeftShoulder, types.LeftElbow, types.LeftWrist) &&
		bentElbow(jointAngle(d.At(types.LeftShoulder), d.At(types.LeftElbow), d.At(types.LeftWrist)))
	rightReady := usable(d, types.RightShoulder, types.RightElbow, types.RightWrist) &&
		bentElbow(jointAngle(d.At(types.RightShoulder), d.At(types.RightElbow), d.At(types.RightWrist)))
	if leftReady && rightReady {
		e.pass(10, "Arms bent and ready")
	} else {
		e.fail("Bend your elbows into a ready position")
	}
}

func bentElbow(angle float64) bool {
	return angle >= 45 && angle <= 150
}

func capSide(side string) string {
	if side == "left" {
		return "Left"
	}
	return "Right"
}
