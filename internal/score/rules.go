package score

import (
	"math"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

const (
	// visibleFloor is the confidence above which a keypoint counts as visible.
	visibleFloor = 0.3
	// ruleFloor is the per-keypoint confidence a rule requires to fire at all.
	ruleFloor = 0.4
	// minVisible is the minimum visible keypoints for a scoreable detection.
	minVisible = 5
)

// evaluation accumulates the additive rule outcomes for one scan. Rules are
// independent: each contributes its fixed points, a pass message, or an
// advisory string, never coupling to another rule's outcome.
type evaluation struct {
	points int
	passes []string
	advice []string
}

func (e *evaluation) pass(points int, msg string) {
	e.points += points
	e.passes = append(e.passes, msg)
}

func (e *evaluation) partial(points int, rec string) {
	e.points += points
	e.advice = append(e.advice, rec)
}

func (e *evaluation) fail(rec string) {
	e.advice = append(e.advice, rec)
}

// visibleStats returns how many keypoints clear the visibility floor and
// their mean confidence.
func visibleStats(kps []types.Keypoint) (int, float64) {
	count := 0
	sum := 0.0
	for i := range kps {
		if kps[i].Confidence > visibleFloor {
			count++
			sum += kps[i].Confidence
		}
	}
	if count == 0 {
		return 0, 0
	}
	return count, sum / float64(count)
}

// usable reports whether every named landmark clears the rule floor.
func usable(d types.Detection, landmarks ...types.Landmark) bool {
	for _, l := range landmarks {
		if d.At(l).Confidence <= ruleFloor {
			return false
		}
	}
	return true
}

// jointAngle returns the angle at vertex b of the triangle a-b-c, in
// degrees. Degenerate (zero-length) segments yield 0.
func jointAngle(a, b, c types.Keypoint) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	n1 := math.Hypot(v1x, v1y)
	n2 := math.Hypot(v2x, v2y)
	if n1 == 0 || n2 == 0 {
		return 0
	}
	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// evaluateShared applies the discipline-independent body alignment rules.
func evaluateShared(d types.Detection, e *evaluation) {
	// Head over shoulders, horizontal alignment.
	if usable(d, types.Nose, types.LeftShoulder, types.RightShoulder) {
		mid := (d.At(types.LeftShoulder).X + d.At(types.RightShoulder).X) / 2
		dx := math.Abs(d.At(types.Nose).X - mid)
		switch {
		case dx < 0.05:
			e.pass(10, "Head centered over shoulders")
		case dx < 0.10:
			e.partial(5, "Center your head over your shoulders")
		default:
			e.fail("Center your head over your shoulders")
		}
	}

	// Shoulder level difference.
	if usable(d, types.LeftShoulder, types.RightShoulder) {
		dy := math.Abs(d.At(types.LeftShoulder).Y - d.At(types.RightShoulder).Y)
		switch {
		case dy < 0.03:
			e.pass(10, "Shoulders level")
		case dy < 0.06:
			e.partial(5, "Level out your shoulders")
		default:
			e.fail("Level out your shoulders")
		}
	}

	// Nose over hip midpoint, a spine-straightness proxy.
	if usable(d, types.Nose, types.LeftHip, types.RightHip) {
		mid := (d.At(types.LeftHip).X + d.At(types.RightHip).X) / 2
		dx := math.Abs(d.At(types.Nose).X - mid)
		switch {
		case dx < 0.05:
			e.pass(15, "Spine straight and upright")
		case dx < 0.10:
			e.partial(8, "Straighten your back")
		default:
			e.fail("Straighten your back")
		}
	}

	// Hip level difference.
	if usable(d, types.LeftHip, types.RightHip) {
		dy := math.Abs(d.At(types.LeftHip).Y - d.At(types.RightHip).Y)
		if dy < 0.03 {
			e.pass(5, "Hips level")
		} else {
			e.fail("Keep your hips level")
		}
	}

	// Leg straightness via knee/ankle horizontal offset.
	if usable(d, types.LeftKnee, types.RightKnee, types.LeftAnkle, types.RightAnkle) {
		left := math.Abs(d.At(types.LeftKnee).X - d.At(types.LeftAnkle).X)
		right := math.Abs(d.At(types.RightKnee).X - d.At(types.RightAnkle).X)
		switch {
		case left < 0.05 && right < 0.05:
			e.pass(10, "Legs straight")
		case left < 0.10 && right < 0.10:
			e.partial(5, "Stack your knees over your ankles")
		default:
			e.fail("Stack your knees over your ankles")
		}
	}

	// Full-body visibility bonus.
	count, mean := visibleStats(d.Keypoints)
	if count >= 14 && mean > 0.7 {
		e.pass(5, "Full body clearly visible")
	} else {
		e.fail("Keep your whole body inside the frame")
	}
}
