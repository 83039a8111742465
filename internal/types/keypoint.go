package types

// Landmark identifies one of the fixed anatomical keypoints emitted by the
// pose model, in the model's canonical output order.
type Landmark int

const (
	Nose Landmark = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// NumLandmarks is the size of the landmark set (K).
	NumLandmarks
)

var landmarkNames = [NumLandmarks]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// String returns the wire name of the landmark.
func (l Landmark) String() string {
	if l < 0 || l >= NumLandmarks {
		return "unknown"
	}
	return landmarkNames[l]
}

// Keypoint is a single detected landmark with normalized image coordinates.
type Keypoint struct {
	// X is the horizontal position, normalized to [0,1] relative to the frame.
	X float64 `json:"x"`
	// Y is the vertical position, normalized to [0,1]. Y grows downward.
	Y float64 `json:"y"`
	// Confidence is the model's per-keypoint confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Name is the anatomical landmark identifier.
	Name string `json:"name"`
}

// Detection is the single best candidate selected from the network output.
// A non-empty detection holds exactly NumLandmarks keypoints, indexed by
// Landmark; an empty detection means no candidate cleared the confidence
// threshold.
type Detection struct {
	Keypoints []Keypoint
}

// Empty reports whether no subject was detected.
func (d Detection) Empty() bool {
	return len(d.Keypoints) == 0
}

// At returns the keypoint for the given landmark. Calling At on an empty
// detection is a programming error; the scorer guards with Empty() first.
func (d Detection) At(l Landmark) Keypoint {
	return d.Keypoints[l]
}
