package pose

import "fmt"

// BodyPoint identifies a joint produced by the 14-channel pose model.
type BodyPoint int

const (
	Top BodyPoint = iota
	Neck
	RightShoulder
	RightElbow
	RightWrist
	LeftShoulder
	LeftElbow
	LeftWrist
	RightHip
	RightKnee
	RightAnkle
	LeftHip
	LeftKnee
	LeftAnkle
)

// JointCount is the number of joints in a full pose.
const JointCount = 14

// Heatmap shape limits accepted by ExtractJoints.
const (
	MaxHeatmapJoints = 64
	MaxHeatmapSize   = 1024
)

var labels = [JointCount]string{
	"Top",
	"Neck",
	"Right Shoulder",
	"Right Elbow",
	"Right Wrist",
	"Left Shoulder",
	"Left Elbow",
	"Left Wrist",
	"Right Hip",
	"Right Knee",
	"Right Ankle",
	"Left Hip",
	"Left Knee",
	"Left Ankle",
}

func (b BodyPoint) String() string {
	if b < 0 || int(b) >= JointCount {
		return fmt.Sprintf("BodyPoint(%d)", int(b))
	}
	return labels[b]
}

// Labels returns the joint names in index order.
func Labels() []string {
	out := make([]string, JointCount)
	copy(out, labels[:])
	return out
}

// Bone is a skeleton edge between two joints.
type Bone struct {
	From BodyPoint `json:"from"`
	To   BodyPoint `json:"to"`
}

// Connections is the skeleton drawn between joints.
var Connections = []Bone{
	{Top, Neck},
	{Neck, RightShoulder},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
	{Neck, RightHip},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
	{Neck, LeftShoulder},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{Neck, LeftHip},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
}

// ExtractJoints picks the peak of each heatmap channel.
//
// heatmap is laid out [joints][size][size] row-major. Peaks are scaled from
// heatmap cells to view coordinates by scaleX and scaleY.
func ExtractJoints(heatmap []float64, joints, size int, scaleX, scaleY float64) (Pose, error) {
	if joints <= 0 || size <= 0 || joints > MaxHeatmapJoints || size > MaxHeatmapSize {
		return nil, fmt.Errorf("invalid heatmap shape %dx%dx%d", joints, size, size)
	}
	plane := size * size
	if len(heatmap)%plane != 0 || len(heatmap)/plane != joints {
		return nil, fmt.Errorf("heatmap has %d values, want %d channels of %dx%d", len(heatmap), joints, size, size)
	}

	pose := make(Pose, 0, joints)
	for j := 0; j < joints; j++ {
		channel := heatmap[j*plane : (j+1)*plane]

		best := 0
		for i := 1; i < plane; i++ {
			if channel[i] > channel[best] {
				best = i
			}
		}

		x := best % size
		y := best / size
		pose = append(pose, Point{X: float64(x) * scaleX, Y: float64(y) * scaleY})
	}
	return pose, nil
}
