package view

import (
	"math"

	"github.com/Carmen-Shannon/oxy-multiview/common"
)

// defaultFovAngle is the full horizontal and vertical field of view of a new View.
const defaultFovAngle = float32(math.Pi / 2)

type ViewBuilderOption func(*viewImpl)

// WithPose sets the view's pose relative to the rig's head.
//
// Parameters:
//   - pose: the view pose
//
// Returns:
//   - ViewBuilderOption: a function that sets the pose
func WithPose(pose common.Pose) ViewBuilderOption {
	return func(v *viewImpl) {
		v.pose = pose
	}
}

// WithFov sets the view's field of view.
//
// Parameters:
//   - fov: the four half angles in radians
//
// Returns:
//   - ViewBuilderOption: a function that sets the field of view
func WithFov(fov common.Fov) ViewBuilderOption {
	return func(v *viewImpl) {
		v.fov = fov
	}
}
