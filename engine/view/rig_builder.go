package view

import (
	"github.com/Carmen-Shannon/oxy-multiview/common"
)

type RigBuilderOption func(*rigImpl)

// WithViews replaces the rig's two views.
//
// Parameters:
//   - left: view 0
//   - right: view 1
//
// Returns:
//   - RigBuilderOption: a function that sets the views
func WithViews(left, right View) RigBuilderOption {
	return func(r *rigImpl) {
		r.views = [ViewCount]View{left, right}
	}
}

// WithHeadPose sets the pose both views are placed relative to.
//
// Parameters:
//   - pose: the head pose
//
// Returns:
//   - RigBuilderOption: a function that sets the head pose
func WithHeadPose(pose common.Pose) RigBuilderOption {
	return func(r *rigImpl) {
		r.headPose = pose
	}
}

// WithIPD sets the eye separation. View 0 is shifted by -ipd/2 and view 1 by +ipd/2
// along the head's local X axis.
//
// Parameters:
//   - ipd: interpupillary distance in world units
//
// Returns:
//   - RigBuilderOption: a function that sets the eye separation
func WithIPD(ipd float32) RigBuilderOption {
	return func(r *rigImpl) {
		r.ipd = ipd
	}
}

// WithSpin rotates the geometry about +Y at a constant rate as the rig is updated.
//
// Parameters:
//   - radiansPerSecond: spin rate
//
// Returns:
//   - RigBuilderOption: a function that sets the spin rate
func WithSpin(radiansPerSecond float32) RigBuilderOption {
	return func(r *rigImpl) {
		r.spinRate = radiansPerSecond
	}
}

// WithFixedMatrices makes the rig serve an explicit matrix pair instead of deriving
// matrices from the views.
//
// Parameters:
//   - u: the matrices for view 0 and view 1
//
// Returns:
//   - RigBuilderOption: a function that sets the fixed matrices
func WithFixedMatrices(u UniformData) RigBuilderOption {
	return func(r *rigImpl) {
		m := u.Matrices
		r.fixed = &m
	}
}
