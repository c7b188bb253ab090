package view

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-multiview/common"
)

type viewImpl struct {
	mu *sync.Mutex

	pose common.Pose
	fov  common.Fov
}

// View is a single eye or camera layer: a pose in world space plus an asymmetric
// field of view. Its Matrix is the clip-from-world transform uploaded for its layer.
type View interface {
	// Pose returns the view's pose relative to the rig's head.
	//
	// Returns:
	//   - common.Pose: position and orientation
	Pose() common.Pose

	// Fov returns the view's field of view.
	//
	// Returns:
	//   - common.Fov: the four half angles in radians
	Fov() common.Fov

	// SetPose replaces the view's pose.
	//
	// Parameters:
	//   - pose: the new pose
	SetPose(pose common.Pose)

	// SetFov replaces the view's field of view.
	//
	// Parameters:
	//   - fov: the new field of view
	SetFov(fov common.Fov)

	// Matrix computes projection(fov) * inverse(pose) for this view alone.
	//
	// Returns:
	//   - [16]float32: the column-major clip-from-world matrix
	Matrix() [16]float32
}

var _ View = &viewImpl{}

// NewView creates a View at the origin looking down -Z with a 90 degree field of view.
//
// Parameters:
//   - options: functional options to configure the view
//
// Returns:
//   - View: the newly created view
func NewView(options ...ViewBuilderOption) View {
	v := &viewImpl{
		mu:   &sync.Mutex{},
		pose: common.IdentityPose(),
		fov:  common.SymmetricFov(defaultFovAngle, defaultFovAngle),
	}
	for _, option := range options {
		option(v)
	}
	return v
}

func (v *viewImpl) Pose() common.Pose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose
}

func (v *viewImpl) Fov() common.Fov {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fov
}

func (v *viewImpl) SetPose(pose common.Pose) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pose = pose
}

func (v *viewImpl) SetFov(fov common.Fov) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fov = fov
}

func (v *viewImpl) Matrix() [16]float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	var m [16]float32
	common.MatrixFromView(m[:], v.pose, v.fov)
	return m
}
