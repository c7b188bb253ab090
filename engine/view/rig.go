package view

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-multiview/common"
)

// rigImpl is the single implementation of Rig. It composes a head pose with two
// per-eye views, or, when fixed matrices are set, ignores the views and serves the
// fixed pair. In both cases an accumulated spin about +Y is applied to the geometry.
type rigImpl struct {
	mu *sync.Mutex

	views    [ViewCount]View
	headPose common.Pose
	ipd      float32

	fixed    *[ViewCount][16]float32
	spinRate float32 // radians per second
	yaw      float32
}

// Rig produces the per-view matrices uploaded to the uniform block each frame.
// It plays the role of a stereo head: two views offset by the interpupillary
// distance, placed relative to a shared head pose.
type Rig interface {
	// Views returns the rig's per-eye views, view 0 first.
	//
	// Returns:
	//   - [ViewCount]View: the views
	Views() [ViewCount]View

	// HeadPose returns the pose the eye views are placed relative to.
	//
	// Returns:
	//   - common.Pose: the head pose
	HeadPose() common.Pose

	// SetHeadPose replaces the head pose.
	//
	// Parameters:
	//   - pose: the new head pose
	SetHeadPose(pose common.Pose)

	// IPD returns the interpupillary distance in world units.
	//
	// Returns:
	//   - float32: the eye separation
	IPD() float32

	// Yaw returns the accumulated spin angle in radians.
	//
	// Returns:
	//   - float32: the spin angle
	Yaw() float32

	// Update advances the spin by dt. It is a no-op when no spin rate is set.
	// Should be called once per tick.
	//
	// Parameters:
	//   - dt: elapsed time since the previous update
	Update(dt time.Duration)

	// UniformData computes the matrices for both views at the current state.
	// The result is ready to marshal into the uniform buffer.
	//
	// Returns:
	//   - UniformData: one clip-from-world matrix per view
	UniformData() UniformData
}

var _ Rig = &rigImpl{}

// NewRig creates a stereo Rig. Without options, both views sit at the head pose
// (identity) with a 90 degree field of view and zero eye separation.
//
// Parameters:
//   - options: functional options to configure the rig
//
// Returns:
//   - Rig: the newly created rig
func NewRig(options ...RigBuilderOption) Rig {
	r := &rigImpl{
		mu:       &sync.Mutex{},
		headPose: common.IdentityPose(),
	}
	for i := range r.views {
		r.views[i] = NewView()
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *rigImpl) Views() [ViewCount]View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views
}

func (r *rigImpl) HeadPose() common.Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headPose
}

func (r *rigImpl) SetHeadPose(pose common.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headPose = pose
}

func (r *rigImpl) IPD() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ipd
}

func (r *rigImpl) Yaw() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.yaw
}

func (r *rigImpl) Update(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinRate == 0 {
		return
	}
	r.yaw += r.spinRate * float32(dt.Seconds())
}

func (r *rigImpl) UniformData() UniformData {
	r.mu.Lock()
	defer r.mu.Unlock()

	var spin [16]float32
	common.RotationY(spin[:], r.yaw)

	var u UniformData
	for i := range ViewCount {
		var clipFromWorld [16]float32
		if r.fixed != nil {
			clipFromWorld = r.fixed[i]
		} else {
			common.MatrixFromView(clipFromWorld[:], r.eyePose(i), r.views[i].Fov())
		}
		common.Mul4(u.Matrices[i][:], clipFromWorld[:], spin[:])
	}
	return u
}

// eyePose places view i in world space: the view's local pose is shifted by half the
// IPD along the head's local X axis (view 0 left, view 1 right) and then transformed
// by the head pose. Caller must hold the mutex.
func (r *rigImpl) eyePose(i int) common.Pose {
	local := r.views[i].Pose()
	offset := r.ipd / 2
	if i == 0 {
		offset = -offset
	}

	head := r.headPose.Orientation
	if head.Length() == 0 {
		head = common.IdentityQuat()
	}
	head = head.Normalize()

	orientation := local.Orientation
	if orientation.Length() == 0 {
		orientation = common.IdentityQuat()
	}

	localPos := local.Position.Add(common.Vec3{X: offset})
	return common.Pose{
		Position:    r.headPose.Position.Add(head.Rotate(localPos)),
		Orientation: head.Mul(orientation.Normalize()),
	}
}
