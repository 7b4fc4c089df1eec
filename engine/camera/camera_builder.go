package camera

// CameraBuilderOption is a function that configures a Camera instance during construction.
type CameraBuilderOption func(*cameraImpl)

// WithProjection is an option builder that sets the kind of projection the
// camera uses.
//
// Parameters:
//   - projection: perspective or orthographic
//
// Returns:
//   - CameraBuilderOption: a function that applies the projection option to a cameraImpl
func WithProjection(projection ProjectionType) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.projection = projection
	}
}

// WithFov is an option builder that sets the vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that applies the fov option to a cameraImpl
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithOrthoSize is an option builder that sets the vertical half-extent for
// orthographic projection.
//
// Parameters:
//   - size: the vertical half-extent in world units
//
// Returns:
//   - CameraBuilderOption: a function that applies the ortho size option to a cameraImpl
func WithOrthoSize(size float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.orthoSize = size
	}
}

// WithAspect is an option builder that sets the aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: a function that applies the aspect option to a cameraImpl
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClipRange is an option builder that sets the near and far clipping plane
// distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that applies the clip range option to a cameraImpl
func WithClipRange(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}
