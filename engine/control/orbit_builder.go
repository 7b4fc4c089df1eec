package control

// OrbitControllerOption is a functional option for configuring an
// OrbitController via NewOrbitController.
type OrbitControllerOption func(*orbitController)

// WithTarget is an option builder that sets the orbit center.
//
// Parameters:
//   - x, y, z: the target point
//
// Returns:
//   - OrbitControllerOption: a function that applies the target to a controller
func WithTarget(x, y, z float32) OrbitControllerOption {
	return func(c *orbitController) {
		c.target = [3]float32{x, y, z}
	}
}

// WithDistance is an option builder that sets the initial camera distance.
//
// Parameters:
//   - distance: the distance from the target (values <= 0 are ignored)
//
// Returns:
//   - OrbitControllerOption: a function that applies the distance to a controller
func WithDistance(distance float32) OrbitControllerOption {
	return func(c *orbitController) {
		if distance > 0 {
			c.distance = distance
		}
	}
}

// WithAngles is an option builder that sets the initial yaw and pitch in
// radians. Pitch is clamped away from the poles.
//
// Parameters:
//   - yaw: rotation around the vertical axis
//   - pitch: elevation angle
//
// Returns:
//   - OrbitControllerOption: a function that applies the angles to a controller
func WithAngles(yaw, pitch float32) OrbitControllerOption {
	return func(c *orbitController) {
		c.yaw = yaw
		c.pitch = clamp(pitch, -pitchLimit, pitchLimit)
	}
}

// WithSensitivity is an option builder that sets the drag and zoom
// sensitivities.
//
// Parameters:
//   - rotate: radians per pixel of drag (values <= 0 are ignored)
//   - zoom: fractional distance change per scroll unit (values <= 0 are ignored)
//
// Returns:
//   - OrbitControllerOption: a function that applies the sensitivities to a controller
func WithSensitivity(rotate, zoom float32) OrbitControllerOption {
	return func(c *orbitController) {
		if rotate > 0 {
			c.rotateSensitivity = rotate
		}
		if zoom > 0 {
			c.zoomSensitivity = zoom
		}
	}
}

// WithDistanceLimits is an option builder that bounds how close and how far
// the camera may zoom.
//
// Parameters:
//   - min: the minimum distance (must be > 0)
//   - max: the maximum distance (must be >= min)
//
// Returns:
//   - OrbitControllerOption: a function that applies the limits to a controller
func WithDistanceLimits(min, max float32) OrbitControllerOption {
	return func(c *orbitController) {
		if min > 0 && max >= min {
			c.minDistance = min
			c.maxDistance = max
			c.distance = clamp(c.distance, min, max)
		}
	}
}
