package scene

// SceneBuilderOption is a function that configures a Scene instance during construction.
type SceneBuilderOption func(*sceneImpl)

// WithBackgroundColor is an option builder that sets the clear color used by
// the forward pass.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//   - a: the alpha component
//
// Returns:
//   - SceneBuilderOption: a function that applies the background color option to a sceneImpl
func WithBackgroundColor(r, g, b, a float32) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.backgroundColor = [4]float32{r, g, b, a}
	}
}

// WithAmbientColor is an option builder that sets the scene's ambient light
// color.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - SceneBuilderOption: a function that applies the ambient color option to a sceneImpl
func WithAmbientColor(r, g, b float32) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.ambientColor = [3]float32{r, g, b}
	}
}
