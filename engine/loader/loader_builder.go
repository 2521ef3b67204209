package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithTextureMaxSize bounds the longest edge of imported material textures when they are decoded.
// Zero keeps the original size.
//
// Parameters:
//   - size: the maximum edge length in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture size option to a loader
func WithTextureMaxSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		l.textureMaxSize = max(size, 0)
	}
}

// WithBaseDir sets the directory external URIs are resolved against for LoadReader.
//
// Parameters:
//   - dir: the base directory
//
// Returns:
//   - LoaderBuilderOption: a function that applies the base directory option to a loader
func WithBaseDir(dir string) LoaderBuilderOption {
	return func(l *loader) {
		l.baseDir = dir
	}
}
