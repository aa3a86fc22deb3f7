package bundle

// Mode selects between local development output and optimized production output.
type Mode int

const (
	// ModeDebug is the default: unminified output, dev-server script URLs.
	ModeDebug Mode = iota
	// ModeRelease minifies, cleans the output directory and uses the public path.
	ModeRelease
)

// ProductionEnv is the only environment name that selects ModeRelease.
const ProductionEnv = "production"

// ModeFromEnv maps an environment name onto a Mode.
func ModeFromEnv(env string) Mode {
	if env == ProductionEnv {
		return ModeRelease
	}
	return ModeDebug
}

// IsDebug reports whether m is ModeDebug.
func (m Mode) IsDebug() bool {
	return m == ModeDebug
}

func (m Mode) String() string {
	if m == ModeRelease {
		return "release"
	}
	return "debug"
}
