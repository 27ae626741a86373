package config

// ClauseFileExtensions are all recognized clause file extensions
var ClauseFileExtensions = []string{".yaml", ".yml", ".toml"}

// ProgramFileExt is the extension of encoded dispatch programs
const ProgramFileExt = ".frp"

// ProgramMagic starts every encoded dispatch program
var ProgramMagic = [4]byte{'F', 'R', 'P', 'G'}

// ProgramVersion is bumped whenever the binary or wire encoding changes.
// Cached programs written by another version are ignored.
const ProgramVersion byte = 0x01

// CacheEnvVar names the environment variable holding the default cache database path
const CacheEnvVar = "FASTRULE_CACHE"

// Logger names
const (
	LogRoot     = "fastrule"
	LogCache    = "fastrule.cache"
	LogPipeline = "fastrule.pipeline"
)

// Outcome names used in clause file probes
const (
	OutcomeStructural = "structural"
	OutcomeData       = "data"
	OutcomeFail       = "fail"
)
