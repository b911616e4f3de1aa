package detections

const (
	// ModelKey identifies the single cached backend.
	ModelKey = "detection_model"

	InputWidth  = 640
	InputHeight = 640

	DefaultConfThreshold = 0.25
	DefaultIouThreshold  = 0.45
	DefaultPoolSize      = 4
	RetryAttempts        = 3
	RetryDelayMs         = 100

	// ThreatConfidenceThreshold must be strictly exceeded for a threat.
	ThreatConfidenceThreshold = 0.7
)

// threatClasses is the fixed security-relevant taxonomy.
var threatClasses = map[string]struct{}{
	"suspicious_object": {},
	"weapon":            {},
	"fire":              {},
	"smoke":             {},
}
