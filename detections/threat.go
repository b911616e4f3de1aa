package detections

// IsThreat reports whether a detection of className at confidence is
// security-relevant.
func IsThreat(className string, confidence float64) bool {
	if _, ok := threatClasses[className]; !ok {
		return false
	}
	return confidence > ThreatConfidenceThreshold
}

// ThreatClasses returns the threat taxonomy in a stable order.
func ThreatClasses() []string {
	return []string{"fire", "smoke", "suspicious_object", "weapon"}
}
