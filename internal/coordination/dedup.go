package coordination

import "fmt"

// BuildDedupKey derives the deterministic identity of a single escalation
// condition. The escalation level is embedded so that escalating a condition
// creates a new trigger row instead of mutating the existing one. The key is
// unique per (projectID, dedupKey) among live triggers.
func BuildDedupKey(ruleID, targetUserID, relatedEntityID string, escalationLevel int) string {
	return fmt.Sprintf("%s:%s:%s:L%d", ruleID, targetUserID, relatedEntityID, escalationLevel)
}
