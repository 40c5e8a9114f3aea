// File path: internal/scoring/score.go
package scoring

// Lead sources accepted by intake.
const (
	SourceForm           = "form"
	SourceChatbot        = "chatbot"
	SourceReadinessCheck = "readiness_check"
	SourceDiscoveryAgent = "discovery_agent"
)

// Submission carries the fields that influence a lead's score.
type Submission struct {
	Source          string
	TeamSize        string
	ServiceInterest string
	ReadinessScore  *int
}

var sourcePoints = map[string]int{
	SourceReadinessCheck: 40,
	SourceChatbot:        30,
	SourceForm:           20,
}

var teamSizePoints = map[string]int{
	"11-25": 15,
	"26-50": 20,
	"50+":   10,
}

var interestPoints = map[string]int{
	"build": 10,
	"both":  15,
}

// maxReadinessPoints caps the readiness contribution.
const maxReadinessPoints = 20

// Score returns the additive heat score for a submission. The total is not
// capped. Unknown values contribute nothing.
func Score(s Submission) int {
	score := sourcePoints[s.Source]
	score += teamSizePoints[s.TeamSize]
	score += interestPoints[s.ServiceInterest]
	if s.ReadinessScore != nil && *s.ReadinessScore > 0 {
		points := *s.ReadinessScore / 5
		if points > maxReadinessPoints {
			points = maxReadinessPoints
		}
		score += points
	}
	return score
}

// Band labels a score for display: hot from 60, warm from 30.
func Band(score int) string {
	switch {
	case score >= 60:
		return "hot"
	case score >= 30:
		return "warm"
	default:
		return "cold"
	}
}
