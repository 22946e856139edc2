package session

// Milestone is an encouragement shown when progress first reaches a
// threshold. Each one fires at most once per session.
type Milestone struct {
	Percent int
	Message string
}

var milestoneThresholds = []int{25, 50, 75, 90}

var milestoneMessages = map[int]string{
	25: "You're doing great! Keep preserving these precious memories.",
	50: "Halfway there! These memories are priceless.",
	75: "Almost there! Your story is taking shape beautifully.",
	90: "You're so close! Just a few more questions left.",
}

// nextMilestoneLocked returns the first unshown threshold progress has reached
// and records it as shown. Crossing several thresholds in one save still
// surfaces only the first unshown one.
func (s *Session) nextMilestoneLocked(progress int) *Milestone {
	for _, threshold := range milestoneThresholds {
		if s.shownMilestones[threshold] {
			continue
		}
		if progress >= threshold {
			s.shownMilestones[threshold] = true
			return &Milestone{Percent: threshold, Message: milestoneMessages[threshold]}
		}
		break
	}
	return nil
}
