// Package answer collects the answers of teams for the question currently asked.
package answer

import "time"

// Submission is an accepted answer.
type Submission struct {
	TeamID     string
	AnswerID   string
	SubmitTime time.Time
}

// Collector holds the accepted answers of a single question. It is not safe for
// concurrent use, the session engine owns it.
type Collector struct {
	questionID  string
	open        bool
	submissions map[string]Submission
	order       []string
}

func NewCollector() *Collector {
	return &Collector{submissions: make(map[string]Submission)}
}

// Open starts collecting for a question, dropping whatever was collected before.
func (c *Collector) Open(questionID string) {
	c.Reset()
	c.questionID = questionID
	c.open = true
}

// Close stops accepting submissions and returns the accepted ones in submission order.
// Closing twice returns nothing the second time.
func (c *Collector) Close() []Submission {
	if !c.open {
		return nil
	}
	c.open = false

	out := make([]Submission, 0, len(c.order))
	for _, team := range c.order {
		out = append(out, c.submissions[team])
	}
	return out
}

// Reset clears collected answers.
func (c *Collector) Reset() {
	c.questionID = ""
	c.open = false
	c.submissions = make(map[string]Submission)
	c.order = nil
}

// Submit records the answer of a team if the collector is open for questionID and the team
// has not answered yet. It reports whether the submission was accepted.
func (c *Collector) Submit(questionID string, s Submission) bool {
	if !c.open || questionID != c.questionID {
		return false
	}

	if _, ok := c.submissions[s.TeamID]; ok {
		return false
	}

	c.submissions[s.TeamID] = s
	c.order = append(c.order, s.TeamID)
	return true
}

// QuestionID is the question being collected, empty when closed.
func (c *Collector) QuestionID() string {
	if !c.open {
		return ""
	}
	return c.questionID
}

// Answered reports whether the team has an accepted submission.
func (c *Collector) Answered(teamID string) bool {
	_, ok := c.submissions[teamID]
	return ok
}

// Progress returns the teams that answered in submission order.
func (c *Collector) Progress() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
