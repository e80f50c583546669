package domain

// Commands accepted from room members.
const (
	CommandJoin                 = "join"
	CommandSelectDoubleCategory = "select-double-category"
	CommandStartQuiz            = "start-quiz"
	CommandNextQuestion         = "next-question"
	CommandStartTimer           = "start-timer"
	CommandAnswerSelected       = "answer-selected"
	CommandSubmitAnswer         = "submit-answer"
	CommandNextReviewStep       = "next-review-step"
	CommandEndReview            = "end-review"
)

// Events emitted to room members.
const (
	RoomEventSessionCreated   = "session-created"
	RoomEventSnapshot         = "snapshot"
	RoomEventQuizLoaded       = "quiz-loaded"
	RoomEventTeamJoined       = "team-joined"
	RoomEventDoubleProgress   = "double-category-progress"
	RoomEventQuizStarted      = "quiz-started"
	RoomEventNewQuestion      = "new-question"
	RoomEventCountdown        = "countdown"
	RoomEventTimerEnded       = "timer-ended"
	RoomEventAnswerSelected   = "answer-selected"
	RoomEventTeamAnswered     = "team-answered"
	RoomEventScoreUpdate      = "score-update"
	RoomEventQuizEnded        = "quiz-ended"
	RoomEventReviewStep       = "review-step"
	RoomEventReviewSummary    = "review-summary"
	RoomEventFinalLeaderboard = "final-leaderboard"
	RoomEventSessionAborted   = "session-aborted"
	RoomEventSessionEnded     = "session-ended"
	RoomEventError            = "error"
)

// Notification is the envelope of every message exchanged with room members.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// PublicAnswer is an answer without its correctness, safe to show while a question is live.
type PublicAnswer struct {
	AnswerID string `json:"answer_id"`
	Text     string `json:"text"`
}

type PublicQuestion struct {
	QuestionID   string         `json:"question_id"`
	Text         string         `json:"text"`
	CategoryID   string         `json:"category_id"`
	CategoryName string         `json:"category_name"`
	Answers      []PublicAnswer `json:"answers"`
}

type QuizLoadedPayload struct {
	QuizID         string          `json:"quiz_id"`
	Title          string          `json:"title"`
	Categories     []CategoryBrief `json:"categories"`
	TotalQuestions int             `json:"total_questions"`
}

type CategoryBrief struct {
	CategoryID    string `json:"category_id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

type TeamJoinedPayload struct {
	Team  Team   `json:"team"`
	Teams []Team `json:"teams"`
}

type DoubleProgressPayload struct {
	Selected []string `json:"selected"`
	Pending  []string `json:"pending"`
}

type QuizStartedPayload struct {
	TotalQuestions int `json:"total_questions"`
}

type NewQuestionPayload struct {
	Question PublicQuestion `json:"question"`
	Index    int            `json:"index"`
	Total    int            `json:"total"`
}

type CountdownPayload struct {
	QuestionID       string `json:"question_id"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

type TimerEndedPayload struct {
	QuestionID string `json:"question_id"`
}

type TeamProgressPayload struct {
	TeamID   string `json:"team_id"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}

type ScoreUpdatePayload struct {
	QuestionID  string      `json:"question_id"`
	Leaderboard Leaderboard `json:"leaderboard"`
}

type QuizEndedPayload struct {
	TotalQuestions int `json:"total_questions"`
}

// TeamBreakdown is what a team submitted for one question, revealed during review.
type TeamBreakdown struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	AnswerID string `json:"answer_id,omitempty"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
	Points   string `json:"points"`
}

type QuestionReview struct {
	Question        Question        `json:"question"`
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name"`
	CorrectAnswerID string          `json:"correct_answer_id"`
	Breakdown       []TeamBreakdown `json:"breakdown"`
}

type ReviewStepPayload struct {
	Review QuestionReview `json:"review"`
	Index  int            `json:"index"`
	Total  int            `json:"total"`
}

type ReviewSummaryPayload struct {
	Questions []QuestionReview `json:"questions"`
}

type FinalLeaderboardPayload struct {
	Leaderboard Leaderboard `json:"leaderboard"`
}

type SessionAbortedPayload struct {
	Reason string `json:"reason"`
}

type SessionEndedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SnapshotPayload is everything a joining connection needs to render the current phase.
type SnapshotPayload struct {
	SessionID        string              `json:"session_id"`
	Phase            Phase               `json:"phase"`
	Quiz             *QuizLoadedPayload  `json:"quiz,omitempty"`
	Teams            []Team              `json:"teams"`
	You              *TeamState          `json:"you,omitempty"`
	Question         *NewQuestionPayload `json:"question,omitempty"`
	TimerRunning     bool                `json:"timer_running"`
	SecondsRemaining int                 `json:"seconds_remaining"`
	Answered         []string            `json:"answered,omitempty"`
	ReviewIndex      int                 `json:"review_index"`
	Leaderboard      *Leaderboard        `json:"leaderboard,omitempty"`
}

type TeamState struct {
	TeamID         string `json:"team_id"`
	DoubleCategory string `json:"double_category,omitempty"`
	Answered       bool   `json:"answered"`
	Score          string `json:"score"`
}
