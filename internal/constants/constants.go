package constants

const (
	PhaseActive    = "active"
	PhaseAnswered  = "answered"
	PhaseCompleted = "completed"
)

const (
	RatingOutstanding    = "outstanding"
	RatingGreat          = "great"
	RatingGood           = "good"
	RatingKeepPracticing = "keep_practicing"
)

const (
	QueueQuizCompleted = "quiz.completed"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const (
	DefaultSetID    = "general-knowledge"
	GuestPlayerID   = "guest"
	ContextPlayerID = "player_id"
	MaxResultsLimit = 100
)
