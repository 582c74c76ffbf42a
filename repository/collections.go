package repository

const (
	EventsCollection       = "events"
	UsersCollection        = "users"
	ParticipantsCollection = "participants"
	SessionsCollection     = "sessions"
)
