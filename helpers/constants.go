package helpers

import "time"

// Store limits.
const (
	// MaxInQueryIDs is the default largest id list a single "id in list" query may carry.
	MaxInQueryIDs = 10
)

// Tab names.
const (
	HomeTab           = "Home"
	CreateTab         = "Create"
	FavoritesTab      = "Favorites"
	ParticipationsTab = "Participations"
	ProfileTab        = "Profile"
)

// User-visible notices.
const (
	UnknownUser                 = "Unknown User"
	NotFound                    = "Event not found"
	FailedToUpdateFavorite      = "Failed to update favorite"
	FailedToUpdateParticipation = "Failed to update participation"
	AddedToFavorites            = "Added to favorites"
	RemovedFromFavorites        = "Removed from favorites"
	JoinedEvent                 = "Joined event"
	LeftEvent                   = "Left event"
	SomethingWentWrong          = "Something went wrong. Please try again."
	ReauthenticationRequired    = "Reauthentication required. Please enter your current password."
	InvalidCredentials          = "Invalid email or password."
	LoginRequired               = "Please login to continue."
	EmailTaken                  = "This email is already registered."
	PasswordUpdated             = "Your password has been updated successfully."
	EventCreated                = "Event created successfully!"
	NotAllowed                  = "You are not allowed to do this."
)

const (
	DefaultLang         = "en"
	SearchSimilarity    = 0.6
	WsReadLimit         = 4096
	ShutdownGracePeriod = 10 * time.Second
)
