package helpers

// Tab layouts shown per role.

var AdminTabs = []string{HomeTab, CreateTab, ProfileTab}

var UserTabs = []string{HomeTab, FavoritesTab, ParticipationsTab, ProfileTab}
