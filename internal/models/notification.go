package models

// NotificationKind identifies a notification template.
type NotificationKind string

// Notification kinds.
const (
	KindLiked       NotificationKind = "liked"
	KindFollowed    NotificationKind = "followed"
	KindLevelUp     NotificationKind = "level_up"
	KindPostRanking NotificationKind = "post_ranking"
	KindUserRanking NotificationKind = "user_ranking"
)

// NotificationIntent is a request to notify a user. It carries no delivery semantics.
type NotificationIntent struct {
	RecipientID uint              `json:"recipient_id"`
	Kind        NotificationKind  `json:"kind"`
	Payload     map[string]string `json:"payload"`
}

// Effects are the side effects a committed mutation wants published.
type Effects struct {
	Intents []NotificationIntent
	Checks  []RankCheck
}

// Merge appends other's intents and checks.
func (e *Effects) Merge(other Effects) {
	e.Intents = append(e.Intents, other.Intents...)
	e.Checks = append(e.Checks, other.Checks...)
}

// Empty reports whether there is nothing to publish.
func (e Effects) Empty() bool {
	return len(e.Intents) == 0 && len(e.Checks) == 0
}
