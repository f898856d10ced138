// Package notifications renders notification intents and delivers them over push and realtime channels.
package notifications

import (
	"fmt"

	"socialrank/internal/models"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Kind  models.NotificationKind `json:"type"`
	Title string                  `json:"title"`
	Body  string                  `json:"body"`
	Data  map[string]string       `json:"data"`
}

var rankingNames = map[string]string{
	"trend":     "Trending",
	"popular":   "Popular",
	"likes":     "Likes",
	"level":     "Level",
	"followers": "Followers",
}

// Render turns an intent into a Message. Data carries the intent payload plus a "type" key.
func Render(intent models.NotificationIntent) Message {
	p := intent.Payload
	data := make(map[string]string, len(p)+1)
	for k, v := range p {
		data[k] = v
	}
	data["type"] = string(intent.Kind)

	msg := Message{Kind: intent.Kind, Data: data}
	switch intent.Kind {
	case models.KindLiked:
		msg.Title = "New like"
		msg.Body = fmt.Sprintf("%s liked your post", p["liker_username"])
	case models.KindFollowed:
		msg.Title = "New follower"
		msg.Body = fmt.Sprintf("%s started following you", p["follower_username"])
	case models.KindLevelUp:
		msg.Title = "Level up"
		msg.Body = fmt.Sprintf("You reached level %s!", p["new_level"])
	case models.KindPostRanking:
		name := rankingName(p["ranking_type"])
		msg.Title = fmt.Sprintf("%s ranking", name)
		msg.Body = fmt.Sprintf("Your post is #%s in the %s ranking!", p["rank"], name)
	case models.KindUserRanking:
		name := rankingName(p["ranking_type"])
		msg.Title = fmt.Sprintf("%s ranking", name)
		msg.Body = fmt.Sprintf("You are #%s in the %s ranking!", p["rank"], name)
	default:
		msg.Title = string(intent.Kind)
	}
	return msg
}

func rankingName(rankingType string) string {
	if name, ok := rankingNames[rankingType]; ok {
		return name
	}
	return rankingType
}
