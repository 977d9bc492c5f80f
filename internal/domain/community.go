package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel names a chat room. The general channel is open to all
// members; the admin channel is restricted to administrators.
type Channel string

const (
	ChannelGeneral Channel = "general"
	ChannelAdmin   Channel = "admin"
)

// ParseChannel validates a channel name coming off the wire.
func ParseChannel(value string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(value))) {
	case ChannelGeneral:
		return ChannelGeneral, nil
	case ChannelAdmin:
		return ChannelAdmin, nil
	}
	return "", fmt.Errorf("unknown channel %q", value)
}

// RequiredRole returns the minimum role needed to read or post in the
// channel.
func (ch Channel) RequiredRole() Role {
	if ch == ChannelAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// NewsPost is an announcement on the community feed.
type NewsPost struct {
	ID        int64
	Title     string
	Body      string
	Link      string
	AuthorID  int64
	CreatedAt time.Time
}

// ChatMessage is a single message in a channel.
type ChatMessage struct {
	ID        int64
	Channel   Channel
	Message   string
	AuthorID  int64
	CreatedAt time.Time
}
