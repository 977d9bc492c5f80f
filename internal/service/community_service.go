package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/repository"
)

const (
	newsFeedLimit = 20
	chatFeedLimit = 60
)

// NewsItem is a feed entry joined with its author's display name.
type NewsItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Link      string `json:"link,omitempty"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
}

// ChatItem is a chat message joined with its author's display name.
type ChatItem struct {
	ID        int64  `json:"id"`
	Channel   string `json:"channel"`
	Message   string `json:"message"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
}

// CommunityService covers the news feed and channel chat. Member-level
// access is enforced at the router; channel-level restrictions are
// enforced here because they depend on the channel argument.
type CommunityService struct {
	news   repository.NewsRepository
	chat   repository.ChatRepository
	users  repository.UserRepository
	node   *snowflake.Node
	logger *zap.Logger
}

// NewCommunityService wires dependencies.
func NewCommunityService(news repository.NewsRepository, chat repository.ChatRepository, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger) *CommunityService {
	return &CommunityService{news: news, chat: chat, users: users, node: node, logger: logger}
}

// PublishNews posts an announcement to the feed.
func (s *CommunityService) PublishNews(ctx context.Context, sess domain.Session, title, body, link string) (domain.NewsPost, error) {
	if !sess.Role.Satisfies(domain.RoleMember) {
		return domain.NewsPost{}, domain.ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return domain.NewsPost{}, fmt.Errorf("title and body are required")
	}

	post, err := s.news.Create(ctx, domain.NewsPost{
		ID:       s.node.Generate().Int64(),
		Title:    title,
		Body:     body,
		Link:     strings.TrimSpace(link),
		AuthorID: sess.UserID,
	})
	if err != nil {
		return domain.NewsPost{}, err
	}
	return post, nil
}

// ListNews returns the most recent feed entries, newest first.
func (s *CommunityService) ListNews(ctx context.Context) ([]NewsItem, error) {
	posts, err := s.news.ListRecent(ctx, newsFeedLimit)
	if err != nil {
		return nil, err
	}

	items := make([]NewsItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, NewsItem{
			ID:        post.ID,
			Title:     post.Title,
			Body:      post.Body,
			Link:      post.Link,
			Author:    s.authorName(ctx, post.AuthorID),
			CreatedAt: post.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return items, nil
}

// SendMessage posts to a channel after checking the channel's role gate.
func (s *CommunityService) SendMessage(ctx context.Context, sess domain.Session, channel domain.Channel, text string) (domain.ChatMessage, error) {
	if !sess.Role.Satisfies(channel.RequiredRole()) {
		return domain.ChatMessage{}, domain.ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, fmt.Errorf("message is empty")
	}

	msg, err := s.chat.Create(ctx, domain.ChatMessage{
		ID:       s.node.Generate().Int64(),
		Channel:  channel,
		Message:  text,
		AuthorID: sess.UserID,
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// ListMessages returns the channel's recent history, oldest first.
func (s *CommunityService) ListMessages(ctx context.Context, sess domain.Session, channel domain.Channel) ([]ChatItem, error) {
	if !sess.Role.Satisfies(channel.RequiredRole()) {
		return nil, domain.ErrUnauthorized
	}
	msgs, err := s.chat.ListRecent(ctx, channel, chatFeedLimit)
	if err != nil {
		return nil, err
	}

	items := make([]ChatItem, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, ChatItem{
			ID:        msg.ID,
			Channel:   string(msg.Channel),
			Message:   msg.Message,
			Author:    s.authorName(ctx, msg.AuthorID),
			CreatedAt: msg.CreatedAt.Format("15:04"),
		})
	}
	return items, nil
}

func (s *CommunityService) authorName(ctx context.Context, userID int64) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "unknown"
	}
	return user.Name
}
