package slack

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// DefaultCacheTTL is the default TTL for the DM conversation cache
const DefaultCacheTTL = 45 * time.Second

// cacheEntry holds a cached DM channel ID with expiration
type cacheEntry struct {
	channelID string
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	api      *slack.Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option is a functional option for client configuration
type Option func(*client)

// WithCacheTTL sets the TTL for the DM conversation cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client) {
		c.cacheTTL = ttl
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		api:      slack.New(token),
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// dmChannel resolves the DM conversation ID for a user, with caching.
// Opening an already-open conversation is cheap on Slack's side but
// still a network round trip, so recent resolutions are reused.
func (c *client) dmChannel(ctx context.Context, userID string) (string, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.cache[userID]
	c.mu.RUnlock()
	if ok && entry.expiresAt.After(now) {
		return entry.channelID, nil
	}

	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to open DM conversation",
			goerr.V("user_id", userID))
	}

	c.mu.Lock()
	c.cache[userID] = cacheEntry{
		channelID: channel.ID,
		expiresAt: now.Add(c.cacheTTL),
	}
	c.mu.Unlock()

	return channel.ID, nil
}

// PostDirectMessage opens the DM conversation with the user and posts
// a message, returning the message timestamp
func (c *client) PostDirectMessage(ctx context.Context, userID string, text string) (string, error) {
	channelID, err := c.dmChannel(ctx, userID)
	if err != nil {
		return "", err
	}

	_, timestamp, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post DM",
			goerr.V("user_id", userID),
			goerr.V("channel_id", channelID))
	}

	return timestamp, nil
}

// DeleteDirectMessage deletes a previously posted DM by timestamp
func (c *client) DeleteDirectMessage(ctx context.Context, userID string, timestamp string) error {
	if timestamp == "" {
		return goerr.New("message timestamp is required")
	}

	channelID, err := c.dmChannel(ctx, userID)
	if err != nil {
		return err
	}

	if _, _, err := c.api.DeleteMessageContext(ctx, channelID, timestamp); err != nil {
		return goerr.Wrap(err, "failed to delete DM",
			goerr.V("user_id", userID),
			goerr.V("channel_id", channelID),
			goerr.V("timestamp", timestamp))
	}

	return nil
}

// GetUserInfo retrieves user information for the given user ID
func (c *client) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, goerr.New("user ID is required")
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info",
			goerr.V("user_id", userID))
	}

	return &User{
		ID:       user.ID,
		Name:     user.Name,
		RealName: user.RealName,
		Email:    user.Profile.Email,
	}, nil
}
