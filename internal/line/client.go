// Package line wraps the LINE Messaging API client used to reply to and
// push messages at users.
package line

import (
	"context"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/pkg/errors"
)

// Client is the reply/push dispatcher over the LINE Messaging API.
type Client struct {
	bot *linebot.Client
}

// NewClient creates the LINE client.
func NewClient(c Config) (*Client, error) {
	var opts []linebot.ClientOption
	if c.EndpointBase != "" {
		opts = append(opts, linebot.WithEndpointBase(c.EndpointBase))
	}

	bot, err := linebot.New(c.ChannelSecret, c.ChannelAccessToken, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "could not create LINE client")
	}

	return &Client{bot: bot}, nil
}

// ReplyText answers an event with a text message.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	_, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	if err != nil {
		return &DispatchError{Op: "reply_text", To: replyToken, Err: err}
	}
	return nil
}

// ReplyImage answers an event with an image message.
func (c *Client) ReplyImage(ctx context.Context, replyToken, originalURL, previewURL string) error {
	_, err := c.bot.ReplyMessage(replyToken, linebot.NewImageMessage(originalURL, previewURL)).WithContext(ctx).Do()
	if err != nil {
		return &DispatchError{Op: "reply_image", To: replyToken, Err: err}
	}
	return nil
}

// PushText sends a text message to a user.
func (c *Client) PushText(ctx context.Context, userID, text string) error {
	_, err := c.bot.PushMessage(userID, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	if err != nil {
		return &DispatchError{Op: "push_text", To: userID, Err: err}
	}
	return nil
}

// PushTextWithImage sends a text message and an image in one push.
func (c *Client) PushTextWithImage(ctx context.Context, userID, text, originalURL, previewURL string) error {
	_, err := c.bot.PushMessage(userID,
		linebot.NewTextMessage(text),
		linebot.NewImageMessage(originalURL, previewURL),
	).WithContext(ctx).Do()
	if err != nil {
		return &DispatchError{Op: "push_text_with_image", To: userID, Err: err}
	}
	return nil
}
