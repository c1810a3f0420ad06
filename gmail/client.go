// Package gmail wraps the Gmail REST API behind the small surface the
// exporter needs: listing message ids, fetching structured and raw messages,
// and downloading attachment bytes.
package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/dhcgn/gmail-export/decode"
)

// userID addresses the authenticated mailbox in every API call.
const userID = "me"

// listPageSize caps a single list call; larger exports paginate.
const listPageSize = 500

type Options struct {
	CredentialsPath string
	TokenPath       string
}

type Client struct {
	svc    *gmailapi.Service
	logger *slog.Logger
}

func NewClient(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	httpClient, err := newHTTPClient(ctx, opts.CredentialsPath, opts.TokenPath, logger)
	if err != nil {
		return nil, err
	}

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	return &Client{svc: svc, logger: logger}, nil
}

// ListMessageIDs returns up to max message ids, newest first, optionally
// narrowed by a Gmail search query and label ids. Pages through the list
// endpoint until max is reached or the listing is exhausted.
func (c *Client) ListMessageIDs(ctx context.Context, query string, labelIDs []string, max int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for int64(len(ids)) < max {
		pageSize := max - int64(len(ids))
		if pageSize > listPageSize {
			pageSize = listPageSize
		}

		call := c.svc.Users.Messages.List(userID).MaxResults(pageSize).Context(ctx)
		if query != "" {
			call = call.Q(query)
		}
		if len(labelIDs) > 0 {
			call = call.LabelIds(labelIDs...)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Messages) == 0 {
			break
		}
	}

	if int64(len(ids)) > max {
		ids = ids[:max]
	}

	c.logger.Debug("listed messages", "count", len(ids), "query", query)
	return ids, nil
}

// FetchMessage retrieves the full structured payload (headers plus the MIME
// part tree) of one message.
func (c *Client) FetchMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := c.svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

// FetchRaw retrieves the raw RFC 822 bytes of one message together with its
// internal delivery time.
func (c *Client) FetchRaw(ctx context.Context, id string) ([]byte, time.Time, error) {
	msg, err := c.svc.Users.Messages.Get(userID, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get raw message %s: %w", id, err)
	}

	raw, err := decode.Bytes(msg.Raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decode raw message %s: %w", id, err)
	}

	return raw, time.UnixMilli(msg.InternalDate), nil
}

// FetchAttachment downloads and decodes the bytes behind one attachment id.
func (c *Client) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	body, err := c.svc.Users.Messages.Attachments.Get(userID, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get attachment %s of message %s: %w", attachmentID, messageID, err)
	}

	data, err := decode.Bytes(body.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s of message %s: %w", attachmentID, messageID, err)
	}
	return data, nil
}
