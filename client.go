package bugzilla

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reoring/gobugzilla/link"
	"github.com/reoring/gobugzilla/query"
	"github.com/reoring/gobugzilla/schema"
)

// ErrNotFound is returned when a lookup by id succeeds but the response does
// not contain the requested record.
var ErrNotFound = errors.New("bugzilla: not found")

// Client exposes the Bugzilla REST endpoints. It is safe for concurrent use.
type Client struct {
	link *link.Link
}

// New creates a Client for instance using auth.
func New(instance string, auth link.Auth, opts ...link.Option) (*Client, error) {
	l, err := link.New(instance, auth, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithLink(l), nil
}

// NewWithLink wraps an existing Link. Clients sharing a Link share its
// session, so a password login happens once for all of them.
func NewWithLink(l *link.Link) *Client { return &Client{link: l} }

// Link returns the underlying Link.
func (c *Client) Link() *link.Link { return c.link }

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	return link.Get(ctx, c.link, "version", versionResponse, nil)
}

// Whoami returns the authenticated user.
func (c *Client) Whoami(ctx context.Context) (User, error) {
	return link.Get(ctx, c.link, "whoami", userSchema, nil)
}

// GetBugs returns a query for the bugs with the given ids.
func (c *Client) GetBugs(ids ...int) *query.Filtered[Bug] {
	p := make(link.Pairs, 0, len(ids))
	for _, id := range ids {
		p = append(p, [2]string{"id", strconv.Itoa(id)})
	}
	return c.bugQuery(p)
}

// Quicksearch returns a query running a quicksearch string such as
// "severity:major product:Firefox".
func (c *Client) Quicksearch(q string) *query.Filtered[Bug] {
	return c.bugQuery(link.Pairs{{"quicksearch", q}})
}

// AdvancedSearch returns a query for bugs matching arbitrary search
// parameters, including the query part of a buglist.cgi URL.
func (c *Client) AdvancedSearch(params link.Params) *query.Filtered[Bug] {
	return c.bugQuery(params)
}

func (c *Client) bugQuery(params link.Params) *query.Filtered[Bug] {
	return query.New(func(ctx context.Context, p schema.Projection) ([]Bug, error) {
		return link.Get(ctx, c.link, "bug", bugsResponse(p), link.Merge(params, projectionParams(p)))
	})
}

// projectionParams forwards the projection so the server only sends the
// fields that will be decoded.
func projectionParams(p schema.Projection) link.Params {
	var out link.Pairs
	if p.Includes != nil {
		if fields := p.Select(bugSchema.Fields()); len(fields) > 0 {
			out = append(out, [2]string{"include_fields", strings.Join(fields, ",")})
		}
	}
	if len(p.Excludes) > 0 {
		out = append(out, [2]string{"exclude_fields", strings.Join(p.Excludes, ",")})
	}
	return out
}

// BugHistory returns the changes made to a bug, optionally only those after
// since. A zero since returns the whole history.
func (c *Client) BugHistory(ctx context.Context, id int, since time.Time) ([]History, error) {
	var params link.Params
	if !since.IsZero() {
		params = link.Pairs{{"new_since", schema.FormatDatetime(since)}}
	}
	bugs, err := link.Get(ctx, c.link, fmt.Sprintf("bug/%d/history", id), historyResponse, params)
	if err != nil {
		return nil, err
	}
	for _, b := range bugs {
		if b.ID == id {
			return b.History, nil
		}
	}
	return nil, fmt.Errorf("history of bug %d: %w", id, ErrNotFound)
}

// CreateBug files a bug and returns its id.
func (c *Client) CreateBug(ctx context.Context, bug CreateBugRequest) (int, error) {
	return link.Post(ctx, c.link, "bug", idResponse, bug, nil)
}

// UpdateBug updates the bug identified by idOrAlias, plus any bugs listed in
// u.IDs.
func (c *Client) UpdateBug(ctx context.Context, idOrAlias string, u UpdateBugRequest) ([]UpdatedBug, error) {
	return link.Put(ctx, c.link, "bug/"+url.PathEscape(idOrAlias), updateBugResponse, u, nil)
}

// GetComment returns one comment by its id.
func (c *Client) GetComment(ctx context.Context, id int) (Comment, error) {
	comments, err := link.Get(ctx, c.link, fmt.Sprintf("bug/comment/%d", id), commentResponse, nil)
	if err != nil {
		return Comment{}, err
	}
	cm, ok := comments[id]
	if !ok {
		return Comment{}, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return cm, nil
}

// GetBugComments returns every comment on a bug, description first.
func (c *Client) GetBugComments(ctx context.Context, bug int) ([]Comment, error) {
	bugs, err := link.Get(ctx, c.link, fmt.Sprintf("bug/%d/comment", bug), bugCommentsResponse, nil)
	if err != nil {
		return nil, err
	}
	comments, ok := bugs[bug]
	if !ok {
		return nil, fmt.Errorf("comments of bug %d: %w", bug, ErrNotFound)
	}
	return comments, nil
}

// CreateComment adds a comment to a bug and returns the comment id.
func (c *Client) CreateComment(ctx context.Context, bug int, text string, opts CommentOptions) (int, error) {
	body := createCommentBody{Comment: text, CommentOptions: opts}
	return link.Post(ctx, c.link, fmt.Sprintf("bug/%d/comment", bug), idResponse, body, nil)
}

// GetAttachment returns one attachment by its id, content included.
func (c *Client) GetAttachment(ctx context.Context, id int) (Attachment, error) {
	attachments, err := link.Get(ctx, c.link, fmt.Sprintf("bug/attachment/%d", id), attachmentResponse, nil)
	if err != nil {
		return Attachment{}, err
	}
	a, ok := attachments[id]
	if !ok {
		return Attachment{}, fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// GetBugAttachments returns every attachment of a bug.
func (c *Client) GetBugAttachments(ctx context.Context, bug int) ([]Attachment, error) {
	bugs, err := link.Get(ctx, c.link, fmt.Sprintf("bug/%d/attachment", bug), bugAttachmentsResp, nil)
	if err != nil {
		return nil, err
	}
	attachments, ok := bugs[bug]
	if !ok {
		return nil, fmt.Errorf("attachments of bug %d: %w", bug, ErrNotFound)
	}
	return attachments, nil
}

// CreateAttachment attaches a file to a bug and returns the new attachment
// ids, one per bug in a.IDs.
func (c *Client) CreateAttachment(ctx context.Context, bug int, a CreateAttachmentRequest) ([]int, error) {
	return link.Post(ctx, c.link, fmt.Sprintf("bug/%d/attachment", bug), attachmentIDsResp, a, nil)
}

// UpdateAttachment updates the metadata of an attachment.
func (c *Client) UpdateAttachment(ctx context.Context, id int, u UpdateAttachmentRequest) ([]UpdatedAttachment, error) {
	return link.Put(ctx, c.link, fmt.Sprintf("bug/attachment/%d", id), updateAttachmentResp, u, nil)
}
