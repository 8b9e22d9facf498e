package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pressroom/client/querycache"
)

type createContentRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type createPollRequest struct {
	Question string     `json:"question"`
	Options  []string   `json:"options"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}

// Suggestions returns the suggestion catalog through the list region.
func (c *Client) Suggestions(ctx context.Context) ([]Suggestion, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"suggestions", "list"}, c.cacheTTL,
		func(ctx context.Context) ([]Suggestion, error) {
			var items []Suggestion
			if err := c.getJSON(ctx, "/suggestions", &items); err != nil {
				return nil, err
			}
			return items, nil
		})
}

// SuggestionsPage returns one paginated window; every window caches under
// the same paginated region so vote patches reach all of them.
func (c *Client) SuggestionsPage(ctx context.Context, limit int, offset int) (SuggestionPage, error) {
	key := querycache.Key{"suggestions", "paginated", strconv.Itoa(limit), strconv.Itoa(offset)}
	return querycache.FetchAs(ctx, c.Cache, key, c.cacheTTL,
		func(ctx context.Context) (SuggestionPage, error) {
			var page SuggestionPage
			path := fmt.Sprintf("/suggestions/paginated?limit=%d&offset=%d", limit, offset)
			if err := c.getJSON(ctx, path, &page); err != nil {
				return SuggestionPage{}, err
			}
			return page, nil
		})
}

func (c *Client) SuggestionByID(ctx context.Context, id string) (Suggestion, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"suggestions", "detail", id}, c.cacheTTL,
		func(ctx context.Context) (Suggestion, error) {
			var item Suggestion
			if err := c.getJSON(ctx, "/suggestions/"+url.PathEscape(id), &item); err != nil {
				return Suggestion{}, err
			}
			return item, nil
		})
}

func (c *Client) CreateSuggestion(ctx context.Context, title string, body string) (Suggestion, error) {
	var item Suggestion
	err := c.do(ctx, http.MethodPost, "/suggestions", createContentRequest{Title: title, Body: body}, &item)
	if err != nil {
		c.notifier.Error(mutationErrorMessage("could not create suggestion", err))
		return Suggestion{}, err
	}
	c.Cache.MarkStale(querycache.Key{"suggestions", "list"})
	c.Cache.MarkStale(querycache.Key{"suggestions", "paginated"})
	c.notifier.Info("suggestion created")
	return item, nil
}

func (c *Client) CommunityPosts(ctx context.Context) ([]CommunityPost, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"community-posts", "list"}, c.cacheTTL,
		func(ctx context.Context) ([]CommunityPost, error) {
			var items []CommunityPost
			if err := c.getJSON(ctx, "/community-posts", &items); err != nil {
				return nil, err
			}
			return items, nil
		})
}

func (c *Client) CommunityPostsPage(ctx context.Context, limit int, offset int) (CommunityPostPage, error) {
	key := querycache.Key{"community-posts", "paginated", strconv.Itoa(limit), strconv.Itoa(offset)}
	return querycache.FetchAs(ctx, c.Cache, key, c.cacheTTL,
		func(ctx context.Context) (CommunityPostPage, error) {
			var page CommunityPostPage
			path := fmt.Sprintf("/community-posts/paginated?limit=%d&offset=%d", limit, offset)
			if err := c.getJSON(ctx, path, &page); err != nil {
				return CommunityPostPage{}, err
			}
			return page, nil
		})
}

func (c *Client) CommunityPostByID(ctx context.Context, id string) (CommunityPost, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"community-posts", "detail", id}, c.cacheTTL,
		func(ctx context.Context) (CommunityPost, error) {
			var item CommunityPost
			if err := c.getJSON(ctx, "/community-posts/"+url.PathEscape(id), &item); err != nil {
				return CommunityPost{}, err
			}
			return item, nil
		})
}

func (c *Client) CreateCommunityPost(ctx context.Context, title string, body string) (CommunityPost, error) {
	var item CommunityPost
	err := c.do(ctx, http.MethodPost, "/community-posts", createContentRequest{Title: title, Body: body}, &item)
	if err != nil {
		c.notifier.Error(mutationErrorMessage("could not create post", err))
		return CommunityPost{}, err
	}
	c.Cache.MarkStale(querycache.Key{"community-posts", "list"})
	c.Cache.MarkStale(querycache.Key{"community-posts", "paginated"})
	c.notifier.Info("post created")
	return item, nil
}

func (c *Client) Polls(ctx context.Context) ([]Poll, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"polls", "list"}, c.cacheTTL,
		func(ctx context.Context) ([]Poll, error) {
			var items []Poll
			if err := c.getJSON(ctx, "/polls", &items); err != nil {
				return nil, err
			}
			return items, nil
		})
}

func (c *Client) PollsPage(ctx context.Context, limit int, offset int) (PollPage, error) {
	key := querycache.Key{"polls", "paginated", strconv.Itoa(limit), strconv.Itoa(offset)}
	return querycache.FetchAs(ctx, c.Cache, key, c.cacheTTL,
		func(ctx context.Context) (PollPage, error) {
			var page PollPage
			path := fmt.Sprintf("/polls/paginated?limit=%d&offset=%d", limit, offset)
			if err := c.getJSON(ctx, path, &page); err != nil {
				return PollPage{}, err
			}
			return page, nil
		})
}

func (c *Client) PollByID(ctx context.Context, id string) (Poll, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"polls", "detail", id}, c.cacheTTL,
		func(ctx context.Context) (Poll, error) {
			var item Poll
			if err := c.getJSON(ctx, "/polls/"+url.PathEscape(id), &item); err != nil {
				return Poll{}, err
			}
			return item, nil
		})
}

func (c *Client) CreatePoll(ctx context.Context, question string, options []string, closesAt *time.Time) (Poll, error) {
	var item Poll
	err := c.do(ctx, http.MethodPost, "/polls", createPollRequest{
		Question: question,
		Options:  options,
		ClosesAt: closesAt,
	}, &item)
	if err != nil {
		c.notifier.Error(mutationErrorMessage("could not create poll", err))
		return Poll{}, err
	}
	c.Cache.MarkStale(querycache.Key{"polls", "list"})
	c.Cache.MarkStale(querycache.Key{"polls", "paginated"})
	c.notifier.Info("poll created")
	return item, nil
}

// EntityVotes reads the authoritative counters for one entity, bypassing
// the cache.
func (c *Client) EntityVotes(ctx context.Context, entityType string, entityID string) (EntityVotes, error) {
	var votes EntityVotes
	path := "/votes/" + url.PathEscape(entityType) + "/" + url.PathEscape(entityID)
	if err := c.getJSON(ctx, path, &votes); err != nil {
		return EntityVotes{}, err
	}
	return votes, nil
}

// ReviewQueueFilter narrows the content queue. Zero values are omitted.
type ReviewQueueFilter struct {
	Status       string
	ReviewStatus string
	Search       string
	AuthorID     string
	ReviewerID   string
	Limit        int
	Offset       int
}

func (f ReviewQueueFilter) encode() string {
	values := url.Values{}
	if f.Status != "" {
		values.Set("status", f.Status)
	}
	if f.ReviewStatus != "" {
		values.Set("review_status", f.ReviewStatus)
	}
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	if f.AuthorID != "" {
		values.Set("author_id", f.AuthorID)
	}
	if f.ReviewerID != "" {
		values.Set("reviewer_id", f.ReviewerID)
	}
	if f.Limit > 0 {
		values.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		values.Set("offset", strconv.Itoa(f.Offset))
	}
	return values.Encode()
}

// ReviewQueue returns the admin content queue. Each filter combination
// caches as its own window under the queue region, so one workflow action
// invalidates them all.
func (c *Client) ReviewQueue(ctx context.Context, filter ReviewQueueFilter) (ReviewQueue, error) {
	encoded := filter.encode()
	key := querycache.Key{"reviews", "queue"}
	path := "/reviews/queue"
	if encoded != "" {
		key = append(key, encoded)
		path += "?" + encoded
	}
	return querycache.FetchAs(ctx, c.Cache, key, c.cacheTTL,
		func(ctx context.Context) (ReviewQueue, error) {
			var queue ReviewQueue
			if err := c.getJSON(ctx, path, &queue); err != nil {
				return ReviewQueue{}, err
			}
			return queue, nil
		})
}

func (c *Client) Review(ctx context.Context, reviewID string) (Review, error) {
	return querycache.FetchAs(ctx, c.Cache, querycache.Key{"reviews", "detail", reviewID}, c.cacheTTL,
		func(ctx context.Context) (Review, error) {
			var review Review
			if err := c.getJSON(ctx, "/reviews/"+url.PathEscape(reviewID), &review); err != nil {
				return Review{}, err
			}
			return review, nil
		})
}

// ReviewHistory reads the audit trail directly; it is append-only, so a
// cached copy would only ever be stale.
func (c *Client) ReviewHistory(ctx context.Context, reviewID string) ([]ReviewAudit, error) {
	var audits []ReviewAudit
	if err := c.getJSON(ctx, "/reviews/"+url.PathEscape(reviewID)+"/history", &audits); err != nil {
		return nil, err
	}
	return audits, nil
}

func (c *Client) CreateReview(ctx context.Context, title string, body string) (Review, error) {
	var review Review
	err := c.do(ctx, http.MethodPost, "/reviews", createContentRequest{Title: title, Body: body}, &review)
	if err != nil {
		c.notifier.Error(mutationErrorMessage("could not create review", err))
		return Review{}, err
	}
	c.Cache.MarkStale(querycache.Key{"reviews", "queue"})
	c.notifier.Info("review created")
	return review, nil
}

func (c *Client) UpdateReview(ctx context.Context, reviewID string, title string, body string) (Review, error) {
	var review Review
	path := "/reviews/" + url.PathEscape(reviewID)
	err := c.do(ctx, http.MethodPut, path, createContentRequest{Title: title, Body: body}, &review)
	if err != nil {
		c.notifier.Error(mutationErrorMessage("could not update review", err))
		return Review{}, err
	}
	c.Cache.MarkStale(querycache.Key{"reviews", "queue"})
	c.Cache.MarkStale(querycache.Key{"reviews", "detail", reviewID})
	c.notifier.Info("review updated")
	return review, nil
}

func mutationErrorMessage(prefix string, err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return prefix + ": " + apiErr.Message
	}
	return prefix
}
