package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pressroom/client/querycache"
)

// Vote vocabulary. "none" retracts the caller's previous vote; toggling the
// active vote is expressed by sending "none", not by repeating it.
const (
	VoteUp   = "up"
	VoteDown = "down"
	VoteNone = "none"
)

// Votable entity types.
const (
	EntityTypeSuggestion    = "suggestion"
	EntityTypeCommunityPost = "community_post"
	EntityTypePoll          = "poll"
)

// voteRegionRoots maps an entity type to the cache region root holding its
// read views: <root>/list, <root>/paginated/..., <root>/detail/<id>.
var voteRegionRoots = map[string]string{
	EntityTypeSuggestion:    "suggestions",
	EntityTypeCommunityPost: "community-posts",
	EntityTypePoll:          "polls",
}

type castVoteRequest struct {
	EntityID   string `json:"entity_id"`
	VoteType   string `json:"vote_type"`
	EntityType string `json:"entity_type"`
}

// CastVote applies the vote optimistically to every cached view of the
// entity, then confirms it with the server. On failure every touched region
// is restored to its pre-vote state and the error is surfaced. On success
// the optimistic values stay on screen and the regions are marked stale
// after the confirm delay so the next read reconciles with server truth.
//
// Casts for the same entity are serialized; a second vote waits for the
// first response rather than racing it.
func (c *Client) CastVote(ctx context.Context, entityType string, entityID string, voteType string) (VoteRecord, error) {
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	voteType = strings.TrimSpace(voteType)

	if entityID == "" {
		return VoteRecord{}, errors.New("client: entity id is required")
	}
	root, ok := voteRegionRoots[entityType]
	if !ok {
		return VoteRecord{}, fmt.Errorf("client: unknown entity type %q", entityType)
	}
	switch voteType {
	case VoteUp, VoteNone:
	case VoteDown:
		if entityType == EntityTypeSuggestion {
			return VoteRecord{}, errors.New("client: suggestions accept up or none votes only")
		}
	default:
		return VoteRecord{}, fmt.Errorf("client: unknown vote type %q", voteType)
	}

	gate := c.voteGate(entityType, entityID)
	gate.Lock()
	defer gate.Unlock()

	regions := []querycache.Key{
		{root, "list"},
		{root, "paginated"},
		{root, "detail", entityID},
	}

	snapshots := make(map[string]querycache.Entry)
	for _, region := range regions {
		c.Cache.Fence(region)
		for key, entry := range c.Cache.Snapshot(region) {
			snapshots[key] = entry
		}
	}
	for _, region := range regions {
		c.applyVotePatch(region, entityType, entityID, voteType)
	}

	var record VoteRecord
	err := c.do(ctx, http.MethodPost, "/votes", castVoteRequest{
		EntityID:   entityID,
		VoteType:   voteType,
		EntityType: entityType,
	}, &record)
	if err != nil {
		c.Cache.Restore(snapshots)
		c.logger.Warn("vote cast failed",
			"event", "client_vote_failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"vote_type", voteType,
			"error", err.Error(),
		)
		c.notifier.Error(voteErrorMessage(err))
		return VoteRecord{}, err
	}

	c.notifier.Info("vote recorded")
	time.AfterFunc(c.confirmDelay, func() {
		for _, region := range regions {
			c.Cache.MarkStale(region)
		}
	})
	return record, nil
}

func (c *Client) applyVotePatch(region querycache.Key, entityType string, entityID string, voteType string) {
	switch entityType {
	case EntityTypeSuggestion:
		c.Cache.ApplyPrefix(region, func(_ string, value any) (any, bool) {
			return patchSuggestionValue(value, entityID, voteType)
		})
	case EntityTypeCommunityPost:
		c.Cache.ApplyPrefix(region, func(_ string, value any) (any, bool) {
			return patchCommunityPostValue(value, entityID, voteType)
		})
	case EntityTypePoll:
		c.Cache.ApplyPrefix(region, func(_ string, value any) (any, bool) {
			return patchPollValue(value, entityID, voteType)
		})
	}
}

// patchSuggestionValue rewrites whichever suggestion shape the region holds:
// a bare list, a paginated window, or a detail record.
func patchSuggestionValue(value any, entityID string, voteType string) (any, bool) {
	switch typed := value.(type) {
	case Suggestion:
		if typed.ID != entityID {
			return value, false
		}
		return reduceSuggestion(typed, voteType), true
	case []Suggestion:
		return patchSlice(typed,
			func(item Suggestion) bool { return item.ID == entityID },
			func(item Suggestion) Suggestion { return reduceSuggestion(item, voteType) },
		)
	case SuggestionPage:
		items, changed := patchSlice(typed.Items,
			func(item Suggestion) bool { return item.ID == entityID },
			func(item Suggestion) Suggestion { return reduceSuggestion(item, voteType) },
		)
		if !changed {
			return value, false
		}
		typed.Items = items
		return typed, true
	}
	return value, false
}

func patchCommunityPostValue(value any, entityID string, voteType string) (any, bool) {
	switch typed := value.(type) {
	case CommunityPost:
		if typed.ID != entityID {
			return value, false
		}
		return reduceCommunityPost(typed, voteType), true
	case []CommunityPost:
		return patchSlice(typed,
			func(item CommunityPost) bool { return item.ID == entityID },
			func(item CommunityPost) CommunityPost { return reduceCommunityPost(item, voteType) },
		)
	case CommunityPostPage:
		items, changed := patchSlice(typed.Items,
			func(item CommunityPost) bool { return item.ID == entityID },
			func(item CommunityPost) CommunityPost { return reduceCommunityPost(item, voteType) },
		)
		if !changed {
			return value, false
		}
		typed.Items = items
		return typed, true
	}
	return value, false
}

func patchPollValue(value any, entityID string, voteType string) (any, bool) {
	switch typed := value.(type) {
	case Poll:
		if typed.ID != entityID {
			return value, false
		}
		return reducePoll(typed, voteType), true
	case []Poll:
		return patchSlice(typed,
			func(item Poll) bool { return item.ID == entityID },
			func(item Poll) Poll { return reducePoll(item, voteType) },
		)
	case PollPage:
		items, changed := patchSlice(typed.Items,
			func(item Poll) bool { return item.ID == entityID },
			func(item Poll) Poll { return reducePoll(item, voteType) },
		)
		if !changed {
			return value, false
		}
		typed.Items = items
		return typed, true
	}
	return value, false
}

// patchSlice replaces the first matching element copy-on-write so restored
// snapshots still hold the untouched original.
func patchSlice[T any](items []T, match func(T) bool, reduce func(T) T) ([]T, bool) {
	for i := range items {
		if !match(items[i]) {
			continue
		}
		patched := make([]T, len(items))
		copy(patched, items)
		patched[i] = reduce(items[i])
		return patched, true
	}
	return items, false
}

// reduceSuggestion removes the previous vote, applies the new one, and
// clamps the counter at zero.
func reduceSuggestion(item Suggestion, voteType string) Suggestion {
	if item.UserHasVoted {
		item.Upvotes--
	}
	if voteType == VoteUp {
		item.Upvotes++
	}
	item.Upvotes = clampCount(item.Upvotes)
	item.UserHasVoted = voteType == VoteUp
	return item
}

func reduceCommunityPost(item CommunityPost, voteType string) CommunityPost {
	item.Upvotes, item.Downvotes, item.UserVote = reduceTriState(item.Upvotes, item.Downvotes, item.UserVote, voteType)
	return item
}

func reducePoll(item Poll, voteType string) Poll {
	item.Upvotes, item.Downvotes, item.UserVote = reduceTriState(item.Upvotes, item.Downvotes, item.UserVote, voteType)
	return item
}

// reduceTriState is the shared up/down/none step: decrement the counter of
// the previous vote, increment the counter of the new one, clamp both.
func reduceTriState(upvotes int, downvotes int, userVote *string, voteType string) (int, int, *string) {
	previous := ""
	if userVote != nil {
		previous = *userVote
	}
	switch previous {
	case VoteUp:
		upvotes--
	case VoteDown:
		downvotes--
	}
	switch voteType {
	case VoteUp:
		upvotes++
	case VoteDown:
		downvotes++
	}
	upvotes = clampCount(upvotes)
	downvotes = clampCount(downvotes)

	if voteType == VoteNone {
		return upvotes, downvotes, nil
	}
	next := voteType
	return upvotes, downvotes, &next
}

func clampCount(count int) int {
	if count < 0 {
		return 0
	}
	return count
}

func voteErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "vote failed: " + apiErr.Message
	}
	return "vote failed"
}
