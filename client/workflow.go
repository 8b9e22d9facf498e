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

// WorkflowAction is the closed vocabulary of publication transitions.
type WorkflowAction string

const (
	ActionSubmitForReview WorkflowAction = "submit_for_review"
	ActionApprove         WorkflowAction = "approve"
	ActionReject          WorkflowAction = "reject"
	ActionRequestChanges  WorkflowAction = "request_changes"
	ActionSchedule        WorkflowAction = "schedule"
	ActionPublishNow      WorkflowAction = "publish_now"
	ActionUnpublish       WorkflowAction = "unpublish"
	ActionArchive         WorkflowAction = "archive"
)

func (a WorkflowAction) valid() bool {
	switch a {
	case ActionSubmitForReview, ActionApprove, ActionReject, ActionRequestChanges,
		ActionSchedule, ActionPublishNow, ActionUnpublish, ActionArchive:
		return true
	}
	return false
}

func actionRequiresNotes(action WorkflowAction) bool {
	return action == ActionApprove || action == ActionReject
}

// LegalActions returns the transitions to offer for a review's current
// state. Archive is available from every lifecycle status except archived;
// a published review additionally offers only unpublish. The server remains
// the transition authority, this table only drives what a UI presents.
func LegalActions(status string, reviewStatus string) []WorkflowAction {
	if status == "archived" {
		return []WorkflowAction{}
	}
	if status == "published" {
		return []WorkflowAction{ActionUnpublish, ActionArchive}
	}

	var actions []WorkflowAction
	switch reviewStatus {
	case "draft":
		actions = append(actions, ActionSubmitForReview)
	case "under_review":
		actions = append(actions, ActionApprove, ActionReject)
	case "approved":
		actions = append(actions, ActionSchedule)
	case "scheduled":
		actions = append(actions, ActionPublishNow, ActionSchedule)
	}
	return append(actions, ActionArchive)
}

// PublicationAction is one workflow command for the consolidated endpoint.
type PublicationAction struct {
	ReviewID      string
	Action        WorkflowAction
	Notes         string
	ScheduledDate *time.Time
	ReviewerID    string
}

type publicationActionRequest struct {
	ReviewID      string     `json:"review_id"`
	Action        string     `json:"action"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	ReviewerID    string     `json:"reviewer_id,omitempty"`
}

// DispatchPublicationAction sends one workflow transition. Unlike votes,
// nothing is patched optimistically: on success the queue and detail
// regions are invalidated so the next read refetches server truth, and on
// failure there is nothing to roll back.
func (c *Client) DispatchPublicationAction(ctx context.Context, cmd PublicationAction) (PublicationResult, error) {
	reviewID := strings.TrimSpace(cmd.ReviewID)
	if reviewID == "" {
		return PublicationResult{}, errors.New("client: review id is required")
	}
	if !cmd.Action.valid() {
		return PublicationResult{}, fmt.Errorf("client: unknown workflow action %q", cmd.Action)
	}
	if actionRequiresNotes(cmd.Action) && strings.TrimSpace(cmd.Notes) == "" {
		return PublicationResult{}, fmt.Errorf("client: %s requires notes", cmd.Action)
	}

	var result PublicationResult
	err := c.do(ctx, http.MethodPost, "/publication-actions", publicationActionRequest{
		ReviewID:      reviewID,
		Action:        string(cmd.Action),
		ScheduledDate: cmd.ScheduledDate,
		Notes:         cmd.Notes,
		ReviewerID:    cmd.ReviewerID,
	}, &result)
	if err != nil {
		c.logger.Warn("publication action failed",
			"event", "client_publication_action_failed",
			"review_id", reviewID,
			"action", string(cmd.Action),
			"error", err.Error(),
		)
		c.notifier.Error(workflowErrorMessage(cmd.Action, err))
		return PublicationResult{}, err
	}

	c.Cache.MarkStale(querycache.Key{"reviews", "queue"})
	c.Cache.MarkStale(querycache.Key{"reviews", "detail", reviewID})
	c.notifier.Info(result.Message)
	return result, nil
}

func workflowErrorMessage(action WorkflowAction, err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Sprintf("%s failed: %s", action, apiErr.Message)
	}
	return fmt.Sprintf("%s failed", action)
}
