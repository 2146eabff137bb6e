// Cross-service callbacks. The ws hub and the services do not know each
// other; main connects them here. Callbacks already run off the request
// goroutine, so each one gets its own bounded context.
package main

import (
	"context"
	"log"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/services"
	"github.com/akinalp/forumcore/ws"
)

const callbackTimeout = 10 * time.Second

// registerHubCallbacks counts a websocket connection as a visit day.
func registerHubCallbacks(hub *ws.Hub, trust services.TrustService) {
	hub.OnUserFirstConnect(func(userID string) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		if err := trust.RecordVisit(ctx, userID); err != nil {
			log.Printf("[trust] failed to record visit for user %s: %v", userID, err)
		}
	})
}

// registerServiceCallbacks keeps the ranking index and connected clients
// in step with votes, new threads and removals.
func registerServiceCallbacks(svcs *Services, hub ws.EventPublisher) {
	svcs.Vote.OnVoteCast(func(evt services.VoteCastEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		if evt.TargetType == models.TargetThread {
			if err := svcs.Ranking.Refresh(ctx, evt.TargetType, evt.TargetID); err != nil {
				log.Printf("[ranking] refresh failed for thread %s: %v", evt.TargetID, err)
			}
		}

		counts := svcs.Vote.GetVoteCounts(ctx, evt.TargetType, evt.TargetID)
		data := ws.VoteUpdateData{
			TargetType: string(evt.TargetType),
			TargetID:   evt.TargetID,
			Upvotes:    counts.Upvotes,
			Downvotes:  counts.Downvotes,
			Score:      counts.Score,
		}
		if ranking, err := svcs.Ranking.GetRanking(ctx, evt.TargetType, evt.TargetID); err == nil {
			data.HotScore = ranking.HotScore
		}

		hub.BroadcastToAll(ws.Event{Op: ws.OpVoteUpdate, Data: data})
	})

	svcs.Content.OnThreadCreated(func(thread *models.Thread) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		if err := svcs.Ranking.Refresh(ctx, models.TargetThread, thread.ID); err != nil {
			log.Printf("[ranking] failed to index new thread %s: %v", thread.ID, err)
		}
	})

	svcs.Moderation.OnContentRemoved(func(evt services.ContentRemovedEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()

		var err error
		switch evt.TargetType {
		case string(models.TargetThread):
			err = svcs.Ranking.Refresh(ctx, models.TargetThread, evt.TargetID)
		case "user":
			// a purge can touch any number of threads
			err = svcs.Ranking.Rebuild(ctx)
		}
		if err != nil {
			log.Printf("[ranking] update after removal of %s %s failed: %v", evt.TargetType, evt.TargetID, err)
		}

		hub.BroadcastToAll(ws.Event{
			Op:   ws.OpContentDeleted,
			Data: ws.ContentDeletedData{TargetType: evt.TargetType, TargetID: evt.TargetID},
		})
	})
}
