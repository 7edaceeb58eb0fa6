package tasks

import (
	"log/slog"

	"github.com/mikestefanello/backlite"
)

// Queues returns every queue the admin API can enqueue into.
func Queues(syncer Syncer, events EventCleaner, tags OrphanTagsCleaner, logger *slog.Logger) []backlite.Queue {
	logger = logger.With("component", "tasks")
	return []backlite.Queue{
		NewSyncAllQueue(syncer, logger),
		NewSyncCategoryQueue(syncer, logger),
		NewUpdateStatisticsQueue(syncer, logger),
		NewCleanupEventsQueue(events, logger),
		NewCleanupOrphanTagsQueue(tags, logger),
	}
}
