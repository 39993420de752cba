// Package retention provides retention policy enforcement for persisted
// audit entries.
//
// The Pruner deletes audit entries older than a configured retention
// window, optionally archiving them to JSON first:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *", // daily at 3 AM
//	})
//	if err := pruner.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer pruner.Stop()
//
// With RetentionDays set to 0 the pruner keeps entries forever. With an
// empty PruneSchedule the scheduler is inert and pruning happens only via
// explicit Prune calls.
package retention
