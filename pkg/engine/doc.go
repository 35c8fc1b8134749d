// Package engine renders batches of pages concurrently.
//
// Each page is one render pass with its own manager, worker and block state;
// passes share the loaded configuration and the normalizer registry, which
// are safe for concurrent reads. The Scheduler bounds the number of passes in
// flight and rolls the outcome of every pass up into a Summary.
//
// Basic usage:
//
//	sched := engine.NewScheduler(cfg, registry, logger, engine.WithMaxParallel(4))
//	outcomes, summary := sched.Run(ctx, []engine.Job{
//		{Name: "home", Page: home},
//		{Name: "about", Page: about},
//	}, engine.ScheduleOptions{})
//
// A PassRecorder journals every pass; stores.Recorder records them in the
// SQLite payload journal.
package engine
