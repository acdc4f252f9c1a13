// Package pipeline scans a tracking-number identifier space and persists
// the records the service recognizes.
//
// A run partitions the identifier space across a fixed number of producer
// workers. Each producer walks its partition in increasing order, queries
// the tracking service one chunk at a time, filters the result and hands the
// surviving batch to a single consumer through an unbounded queue. The
// consumer writes each batch in its own store transaction.
//
// Example usage:
//
//	orch, err := pipeline.New(pipeline.Config{
//		Template:  "EW00525141.US",
//		Workers:   4,
//		ChunkSize: 10,
//	}, factory, filter.DetailsFilter{Include: []string{"FRANCE"}}, st)
//	report, err := orch.Run(ctx)
//
// The orchestrator:
//   - Parses the template and splits the space before any query
//   - Gives every producer its own Tracker from the factory
//   - Logs and counts failed chunks, then moves on to the next chunk
//   - Stops the queue only after every producer has returned
//   - Closes the store and reports elapsed time
package pipeline
