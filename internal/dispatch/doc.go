// Package dispatch routes review requests to one or more registered
// backends. Each backend runs behind its own FIFO concurrency queue,
// every request gets a uuid and a tracked status lifecycle, and
// combined requests fan out across backends (parallel by default) and
// merge the surviving results into one deduplicated report.
package dispatch
