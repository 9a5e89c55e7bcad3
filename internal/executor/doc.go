// Package executor runs the tools of a workflow.
//
// Runner spawns one process from an argument vector and captures its
// output. Pool schedules nodes onto a bounded set of workers: a node enters
// the ready queue once every dependency has succeeded, so independent
// branches run concurrently while every edge is still respected. The first
// failure stops the dispatch of new work and marks everything downstream of
// it as skipped; nodes already running are allowed to finish.
package executor
