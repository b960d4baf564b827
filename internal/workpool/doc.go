// Package workpool runs a fixed set of independent tasks on a bounded number
// of goroutines and joins on all of them before returning.
package workpool
