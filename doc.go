// Package strata is an embedded, versioned, branchable storage engine.
//
// One database holds five primitive families — key-value pairs, CAS state
// cells, an append-only event log, JSON documents, and vector collections —
// sharing a single per-branch version clock. Every write produces an
// immutable versioned record, so any read can be replayed as of an earlier
// timestamp. Branches fork in O(live data), diff, and merge with
// common-ancestor conflict detection. Cross-primitive search combines BM25
// keyword scoring with a feature-hashed vector pass.
//
// # Quick start
//
//	db, err := strata.Open("./data")
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	db.Put("", "greeting", "hello")
//	v, _, _ := db.Get("", "greeting")
//
//	db.ForkBranch("main", "experiment")
//	db.Checkout("experiment")
//	db.Put("", "greeting", "hi")
//	db.Checkout("main")
//	db.MergeBranches("experiment", "main", strata.MergeLastWriterWins)
//
// Use Cache for a purely in-memory engine:
//
//	db := strata.Cache()
//	defer db.Close()
//
// All exported methods are safe for concurrent use.
package strata
