// cmd/chaos runs the internal/chaostest experiment set against an in-memory
// event store and reports whether each experiment's hypothesis held —
// adapted from the teacher's go-chaos game-day runner, retargeted at the
// event store's own invariants instead of a running circulation service.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/libranexus/eventcore/internal/chaostest"
	"github.com/libranexus/eventcore/pkg/eventstore"
	"github.com/libranexus/eventcore/pkg/eventstore/memstore"
	"github.com/libranexus/eventcore/pkg/eventstore/resilience"
)

func main() {
	events := memstore.NewEvents()
	relations := memstore.NewRelations()
	snapshots := memstore.NewSnapshots()
	validator := eventstore.NewValidator()
	store := eventstore.NewStore(events, relations, snapshots, validator)

	breaker := resilience.New(resilience.Config{Name: "chaos-demo", Timeout: 5 * time.Second})

	engine := chaostest.NewEngine()
	chaostest.RegisterDefaultExperiments(engine, store, events, breaker)

	results := engine.Run(context.Background())
	failed := 0
	for _, r := range results {
		status := "HELD"
		if !r.HypothesisHeld {
			status = "VIOLATED"
			failed++
		}
		fmt.Printf("[%s] %s (%s)\n", status, r.ExperimentName, r.Duration)
		for _, v := range r.Violations {
			fmt.Printf("    - %s\n", v)
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d experiments violated their hypothesis", failed, len(results))
	}
}
