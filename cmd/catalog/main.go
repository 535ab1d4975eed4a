// cmd/catalog is a runnable walkthrough of examples/catalog: it adds a
// handful of items through the event store, commits two more atomically via
// pushManyAggregates, and prints the resulting read model — a CLI stand-in
// for the teacher's HTTP catalog service, since this module's scope is the
// storage engine itself rather than a network-facing service.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/libranexus/eventcore/examples/catalog"
)

func main() {
	ctx := context.Background()
	demo := catalog.NewDemo()

	if _, err := demo.AddItem(ctx, "", "978-0-13-468599-1", "The Go Programming Language", "Donovan & Kernighan", 3); err != nil {
		log.Fatalf("add item: %v", err)
	}

	second := catalog.NewItem("")
	if _, err := second.Add("978-1-59327-584-6", "The Rust Programming Language", "Klabnik & Nichols", 2); err != nil {
		log.Fatalf("stage second item: %v", err)
	}
	third := catalog.NewItem("")
	if _, err := third.Add("978-0-596-00712-6", "Learning Python", "Mark Lutz", 4); err != nil {
		log.Fatalf("stage third item: %v", err)
	}
	if err := demo.CommitMany(ctx, []*catalog.Item{second, third}); err != nil {
		log.Fatalf("commit many: %v", err)
	}

	fmt.Println("catalog read model:")
	for _, v := range demo.ReadModel.All() {
		fmt.Printf("  %s by %s — %d/%d available (stream %s)\n", v.Title, v.Author, v.Available, v.TotalCopies, v.Stream)
	}
}
