package stores_test

import (
	"context"
	"fmt"
	"log"

	"github.com/brickyard/toolbox/pkg/stores"
	"github.com/brickyard/toolbox/pkg/toolbox"
)

// ExampleNewSQLiteStore demonstrates creating and initializing the journal.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path: ":memory:", // Use in-memory database for example
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	fmt.Println("Journal initialized successfully")
	// Output: Journal initialized successfully
}

// ExamplePassSink demonstrates journaling the payloads of a render pass.
func ExamplePassSink() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	pass, err := store.CreatePass(ctx, "portal")
	if err != nil {
		log.Fatal(err)
	}

	sink := stores.NewPassSink(store, pass.ID)
	for _, name := range []string{"headline", "teaser"} {
		err := sink.Dispatch(ctx, toolbox.ElementPayload{
			ElementType:      toolbox.ElementTypeEditable,
			ElementSubType:   "input",
			ElementNamespace: name,
			Data:             map[string]interface{}{"data": map[string]interface{}{}},
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	if err := store.CompletePass(ctx, pass.ID, sink.Count(), 0, nil); err != nil {
		log.Fatal(err)
	}

	payloads, _ := store.ListPayloads(ctx, pass.ID)
	for _, p := range payloads {
		fmt.Println(p.Seq, p.ElementNamespace)
	}
	// Output:
	// 0 headline
	// 1 teaser
}
