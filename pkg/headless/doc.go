// Package headless resolves rendered bricks and editables into
// ElementPayload values for headless delivery.
//
// A Worker tracks where on the page a unit is rendered through a
// BlockState, derives stable hashes and namespaces from it, normalizes the
// unit's values through the normalizer registry and dispatches one payload
// per unit to a Sink. Values are resolved with the explicit normalizer of
// their schema node first, then with the default normalizer of the node's
// type; anything else passes through.
//
// A Walker replays a Page fixture the way a rendering host would:
//
//	page, err := headless.LoadPage("page.yaml")
//	stack := headless.NewStack()
//	w := headless.NewWorker(mgr, registry, stack, logger)
//	result, err := headless.NewWalker(w, logger).Walk(ctx, passID, page)
package headless
