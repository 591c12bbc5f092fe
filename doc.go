// Package settlement provides an invoice settlement engine for Go
// applications.
//
// The engine is a library, not a service. Import it into your application,
// give it a store and a value-transfer ledger, and call its operations. It
// provides:
//
//   - An invoice state machine (pending, escrow funded, paid, cancelled)
//   - Milestone escrow with sequential release to the invoice creator
//   - Direct payment recording with an external reference
//   - A per-asset lottery pool: participants pay a premium for a chance to
//     have the pool pay their invoice for them
//   - Party profiles with running invoice and receipt totals
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/settlement"
//	    "github.com/xraph/settlement/store/memory"
//	    ledger "github.com/xraph/settlement/transfer/memory"
//	)
//
//	eng := settlement.New(memory.New(), ledger.New())
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	inv := &invoice.Invoice{
//	    Creator: "alice",
//	    Number:  "INV-001",
//	    Amount:  1_000,
//	    Asset:   "USDC",
//	    Milestones: []invoice.Milestone{
//	        {Description: "design", Amount: 400},
//	        {Description: "build", Amount: 600},
//	    },
//	}
//	err := eng.CreateInvoice(ctx, inv)
//
//	_, err = eng.FundEscrow(ctx, inv.ID, "bob", 1_000)
//	_, err = eng.ReleaseMilestone(ctx, inv.ID, "bob")
//
// # Atomicity
//
// Every mutating operation locks the records it touches, checks all of its
// preconditions, writes its records and only then asks the transfer ledger to
// move funds, inside one store transaction. If the ledger refuses, the
// transaction rolls back and nothing changes. Transfers within one operation
// are submitted as one batch that the ledger applies all-or-nothing.
//
// # Lottery
//
// A pool admits an invoice only if its amount is at most
//
//	max_win = balance * (10000 - reserve_bps) / 10000 * max_win_pct_bps / 10000
//
// and the participant's chance of winning is
//
//	min(9500, premium * 10000 / (amount * (10000 + house_edge_bps) / 10000))
//
// basis points. Settlement consumes 32 bytes of randomness supplied by the
// caller; the engine never generates randomness itself.
//
// # Backends
//
// Stores: store/memory, store/postgres (pgx, with optional grove migrations)
// and store/mongo (grove). Ledgers: transfer/memory and transfer/stellar
// (Horizon). Package api serves the engine over HTTP with gin and bearer JWTs;
// cmd/settled wires it all together from environment variables, and package
// extension mounts it in a Forge application.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	inv_01h455vb4pex5vsknk084sn02q    // Invoice ID
//	esc_01h455vb4pex5vsknk084sn02q    // Escrow ID
//	lpool_01h455vb4pex5vsknk084sn02q  // Lottery pool ID
//	lent_01h455vb4pex5vsknk084sn02q   // Lottery entry ID
//	prof_01h455vb4pex5vsknk084sn02q   // Profile ID
package settlement
