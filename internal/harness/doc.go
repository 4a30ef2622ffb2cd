// Package harness runs conformance scenarios against compiled entity types.
//
// A scenario names a directory of CUE entity definitions and a list of
// chain inputs. The harness compiles the definitions, creates their tables
// in a fresh in-memory store, processes the inputs as one batch and checks
// the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	definitions: ../defs
//	batch_id: test-batch-001
//	rpc:
//	  calls:
//	    "1:0xtoken:symbol": { symbol: "TKN" }
//	inputs:
//	  - name: acme.bank.Deposit
//	    origin:
//	      chainId: "1"
//	      blockHash: "0xb1"
//	      blockNumber: 1
//	      blockTimestamp: 2024-01-01T00:00:12Z
//	    data: { account: "0xalice", balance: "100" }
//	expect_error:
//	  index: 2
//	  code: NO_HANDLER
//	assertions:
//	  - type: event_published
//	    event: acme.AccountBalanceChanged@1
//	    data: { balance: "100" }
//	  - type: final_state
//	    table: acme.account_balance_1
//	    where: { account: "0xalice" }
//	    expect: { balance: "100" }
//
// # Assertion Types
//
//   - event_published: an event with the name and a data subset was published
//   - event_order: events appear in the given order
//   - event_count: an event was published exactly N times
//   - contract_registered: an address was added to a contract group
//   - final_state: a single stored row matches the expected column values
//
// # Deterministic Testing
//
// Scenarios run with a fixed batch id (scenario.batch_id, or
// "test-batch-default") and an in-memory SQLite database per run, so golden
// snapshots of published events are byte-for-byte reproducible.
//
// # Golden Files
//
// Golden files live in testdata/golden/{scenario_name}.golden and contain
// the canonical JSON snapshot of a run. Regenerate them with:
//
//	go test ./internal/harness -update
package harness
