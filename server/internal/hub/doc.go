// Package hub is the serialized core of the FactoryPulse server. A single
// goroutine owns the snapshot table, the alert log, the rule engine, the
// observer registry, and the machine command channels; every mutation —
// reading ingestion, rule evaluation, command routing, acknowledgement,
// periodic eviction — is a task on its queue, processed one at a time in
// arrival order. That serialization is what makes rule evaluation
// deterministic and the alert store safe without interleaving.
package hub
