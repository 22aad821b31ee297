// Package alerts implements the rule evaluation engine for FactoryPulse
// alerting. A fixed table of threshold rules — with hysteresis bands and a
// creation cooldown — is evaluated against each machine snapshot, producing
// Created and Resolved events for the broadcaster to fan out.
package alerts
