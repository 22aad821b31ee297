// Package store holds the server's volatile state: the machine snapshot
// table (one current snapshot per machine, last-write-wins) and the bounded,
// insertion-ordered alert log. Both are safe for concurrent reads; all
// mutation is driven through the hub's serialized task loop.
package store
