/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
* Each bucket contains only one type of entity.
* Entities are stored under a primary key, which may be composite.
* Easy queries for one and iteration by key prefix.

Sequences provide monotonic, sortable identifiers and counters persisted in
the same store as the data they describe.
*/
package orm
