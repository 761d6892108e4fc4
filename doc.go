/*
Package escrowd defines the interfaces used throughout the escrow daemon:
storage, transactions, handlers, queries and block information. It also
contains the condition and address types that identify the parties of an
escrow.

Extensions live under x/ and are glued together into an ABCI application by
the app package. The daemon itself is built in cmd/escrowd.
*/
package escrowd
