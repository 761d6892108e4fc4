/*
Package cash implements a simple token ledger: wallets holding a set of
coins, identified by an address.

There is no logic in the coins, except that the balance of any coin may not go
below zero. The escrow extension uses the Controller to move funds held by an
escrow account, while users can send funds between wallets with SendMsg.
*/
package cash
