/*
Package escrow implements a multi-party conditional payment escrow.

Funds deposited by a set of payers are held by the escrow account until a
quorum of designated signers agrees on how to distribute them. Every escrow
has three signer groups (release, refund and arbiter) and the module
configuration declares a fourth, emergency group. Each group drives the same
propose, approve and execute cycle implemented by Engine.

Any party can open a dispute, after which only the arbiter and emergency
groups can move funds. Two time based paths do not need any approval: after
the auto release time the balance is split equally among payees, and after
the expiration time deposits are returned to payers.

Release payouts are charged a fee, configured in basis points, that is sent
to the fee collector. Refunds are never charged.
*/
package escrow
