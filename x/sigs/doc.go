/*
Package sigs provides basic authentication
middleware to verify the signatures on the transaction,
and maintain nonces for replay protection.

Every signature carries the sequence of the signing account. The sequence
must match the one stored for the account and is incremented after each
successful verification, so a signed transaction can be processed only once.
*/
package sigs
