/*
Package errors implements the error handling of escrowd.

Every error returned to a client should originate from one of the root errors
declared with Register. A root error carries an ABCI code that clients use to
tell the kinds of failures apart, so codes must be unique.

Reuse the root errors of this package where possible and declare extension
specific ones (see x/escrow) only when nothing here describes the failure.
Create runtime instances with ErrXyz.New, ErrXyz.Newf or Wrap/Wrapf so that a
stack trace is recorded at the point of creation. Wrapping multiple times
records the stack trace only once.

Validation of a message or a model that checks several attributes should
collect all failures with AppendField and return the aggregate. FieldErrors
extracts the errors of a single attribute, which is mostly useful in tests.

Use fmt formatting for additional context:

	%s is just the error message
	%+v is the full stack trace
*/
package errors
