// Package rop holds Result, the value a stage callable returns for each
// message it processes. A Result is either a published value (Success), an
// intentional empty step (None), a failure (Fail) or a cancellation (Cancel).
package rop
