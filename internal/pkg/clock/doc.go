// Package clock provides a tiny time abstraction.
//
// Production code should depend on the Clocker interface instead of calling
// time.Now() directly. The TOTP verifier anchors every window search on a
// single Now() reading, so tests swap in a Manual clock to pin that anchor to
// a known epoch second.
package clock
