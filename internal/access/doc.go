// Package access decides where a session belongs and whether it may stay
// where it is.
//
// Everything here is synchronous and side-effect free except the
// CrossRoleGuard, whose only effect is calling a Navigator. The static
// configuration lives in a Table built once at startup.
//
// These decisions are a navigation convenience. They do not replace
// authorization checks on the data the areas display.
package access
