// Package native binds the vendor social SDK through cgo.
//
// The binding only compiles with -tags discord_social_sdk and cgo enabled,
// linking against libdiscord_partner_sdk. Importing the package registers the
// library with sdk.Register; without the tag the import is a no-op and
// sdk.Open reports sdk.ErrUnavailable.
package native
