// Package validator checks inbound request structs with go-playground/validator.
//
// Besides the stock tags it registers "base32secret" (RFC 4648 base32, any
// case, padding optional).
package validator
