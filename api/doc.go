// Package api holds types, interfaces and constants shared by the
// allocation engine and its callers.
package api
