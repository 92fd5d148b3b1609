// Package goerror carries the error taxonomy rendered by the HTTP layer.
package goerror
