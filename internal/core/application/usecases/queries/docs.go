// Package queries contains read-only views of the packages being fulfilled.
package queries
