// Package exiftool runs a pool of long-lived exiftool processes.
//
// Each process is owned by one caller at a time; Extract borrows an instance,
// reads every tag of a single file, and returns the values as strings keyed
// by exiftool tag name.
package exiftool
