// Package textutil cleans strings that become file names.
package textutil
