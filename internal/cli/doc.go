// Package cli wires the scrapers into the tcgdata command tree.
package cli
