// Package meta scrapes the deck usage statistics published on
// play.limitlesstcg.com. It collects per-archetype counts, shares and win
// rates for a format, fetches head-to-head matchup tables for the leading
// decks, and diffs successive runs to track how the metagame moves.
package meta
