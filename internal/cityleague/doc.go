// Package cityleague scrapes Japanese City League tournaments from
// limitlesstcg.com.
//
// A run lists the tournaments inside a date window, pulls each league's
// placements and decklists, classifies decklist entries against the card
// index, and writes the overview, cards and deck statistics CSVs the site's
// front end consumes. Tournament IDs that were already scraped are tracked
// in a state file and skipped on later runs.
package cityleague
