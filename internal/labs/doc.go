// Package labs collects complete 60-card decklists for the current
// metagame from two sources: tournament standings on labs.limitlesstcg.com
// and online event lists on play.limitlesstcg.com. Both feed one per-card
// usage table broken down by archetype, tagged with the source meta label.
package labs
