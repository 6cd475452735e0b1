// Package catalog maintains the card database: the list of sets with
// their release order, the English card list, and the recent Japanese
// card list. All three come from limitlesstcg.com and land in plain
// comma-separated CSV files.
package catalog
