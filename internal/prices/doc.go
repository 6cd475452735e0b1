// Package prices fetches EUR card prices. Cardmarket is the primary
// source when a card already has a product URL; the Limitless card page
// serves as fallback and also fills in missing Cardmarket URLs.
package prices
