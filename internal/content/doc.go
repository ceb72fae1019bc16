// Package content pulls the portfolio collections out of the CMS and
// normalizes each database row into a portfolio.Item.
//
// Databases are located by case-insensitive title among the child databases
// of the configured root page. A missing database yields an empty collection,
// and a failing collection never prevents the others from being fetched.
package content
