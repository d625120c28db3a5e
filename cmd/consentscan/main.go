// Package main provides the entry point for the consentscan CLI.
//
// consentscan measures whether websites honor "reject cookies" choices.
// It crawls a site list with real browsers, interacts with consent banners,
// and records the network traffic and page state needed to tell a site
// that stops tracking from one that only pretends to.
//
// Usage:
//
//	consentscan init --sites sites.txt
//	consentscan crawl
//	consentscan compare
//
// See --help for all available options.
package main

// main is the entry point for consentscan.
func main() {
	Execute()
}
