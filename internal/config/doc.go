// Package config defines the crawl run configuration: algorithm selection,
// traversal budgets, shared-state paths, and the YAML snapshot written once
// at run start so that every worker process and the offline analysis read
// identical settings.
package config
