// Package driver defines the browser contract the traversal engine depends
// on, plus a headless-Chrome implementation over the DevTools protocol.
//
// The engine treats the browser as opaque: navigate, evaluate injected
// script, mutate outgoing request headers, read back the network log, and
// capture screenshots. Everything consent-measurement specific lives above
// this package; everything Chrome specific lives below the Driver
// interface, which is what session tests fake.
//
// One Driver owns one browser process. Browsers leak resources across
// sites, so a session acquires a fresh Driver and must Close it on every
// exit path.
package driver
