// Package redoxfs implements the on-disk filesystem and scheme/resource
// layer of a small hobby operating system: an extent-based filesystem
// (internal/fs) served exclusively through a uniform scheme namespace
// (internal/scheme) over a packet-framed transport (internal/scheme's
// Packet type). See internal/disk for the block device contract these
// two subsystems are built on.
package redoxfs
