// Package storage holds the object buckets for worksheet photos, word
// illustrations and word audio, plus helpers for data URIs and the
// deterministic object paths used by the resolver.
package storage
