// Package segment is the offline half of motion analysis. It groups stored
// labeled samples into fixed time buckets, computes label shares, run
// lengths and transition counts per bucket, and tags each bucket with a
// behavioural pattern from an ordered rule table.
//
// Everything here is a pure function of its input.
package segment
