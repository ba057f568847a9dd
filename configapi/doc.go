// Package configapi keeps versioned, user-edited configuration documents alive across
// schema changes. It splits internal XML documents into top-level field blocks,
// reconciles them three ways against old and new defaults, and converts them to and
// from a flat, commented text format the user edits by hand.
package configapi
